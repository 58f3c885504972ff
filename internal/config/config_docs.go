package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "remote.endpoint")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Settings schema version. Do not edit.",
	},
	"language": {
		Comment: "Interface language. \"English\" is built in; other languages are\nloaded from files in the lang/ directory next to this file.\nUnknown languages fall back to English.\nOverride with the DROPSMINER_LANGUAGE environment variable.",
		Alternatives: []string{
			`language = "Deutsch"`,
		},
	},
	"proxy": {
		Comment: "Proxy for all outbound requests (http, https or socks5). Empty disables it.\nOverride with the DROPSMINER_PROXY environment variable.",
		Alternatives: []string{
			`proxy = "http://127.0.0.1:8080"`,
			`proxy = "socks5://127.0.0.1:1080"`,
		},
	},

	// ── Remote ───────────────────────────────────────────────────
	"remote.endpoint": {
		Comment: "URL probed to check that the service is reachable",
	},
	"remote.check_interval_seconds": {
		Comment: "Seconds between reachability probes",
	},
	"remote.retry_max": {
		Comment: "Retries for a failed probe before it is reported",
	},
	"remote.timeout_seconds": {
		Comment: "Per-request timeout in seconds",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.max_size_mb": {
		Comment: "Rotate log.txt after this many megabytes (only used with --log)",
	},
}
