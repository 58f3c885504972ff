// Package dropsminer provides embedded assets for the dropsminer binary.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The command seeds the data directory's settings.toml
// from it on first run.
package dropsminer

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. It is regenerated by go generate in internal/config.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
