// Package config provides settings loading and defaults for dropsminer.
//
// Settings are loaded from a TOML file in the user's data directory, with
// optional overrides from a .env file and the process environment. The
// package also defines [RunConfig], the immutable result of parsing the
// command line.
package config

//go:generate go run ../../cmd/genconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"tools.zach/dev/dropsminer/internal/atomicfile"
	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/paths"
)

// CurrentVersion is the settings schema version this build writes and reads.
const CurrentVersion = 1

// Environment variables that override the settings file.
const (
	EnvLanguage = "DROPSMINER_LANGUAGE"
	EnvProxy    = "DROPSMINER_PROXY"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the persisted application settings.
type Config struct {
	// Version is the settings schema version.
	Version int `toml:"version"`
	// Language is the identifier of the message catalog to use.
	Language string `toml:"language"`
	// Proxy is an optional proxy URL for all outbound requests.
	Proxy string `toml:"proxy"`
	// Remote holds the remote service connection settings.
	Remote RemoteConfig `toml:"remote"`
	// Log holds log file settings.
	Log LogConfig `toml:"log"`
}

// RemoteConfig holds the remote service connection settings.
type RemoteConfig struct {
	// Endpoint is the URL probed to check that the service is reachable.
	Endpoint string `toml:"endpoint"`
	// CheckIntervalSeconds is the delay between reachability probes.
	CheckIntervalSeconds int `toml:"check_interval_seconds"`
	// RetryMax is the number of retries for a failed probe.
	RetryMax int `toml:"retry_max"`
	// TimeoutSeconds bounds a single probe request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// CheckInterval returns the probe interval as a duration.
func (r RemoteConfig) CheckInterval() time.Duration {
	return time.Duration(r.CheckIntervalSeconds) * time.Second
}

// Timeout returns the per-request timeout as a duration.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		Language: catalog.DefaultLanguage,
		Remote: RemoteConfig{
			Endpoint:             "https://www.twitch.tv",
			CheckIntervalSeconds: 60,
			RetryMax:             3,
			TimeoutSeconds:       10,
		},
		Log: LogConfig{
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
// For this project all defaults are good examples.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Seed writes data to path unless a file already exists there.
func Seed(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat settings: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}

// Load reads dataDir/.env (if present) and dataDir/settings.toml, applies
// environment overrides and validates the result. A missing settings file
// yields DefaultConfig. Unknown keys are rejected.
func Load(dataDir string) (*Config, error) {
	dd := paths.DataDir{Root: dataDir}
	if err := godotenv.Load(dd.Env()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", paths.EnvFile, err)
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(dd.Settings())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read settings file: %w", err)
	default:
		if v := PeekVersion(data); v > CurrentVersion {
			return nil, fmt.Errorf("settings version %d is newer than supported version %d", v, CurrentVersion)
		}
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown settings keys: %s", strings.Join(keys, ", "))
		}
		if cfg.Version == 0 {
			cfg.Version = CurrentVersion
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvLanguage); ok && v != "" {
		c.Language = v
	}
	if v, ok := os.LookupEnv(EnvProxy); ok {
		c.Proxy = v
	}
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Version < 1 || c.Version > CurrentVersion {
		return fmt.Errorf("invalid version %d: must be between 1 and %d", c.Version, CurrentVersion)
	}

	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("language must not be empty")
	}

	if err := checkURL("remote.endpoint", c.Remote.Endpoint, "http", "https"); err != nil {
		return err
	}

	if c.Proxy != "" {
		if err := checkURL("proxy", c.Proxy, "http", "https", "socks5"); err != nil {
			return err
		}
	}

	if c.Remote.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("check_interval_seconds must be > 0, got %d", c.Remote.CheckIntervalSeconds)
	}

	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be > 0, got %d", c.Remote.TimeoutSeconds)
	}

	if c.Remote.RetryMax < 0 {
		return fmt.Errorf("retry_max must be >= 0, got %d", c.Remote.RetryMax)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// checkURL verifies that raw parses as an absolute URL with a host and one
// of the given schemes.
func checkURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: must be an absolute %s URL", field, raw, strings.Join(schemes, "/"))
}

// ProxyURL returns the parsed proxy, or nil when none is configured.
func (c *Config) ProxyURL() *url.URL {
	if c.Proxy == "" {
		return nil
	}
	u, err := url.Parse(c.Proxy)
	if err != nil {
		return nil
	}
	return u
}
