// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	LockFile     = "lock.file"
	SettingsFile = "settings.toml"
	EnvFile      = ".env"
	LogFile      = "log.txt"
	StateFile    = "state.json"
	DumpFile     = "dump.json"
	LangDir      = "lang"
)

// Installation names.
const (
	BinaryName = "dropsminer"
	DataDirRel = ".dropsminer" // relative to $HOME
)

// DefaultDataDir returns $HOME/.dropsminer.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DataDirRel), nil
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Ensure creates the data directory if it does not exist.
func (d DataDir) Ensure() error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// Lock returns the full path to the single-instance lock file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// Settings returns the full path to the settings file.
func (d DataDir) Settings() string { return filepath.Join(d.Root, SettingsFile) }

// Env returns the full path to the optional .env file.
func (d DataDir) Env() string { return filepath.Join(d.Root, EnvFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// State returns the full path to the persisted client state.
func (d DataDir) State() string { return filepath.Join(d.Root, StateFile) }

// Dump returns the full path to the diagnostic dump.
func (d DataDir) Dump() string { return filepath.Join(d.Root, DumpFile) }

// Lang returns the full path to the overlay language directory.
func (d DataDir) Lang() string { return filepath.Join(d.Root, LangDir) }
