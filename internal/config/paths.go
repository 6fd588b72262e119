package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "msservices"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/msservices).
// On macOS, uses ~/Library/Application Support/msservices.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".config", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultConfigPath returns the full path to the default config file.
// This is the fallback when neither MSSERVICES_CONFIG nor --config is set.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// ScratchDirOrDefault returns scratch_dir, or a per-application directory
// under the OS temp dir when unset. Scratch files live only as long as the
// operation that created them or the OS temp-directory policy allows.
func (c *Config) ScratchDirOrDefault() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}

	return filepath.Join(os.TempDir(), appName)
}
