package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions. Credential completeness is not checked here: the secret may
// still arrive from the environment, so Resolve validates after overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, configurationError([]error{err}))
	}

	if err := validateSettings(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", configurationError([]error{err}))
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. Environment variables alone
// are then enough to run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The result has passed Validate; callers that need a drive or a sender
// additionally run ValidateForFiles or ValidateForMail.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	env.apply(cfg)

	// 4. Apply CLI overrides
	if cli.DriveID != "" {
		cfg.DriveID = cli.DriveID
	}

	// 5. Validate the final merged result
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
