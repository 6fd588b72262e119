package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// Validation range constants.
const (
	minUploadParallelism = 1
	maxUploadParallelism = 16
	minRequestTimeout    = 1 * time.Second
	minFragmentTimeout   = 10 * time.Second
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

var validDelegationModes = map[string]bool{"application": true, "passthrough": true, "exchange": true}

// Validate checks the credentials and every setting, returning one
// configuration error that lists all problems so users can fix them in one
// pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateCredentials(&cfg.CredentialsConfig)...)

	if err := validateSettings(cfg); err != nil {
		errs = append(errs, err)
	}

	return configurationError(errs)
}

// ValidateForFiles additionally requires a drive ID.
func ValidateForFiles(cfg *Config) error {
	errs := validateCredentials(&cfg.CredentialsConfig)

	if cfg.DriveID == "" {
		errs = append(errs, errors.New("Drive id is required to manage files")) //nolint:stylecheck // user-facing sentence
	}

	return configurationError(errs)
}

// ValidateForMail additionally requires a default sender address.
func ValidateForMail(cfg *Config) error {
	errs := validateCredentials(&cfg.CredentialsConfig)

	if cfg.FromAddress == "" {
		errs = append(errs, errors.New("Default from email address is required")) //nolint:stylecheck // user-facing sentence
	}

	return configurationError(errs)
}

func validateCredentials(c *CredentialsConfig) []error {
	var errs []error

	if c.ClientID == "" {
		errs = append(errs, errors.New("Client ID is required")) //nolint:stylecheck // user-facing sentence
	}

	if c.ClientSecret == "" {
		errs = append(errs, errors.New("Client secret is required")) //nolint:stylecheck // user-facing sentence
	}

	if c.TenantID == "" {
		errs = append(errs, errors.New("Tenant is required")) //nolint:stylecheck // user-facing sentence
	}

	if c.Scope == "" {
		errs = append(errs, errors.New("Scope is required")) //nolint:stylecheck // user-facing sentence
	}

	return errs
}

// validateSettings checks everything except credential presence.
func validateSettings(cfg *Config) error {
	var errs []error

	if !validDelegationModes[cfg.DelegationMode] {
		errs = append(errs, fmt.Errorf("delegation_mode: must be one of application, passthrough, exchange; got %q", cfg.DelegationMode))
	}

	if cfg.UploadParallelism < minUploadParallelism || cfg.UploadParallelism > maxUploadParallelism {
		errs = append(errs, fmt.Errorf("upload_parallelism: must be between %d and %d, got %d",
			minUploadParallelism, maxUploadParallelism, cfg.UploadParallelism))
	}

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", cfg.LogLevel))
	}

	if !validLogFormats[cfg.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", cfg.LogFormat))
	}

	if cfg.GraphURL == "" {
		errs = append(errs, errors.New("graph_url: must not be empty"))
	}

	if cfg.LoginURL == "" {
		errs = append(errs, errors.New("login_url: must not be empty"))
	}

	errs = append(errs, validateDuration("request_timeout", cfg.RequestTimeout, minRequestTimeout)...)
	errs = append(errs, validateDuration("fragment_timeout", cfg.FragmentTimeout, minFragmentTimeout)...)

	return errors.Join(errs...)
}

func validateDuration(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", field, minimum, d)}
	}

	return nil
}

// configurationError folds validation failures into one apierr
// configuration error, or returns nil when there are none.
func configurationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	problems := make([]string, 0, len(errs))
	for _, err := range errs {
		problems = append(problems, strings.ReplaceAll(err.Error(), "\n", ", "))
	}

	return apierr.Configuration(problems...)
}

// RequestTimeoutDuration returns request_timeout, assuming a validated config.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout) //nolint:errcheck // validated by Validate

	return d
}

// FragmentTimeoutDuration returns fragment_timeout, assuming a validated config.
func (c *Config) FragmentTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FragmentTimeout) //nolint:errcheck // validated by Validate

	return d
}
