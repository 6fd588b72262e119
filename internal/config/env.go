package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "MSSERVICES_CONFIG"
	EnvTenantID     = "MSSERVICES_TENANT_ID"
	EnvClientID     = "MSSERVICES_CLIENT_ID"
	EnvClientSecret = "MSSERVICES_CLIENT_SECRET"
	EnvDriveID      = "MSSERVICES_DRIVE_ID"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // MSSERVICES_CONFIG: override config file path
	TenantID     string
	ClientID     string
	ClientSecret string // keeps the secret out of the config file
	DriveID      string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		TenantID:     os.Getenv(EnvTenantID),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		DriveID:      os.Getenv(EnvDriveID),
	}
}

// apply copies every non-empty override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.TenantID != "" {
		cfg.TenantID = e.TenantID
	}

	if e.ClientID != "" {
		cfg.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.ClientSecret = e.ClientSecret
	}

	if e.DriveID != "" {
		cfg.DriveID = e.DriveID
	}
}
