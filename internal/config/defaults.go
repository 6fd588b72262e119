package config

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	defaultScope             = "openid profile email offline_access"
	defaultDelegationMode    = "exchange"
	defaultUploadParallelism = 4
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultGraphURL          = "https://graph.microsoft.com/v1.0"
	defaultLoginURL          = "https://login.microsoftonline.com"
	defaultRequestTimeout    = "30s"
	defaultFragmentTimeout   = "60s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		CredentialsConfig: CredentialsConfig{
			Scope:          defaultScope,
			DelegationMode: defaultDelegationMode,
		},
		FilesConfig: FilesConfig{
			UploadParallelism: defaultUploadParallelism,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			GraphURL:        defaultGraphURL,
			LoginURL:        defaultLoginURL,
			RequestTimeout:  defaultRequestTimeout,
			FragmentTimeout: defaultFragmentTimeout,
		},
	}
}
