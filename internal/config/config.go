// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for msservices. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// Keys are flat in the file and decoded into the embedded section structs.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	CredentialsConfig
	FilesConfig
	MailConfig
	LoggingConfig
	NetworkConfig
}

// CredentialsConfig identifies the application registration and selects
// which identity is asserted to the Graph API.
type CredentialsConfig struct {
	TenantID       string `toml:"tenant_id"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	Scope          string `toml:"scope"`
	DelegationMode string `toml:"delegation_mode"`
}

// FilesConfig scopes drive operations to one drive and an optional base folder.
type FilesConfig struct {
	DriveID           string `toml:"drive_id"`
	RootBasePath      string `toml:"root_base_path"`
	ScratchDir        string `toml:"scratch_dir"`
	UploadParallelism int    `toml:"upload_parallelism"`
}

// MailConfig holds the default sender mailbox.
type MailConfig struct {
	FromAddress string `toml:"from_address"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls endpoints and HTTP timeouts. fragment_timeout is
// applied per upload fragment and is longer than request_timeout because a
// fragment body is several megabytes.
type NetworkConfig struct {
	GraphURL        string `toml:"graph_url"`
	LoginURL        string `toml:"login_url"`
	RequestTimeout  string `toml:"request_timeout"`
	FragmentTimeout string `toml:"fragment_timeout"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	DriveID    string // --drive-id flag
}
