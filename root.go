package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagDriveID     string
	flagCallerToken string
	flagJSON        bool
	flagVerbose     bool
	flagQuiet       bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// newRootCmd builds the root command with every subcommand registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "msservices",
		Short:   "Microsoft Graph files, mail, calendar and directory client",
		Long:    "Drive files, mail, calendars and users through the Microsoft Graph API as an application or on behalf of a caller.",
		Version: version,
		// Errors are printed by exitOnError.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDriveID, "drive-id", "", "drive to operate on (overrides drive_id)")
	cmd.PersistentFlags().StringVar(&flagCallerToken, "caller-token", "",
		"bearer token of the end user to act for (passthrough or exchange mode)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newLsIDCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMailCmd())
	cmd.AddCommand(newCalendarCmd())
	cmd.AddCommand(newUsersCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores it in resolvedCfg.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("drive-id") {
		cli.DriveID = flagDriveID
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// logLevel picks the level from config, then lets --verbose and --quiet
// override it.
func logLevel(cfg *config.Config, verbose, quiet bool) slog.Level {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if verbose {
		level = slog.LevelDebug
	}

	if quiet {
		level = slog.LevelError
	}

	return level
}

// newLogger builds the handler named by log_format. "auto" is text on a
// terminal and JSON otherwise.
func newLogger(w io.Writer, cfg *config.Config, terminal, verbose, quiet bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg, verbose, quiet)}

	format := "auto"
	if cfg != nil {
		format = cfg.LogFormat
	}

	switch {
	case format == "json", format == "auto" && !terminal:
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// buildLogger creates the logger for the current command.
func buildLogger() *slog.Logger {
	terminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	return newLogger(os.Stderr, resolvedCfg, terminal, flagVerbose, flagQuiet)
}

// newHTTPClient returns a client whose overall timeout is at least timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// exitOnError prints the error, with the upstream status when known, and
// exits non-zero.
func exitOnError(err error) {
	if code := apierr.StatusCode(err); code != 0 {
		fmt.Fprintf(os.Stderr, "Error (%d): %v\n", code, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(1)
}
