package main

import (
	"log/slog"

	"github.com/tonimelisma/msservices/internal/auth"
	"github.com/tonimelisma/msservices/internal/calendar"
	"github.com/tonimelisma/msservices/internal/config"
	"github.com/tonimelisma/msservices/internal/files"
	"github.com/tonimelisma/msservices/internal/mail"
	"github.com/tonimelisma/msservices/internal/users"
)

// newBroker builds the token broker from the resolved credentials.
func newBroker(cfg *config.Config, logger *slog.Logger) (*auth.Broker, error) {
	mode, err := auth.ParseDelegationMode(cfg.DelegationMode)
	if err != nil {
		return nil, err
	}

	creds, err := auth.NewCredentials(auth.Credentials{
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scope:        cfg.Scope,
		Mode:         mode,
	})
	if err != nil {
		return nil, err
	}

	return auth.NewBroker(creds,
		auth.WithLoginURL(cfg.LoginURL),
		auth.WithHTTPClient(newHTTPClient(cfg.RequestTimeoutDuration())),
		auth.WithLogger(logger),
	), nil
}

// newSession binds the broker to --caller-token.
func newSession(cfg *config.Config, logger *slog.Logger) (*auth.Session, error) {
	b, err := newBroker(cfg, logger)
	if err != nil {
		return nil, err
	}

	return b.Session(flagCallerToken), nil
}

// newFilesService requires a drive. Its HTTP client allows a full
// fragment upload per request.
func newFilesService(cfg *config.Config, logger *slog.Logger) (*files.Service, error) {
	if err := config.ValidateForFiles(cfg); err != nil {
		return nil, err
	}

	session, err := newSession(cfg, logger)
	if err != nil {
		return nil, err
	}

	timeout := max(cfg.RequestTimeoutDuration(), cfg.FragmentTimeoutDuration())

	return files.New(files.Options{
		DriveID:         cfg.DriveID,
		RootBasePath:    cfg.RootBasePath,
		ScratchDir:      cfg.ScratchDirOrDefault(),
		FragmentTimeout: cfg.FragmentTimeoutDuration(),
	}, session, cfg.GraphURL, newHTTPClient(timeout), logger), nil
}

// newMailService requires a default sender.
func newMailService(cfg *config.Config, logger *slog.Logger) (*mail.Service, error) {
	if err := config.ValidateForMail(cfg); err != nil {
		return nil, err
	}

	session, err := newSession(cfg, logger)
	if err != nil {
		return nil, err
	}

	return mail.New(mail.Options{FromAddress: cfg.FromAddress},
		session, cfg.GraphURL, newHTTPClient(cfg.RequestTimeoutDuration()), logger), nil
}

func newCalendarService(cfg *config.Config, logger *slog.Logger) (*calendar.Service, error) {
	session, err := newSession(cfg, logger)
	if err != nil {
		return nil, err
	}

	return calendar.New(session, cfg.GraphURL, newHTTPClient(cfg.RequestTimeoutDuration()), logger), nil
}

func newUsersService(cfg *config.Config, logger *slog.Logger) (*users.Service, error) {
	session, err := newSession(cfg, logger)
	if err != nil {
		return nil, err
	}

	return users.New(session, cfg.GraphURL, newHTTPClient(cfg.RequestTimeoutDuration()), logger), nil
}
