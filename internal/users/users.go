// Package users looks up the organisation's directory users through the
// Graph API.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/graph"
)

// User is a directory user.
type User struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName"`
	GivenName         string   `json:"givenName,omitempty"`
	Surname           string   `json:"surname,omitempty"`
	UserPrincipalName string   `json:"userPrincipalName"`
	Mail              string   `json:"mail,omitempty"`
	JobTitle          string   `json:"jobTitle,omitempty"`
	OfficeLocation    string   `json:"officeLocation,omitempty"`
	MobilePhone       string   `json:"mobilePhone,omitempty"`
	BusinessPhones    []string `json:"businessPhones,omitempty"`
	PreferredLanguage string   `json:"preferredLanguage,omitempty"`
}

// Service reads directory users.
type Service struct {
	tokens     graph.TokenProvider
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default().
func New(tokens graph.TokenProvider, baseURL string, httpClient *http.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{tokens: tokens, baseURL: baseURL, httpClient: httpClient, logger: logger}
}

func (s *Service) connect(ctx context.Context) (*graph.Client, error) {
	c, err := graph.Connect(ctx, s.baseURL, s.httpClient, s.tokens, s.logger)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	return c, nil
}

// AllInOrganization returns every user in the tenant, following next links
// until the server stops returning one.
func (s *Service) AllInOrganization(ctx context.Context) ([]User, error) {
	s.logger.Info("listing organisation users")

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	users, err := graph.DrainNextLink[User](ctx, c, "/users")
	if err != nil {
		return nil, fmt.Errorf("users: listing organisation: %w", err)
	}

	return users, nil
}

// ByUserPrincipalName returns the user with the given principal name. The
// same lookup serves email addresses and external IDs, which the directory
// resolves through the principal name.
func (s *Service) ByUserPrincipalName(ctx context.Context, upn string) (*User, error) {
	if strings.TrimSpace(upn) == "" {
		return nil, apierr.Configuration("User principal name is required")
	}

	s.logger.Info("getting user", slog.String("upn", upn))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	var u User
	if err := c.DoJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(upn), nil, &u); err != nil {
		return nil, fmt.Errorf("users: getting %s: %w", upn, err)
	}

	return &u, nil
}

// ByFilter returns every user matching an OData filter expression.
func (s *Service) ByFilter(ctx context.Context, filter string) ([]User, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, apierr.Configuration("Filter expression is required")
	}

	s.logger.Info("filtering users", slog.String("filter", filter))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	path := "/users?$filter=" + strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")

	users, err := graph.Drain[User](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("users: filtering: %w", err)
	}

	return users, nil
}
