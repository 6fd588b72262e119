// Package auth holds the application credentials and the token broker that
// turns them, plus an optional caller token, into a Graph bearer token.
package auth

import (
	"fmt"
	"strings"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// DelegationMode selects whose identity a request to the Graph API asserts.
type DelegationMode int

const (
	// ApplicationOnly always uses the client-credentials grant.
	ApplicationOnly DelegationMode = iota
	// DelegatedPassthrough forwards the caller's token unchanged.
	DelegatedPassthrough
	// DelegatedExchange trades the caller's token for a downstream token
	// through the on-behalf-of grant.
	DelegatedExchange
)

// ParseDelegationMode maps the config spelling onto a DelegationMode.
func ParseDelegationMode(s string) (DelegationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "application":
		return ApplicationOnly, nil
	case "passthrough":
		return DelegatedPassthrough, nil
	case "exchange":
		return DelegatedExchange, nil
	default:
		return 0, apierr.Configuration(fmt.Sprintf("unknown delegation mode %q", s))
	}
}

func (m DelegationMode) String() string {
	switch m {
	case ApplicationOnly:
		return "application"
	case DelegatedPassthrough:
		return "passthrough"
	case DelegatedExchange:
		return "exchange"
	default:
		return fmt.Sprintf("DelegationMode(%d)", int(m))
	}
}

// Credentials identify the application registration. Values are immutable
// once NewCredentials has accepted them.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string
	Mode         DelegationMode
}

// NewCredentials validates c and returns it unchanged. Every missing field
// is listed in the one configuration error.
func NewCredentials(c Credentials) (Credentials, error) {
	var problems []string

	if c.ClientID == "" {
		problems = append(problems, "Client ID is required")
	}

	if c.ClientSecret == "" {
		problems = append(problems, "Client secret is required")
	}

	if c.TenantID == "" {
		problems = append(problems, "Tenant is required")
	}

	if c.Scope == "" {
		problems = append(problems, "Scope is required")
	}

	if len(problems) > 0 {
		return Credentials{}, apierr.Configuration(problems...)
	}

	return c, nil
}

// scopes splits the space-separated scope string.
func (c Credentials) scopes() []string {
	return strings.Fields(c.Scope)
}
