package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// DefaultLoginURL is the public Microsoft identity platform host.
const DefaultLoginURL = "https://login.microsoftonline.com"

// DefaultResource is the resource identifier presented with the
// application-only grant.
const DefaultResource = "https://graph.microsoft.com/"

// On-behalf-of grant parameters.
const (
	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	onBehalfOf         = "on_behalf_of"
)

// BearerToken is an access token for the Graph API. A zero Expiry means the
// lifetime is unknown, as for passthrough tokens. IDToken is set only when
// the identity endpoint returned one.
type BearerToken struct {
	AccessToken string
	Expiry      time.Time
	IDToken     string
}

// Broker acquires tokens. It holds no token state: every call goes to the
// identity endpoint (or returns the caller token) afresh.
type Broker struct {
	creds      Credentials
	loginURL   string
	resource   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithLoginURL points the broker at a different identity host.
func WithLoginURL(u string) Option {
	return func(b *Broker) { b.loginURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the client used for identity endpoint requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) { b.httpClient = c }
}

// WithLogger sets the broker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithResource overrides the application-only resource identifier.
func WithResource(r string) Option {
	return func(b *Broker) { b.resource = r }
}

// NewBroker creates a Broker for already-validated credentials.
func NewBroker(creds Credentials, opts ...Option) *Broker {
	b := &Broker{
		creds:      creds,
		loginURL:   DefaultLoginURL,
		resource:   DefaultResource,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Acquire returns a token for one logical operation. An empty callerToken
// means none was supplied. Passthrough returns the caller token verbatim,
// exchange performs the on-behalf-of grant, and everything else falls back
// to the application-only grant.
func (b *Broker) Acquire(ctx context.Context, callerToken string) (BearerToken, error) {
	switch {
	case b.creds.Mode == DelegatedPassthrough && callerToken != "":
		b.logger.Debug("using caller token as-is")

		return BearerToken{AccessToken: callerToken}, nil
	case b.creds.Mode == DelegatedExchange && callerToken != "":
		return b.Exchange(ctx, callerToken)
	default:
		return b.ApplicationToken(ctx)
	}
}

// Exchange performs the on-behalf-of grant against the v2 token endpoint,
// presenting assertion as the user's token.
func (b *Broker) Exchange(ctx context.Context, assertion string) (BearerToken, error) {
	if assertion == "" {
		return BearerToken{}, apierr.New(apierr.ErrAuth, apierr.CodeAuthFailed, "no assertion to exchange", nil)
	}

	b.logger.Info("exchanging caller token", slog.String("tenant_id", b.creds.TenantID))

	cfg := &clientcredentials.Config{
		ClientID:     b.creds.ClientID,
		ClientSecret: b.creds.ClientSecret,
		TokenURL:     b.v2TokenURL(),
		Scopes:       b.creds.scopes(),
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"grant_type":          {grantTypeJWTBearer},
			"assertion":           {assertion},
			"requested_token_use": {onBehalfOf},
		},
	}

	return b.retrieve(ctx, cfg, "on-behalf-of exchange")
}

// ApplicationToken performs the client-credentials grant against the v1
// token endpoint with the fixed resource identifier.
func (b *Broker) ApplicationToken(ctx context.Context) (BearerToken, error) {
	b.logger.Info("acquiring application token", slog.String("tenant_id", b.creds.TenantID))

	cfg := &clientcredentials.Config{
		ClientID:     b.creds.ClientID,
		ClientSecret: b.creds.ClientSecret,
		TokenURL:     b.loginURL + "/" + url.PathEscape(b.creds.TenantID) + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"resource": {b.resource},
		},
	}

	return b.retrieve(ctx, cfg, "client credentials")
}

// v2TokenURL returns the tenant's v2 token endpoint.
func (b *Broker) v2TokenURL() string {
	if b.loginURL == DefaultLoginURL {
		return microsoft.AzureADEndpoint(b.creds.TenantID).TokenURL
	}

	return b.loginURL + "/" + url.PathEscape(b.creds.TenantID) + "/oauth2/v2.0/token"
}

func (b *Broker) retrieve(ctx context.Context, cfg *clientcredentials.Config, flow string) (BearerToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	tok, err := cfg.Token(ctx)
	if err != nil {
		b.logger.Warn("token request failed",
			slog.String("flow", flow),
			slog.String("error", err.Error()),
		)

		return BearerToken{}, authError(flow, err)
	}

	bt := BearerToken{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
	if id, ok := tok.Extra("id_token").(string); ok {
		bt.IDToken = id
	}

	b.logger.Debug("token acquired",
		slog.String("flow", flow),
		slog.Time("expiry", tok.Expiry),
	)

	return bt, nil
}

// authError maps an oauth2 failure onto an auth error, keeping the upstream
// status and error description when the endpoint returned one.
func authError(flow string, err error) error {
	ae := apierr.New(apierr.ErrAuth, apierr.CodeAuthFailed, flow+" failed", err)

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode != 0 {
			ae.StatusCode = re.Response.StatusCode
			ae.RequestID = re.Response.Header.Get("x-ms-request-id")
		}

		ae.Code = re.ErrorCode
		if re.ErrorDescription != "" {
			ae.Message = fmt.Sprintf("%s failed: %s", flow, re.ErrorDescription)
		}
	}

	return ae
}
