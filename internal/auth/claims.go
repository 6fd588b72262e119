package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// TokenClaims are the identity claims read from an exchanged token. Claims
// the token does not carry are empty strings.
type TokenClaims struct {
	Issuer            string `json:"iss"`
	Audience          string `json:"aud"`
	ObjectID          string `json:"oid"`
	Subject           string `json:"sub"`
	AppID             string `json:"appid"`
	Name              string `json:"name"`
	FamilyName        string `json:"family_name"`
	GivenName         string `json:"given_name"`
	IPAddress         string `json:"ipaddr"`
	Scope             string `json:"scp"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	UniqueName        string `json:"unique_name"`
	UPN               string `json:"upn"`
}

// Verify strips a "Bearer " prefix from an Authorization header value,
// exchanges the token on behalf of its owner and returns the identity
// claims of the result. The ID token is preferred; the access token is read
// when none was issued. Signatures are not checked here: the identity
// endpoint has just accepted the assertion.
func (b *Broker) Verify(ctx context.Context, authorizationHeader string) (TokenClaims, error) {
	assertion := strings.TrimPrefix(authorizationHeader, "Bearer ")

	tok, err := b.Exchange(ctx, assertion)
	if err != nil {
		return TokenClaims{}, err
	}

	raw := tok.IDToken
	if raw == "" {
		b.logger.Warn("exchange returned no id_token, reading access token claims")
		raw = tok.AccessToken
	}

	return b.parseClaims(raw), nil
}

// parseClaims decodes a JWT payload without verifying it. An unparseable
// token yields empty claims.
func (b *Broker) parseClaims(raw string) TokenClaims {
	mc := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		b.logger.Warn("token is not a readable JWT, claims left empty")

		return TokenClaims{}
	}

	return TokenClaims{
		Issuer:            claimString(mc, "iss"),
		Audience:          claimString(mc, "aud"),
		ObjectID:          claimString(mc, "oid"),
		Subject:           claimString(mc, "sub"),
		AppID:             claimString(mc, "appid"),
		Name:              claimString(mc, "name"),
		FamilyName:        claimString(mc, "family_name"),
		GivenName:         claimString(mc, "given_name"),
		IPAddress:         claimString(mc, "ipaddr"),
		Scope:             claimString(mc, "scp"),
		Email:             claimString(mc, "email"),
		PreferredUsername: claimString(mc, "preferred_username"),
		UniqueName:        claimString(mc, "unique_name"),
		UPN:               claimString(mc, "upn"),
	}
}

// claimString returns a claim as a string. Array claims (aud may be one)
// are joined with spaces.
func claimString(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, " ")
	default:
		return ""
	}
}
