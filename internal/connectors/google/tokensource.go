package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// Credentials selects how Google API clients authenticate.
// File takes precedence over the refresh token triple. When both are empty,
// application default credentials are used.
type Credentials struct {
	// File is a service account or authorized-user JSON file.
	File string

	// ClientID, ClientSecret and RefreshToken describe an OAuth2 client
	// that has already been granted access.
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// HasRefreshToken returns true if the OAuth2 triple is complete.
func (c Credentials) HasRefreshToken() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// NewTokenSource creates a refreshing oauth2.TokenSource from a stored
// refresh token. The returned TokenSource can be used with
// option.WithTokenSource() when creating Google API services.
func NewTokenSource(ctx context.Context, creds Credentials, scopes ...string) (oauth2.TokenSource, error) {
	if !creds.HasRefreshToken() {
		return nil, fmt.Errorf("google: client id, secret and refresh token are required: %w",
			domain.ErrMissingCredentials)
	}
	cfg := OAuthConfig(creds.ClientID, creds.ClientSecret, scopes...)
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}), nil
}

// OAuthConfig returns the authorization code configuration of a desktop
// OAuth client. The redirect URL is set by the flow.
func OAuthConfig(clientID, clientSecret string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       scopes,
	}
}
