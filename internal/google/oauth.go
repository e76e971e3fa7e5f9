package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables holding the OAuth client credentials.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURL  = "GOOGLE_REDIRECT_URL"
)

// DefaultAccount is used when no account name is given.
const DefaultAccount = "default"

const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

var accountNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if !accountNameRe.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// GetOAuthConfig returns the OAuth2 configuration for the calendar scopes.
func GetOAuthConfig() *oauth2.Config {
	redirect := os.Getenv(EnvRedirectURL)
	if redirect == "" {
		redirect = oobRedirect
	}
	return &oauth2.Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}
}

// CheckCredentials reports a helpful error when the client credentials are missing.
func CheckCredentials() error {
	if os.Getenv(EnvClientID) == "" || os.Getenv(EnvClientSecret) == "" {
		return fmt.Errorf("%s and %s must be set to use Google Calendar", EnvClientID, EnvClientSecret)
	}
	return nil
}

// GetAuthURL returns the URL the user visits to authorize tailortalk.
func GetAuthURL(account string) string {
	return GetOAuthConfig().AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveToken exchanges an authorization code and stores the token for account.
func SaveToken(ctx context.Context, provider *FileTokenProvider, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	t, err := GetOAuthConfig().Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return provider.SaveToken(account, t)
}

// NewHTTPClient returns an HTTP client that authenticates as account.
// The client refreshes the token as needed.
func NewHTTPClient(ctx context.Context, provider TokenProvider, account string) (*http.Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	client := oauth2.NewClient(ctx, GetOAuthConfig().TokenSource(ctx, token))

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}
