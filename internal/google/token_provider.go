package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// FileTokenProvider stores tokens as JSON files, one per account.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider uses <user cache dir>/tailortalk.
func NewFileTokenProvider() (*FileTokenProvider, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return NewFileTokenProviderWithDir(filepath.Join(cache, "tailortalk")), nil
}

// NewFileTokenProviderWithDir stores tokens in dir.
func NewFileTokenProviderWithDir(dir string) *FileTokenProvider {
	return &FileTokenProvider{dir: dir}
}

func getTokenFilePath(account string) string {
	return fmt.Sprintf("google-%s.token", account)
}

// TokenPath returns the token file for account.
func (p *FileTokenProvider) TokenPath(account string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	return filepath.Join(p.dir, getTokenFilePath(account)), nil
}

// GetTokenForAccount implements TokenProvider.
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	path, err := p.TokenPath(account)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s; run 'tailortalk auth --account %s'", ErrNoToken, account, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("invalid token file %s: no token", path)
	}
	return &token, nil
}

// HasTokenForAccount implements TokenProvider.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	path, err := p.TokenPath(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// SaveToken writes token for account with owner-only permissions.
func (p *FileTokenProvider) SaveToken(account string, token *oauth2.Token) error {
	path, err := p.TokenPath(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
