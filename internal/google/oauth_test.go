package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with slash", "work/personal", true},
		{"with dot", "..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName(%q) error = %v, wantErr %v", tt.account, err, tt.wantErr)
			}
		})
	}
}

func TestFileTokenProvider(t *testing.T) {
	dir := t.TempDir()
	p := NewFileTokenProviderWithDir(filepath.Join(dir, "tokens"))
	ctx := context.Background()

	if p.HasTokenForAccount("default") {
		t.Fatal("expected no token")
	}
	_, err := p.GetTokenForAccount(ctx, "default")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Unix(1700000000, 0)}
	if err := p.SaveToken("default", token); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if !p.HasTokenForAccount("default") {
		t.Error("expected token after save")
	}

	path, _ := p.TokenPath("default")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %o, want 600", info.Mode().Perm())
	}
	if !strings.HasSuffix(path, "google-default.token") {
		t.Errorf("unexpected token path %s", path)
	}

	got, err := p.GetTokenForAccount(ctx, "default")
	if err != nil {
		t.Fatalf("GetTokenForAccount: %v", err)
	}
	if got.RefreshToken != "refresh" || got.AccessToken != "access" {
		t.Errorf("unexpected token %+v", got)
	}

	if err := p.SaveToken("../escape", token); err == nil {
		t.Error("expected invalid account name to be rejected")
	}
}

func TestFileTokenProvider_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	p := NewFileTokenProviderWithDir(dir)
	path, _ := p.TokenPath("work")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := p.GetTokenForAccount(context.Background(), "work"); err == nil {
		t.Error("expected error for corrupt token file")
	}
}

func TestGetOAuthConfig(t *testing.T) {
	t.Setenv(EnvClientID, "client")
	t.Setenv(EnvClientSecret, "secret")
	t.Setenv(EnvRedirectURL, "")

	conf := GetOAuthConfig()
	if conf.ClientID != "client" || conf.ClientSecret != "secret" {
		t.Errorf("credentials not read from environment: %+v", conf)
	}
	if conf.RedirectURL != oobRedirect {
		t.Errorf("RedirectURL = %q", conf.RedirectURL)
	}
	if len(conf.Scopes) != len(DefaultOAuthScopes) {
		t.Errorf("unexpected scopes %v", conf.Scopes)
	}
	if err := CheckCredentials(); err != nil {
		t.Errorf("CheckCredentials: %v", err)
	}

	url := GetAuthURL("default")
	if !strings.Contains(url, "access_type=offline") || !strings.Contains(url, "client_id=client") {
		t.Errorf("unexpected auth URL %s", url)
	}
}

func TestCheckCredentials_Missing(t *testing.T) {
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	if err := CheckCredentials(); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestNewHTTPClient_NoToken(t *testing.T) {
	p := NewFileTokenProviderWithDir(t.TempDir())
	if _, err := NewHTTPClient(context.Background(), p, "default"); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewHTTPClient(context.Background(), nil, "default"); err == nil {
		t.Error("expected error for nil provider")
	}
}
