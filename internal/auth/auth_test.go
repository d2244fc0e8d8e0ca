package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

func TestTokenCache_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		token  *oauth2.Token
	}{
		{
			name:   "basic token",
			userID: "user-1",
			token: &oauth2.Token{
				AccessToken:  "test-access-token",
				TokenType:    "Bearer",
				RefreshToken: "test-refresh-token",
				Expiry:       time.Now().Add(time.Hour),
			},
		},
		{
			name: "token without refresh or user",
			token: &oauth2.Token{
				AccessToken: "access-only",
				TokenType:   "Bearer",
				Expiry:      time.Now().Add(30 * time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

			if err := cache.Save(tt.userID, tt.token); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := cache.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil token")
			}

			if loaded.UserID != tt.userID {
				t.Errorf("UserID = %q, want %q", loaded.UserID, tt.userID)
			}
			if loaded.Token.AccessToken != tt.token.AccessToken {
				t.Errorf("AccessToken = %q, want %q", loaded.Token.AccessToken, tt.token.AccessToken)
			}
			if loaded.Token.RefreshToken != tt.token.RefreshToken {
				t.Errorf("RefreshToken = %q, want %q", loaded.Token.RefreshToken, tt.token.RefreshToken)
			}
		})
	}
}

func TestTokenCache_LoadNonExistent(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "nonexistent", "token.json"))

	token, err := cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if token != nil {
		t.Errorf("Load() = %v, want nil for non-existent file", token)
	}
}

func TestTokenCache_LoadEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{"user_id": "u"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	token, err := NewTokenCache(path).Load()
	if err != nil || token != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", token, err)
	}
}

func TestTokenCache_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenCache(path).Load(); err == nil {
		t.Error("Load() should fail on a corrupt file")
	}
}

func TestTokenCache_SaveNilToken(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	if err := cache.Save("u", nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}

func TestTokenCache_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	cache := NewTokenCache(path)

	if err := cache.Save("u", &oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Delete() did not remove token file")
	}
	if err := cache.Delete(); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestTokenCache_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := NewTokenCache(path)

	if err := cache.Save("u", &oauth2.Token{AccessToken: "secret-token"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		t.Errorf("File permissions = %o, want 0600 (no group/other access)", mode)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"both missing", Credentials{}},
		{"id missing", Credentials{ClientSecret: "secret"}},
		{"secret missing", Credentials{ClientID: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.creds)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("New() error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestNew_WithCredentials(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	auth, err := New(Credentials{ClientID: "test-client-id", ClientSecret: "test-client-secret"}, WithTokenCache(cache))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if auth.redirectURL != DefaultRedirectURL {
		t.Errorf("redirectURL = %q, want %q", auth.redirectURL, DefaultRedirectURL)
	}
	if auth.cache != cache {
		t.Error("WithTokenCache was not applied")
	}
}

func TestScopes(t *testing.T) {
	for _, want := range []string{
		spotifyauth.ScopeUserLibraryRead,
		spotifyauth.ScopeUserReadRecentlyPlayed,
		spotifyauth.ScopeUserReadPrivate,
	} {
		if !slices.Contains(Scopes, want) {
			t.Errorf("Scopes missing %q", want)
		}
	}
}

func TestExchangeCode_Rejects(t *testing.T) {
	oauth, err := NewOAuth(Credentials{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("state mismatch", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/callback?state=wrong&code=abc", nil)
		if _, err := ExchangeCode(context.Background(), oauth, "expected", r); !errors.Is(err, ErrStateMismatch) {
			t.Errorf("ExchangeCode() error = %v, want ErrStateMismatch", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/callback?state=expected&error=access_denied", nil)
		_, err := ExchangeCode(context.Background(), oauth, "expected", r)
		if err == nil || errors.Is(err, ErrStateMismatch) {
			t.Errorf("ExchangeCode() error = %v, want provider error", err)
		}
	})
}

func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(state1) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("GenerateState() length = %d, want 32", len(state1))
	}

	state2, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if state1 == state2 {
		t.Error("GenerateState() returned same value twice")
	}
}
