package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultRedirectURL uses explicit IPv4 loopback as required by Spotify for local development.
	// See: https://developer.spotify.com/documentation/web-api/concepts/redirect-uri
	DefaultRedirectURL = "http://127.0.0.1:8080/callback"
	callbackTimeout    = 2 * time.Minute
)

// Scopes are the permissions MoodSync requests: the saved library, listening
// history, the private profile (for the user ID) and private playlists.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
}

var (
	// ErrMissingCredentials is returned when the Spotify client ID or secret is not configured.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrAuthTimeout is returned when the OAuth callback is not received in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Credentials identify the Spotify application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuth builds the Spotify OAuth2 configuration for creds.
// Returns ErrMissingCredentials if the ID or secret is empty.
func NewOAuth(creds Credentials) (*spotifyauth.Authenticator, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if creds.RedirectURL == "" {
		creds.RedirectURL = DefaultRedirectURL
	}

	return spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(creds.RedirectURL),
		spotifyauth.WithScopes(Scopes...),
	), nil
}

// Authenticator runs the terminal OAuth flow with token caching.
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	cache       *TokenCache
	redirectURL string
	logger      *zap.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTokenCache overrides the default token cache location.
func WithTokenCache(c *TokenCache) Option {
	return func(a *Authenticator) {
		if c != nil {
			a.cache = c
		}
	}
}

// WithLogger sets the authenticator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Authenticator for creds.
// Returns ErrMissingCredentials if the ID or secret is empty.
func New(creds Credentials, opts ...Option) (*Authenticator, error) {
	auth, err := NewOAuth(creds)
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		auth:        auth,
		redirectURL: creds.RedirectURL,
		logger:      zap.NewNop(),
	}
	if a.redirectURL == "" {
		a.redirectURL = DefaultRedirectURL
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.cache == nil {
		cache, err := DefaultTokenCache()
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
		a.cache = cache
	}

	return a, nil
}

// Authenticate returns an authenticated Spotify client and the user's ID.
// It first checks for a cached token and uses it if valid/refreshable.
// Otherwise, it runs the full OAuth flow.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, string, error) {
	cached, err := a.cache.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading cached token: %w", err)
	}

	if cached != nil {
		// oauth2 refreshes the token on demand
		client := spotify.New(a.auth.Client(ctx, cached.Token), spotify.WithRetry(true))

		user, err := client.CurrentUser(ctx)
		if err == nil {
			newToken, tokenErr := client.Token()
			if tokenErr == nil && (newToken.AccessToken != cached.Token.AccessToken || cached.UserID != user.ID) {
				if err := a.cache.Save(user.ID, newToken); err != nil {
					a.logger.Warn("caching refreshed token", zap.Error(err))
				}
			}
			return client, user.ID, nil
		}

		a.logger.Info("cached token invalid, starting new authentication", zap.Error(err))
	}

	return a.runOAuthFlow(ctx)
}

// runOAuthFlow performs the full OAuth authorization code flow.
func (a *Authenticator) runOAuthFlow(ctx context.Context) (*spotify.Client, string, error) {
	state, err := generateState()
	if err != nil {
		return nil, "", fmt.Errorf("generating state: %w", err)
	}

	redirect, err := url.Parse(a.redirectURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing redirect URL: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})

	server := &http.Server{
		Addr:              redirect.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	// The URL goes to the terminal, not the log.
	fmt.Println("\nTo authenticate, open this URL in your browser:")
	fmt.Println(a.auth.AuthURL(state))
	fmt.Println("\nWaiting for authentication...")

	var token *oauth2.Token
	select {
	case token = <-tokenCh:
	case err := <-errCh:
		_ = server.Shutdown(ctx)
		return nil, "", err
	case <-time.After(callbackTimeout):
		_ = server.Shutdown(ctx)
		return nil, "", ErrAuthTimeout
	case <-ctx.Done():
		_ = server.Shutdown(ctx)
		return nil, "", ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	client := spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true))
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("getting current user: %w", err)
	}

	if err := a.cache.Save(user.ID, token); err != nil {
		// auth succeeded; only the cache is lost
		a.logger.Warn("caching token", zap.Error(err))
	}

	return client, user.ID, nil
}

// handleCallback processes the OAuth callback from Spotify.
func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	token, err := ExchangeCode(r.Context(), a.auth, expectedState, r)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, ErrStateMismatch) {
			status = http.StatusInternalServerError
		}
		http.Error(w, "Authentication failed", status)
		errCh <- err
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>MoodSync</title></head>
<body>
<h1>Authentication Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	tokenCh <- token
}

// ExchangeCode validates the callback request against expectedState and
// exchanges its authorization code for a token.
func ExchangeCode(ctx context.Context, auth *spotifyauth.Authenticator, expectedState string, r *http.Request) (*oauth2.Token, error) {
	if r.URL.Query().Get("state") != expectedState {
		return nil, ErrStateMismatch
	}
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		return nil, fmt.Errorf("spotify auth error: %s", errMsg)
	}

	token, err := auth.Token(ctx, expectedState, r)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return token, nil
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	return generateState()
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}
