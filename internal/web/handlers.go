package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-moodsync/internal/auth"
	"github.com/justestif/go-spotify-moodsync/internal/db"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
	"github.com/justestif/go-spotify-moodsync/internal/spotify"
)

const stateCookieName = "oauth_state"

// Catalog is the music provider a signed-in user's requests run against.
type Catalog interface {
	recommend.Catalog
	SavePlaylist(ctx context.Context, name, description string, trackIDs []string) (string, error)
}

// CatalogFunc builds a Catalog for a user's OAuth token.
type CatalogFunc func(ctx context.Context, token *oauth2.Token) (Catalog, error)

// BackendFunc returns the preferences backend for a user.
type BackendFunc func(owner string) preferences.Backend

// UserStore records users as they sign in.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

// SpotifyCatalog returns a CatalogFunc backed by the Spotify Web API.
func SpotifyCatalog(authenticator *spotifyauth.Authenticator, logger *zap.Logger) CatalogFunc {
	return func(ctx context.Context, token *oauth2.Token) (Catalog, error) {
		if token == nil {
			return nil, errors.New("missing token")
		}
		api := spotifyapi.New(authenticator.Client(ctx, token), spotifyapi.WithRetry(true))
		return spotify.New(api, spotify.WithLogger(logger)), nil
	}
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth       *spotifyauth.Authenticator
	sessions   *SessionStore
	templates  *Templates
	catalogs   CatalogFunc
	backends   BackendFunc
	classifier *mood.Classifier
	engineOpts []recommend.Option
	users      UserStore
	logger     *zap.Logger
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "MoodSync",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
		Moods:         moodDetails(),
	}

	if session != nil {
		data.User = &UserData{
			ID:   session.UserID,
			Name: session.UserName,
		}
		session.Lock()
		data.TrackList = trackList(session.Rec)
		session.Unlock()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		h.logger.Error("rendering home", zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := auth.ExchangeCode(r.Context(), h.auth, stateCookie.Value, r)
	if errors.Is(err, auth.ErrStateMismatch) {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("exchanging oauth code", zap.Error(err))
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotifyapi.New(h.auth.Client(r.Context(), token))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("fetching current user", zap.Error(err))
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	if h.users != nil {
		if err := h.users.Upsert(r.Context(), &db.User{ID: string(user.ID), DisplayName: user.DisplayName}); err != nil {
			h.logger.Warn("recording user", zap.String("user_id", string(user.ID)), zap.Error(err))
		}
	}

	session := h.sessions.Create(r.Context(), token, string(user.ID), user.DisplayName)
	h.sessions.SetCookie(w, session)
	h.logger.Info("user signed in", zap.String("user_id", string(user.ID)))

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Fragments re-render the track list for HTMX requests.

// RecommendFragment handles POST /recommendations with form values text or mood.
func (h *Handlers) RecommendFragment(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	session.Lock()
	defer session.Unlock()

	req := recommendRequest{Text: r.FormValue("text"), Mood: r.FormValue("mood")}
	if _, err := h.recommend(r.Context(), session, req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.renderTracks(w, session.Rec)
}

// RefreshFragment handles POST /refresh.
func (h *Handlers) RefreshFragment(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	if err := h.refresh(r.Context(), session); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.renderTracks(w, session.Rec)
}

// FeedbackFragment handles POST /tracks/{track}/{action}.
func (h *Handlers) FeedbackFragment(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	idx, action, err := feedbackParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session.Lock()
	defer session.Unlock()

	if _, err := h.feedback(r.Context(), session, idx, action); err != nil && !errors.Is(err, recommend.ErrNoReplacement) {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	h.renderTracks(w, session.Rec)
}

func (h *Handlers) renderTracks(w http.ResponseWriter, rec *recommend.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPartial(w, "tracks", trackList(rec)); err != nil {
		h.logger.Error("rendering tracks", zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func trackList(rec *recommend.Session) TrackList {
	if rec == nil || rec.Mood == "" {
		return TrackList{}
	}
	return TrackList{Mood: mood.Describe(rec.Mood), Tracks: rec.Displayed}
}

func moodDetails() []mood.Details {
	moods := mood.All()
	out := make([]mood.Details, len(moods))
	for i, m := range moods {
		out[i] = mood.Describe(m)
	}
	return out
}
