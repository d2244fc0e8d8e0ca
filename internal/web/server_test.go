package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-moodsync/internal/metrics"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
	webfs "github.com/justestif/go-spotify-moodsync/web"
)

var (
	calmFeatures = &mood.Features{Valence: 0.6, Energy: 0.3, Acousticness: 0.7, Mode: 1}
	dullFeatures = &mood.Features{Valence: 0.45, Energy: 0.65, Tempo: 90, Loudness: -10, Mode: 1}
)

type savedPlaylist struct {
	name string
	ids  []string
}

type fakeCatalog struct {
	mu        sync.Mutex
	saved     []recommend.Track
	recent    []recommend.Track
	features  map[string]*mood.Features
	playlists []savedPlaylist
}

func (c *fakeCatalog) SavedTracks(_ context.Context, limit int) ([]recommend.Track, error) {
	return c.saved[:min(limit, len(c.saved))], nil
}

func (c *fakeCatalog) RecentlyPlayed(_ context.Context, limit int) ([]recommend.Track, error) {
	return c.recent[:min(limit, len(c.recent))], nil
}

func (c *fakeCatalog) AudioFeatures(_ context.Context, ids []string) ([]*mood.Features, error) {
	out := make([]*mood.Features, len(ids))
	for i, id := range ids {
		out[i] = c.features[id]
	}
	return out, nil
}

func (c *fakeCatalog) SavePlaylist(_ context.Context, name, _ string, ids []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlists = append(c.playlists, savedPlaylist{name: name, ids: ids})
	return "playlist-1", nil
}

func track(id string) recommend.Track {
	return recommend.Track{ID: id, Name: "Song " + id, Artist: "Artist " + id}
}

// newCatalog returns recently played R1-R3 that fit CALMING and saved S1-S4
// that fit nothing.
func newCatalog() *fakeCatalog {
	c := &fakeCatalog{features: make(map[string]*mood.Features)}
	for _, id := range []string{"R1", "R2", "R3"} {
		c.recent = append(c.recent, track(id))
		c.features[id] = calmFeatures
	}
	for _, id := range []string{"S1", "S2", "S3", "S4"} {
		c.saved = append(c.saved, track(id))
		c.features[id] = dullFeatures
	}
	return c
}

type testServer struct {
	srv      *Server
	catalog  *fakeCatalog
	backends map[string]*preferences.MemoryBackend
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, catalog *fakeCatalog) *testServer {
	t.Helper()

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		t.Fatal(err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		t.Fatal(err)
	}

	ts := &testServer{
		catalog:  catalog,
		backends: make(map[string]*preferences.MemoryBackend),
		registry: prometheus.NewRegistry(),
	}
	var mu sync.Mutex

	srv, err := NewServer(ServerConfig{
		TemplatesFS: templates,
		StaticFS:    static,
		Catalogs: func(context.Context, *oauth2.Token) (Catalog, error) {
			return catalog, nil
		},
		Preferences: func(owner string) preferences.Backend {
			mu.Lock()
			defer mu.Unlock()
			b, ok := ts.backends[owner]
			if !ok {
				b = &preferences.MemoryBackend{}
				ts.backends[owner] = b
			}
			return b
		},
		Engine: []recommend.Option{
			recommend.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(ts.registry))),
		},
		Gatherer: ts.registry,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts.srv = srv
	return ts
}

// login creates a session and returns its cookie.
func (ts *testServer) login() *http.Cookie {
	s := ts.srv.Sessions().Create(context.Background(), &oauth2.Token{AccessToken: "token"}, "user-1", "Listener")
	return &http.Cookie{Name: sessionCookieName, Value: s.ID}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Mood   *mood.Details     `json:"mood"`
	Tracks []recommend.Track `json:"tracks"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func ids(tracks []recommend.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestNewServerRequiresPreferences(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	if err == nil {
		t.Fatal("NewServer() without preferences should fail")
	}
}

func TestMoodsAndDetect(t *testing.T) {
	ts := newTestServer(t, newCatalog())

	rec := ts.do(t, http.MethodGet, "/api/moods", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/moods = %d", rec.Code)
	}
	moods := decode[[]mood.Details](t, rec)
	if len(moods) != 7 || moods[0].Mood != mood.Upbeat || moods[6].Mood != mood.Focused {
		t.Errorf("moods = %+v", moods)
	}

	rec = ts.do(t, http.MethodPost, "/api/detect", map[string]string{"text": "I need to study for my exam"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/detect = %d", rec.Code)
	}
	if got := decode[mood.Details](t, rec); got.Mood != mood.Focused {
		t.Errorf("detected %s, want FOCUSED", got.Mood)
	}

	rec = ts.do(t, http.MethodPost, "/api/detect", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /api/detect without text = %d, want 400", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t, newCatalog())

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/recommendations"},
		{http.MethodPost, "/api/refresh"},
		{http.MethodGet, "/api/tracks"},
		{http.MethodPost, "/api/tracks/0/like"},
		{http.MethodGet, "/api/tracks/R1/features"},
		{http.MethodGet, "/api/profile"},
		{http.MethodPost, "/api/playlist"},
		{http.MethodPost, "/recommendations"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := ts.do(t, r.method, r.path, map[string]string{"mood": "CALMING"}, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}

	stale := &http.Cookie{Name: sessionCookieName, Value: "not-a-session"}
	if rec := ts.do(t, http.MethodGet, "/api/tracks", nil, stale); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown session = %d, want 401", rec.Code)
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantMood   mood.Mood
	}{
		{"explicit mood", map[string]string{"mood": "CALMING"}, http.StatusOK, mood.Calming},
		{"lowercase mood", map[string]string{"mood": "calming"}, http.StatusOK, mood.Calming},
		{"detected from text", map[string]string{"text": "I want to relax and unwind"}, http.StatusOK, mood.Calming},
		{"unknown mood", map[string]string{"mood": "SLEEPY"}, http.StatusBadRequest, ""},
		{"empty request", map[string]string{}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, newCatalog())
			rec := ts.do(t, http.MethodPost, "/api/recommendations", tt.body, ts.login())

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			body := decode[listBody](t, rec)
			if body.Mood == nil || body.Mood.Mood != tt.wantMood {
				t.Fatalf("mood = %+v, want %s", body.Mood, tt.wantMood)
			}
			got := ids(body.Tracks)
			if len(got) != 5 {
				t.Fatalf("got %d tracks, want 5: %v", len(got), got)
			}
			// Two fresh calming matches lead, then the saved library in order.
			for _, id := range got[:2] {
				if !strings.HasPrefix(id, "R") {
					t.Errorf("fresh slot holds %s, want a recently played match", id)
				}
			}
			if strings.Join(got[2:], ",") != "S1,S2,S3" {
				t.Errorf("saved fill = %v, want S1,S2,S3", got[2:])
			}
		})
	}
}

func TestRefreshNeedsMood(t *testing.T) {
	ts := newTestServer(t, newCatalog())
	cookie := ts.login()

	if rec := ts.do(t, http.MethodPost, "/api/refresh", nil, cookie); rec.Code != http.StatusConflict {
		t.Errorf("refresh before choosing a mood = %d, want 409", rec.Code)
	}

	ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie)
	rec := ts.do(t, http.MethodPost, "/api/refresh", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d", rec.Code)
	}
	if body := decode[listBody](t, rec); len(body.Tracks) != 5 || body.Mood.Mood != mood.Calming {
		t.Errorf("refresh body = %+v", body)
	}

	rec = ts.do(t, http.MethodGet, "/api/tracks", nil, cookie)
	if body := decode[listBody](t, rec); len(body.Tracks) != 5 {
		t.Errorf("GET /api/tracks = %+v", body)
	}
}

type feedbackBody struct {
	Action      string            `json:"action"`
	Track       recommend.Track   `json:"track"`
	Replacement *recommend.Track  `json:"replacement"`
	Exhausted   bool              `json:"exhausted"`
	Message     string            `json:"message"`
	Tracks      []recommend.Track `json:"tracks"`
}

func TestFeedback(t *testing.T) {
	t.Run("like stores a preference", func(t *testing.T) {
		ts := newTestServer(t, newCatalog())
		cookie := ts.login()
		ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie)

		rec := ts.do(t, http.MethodPost, "/api/tracks/2/like", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("like = %d: %s", rec.Code, rec.Body.String())
		}
		body := decode[feedbackBody](t, rec)
		if body.Track.ID != "S1" || body.Replacement != nil {
			t.Errorf("like body = %+v", body)
		}

		store := preferences.New(ts.backends["user-1"])
		records, err := store.MoodPreferences(context.Background(), mood.Calming, preferences.DefaultMinConfidence)
		if err != nil || len(records) != 1 || records[0].TrackID != "S1" {
			t.Errorf("stored preferences = %+v, %v", records, err)
		}
	})

	t.Run("dislike replaces with a fresh match", func(t *testing.T) {
		ts := newTestServer(t, newCatalog())
		cookie := ts.login()
		ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie)

		rec := ts.do(t, http.MethodPost, "/api/tracks/4/dislike", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("dislike = %d: %s", rec.Code, rec.Body.String())
		}
		body := decode[feedbackBody](t, rec)
		if body.Track.ID != "S3" {
			t.Errorf("disliked %s, want S3", body.Track.ID)
		}
		if body.Replacement == nil || !strings.HasPrefix(body.Replacement.ID, "R") {
			t.Fatalf("replacement = %+v, want the remaining calming track", body.Replacement)
		}
		if body.Tracks[4].ID != body.Replacement.ID {
			t.Errorf("display slot 4 = %s, want %s", body.Tracks[4].ID, body.Replacement.ID)
		}
		seen := make(map[string]bool)
		for _, id := range ids(body.Tracks) {
			if seen[id] {
				t.Errorf("duplicate %s in display %v", id, ids(body.Tracks))
			}
			seen[id] = true
		}
	})

	t.Run("skip with nothing left", func(t *testing.T) {
		catalog := &fakeCatalog{features: map[string]*mood.Features{}}
		for _, id := range []string{"S1", "S2", "S3", "S4", "S5"} {
			catalog.saved = append(catalog.saved, track(id))
		}
		ts := newTestServer(t, catalog)
		cookie := ts.login()
		ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "FOCUSED"}, cookie)

		rec := ts.do(t, http.MethodPost, "/api/tracks/0/skip", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("skip = %d: %s", rec.Code, rec.Body.String())
		}
		body := decode[feedbackBody](t, rec)
		if !body.Exhausted || body.Message == "" || body.Replacement != nil {
			t.Errorf("skip body = %+v, want exhausted with a message", body)
		}
		if body.Tracks[0].ID != "S1" {
			t.Errorf("display changed on exhaustion: %v", ids(body.Tracks))
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		ts := newTestServer(t, newCatalog())
		cookie := ts.login()

		if rec := ts.do(t, http.MethodPost, "/api/tracks/0/like", nil, cookie); rec.Code != http.StatusConflict {
			t.Errorf("feedback before a mood = %d, want 409", rec.Code)
		}

		ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie)

		cases := []struct {
			path string
			want int
		}{
			{"/api/tracks/abc/like", http.StatusBadRequest},
			{"/api/tracks/0/love", http.StatusBadRequest},
			{"/api/tracks/9/like", http.StatusNotFound},
			{"/api/tracks/-1/skip", http.StatusNotFound},
		}
		for _, c := range cases {
			if rec := ts.do(t, http.MethodPost, c.path, nil, cookie); rec.Code != c.want {
				t.Errorf("POST %s = %d, want %d", c.path, rec.Code, c.want)
			}
		}
	})
}

func TestTrackFeatures(t *testing.T) {
	ts := newTestServer(t, newCatalog())
	cookie := ts.login()

	rec := ts.do(t, http.MethodGet, "/api/tracks/R1/features", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("features = %d", rec.Code)
	}
	if got := decode[mood.Features](t, rec); got != *calmFeatures {
		t.Errorf("features = %+v, want %+v", got, *calmFeatures)
	}

	if rec := ts.do(t, http.MethodGet, "/api/tracks/missing/features", nil, cookie); rec.Code != http.StatusNotFound {
		t.Errorf("missing features = %d, want 404", rec.Code)
	}
}

func TestSavePlaylist(t *testing.T) {
	catalog := newCatalog()
	ts := newTestServer(t, catalog)
	cookie := ts.login()

	if rec := ts.do(t, http.MethodPost, "/api/playlist", nil, cookie); rec.Code != http.StatusConflict {
		t.Errorf("playlist before a mood = %d, want 409", rec.Code)
	}

	list := decode[listBody](t, ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie))

	rec := ts.do(t, http.MethodPost, "/api/playlist", nil, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("playlist = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]string](t, rec)
	if body["playlist_id"] != "playlist-1" || body["name"] != "MoodSync: CALMING" {
		t.Errorf("playlist body = %v", body)
	}
	if len(catalog.playlists) != 1 || strings.Join(catalog.playlists[0].ids, ",") != strings.Join(ids(list.Tracks), ",") {
		t.Errorf("saved playlists = %+v", catalog.playlists)
	}
}

func TestProfile(t *testing.T) {
	catalog := &fakeCatalog{features: map[string]*mood.Features{}}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		catalog.saved = append(catalog.saved, track(id))
	}
	ts := newTestServer(t, catalog)

	rec := ts.do(t, http.MethodGet, "/api/profile", nil, ts.login())
	if rec.Code != http.StatusOK {
		t.Fatalf("profile = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Clusters []clusterResponse `json:"clusters"`
		Outliers int               `json:"outliers"`
		Summary  string            `json:"summary"`
	}](t, rec)
	if len(body.Clusters) != 0 || body.Outliers != 5 {
		t.Errorf("profile = %+v", body)
	}
	if !strings.Contains(body.Summary, "No vibe clusters found from 5 tracks") {
		t.Errorf("summary = %q", body.Summary)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, newCatalog())
	ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, ts.login())

	rec := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `moodsync_engine_recommendations_total{mood="CALMING"} 1`) {
		t.Errorf("metrics output missing recommendation counter:\n%s", rec.Body.String())
	}
}

func TestHomePage(t *testing.T) {
	ts := newTestServer(t, newCatalog())

	rec := ts.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Connect Spotify") {
		t.Errorf("anonymous home = %d\n%s", rec.Code, rec.Body.String())
	}

	cookie := ts.login()
	rec = ts.do(t, http.MethodGet, "/", nil, cookie)
	body := rec.Body.String()
	if !strings.Contains(body, "Listener") || !strings.Contains(body, "Pick a mood") {
		t.Errorf("signed-in home missing user or empty state:\n%s", body)
	}

	ts.do(t, http.MethodPost, "/api/recommendations", map[string]string{"mood": "CALMING"}, cookie)
	rec = ts.do(t, http.MethodGet, "/", nil, cookie)
	if !strings.Contains(rec.Body.String(), "Song S1") {
		t.Errorf("home should list current tracks:\n%s", rec.Body.String())
	}
}

func TestFragments(t *testing.T) {
	ts := newTestServer(t, newCatalog())
	cookie := ts.login()

	form := url.Values{"mood": {"CALMING"}}
	req := httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("fragment = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="tracks"`) || !strings.Contains(body, "Song S2") {
		t.Errorf("fragment body:\n%s", body)
	}
	if strings.Contains(body, "<html") {
		t.Error("fragment should not include the base layout")
	}

	req = httptest.NewRequest(http.MethodPost, "/tracks/9/skip", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("fragment skip out of range = %d, want 404", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, newCatalog())
	cookie := ts.login()

	rec := ts.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout = %d", rec.Code)
	}
	if ts.srv.Sessions().Get(context.Background(), cookie.Value) != nil {
		t.Error("session should be deleted")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errEmptyRequest, http.StatusBadRequest},
		{mood.ErrUnknownMood, http.StatusBadRequest},
		{recommend.ErrNoTrack, http.StatusNotFound},
		{errNoMood, http.StatusConflict},
		{errors.New("catalog down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
