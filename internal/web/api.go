package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/clustering"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
)

// Feedback actions accepted on /tracks/{track}/{action}.
const (
	actionLike    = "like"
	actionDislike = "dislike"
	actionSkip    = "skip"
)

var (
	errEmptyRequest  = errors.New("text or mood is required")
	errNoMood        = errors.New("no mood selected yet")
	errUnknownAction = errors.New("action must be like, dislike or skip")
	errBadIndex      = errors.New("track index must be a number")
	errNoTracks      = errors.New("nothing to save")
)

type ctxKey struct{}

// requireSession rejects requests without a live session.
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, session)))
	})
}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// engine builds a recommendation engine for the session's user.
func (h *Handlers) engine(ctx context.Context, s *Session) (*recommend.Engine, Catalog, error) {
	catalog, err := h.catalogs(ctx, s.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to catalog: %w", err)
	}
	store := preferences.New(h.backends(s.UserID), preferences.WithLogger(h.logger))
	return recommend.NewEngine(catalog, store, h.engineOpts...), catalog, nil
}

type recommendRequest struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

// recommend resolves the request to a mood and starts a new list.
// Callers hold the session lock.
func (h *Handlers) recommend(ctx context.Context, s *Session, req recommendRequest) (mood.Mood, error) {
	var m mood.Mood
	switch {
	case req.Mood != "":
		parsed, err := mood.Parse(req.Mood)
		if err != nil {
			return "", err
		}
		m = parsed
	case req.Text != "":
		m = h.classifier.Detect(ctx, req.Text)
	default:
		return "", errEmptyRequest
	}

	eng, _, err := h.engine(ctx, s)
	if err != nil {
		return "", err
	}
	eng.Start(ctx, s.Rec, m)
	return m, nil
}

// refresh rebuilds the list for the current mood. Callers hold the session lock.
func (h *Handlers) refresh(ctx context.Context, s *Session) error {
	if s.Rec.Mood == "" {
		return errNoMood
	}
	eng, _, err := h.engine(ctx, s)
	if err != nil {
		return err
	}
	eng.Start(ctx, s.Rec, s.Rec.Mood)
	return nil
}

type feedbackResult struct {
	Action      string           `json:"action"`
	Track       recommend.Track  `json:"track"`
	Replacement *recommend.Track `json:"replacement,omitempty"`
	Exhausted   bool             `json:"exhausted"`
}

// feedback applies action to the displayed track at idx. It returns
// recommend.ErrNoReplacement alongside a result when the track could not be
// replaced. Callers hold the session lock.
func (h *Handlers) feedback(ctx context.Context, s *Session, idx int, action string) (feedbackResult, error) {
	if s.Rec.Mood == "" {
		return feedbackResult{}, errNoMood
	}
	current, err := s.Rec.Track(idx)
	if err != nil {
		return feedbackResult{}, err
	}
	eng, _, err := h.engine(ctx, s)
	if err != nil {
		return feedbackResult{}, err
	}

	res := feedbackResult{Action: action, Track: current}
	switch action {
	case actionLike:
		_, err = eng.Like(ctx, s.Rec, idx)
		return res, err
	case actionDislike:
		var next recommend.Track
		next, err = eng.Dislike(ctx, s.Rec, idx)
		if err == nil {
			res.Replacement = &next
		}
	case actionSkip:
		var next recommend.Track
		next, err = eng.Skip(ctx, s.Rec, idx)
		if err == nil {
			res.Replacement = &next
		}
	default:
		return feedbackResult{}, errUnknownAction
	}

	if errors.Is(err, recommend.ErrNoReplacement) {
		res.Exhausted = true
	}
	return res, err
}

func feedbackParams(r *http.Request) (int, string, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "track"))
	if err != nil {
		return 0, "", errBadIndex
	}
	action := chi.URLParam(r, "action")
	switch action {
	case actionLike, actionDislike, actionSkip:
		return idx, action, nil
	default:
		return 0, "", errUnknownAction
	}
}

type trackListResponse struct {
	Mood   *mood.Details     `json:"mood,omitempty"`
	Tracks []recommend.Track `json:"tracks"`
}

func newTrackListResponse(rec *recommend.Session) trackListResponse {
	resp := trackListResponse{Tracks: rec.Displayed}
	if rec.Mood != "" {
		d := mood.Describe(rec.Mood)
		resp.Mood = &d
	}
	if resp.Tracks == nil {
		resp.Tracks = []recommend.Track{}
	}
	return resp
}

// Moods handles GET /api/moods.
func (h *Handlers) Moods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, moodDetails())
}

// Detect handles POST /api/detect.
func (h *Handlers) Detect(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, mood.Describe(h.classifier.Detect(r.Context(), req.Text)))
}

// Recommendations handles POST /api/recommendations.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	if _, err := h.recommend(r.Context(), session, req); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrackListResponse(session.Rec))
}

// Refresh handles POST /api/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	if err := h.refresh(r.Context(), session); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrackListResponse(session.Rec))
}

// Tracks handles GET /api/tracks.
func (h *Handlers) Tracks(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	writeJSON(w, http.StatusOK, newTrackListResponse(session.Rec))
}

// Feedback handles POST /api/tracks/{track}/{action}.
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	idx, action, err := feedbackParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	res, err := h.feedback(r.Context(), session, idx, action)
	if err != nil && !errors.Is(err, recommend.ErrNoReplacement) {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		feedbackResult
		trackListResponse
		Message string `json:"message,omitempty"`
	}{
		feedbackResult:    res,
		trackListResponse: newTrackListResponse(session.Rec),
		Message:           errMessage(err),
	})
}

// TrackFeatures handles GET /api/tracks/{track}/features.
func (h *Handlers) TrackFeatures(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	eng, _, err := h.engine(r.Context(), session)
	if err != nil {
		h.fail(w, err)
		return
	}

	features, err := eng.TrackFeatures(r.Context(), chi.URLParam(r, "track"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if features == nil {
		writeError(w, http.StatusNotFound, "no audio features for track")
		return
	}
	writeJSON(w, http.StatusOK, features)
}

type clusterResponse struct {
	Mood     mood.Mood          `json:"mood"`
	Name     string             `json:"name"`
	Size     int                `json:"size"`
	Matched  int                `json:"matched"`
	Centroid map[string]float32 `json:"centroid"`
	Sample   []string           `json:"sample"`
}

// Profile handles GET /api/profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	_, catalog, err := h.engine(r.Context(), session)
	if err != nil {
		h.fail(w, err)
		return
	}

	tracks, err := clustering.FetchLibrary(r.Context(), catalog, clustering.DefaultLibraryLimit)
	if err != nil {
		h.fail(w, err)
		return
	}
	clusters, outliers, err := clustering.Profile(tracks, clustering.DefaultConfig())
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := struct {
		Clusters []clusterResponse `json:"clusters"`
		Outliers int               `json:"outliers"`
		Summary  string            `json:"summary"`
	}{
		Clusters: make([]clusterResponse, 0, len(clusters)),
		Outliers: len(outliers),
		Summary:  clustering.FormatProfile(clusters, outliers),
	}
	for _, c := range clusters {
		cr := clusterResponse{
			Mood:     c.Mood,
			Name:     c.Name,
			Size:     len(c.Tracks),
			Matched:  c.Matched,
			Centroid: c.Centroid,
		}
		for _, t := range c.Tracks[:min(3, len(c.Tracks))] {
			cr.Sample = append(cr.Sample, t.Name+" - "+t.Artist)
		}
		resp.Clusters = append(resp.Clusters, cr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SavePlaylist handles POST /api/playlist.
func (h *Handlers) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	session.Lock()
	defer session.Unlock()

	if session.Rec.Mood == "" {
		h.fail(w, errNoMood)
		return
	}
	if len(session.Rec.Displayed) == 0 {
		h.fail(w, errNoTracks)
		return
	}

	_, catalog, err := h.engine(r.Context(), session)
	if err != nil {
		h.fail(w, err)
		return
	}

	ids := make([]string, len(session.Rec.Displayed))
	for i, t := range session.Rec.Displayed {
		ids[i] = t.ID
	}
	name, desc := PlaylistName(session.Rec.Mood)
	id, err := catalog.SavePlaylist(r.Context(), name, desc, ids)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"playlist_id": id, "name": name})
}

// PlaylistName returns the name and description of a playlist saved for m.
func PlaylistName(m mood.Mood) (string, string) {
	return "MoodSync: " + m.String(), mood.Describe(m).Description
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errEmptyRequest), errors.Is(err, mood.ErrUnknownMood),
		errors.Is(err, errUnknownAction), errors.Is(err, errBadIndex):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrNoTrack):
		return http.StatusNotFound
	case errors.Is(err, errNoMood), errors.Is(err, errNoTracks):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
