package recommend

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/cooldown"
	"github.com/justestif/go-spotify-moodsync/internal/metrics"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// Config holds the assembler's sizes and thresholds.
type Config struct {
	Count          int           // tracks per list
	PreferredCount int           // learned preferences placed first
	FreshCount     int           // mood matches from recently played
	SavedLimit     int           // saved-library tracks fetched per call
	RecentLimit    int           // recently played tracks fetched per call
	MinConfidence  float64       // preference threshold
	Cooldown       time.Duration // dislike suppression window
}

// DefaultConfig returns the standard configuration: 5 tracks, up to 3
// preferred and 2 fresh, drawn from 50 saved and 50 recent tracks.
func DefaultConfig() Config {
	return Config{
		Count:          5,
		PreferredCount: 3,
		FreshCount:     2,
		SavedLimit:     50,
		RecentLimit:    50,
		MinConfidence:  preferences.DefaultMinConfidence,
		Cooldown:       cooldown.DefaultWindow,
	}
}

// Engine assembles recommendations and handles feedback.
type Engine struct {
	catalog Catalog
	prefs   Preferences
	filter  *Filter
	cfg     Config
	rng     Rand
	logger  *zap.Logger
	metrics *metrics.Manager
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration. Non-positive limits and
// windows keep their defaults; PreferredCount and FreshCount may be zero.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		def := e.cfg
		e.cfg = cfg
		if e.cfg.Count <= 0 {
			e.cfg.Count = def.Count
		}
		if e.cfg.PreferredCount < 0 {
			e.cfg.PreferredCount = def.PreferredCount
		}
		if e.cfg.FreshCount < 0 {
			e.cfg.FreshCount = def.FreshCount
		}
		if e.cfg.SavedLimit <= 0 {
			e.cfg.SavedLimit = def.SavedLimit
		}
		if e.cfg.RecentLimit <= 0 {
			e.cfg.RecentLimit = def.RecentLimit
		}
		if e.cfg.Cooldown <= 0 {
			e.cfg.Cooldown = def.Cooldown
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRand sets the random source for shuffles and draws.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// NewEngine creates an Engine reading from catalog and learning into prefs.
func NewEngine(catalog Catalog, prefs Preferences, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		prefs:   prefs,
		cfg:     DefaultConfig(),
		rng:     globalRand{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.filter = NewFilter(catalog, e.cfg.Cooldown, e.rng, e.logger, e.metrics)
	return e
}

// Filter returns the engine's track filter.
func (e *Engine) Filter() *Filter {
	return e.filter
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Recommend assembles up to Count distinct tracks for m: learned preferences
// first, then fresh mood matches from recently played, then saved-library
// and random recently played tracks to fill the list. Catalog failures shrink
// the list rather than failing it.
func (e *Engine) Recommend(ctx context.Context, sess *Session, m mood.Mood) []Track {
	log := e.logger.With(zap.String("mood", m.String()))

	saved, err := e.catalog.SavedTracks(ctx, e.cfg.SavedLimit)
	if err != nil {
		log.Warn("fetching saved tracks", zap.Error(err))
		e.metrics.RecordCatalogError("saved_tracks")
		saved = nil
	}
	saved = uniqueTracks(saved)

	recent, err := e.catalog.RecentlyPlayed(ctx, e.cfg.RecentLimit)
	if err != nil {
		log.Warn("fetching recently played", zap.Error(err))
		e.metrics.RecordCatalogError("recently_played")
		recent = nil
	}
	recent = uniqueTracks(recent)

	chosen := make(idSet, e.cfg.Count)
	var result []Track
	take := func(source string, tracks []Track, limit int) {
		n := 0
		for _, t := range tracks {
			if n >= limit || len(result) >= e.cfg.Count {
				break
			}
			if chosen.has(t.ID) {
				continue
			}
			chosen.add(t.ID)
			result = append(result, t)
			n++
		}
		e.metrics.RecordTracks(source, n)
	}

	take(metrics.SourcePreferred, e.preferred(ctx, m, saved), e.cfg.PreferredCount)

	var tracker *cooldown.Tracker
	if sess != nil {
		tracker = sess.Cooldown
	}
	fresh, err := e.filter.Match(ctx, tracker, recent, m, chosen)
	if err != nil {
		log.Warn("filtering recently played", zap.Error(err))
		fresh = nil
	}
	take(metrics.SourceFresh, fresh, e.cfg.FreshCount)

	take(metrics.SourceSaved, saved, e.cfg.Count)

	if len(result) < e.cfg.Count {
		rest := without(recent, chosen)
		e.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		take(metrics.SourceRecent, rest, e.cfg.Count)
	}

	result = uniqueTracks(result)
	if len(result) > e.cfg.Count {
		result = result[:e.cfg.Count]
	}

	e.metrics.RecordRecommendation(m.String())
	log.Info("assembled recommendations", zap.Int("count", len(result)))
	return result
}

// preferred materializes learned preferences for m from the saved library,
// ordered by descending confidence with ties kept in store order.
func (e *Engine) preferred(ctx context.Context, m mood.Mood, saved []Track) []Track {
	if e.prefs == nil || len(saved) == 0 {
		return nil
	}

	records, err := e.prefs.MoodPreferences(ctx, m, e.cfg.MinConfidence)
	if err != nil {
		e.logger.Warn("loading preferences", zap.String("mood", m.String()), zap.Error(err))
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	confidence := make(map[string]float64, len(records))
	rank := make(map[string]int, len(records))
	for i, r := range records {
		if _, ok := rank[r.TrackID]; !ok {
			confidence[r.TrackID] = r.Confidence
			rank[r.TrackID] = i
		}
	}

	var matched []Track
	for _, t := range saved {
		if _, ok := confidence[t.ID]; ok {
			matched = append(matched, t)
		}
	}

	slices.SortStableFunc(matched, func(a, b Track) int {
		if c := cmp.Compare(confidence[b.ID], confidence[a.ID]); c != 0 {
			return c
		}
		return cmp.Compare(rank[a.ID], rank[b.ID])
	})
	return matched
}

// Start clears the rejected set, switches the session to m and displays a
// fresh list.
func (e *Engine) Start(ctx context.Context, sess *Session, m mood.Mood) []Track {
	sess.ResetRejected()
	sess.Mood = m
	sess.Displayed = e.Recommend(ctx, sess, m)
	return sess.Displayed
}

// TrackFeatures returns the audio features for one track, or nil when the
// catalog has none.
func (e *Engine) TrackFeatures(ctx context.Context, trackID string) (*mood.Features, error) {
	features, err := e.catalog.AudioFeatures(ctx, []string{trackID})
	if err != nil {
		e.metrics.RecordCatalogError("audio_features")
		return nil, err
	}
	if len(features) == 0 {
		return nil, nil
	}
	return features[0], nil
}
