package recommend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/cooldown"
	"github.com/justestif/go-spotify-moodsync/internal/metrics"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Rand is the randomness the engine draws from. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the math/rand/v2 top-level source, which is safe for
// concurrent use and seeded per process.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Filter narrows candidate tracks to those whose audio features fit a mood.
type Filter struct {
	catalog Catalog
	window  time.Duration
	rng     Rand
	logger  *zap.Logger
	metrics *metrics.Manager
}

// NewFilter creates a Filter. window is the dislike cooldown; zero means
// cooldown.DefaultWindow.
func NewFilter(catalog Catalog, window time.Duration, rng Rand, logger *zap.Logger, m *metrics.Manager) *Filter {
	if window <= 0 {
		window = cooldown.DefaultWindow
	}
	if rng == nil {
		rng = globalRand{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{catalog: catalog, window: window, rng: rng, logger: logger, metrics: m}
}

// FilterByMood returns the candidates that match m, excluding ids in excluded
// and tracks still cooling down under m, in random order. Any failure yields
// an empty result.
func (f *Filter) FilterByMood(ctx context.Context, tracker *cooldown.Tracker, candidates []Track, m mood.Mood, excluded []string) []Track {
	tracks, err := f.Match(ctx, tracker, candidates, m, newIDSet(excluded...))
	if err != nil {
		f.logger.Warn("filtering tracks by mood", zap.String("mood", m.String()), zap.Error(err))
		return nil
	}
	return tracks
}

// Match is FilterByMood with an explicit error for callers that branch on it.
func (f *Filter) Match(ctx context.Context, tracker *cooldown.Tracker, candidates []Track, m mood.Mood, excluded idSet) ([]Track, error) {
	start := time.Now()
	defer func() { f.metrics.ObserveFilterDuration(time.Since(start)) }()

	effective := excluded
	if tracker != nil {
		if n := tracker.EvictExpired(f.window); n > 0 {
			f.logger.Debug("evicted expired dislikes", zap.Int("count", n))
		}
		cooling := tracker.CoolingDown(m, f.window)
		if len(cooling) > 0 {
			effective = excluded.union(newIDSet(cooling...))
			f.logger.Debug("excluding disliked tracks",
				zap.String("mood", m.String()), zap.Strings("track_ids", cooling))
		}
	}

	survivors := without(candidates, effective)
	if len(survivors) == 0 {
		return nil, nil
	}

	ids := make([]string, len(survivors))
	for i, t := range survivors {
		ids[i] = t.ID
	}
	features, err := f.catalog.AudioFeatures(ctx, ids)
	if err != nil {
		f.metrics.RecordCatalogError("audio_features")
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}
	if len(features) != len(survivors) {
		return nil, fmt.Errorf("audio features: got %d results for %d tracks", len(features), len(survivors))
	}

	var matched []Track
	for i, t := range survivors {
		if mood.Matches(features[i], m) {
			matched = append(matched, t)
		}
	}

	f.rng.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	return matched, nil
}
