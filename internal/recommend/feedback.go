package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/metrics"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// Feedback kinds reported to metrics.
const (
	feedbackLike    = "like"
	feedbackDislike = "dislike"
	feedbackSkip    = "skip"
)

// Like records the displayed track at idx as a good fit for the session mood.
// A track liked before has its confidence raised instead. It returns the
// liked track.
func (e *Engine) Like(ctx context.Context, sess *Session, idx int) (Track, error) {
	t, err := sess.Track(idx)
	if err != nil {
		return Track{}, err
	}
	e.metrics.RecordFeedback(feedbackLike, sess.Mood.String())
	if e.prefs == nil {
		return t, nil
	}

	added, err := e.prefs.AddPreference(ctx, sess.Mood, t.ID, t.Name, t.Artist)
	if err != nil {
		return t, fmt.Errorf("saving preference: %w", err)
	}
	if !added {
		if _, err := e.prefs.UpdatePreference(ctx, sess.Mood, t.ID, preferences.Like); err != nil {
			return t, fmt.Errorf("updating preference: %w", err)
		}
	}
	return t, nil
}

// Dislike lowers the confidence of any stored preference for the track at
// idx, suppresses it for the session mood during the cooldown window and
// replaces it in the display.
func (e *Engine) Dislike(ctx context.Context, sess *Session, idx int) (Track, error) {
	t, err := sess.Track(idx)
	if err != nil {
		return Track{}, err
	}
	e.metrics.RecordFeedback(feedbackDislike, sess.Mood.String())

	if e.prefs != nil {
		if _, err := e.prefs.UpdatePreference(ctx, sess.Mood, t.ID, preferences.Dislike); err != nil {
			e.logger.Warn("updating preference on dislike",
				zap.String("mood", sess.Mood.String()), zap.String("track_id", t.ID), zap.Error(err))
		}
	}
	sess.Reject(t.ID)
	sess.Cooldown.RecordDislike(sess.Mood, t.ID)

	return e.replace(ctx, sess, idx)
}

// Skip rejects the track at idx for this session and replaces it.
func (e *Engine) Skip(ctx context.Context, sess *Session, idx int) (Track, error) {
	t, err := sess.Track(idx)
	if err != nil {
		return Track{}, err
	}
	e.metrics.RecordFeedback(feedbackSkip, sess.Mood.String())
	sess.Reject(t.ID)

	return e.replace(ctx, sess, idx)
}

// replace draws a new track for position idx from, in order: mood matches in
// recently played, any recently played track, the saved library. Rejected
// and displayed tracks are never drawn. When every source is empty the
// rejected set shrinks to the replaced track and ErrNoReplacement is returned.
func (e *Engine) replace(ctx context.Context, sess *Session, idx int) (Track, error) {
	current := sess.Displayed[idx]
	sess.Reject(current.ID)
	excluded := sess.rejected.union(sess.displayedIDs())
	log := e.logger.With(zap.String("mood", sess.Mood.String()), zap.String("replacing", current.ID))

	recent, err := e.catalog.RecentlyPlayed(ctx, e.cfg.RecentLimit)
	if err != nil {
		log.Warn("fetching recently played for replacement", zap.Error(err))
		e.metrics.RecordCatalogError("recently_played")
	}
	recent = uniqueTracks(recent)

	if len(recent) > 0 {
		matched, err := e.filter.Match(ctx, sess.Cooldown, recent, sess.Mood, excluded)
		if err != nil {
			log.Warn("filtering replacement candidates", zap.Error(err))
		} else if len(matched) > 0 {
			return e.place(sess, idx, metrics.SourceFresh, matched), nil
		}
	}

	if pool := without(recent, excluded); len(pool) > 0 {
		return e.place(sess, idx, metrics.SourceRecent, pool), nil
	}

	saved, err := e.catalog.SavedTracks(ctx, e.cfg.SavedLimit)
	if err != nil {
		log.Warn("fetching saved tracks for replacement", zap.Error(err))
		e.metrics.RecordCatalogError("saved_tracks")
	}
	if pool := without(uniqueTracks(saved), excluded); len(pool) > 0 {
		return e.place(sess, idx, metrics.SourceSaved, pool), nil
	}

	sess.ResetRejected(current.ID)
	e.metrics.RecordReplacementExhausted()
	log.Info("no replacement available; rejected set reset")
	return Track{}, ErrNoReplacement
}

// place puts a random member of pool at idx.
func (e *Engine) place(sess *Session, idx int, source string, pool []Track) Track {
	t := pool[e.rng.IntN(len(pool))]
	sess.Displayed[idx] = t
	e.metrics.RecordReplacement(source)
	e.logger.Info("replaced track",
		zap.Int("index", idx), zap.String("source", source),
		zap.String("track", t.Name), zap.String("artist", t.Artist))
	return t
}
