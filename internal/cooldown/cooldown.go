// Package cooldown tracks recently disliked tracks per mood so they are not
// suggested again for that mood until a window has passed.
package cooldown

import (
	"sync"
	"time"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// DefaultWindow is how long a disliked track stays suppressed.
const DefaultWindow = 2 * time.Hour

// Tracker maps mood -> track ID -> time of the most recent dislike.
// State lives only as long as the process.
type Tracker struct {
	mu       sync.Mutex
	disliked map[mood.Mood]map[string]time.Time
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		disliked: make(map[mood.Mood]map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordDislike stamps trackID as disliked under m at the current time,
// replacing any earlier stamp.
func (t *Tracker) RecordDislike(m mood.Mood, trackID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byTrack, ok := t.disliked[m]
	if !ok {
		byTrack = make(map[string]time.Time)
		t.disliked[m] = byTrack
	}
	byTrack[trackID] = t.now()
}

// IsCoolingDown reports whether trackID was disliked under m less than
// window ago. An entry exactly window old is no longer cooling down.
func (t *Tracker) IsCoolingDown(m mood.Mood, trackID string, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, ok := t.disliked[m][trackID]
	if !ok {
		return false
	}
	return t.now().Sub(ts) < window
}

// CoolingDown returns the IDs still cooling down under m.
func (t *Tracker) CoolingDown(m mood.Mood, window time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var ids []string
	for id, ts := range t.disliked[m] {
		if now.Sub(ts) < window {
			ids = append(ids, id)
		}
	}
	return ids
}

// EvictExpired drops entries at or past window and removes moods left empty.
// It returns the number of entries removed.
func (t *Tracker) EvictExpired(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for m, byTrack := range t.disliked {
		for id, ts := range byTrack {
			if now.Sub(ts) >= window {
				delete(byTrack, id)
				removed++
			}
		}
		if len(byTrack) == 0 {
			delete(t.disliked, m)
		}
	}
	return removed
}

// Len returns the number of tracked entries across all moods.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, byTrack := range t.disliked {
		n += len(byTrack)
	}
	return n
}
