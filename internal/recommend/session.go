package recommend

import (
	"slices"

	"github.com/justestif/go-spotify-moodsync/internal/cooldown"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Session is the per-user state the hosting layer owns: the current mood,
// the displayed tracks, the rejected set and the dislike cooldowns.
// A Session is not safe for concurrent use.
type Session struct {
	Mood      mood.Mood
	Displayed []Track
	Cooldown  *cooldown.Tracker

	rejected idSet
}

// NewSession creates an empty session. A nil tracker gets a fresh one.
func NewSession(tracker *cooldown.Tracker) *Session {
	if tracker == nil {
		tracker = cooldown.New()
	}
	return &Session{
		Cooldown: tracker,
		rejected: make(idSet),
	}
}

// Reject adds id to the rejected set.
func (s *Session) Reject(id string) {
	s.rejected.add(id)
}

// IsRejected reports whether id is in the rejected set.
func (s *Session) IsRejected(id string) bool {
	return s.rejected.has(id)
}

// Rejected returns the rejected IDs, sorted.
func (s *Session) Rejected() []string {
	ids := make([]string, 0, len(s.rejected))
	for id := range s.rejected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResetRejected replaces the rejected set with ids.
func (s *Session) ResetRejected(ids ...string) {
	s.rejected = newIDSet(ids...)
}

// Track returns the displayed track at idx.
func (s *Session) Track(idx int) (Track, error) {
	if idx < 0 || idx >= len(s.Displayed) {
		return Track{}, ErrNoTrack
	}
	return s.Displayed[idx], nil
}

func (s *Session) displayedIDs() idSet {
	ids := make(idSet, len(s.Displayed))
	for _, t := range s.Displayed {
		ids.add(t.ID)
	}
	return ids
}
