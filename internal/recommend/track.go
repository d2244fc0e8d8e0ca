// Package recommend assembles mood-matched track lists from a user's library
// and listening history, and redraws tracks in response to feedback.
package recommend

import (
	"context"
	"errors"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// Sentinel errors.
var (
	// ErrNoReplacement is returned when every replacement source is exhausted.
	ErrNoReplacement = errors.New("no more tracks available to recommend")
	// ErrNoTrack is returned when a feedback index does not address a displayed track.
	ErrNoTrack = errors.New("no track at that position")
)

// Track is a catalog track as the engine sees it. The engine never mutates it.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// Catalog is the music provider the engine reads from.
type Catalog interface {
	SavedTracks(ctx context.Context, limit int) ([]Track, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]Track, error)
	// AudioFeatures returns one entry per id in input order; nil marks a
	// track without features.
	AudioFeatures(ctx context.Context, ids []string) ([]*mood.Features, error)
}

// Preferences is the learned-preference store consulted and updated by the engine.
type Preferences interface {
	AddPreference(ctx context.Context, m mood.Mood, trackID, trackName, artistName string) (bool, error)
	UpdatePreference(ctx context.Context, m mood.Mood, trackID string, fb preferences.Feedback) (bool, error)
	MoodPreferences(ctx context.Context, m mood.Mood, minConfidence float64) ([]preferences.Record, error)
}

var _ Preferences = (*preferences.Store)(nil)

// idSet is a set of track IDs.
type idSet map[string]struct{}

func newIDSet(ids ...string) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) add(id string) {
	s[id] = struct{}{}
}

func (s idSet) union(other idSet) idSet {
	out := make(idSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// uniqueTracks drops repeated IDs, keeping the first occurrence.
func uniqueTracks(tracks []Track) []Track {
	seen := make(idSet, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || seen.has(t.ID) {
			continue
		}
		seen.add(t.ID)
		out = append(out, t)
	}
	return out
}

// without returns the tracks whose IDs are not in excluded, in order.
func without(tracks []Track, excluded idSet) []Track {
	var out []Track
	for _, t := range tracks {
		if !excluded.has(t.ID) {
			out = append(out, t)
		}
	}
	return out
}
