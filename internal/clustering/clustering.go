// Package clustering groups a listener's library into vibe clusters using
// audio features and labels each cluster with a mood.
package clustering

import (
	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Track represents a song with its metadata and audio features.
type Track struct {
	ID     string
	Name   string
	Artist string
	// Features is nil if not fetched or unavailable.
	Features *mood.Features
}
