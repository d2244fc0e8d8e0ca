package clustering

import (
	"context"
	"fmt"

	"github.com/justestif/go-spotify-moodsync/internal/recommend"
)

// DefaultLibraryLimit caps how many saved tracks a profile clusters.
const DefaultLibraryLimit = 200

// FetchLibrary loads up to limit saved tracks with their audio features.
func FetchLibrary(ctx context.Context, catalog recommend.Catalog, limit int) ([]Track, error) {
	saved, err := catalog.SavedTracks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching saved tracks: %w", err)
	}
	ids := make([]string, len(saved))
	for i, t := range saved {
		ids[i] = t.ID
	}
	features, err := catalog.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}

	out := make([]Track, len(saved))
	for i, t := range saved {
		out[i] = Track{ID: t.ID, Name: t.Name, Artist: t.Artist}
		if i < len(features) {
			out[i].Features = features[i]
		}
	}
	return out, nil
}
