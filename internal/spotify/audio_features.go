package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// AudioFeatures retrieves audio features for the given track IDs.
// The result has one entry per ID in input order; tracks without available
// audio features get nil.
// Batches requests to max 100 tracks per request per Spotify API limits.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) ([]*mood.Features, error) {
	out := make([]*mood.Features, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// Build ID slice and index map for fast lookup
	spotifyIDs := make([]spotify.ID, len(ids))
	indexesByID := make(map[string][]int, len(ids))
	for i, id := range ids {
		spotifyIDs[i] = spotify.ID(id)
		indexesByID[id] = append(indexesByID[id], i)
	}

	total := len(spotifyIDs)

	for i := 0; i < total; i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, total)
		batch := spotifyIDs[i:end]

		c.logger.Debug("fetching audio features",
			zap.Int("from", i+1), zap.Int("to", end), zap.Int("total", total))

		features, err := c.api.GetAudioFeatures(ctx, batch...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
		}

		// Map features back to input positions
		for _, f := range features {
			if f == nil {
				continue // Track has no audio features
			}
			converted := convertAudioFeatures(f)
			for _, idx := range indexesByID[f.ID.String()] {
				out[idx] = converted
			}
		}
	}

	return out, nil
}

// convertAudioFeatures copies audio feature values into a mood.Features.
func convertAudioFeatures(f *spotify.AudioFeatures) *mood.Features {
	return &mood.Features{
		Acousticness:     f.Acousticness,
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Loudness:         f.Loudness,
		Speechiness:      f.Speechiness,
		Tempo:            f.Tempo,
		Valence:          f.Valence,
		Mode:             int(f.Mode),
	}
}
