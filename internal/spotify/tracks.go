package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/recommend"
)

// SavedTracks returns up to limit tracks from the user's library, most
// recently saved first.
func (c *Client) SavedTracks(ctx context.Context, limit int) ([]recommend.Track, error) {
	if limit <= 0 {
		return nil, nil
	}
	return c.savedTracks(ctx, limit)
}

// FetchAllSavedTracks retrieves every track in the user's library.
func (c *Client) FetchAllSavedTracks(ctx context.Context) ([]recommend.Track, error) {
	return c.savedTracks(ctx, 0)
}

// savedTracks pages through the library until limit tracks are collected.
// A limit of zero means no limit.
func (c *Client) savedTracks(ctx context.Context, limit int) ([]recommend.Track, error) {
	pageSize := maxPageSize
	if limit > 0 {
		pageSize = min(limit, maxPageSize)
	}

	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(pageSize))
	if err != nil {
		return nil, fmt.Errorf("fetching saved tracks: %w", err)
	}

	var tracks []recommend.Track
	for {
		for _, saved := range page.Tracks {
			tracks = append(tracks, convertTrack(saved.FullTrack))
			if limit > 0 && len(tracks) >= limit {
				return tracks, nil
			}
		}

		c.logger.Debug("fetched saved tracks", zap.Int("count", len(tracks)))

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetching next page: %w", err)
		}
	}

	return tracks, nil
}

// RecentlyPlayed returns up to limit recently played tracks, newest first.
// Spotify serves at most 50; a track played more than once appears once per play.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]recommend.Track, error) {
	if limit <= 0 {
		return nil, nil
	}

	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{
		Limit: spotify.Numeric(min(limit, maxPageSize)),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	tracks := make([]recommend.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, convertSimpleTrack(item.Track))
	}
	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to recommend.Track.
func convertTrack(t spotify.FullTrack) recommend.Track {
	track := convertSimpleTrack(t.SimpleTrack)
	track.Album = t.Album.Name
	return track
}

func convertSimpleTrack(t spotify.SimpleTrack) recommend.Track {
	return recommend.Track{
		ID:     t.ID.String(),
		Name:   t.Name,
		Artist: primaryArtist(t.Artists),
	}
}

// primaryArtist returns the first credited artist, which is what the engine
// stores and displays.
func primaryArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
