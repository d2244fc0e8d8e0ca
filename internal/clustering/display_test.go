package clustering

import (
	"strings"
	"testing"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

func TestFormatProfile(t *testing.T) {
	makeTrack := func(name, artist string) Track {
		return Track{ID: name, Name: name, Artist: artist}
	}

	makeCluster := func(m mood.Mood, tracks []Track, centroid map[string]float32) Cluster {
		return Cluster{Mood: m, Name: clusterName(m, centroid), Tracks: tracks, Centroid: centroid}
	}

	defaultCentroid := map[string]float32{
		"energy":       0.75,
		"valence":      0.65,
		"danceability": 0.70,
		"acousticness": 0.20,
	}

	tests := []struct {
		name           string
		profile        []Cluster
		outliers       []Track
		wantContains   []string
		wantNotContain []string
	}{
		{
			name: "empty profile no outliers",
			wantContains: []string{
				"No vibe clusters found from 0 tracks",
			},
			wantNotContain: []string{
				"outliers",
			},
		},
		{
			name:     "empty profile with outliers",
			outliers: []Track{makeTrack("Song1", "Artist1")},
			wantContains: []string{
				"No vibe clusters found from 1 tracks",
				"(1 outliers skipped)",
			},
		},
		{
			name: "single cluster with 3 tracks",
			profile: []Cluster{
				makeCluster(mood.Upbeat, []Track{
					makeTrack("Song1", "Artist1"),
					makeTrack("Song2", "Artist2"),
					makeTrack("Song3", "Artist3"),
				}, defaultCentroid),
			},
			wantContains: []string{
				"Found 1 vibe cluster from 3 tracks",
				"1. 😄 UPBEAT (3 tracks)",
				`"Song1" - Artist1`,
				`"Song3" - Artist3`,
				"Mood: Energy=75%",
			},
			wantNotContain: []string{
				"more",
				"outliers",
			},
		},
		{
			name: "multiple clusters with outliers",
			profile: []Cluster{
				makeCluster(mood.Intense, []Track{
					makeTrack("A1", "Artist1"),
					makeTrack("A2", "Artist2"),
					makeTrack("A3", "Artist3"),
					makeTrack("A4", "Artist4"),
					makeTrack("A5", "Artist5"),
				}, defaultCentroid),
				makeCluster(mood.Melancholy, []Track{
					makeTrack("B1", "ArtistB"),
				}, defaultCentroid),
			},
			outliers: []Track{makeTrack("Outlier1", "X"), makeTrack("Outlier2", "X")},
			wantContains: []string{
				"Found 2 vibe clusters from 8 tracks",
				"(2 outliers skipped)",
				"🔥 INTENSE (5 tracks)",
				"... and 2 more",
				"2. 😢 MELANCHOLY (1 track)",
			},
			wantNotContain: []string{
				`"A4"`,
				"Outlier",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatProfile(tt.profile, tt.outliers)

			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatProfile() missing expected content %q\nGot:\n%s", want, got)
				}
			}

			for _, notWant := range tt.wantNotContain {
				if strings.Contains(got, notWant) {
					t.Errorf("FormatProfile() contains unexpected content %q\nGot:\n%s", notWant, got)
				}
			}
		})
	}
}
