package clustering

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // Number of clusters to create (default: 4)
	MinClusterSize int // Minimum tracks per cluster (smaller clusters become outliers)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    4,
		MinClusterSize: 3,
	}
}

// Cluster is a group of tracks with a similar vibe.
type Cluster struct {
	Mood     mood.Mood          // Label for the cluster
	Name     string             // Display label, e.g. "😌 CALMING (Acoustic)"
	Tracks   []Track            // Tracks in this cluster
	Centroid map[string]float32 // Average feature values for this cluster
	Matched  int                // Tracks the label's matcher accepts
}

// trackObservation wraps a Track to implement clusters.Observation interface.
type trackObservation struct {
	track  *Track
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// featureNames defines the audio features used for clustering.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

// Profile groups tracks by audio feature similarity using k-means clustering.
// It returns the labelled clusters, largest first, and the outlier tracks:
// tracks without features and members of clusters below MinClusterSize.
func Profile(tracks []Track, cfg Config) ([]Cluster, []Track, error) {
	if len(tracks) == 0 {
		return nil, nil, nil
	}

	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}

	var valid []*Track
	var missingFeatures []Track
	for i := range tracks {
		t := &tracks[i]
		if t.Features != nil {
			valid = append(valid, t)
		} else {
			missingFeatures = append(missingFeatures, *t)
		}
	}

	// If fewer valid tracks than clusters, everything is an outlier
	if len(valid) < cfg.NumClusters {
		outliers := make([]Track, 0, len(tracks))
		for _, t := range valid {
			outliers = append(outliers, *t)
		}
		return nil, append(outliers, missingFeatures...), nil
	}

	var obs clusters.Observations
	for _, t := range valid {
		obs = append(obs, trackObservation{track: t, coords: extractFeatures(t.Features)})
	}

	result, err := kmeans.New().Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, nil, fmt.Errorf("k-means clustering: %w", err)
	}

	var out []Cluster
	var outliers []Track
	for _, c := range result {
		var members []Track
		for _, o := range c.Observations {
			if to, ok := o.(trackObservation); ok {
				members = append(members, *to.track)
			}
		}
		if len(members) == 0 {
			continue
		}
		if len(members) < cfg.MinClusterSize {
			outliers = append(outliers, members...)
			continue
		}

		centroid := make(map[string]float32, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = float32(c.Center[i])
		}
		label, matched := labelCluster(members, centroid)

		out = append(out, Cluster{
			Mood:     label,
			Name:     clusterName(label, centroid),
			Tracks:   members,
			Centroid: centroid,
			Matched:  matched,
		})
	}

	outliers = append(outliers, missingFeatures...)

	slices.SortStableFunc(out, func(a, b Cluster) int {
		return cmp.Compare(len(b.Tracks), len(a.Tracks))
	})

	return out, outliers, nil
}

// extractFeatures returns the clustering coordinates for f in featureNames order.
func extractFeatures(f *mood.Features) clusters.Coordinates {
	return clusters.Coordinates{
		float64(f.Energy),
		float64(f.Valence),
		float64(f.Danceability),
		float64(f.Acousticness),
	}
}
