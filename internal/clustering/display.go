package clustering

import (
	"fmt"
	"strings"
)

const sampleTrackCount = 3

// FormatProfile returns a human-readable summary of a library profile.
// Shows the label, track count, feature averages and first 3 sample tracks
// for each cluster. Outliers are summarized by count only.
func FormatProfile(profile []Cluster, outliers []Track) string {
	var sb strings.Builder

	totalTracks := len(outliers)
	for _, c := range profile {
		totalTracks += len(c.Tracks)
	}

	if len(profile) == 0 {
		fmt.Fprintf(&sb, "No vibe clusters found from %d tracks", totalTracks)
		if len(outliers) > 0 {
			fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	word := "cluster"
	if len(profile) > 1 {
		word = "clusters"
	}
	fmt.Fprintf(&sb, "Found %d vibe %s from %d tracks", len(profile), word, totalTracks)
	if len(outliers) > 0 {
		fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
	}
	sb.WriteString("\n")

	for i, c := range profile {
		sb.WriteString("\n")
		sb.WriteString(formatCluster(i+1, c))
	}

	return sb.String()
}

// formatCluster formats a single cluster with its sample tracks.
func formatCluster(num int, c Cluster) string {
	var sb strings.Builder

	trackWord := "track"
	if len(c.Tracks) > 1 {
		trackWord = "tracks"
	}

	fmt.Fprintf(&sb, "%d. %s (%d %s)\n", num, c.Name, len(c.Tracks), trackWord)
	fmt.Fprintf(&sb, "   Mood: Energy=%.0f%% Valence=%.0f%% Danceability=%.0f%%\n",
		c.Centroid["energy"]*100, c.Centroid["valence"]*100, c.Centroid["danceability"]*100)

	sampleCount := min(sampleTrackCount, len(c.Tracks))
	for i := 0; i < sampleCount; i++ {
		t := c.Tracks[i]
		fmt.Fprintf(&sb, "   • %q - %s\n", t.Name, t.Artist)
	}

	if remaining := len(c.Tracks) - sampleTrackCount; remaining > 0 {
		fmt.Fprintf(&sb, "   ... and %d more\n", remaining)
	}

	return sb.String()
}
