package clustering

import (
	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// labelCluster picks the mood whose matcher accepts the most members, breaking
// ties by mood display order. When no matcher accepts any member the
// centroid's energy/valence quadrant decides.
func labelCluster(tracks []Track, centroid map[string]float32) (mood.Mood, int) {
	best, bestVotes := mood.Mood(""), 0
	for _, m := range mood.All() {
		votes := 0
		for _, t := range tracks {
			if mood.Matches(t.Features, m) {
				votes++
			}
		}
		if votes > bestVotes {
			best, bestVotes = m, votes
		}
	}
	if bestVotes == 0 {
		return quadrantMood(centroid), 0
	}
	return best, bestVotes
}

// quadrantMood maps a centroid to a mood using a 2x2 energy/valence grid.
//
// Quadrants:
//   - High Energy + High Valence = UPBEAT
//   - High Energy + Low Valence  = INTENSE
//   - Low Energy  + High Valence = CALMING
//   - Low Energy  + Low Valence  = MELANCHOLY
func quadrantMood(centroid map[string]float32) mood.Mood {
	highEnergy := centroid["energy"] > 0.6
	highValence := centroid["valence"] > 0.5

	switch {
	case highEnergy && highValence:
		return mood.Upbeat
	case highEnergy:
		return mood.Intense
	case highValence:
		return mood.Calming
	default:
		return mood.Melancholy
	}
}

// clusterName returns the mood label with an acoustic modifier when
// acousticness is high.
func clusterName(m mood.Mood, centroid map[string]float32) string {
	label := mood.Describe(m).Label
	if centroid["acousticness"] > 0.6 {
		return label + " (Acoustic)"
	}
	return label
}
