package mood

// Features holds the audio descriptors the catalog provider reports for a track.
// Most values are in [0,1]; Loudness is in dB, Tempo in BPM, Mode is 1 for
// major and 0 for minor.
type Features struct {
	Acousticness     float32 `json:"acousticness"`
	Danceability     float32 `json:"danceability"`
	Energy           float32 `json:"energy"`
	Instrumentalness float32 `json:"instrumentalness"`
	Liveness         float32 `json:"liveness"`
	Loudness         float32 `json:"loudness"`
	Speechiness      float32 `json:"speechiness"`
	Tempo            float32 `json:"tempo"`
	Valence          float32 `json:"valence"`
	Mode             int     `json:"mode"`
}

const modeMinor = 0

// predicates maps each mood to its audio-feature rule.
// TestPredicatesCoverAllMoods keeps this table in sync with All.
var predicates = map[Mood]func(f Features) bool{
	Upbeat: func(f Features) bool {
		return f.Valence > 0.6 && f.Energy > 0.6 && f.Tempo > 100
	},
	Calming: func(f Features) bool {
		return f.Valence > 0.4 && f.Energy < 0.5 && f.Acousticness > 0.4
	},
	Melancholy: func(f Features) bool {
		return f.Valence < 0.4 && f.Energy < 0.6 && f.Mode == modeMinor
	},
	Romantic: func(f Features) bool {
		return f.Valence > 0.5 && f.Energy < 0.6 && f.Acousticness > 0.3 && f.Instrumentalness < 0.5
	},
	Motivational: func(f Features) bool {
		return f.Energy > 0.7 && f.Tempo > 120 && f.Valence > 0.5
	},
	Intense: func(f Features) bool {
		return f.Energy > 0.8 && f.Loudness > -6 && f.Valence < 0.6
	},
	Focused: func(f Features) bool {
		return f.Energy > 0.3 && f.Energy < 0.7 && f.Instrumentalness > 0.4 && f.Speechiness < 0.1
	},
}

// Matches reports whether a track with features f fits mood m.
// A nil vector never matches. Moods outside the known set accept every track.
func Matches(f *Features, m Mood) bool {
	if f == nil {
		return false
	}
	pred, ok := predicates[m]
	if !ok {
		return true
	}
	return pred(*f)
}
