// Package mood classifies free text into one of seven moods and decides
// whether a track's audio features fit a mood.
package mood

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMood is returned by Parse for labels outside the fixed set.
var ErrUnknownMood = errors.New("unknown mood")

// Mood is one of the fixed emotional-state categories driving track selection.
type Mood string

// The closed set of moods.
const (
	Upbeat       Mood = "UPBEAT"
	Calming      Mood = "CALMING"
	Melancholy   Mood = "MELANCHOLY"
	Romantic     Mood = "ROMANTIC"
	Motivational Mood = "MOTIVATIONAL"
	Intense      Mood = "INTENSE"
	Focused      Mood = "FOCUSED"
)

var all = []Mood{Upbeat, Calming, Melancholy, Romantic, Motivational, Intense, Focused}

// All returns every known mood in display order.
func All() []Mood {
	out := make([]Mood, len(all))
	copy(out, all)
	return out
}

// Valid reports whether m is one of the seven known moods.
func (m Mood) Valid() bool {
	_, ok := details[m]
	return ok
}

func (m Mood) String() string {
	return string(m)
}

// Parse converts a case-insensitive label into a Mood.
func Parse(s string) (Mood, error) {
	m := Mood(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
	}
	return m, nil
}

// Details is display metadata for a mood.
type Details struct {
	Mood        Mood   `json:"mood"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var details = map[Mood]Details{
	Upbeat:       {Upbeat, "😄 UPBEAT", "Energetic, happy, and cheerful music to lift your spirits."},
	Calming:      {Calming, "😌 CALMING", "Peaceful, relaxing tunes to help you unwind and destress."},
	Melancholy:   {Melancholy, "😢 MELANCHOLY", "Emotional, reflective songs that resonate with sadness or nostalgia."},
	Romantic:     {Romantic, "❤️ ROMANTIC", "Love songs and tender melodies for those heartfelt moments."},
	Motivational: {Motivational, "💪 MOTIVATIONAL", "Powerful tracks to inspire and push you forward."},
	Intense:      {Intense, "🔥 INTENSE", "Strong, aggressive music to channel your energy and passion."},
	Focused:      {Focused, "🧠 FOCUSED", "Concentration-enhancing tracks for work or study sessions."},
}

// Describe returns display metadata for m.
// Unknown moods get their raw name as label and no description.
func Describe(m Mood) Details {
	if d, ok := details[m]; ok {
		return d
	}
	return Details{Mood: m, Label: string(m)}
}
