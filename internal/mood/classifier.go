package mood

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Sentiment is the coarse polarity reported by a SentimentClassifier.
type Sentiment string

// Sentiment labels.
const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
	Neutral  Sentiment = "NEUTRAL"
)

// SentimentClassifier labels text as positive, negative or neutral.
// Implementations may be slow or unavailable; errors are never fatal.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
}

// Classifier maps free text to a Mood.
type Classifier struct {
	sentiment SentimentClassifier
	logger    *zap.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithSentiment enables the sentiment step for texts whose keyword score is
// inconclusive.
func WithSentiment(s SentimentClassifier) ClassifierOption {
	return func(c *Classifier) {
		c.sentiment = s
	}
}

// WithLogger sets the classifier's logger.
func WithLogger(l *zap.Logger) ClassifierOption {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassifier creates a Classifier. Without WithSentiment it runs keyword
// scoring and heuristics only.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect classifies text using keyword scoring only, without a sentiment model.
func Detect(text string) Mood {
	return NewClassifier().Detect(context.Background(), text)
}

// Detect returns the mood for text. It never fails: when every step is
// inconclusive or something unexpected happens it returns Motivational.
func (c *Classifier) Detect(ctx context.Context, text string) (m Mood) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("mood detection panicked", zap.Any("panic", r))
			m = Motivational
		}
	}()

	lower := strings.ToLower(text)

	if best, ok := scoreKeywords(lower); ok {
		c.logger.Debug("mood from keywords", zap.String("mood", best.String()))
		return best
	}

	if c.sentiment != nil {
		s, err := c.sentiment.Classify(ctx, text)
		if err == nil {
			return fromSentiment(s, lower)
		}
		c.logger.Warn("sentiment classification failed", zap.Error(err))
	}

	return heuristic(text, lower)
}

// scoreKeywords counts keyword hits per mood and returns the single best mood.
// ok is false when nothing matched or the top score is shared.
func scoreKeywords(lower string) (Mood, bool) {
	var (
		best     Mood
		maxScore int
		tied     bool
	)
	for _, m := range all {
		score := 0
		for _, word := range keywords[m] {
			if strings.Contains(lower, word) {
				score++
			}
		}
		switch {
		case score > maxScore:
			best, maxScore, tied = m, score, false
		case score == maxScore && score > 0:
			tied = true
		}
	}
	if maxScore == 0 || tied {
		return "", false
	}
	return best, true
}

func fromSentiment(s Sentiment, lower string) Mood {
	switch s {
	case Positive:
		if containsAny(lower, energeticWords) {
			return Upbeat
		}
		if containsAny(lower, affectionWords) {
			return Romantic
		}
		return Upbeat
	case Negative:
		if containsAny(lower, angerWords) {
			return Intense
		}
		return Melancholy
	default:
		if containsAny(lower, taskWords) {
			return Focused
		}
		return Motivational
	}
}

func heuristic(text, lower string) Mood {
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			return Focused
		}
	}
	if strings.Contains(text, "?") {
		return Focused
	}

	if strings.Contains(text, "!") || isUpper(text) {
		if containsAny(lower, positiveWords) {
			return Upbeat
		}
		return Intense
	}

	switch n := utf8.RuneCountInString(text); {
	case n < 15:
		return Upbeat
	case n > 40:
		return Calming
	default:
		return Motivational
	}
}

// isUpper reports whether text has at least one cased letter and no lowercase ones.
func isUpper(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ParseSentiment converts a model label such as "positive" or "NEG" into a Sentiment.
func ParseSentiment(label string) (Sentiment, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "POSITIVE", "POS":
		return Positive, nil
	case "NEGATIVE", "NEG":
		return Negative, nil
	case "NEUTRAL", "NEU":
		return Neutral, nil
	default:
		return "", fmt.Errorf("unknown sentiment label %q", label)
	}
}
