package preferences

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Confidence bounds and adjustment step.
const (
	InitialConfidence    = 1.0
	DefaultMinConfidence = 0.4
	confidenceStep       = 0.2
)

// DefaultOwner keys the document of the single local user.
const DefaultOwner = "default"

// ErrCorruptDocument reports a stored document that could not be parsed.
// Writes start over from an empty document.
var ErrCorruptDocument = errors.New("corrupt preferences document")

// Feedback is a user reaction to a recommended track.
type Feedback string

// Feedback kinds that move confidence.
const (
	Like    Feedback = "like"
	Dislike Feedback = "dislike"
)

// Backend loads and overwrites the whole serialized preferences document.
// Load returns (nil, nil) when nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store is the preference store. Every read loads the document fresh and every
// write rewrites it whole. It assumes a single writer.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the document. On failure it logs and returns an empty document
// alongside the error so callers can degrade to "no learned preferences".
func (s *Store) load(ctx context.Context) (Document, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Error("loading preferences", zap.Error(err))
		return make(Document), fmt.Errorf("loading preferences: %w", err)
	}
	doc, err := decodeDocument(data, s.logger)
	if err != nil {
		s.logger.Error("decoding preferences", zap.Error(err))
		return make(Document), fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return doc, nil
}

// loadForWrite is load for the write paths: a corrupt document is replaced
// by an empty one, backend failures still abort.
func (s *Store) loadForWrite(ctx context.Context) (Document, error) {
	doc, err := s.load(ctx)
	if err != nil && !errors.Is(err, ErrCorruptDocument) {
		return nil, err
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("saving preferences", zap.Error(err))
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// AddPreference records trackID as liked for m with full confidence.
// It returns false without changes if a record for (m, trackID) exists.
func (s *Store) AddPreference(ctx context.Context, m mood.Mood, trackID, trackName, artistName string) (bool, error) {
	doc, err := s.loadForWrite(ctx)
	if err != nil {
		return false, err
	}

	if slices.ContainsFunc(doc[m], func(r Record) bool { return r.TrackID == trackID }) {
		s.logger.Info("preference already exists",
			zap.String("mood", m.String()), zap.String("track_id", trackID))
		return false, nil
	}

	doc[m] = append(doc[m], Record{
		TrackID:    trackID,
		TrackName:  trackName,
		ArtistName: artistName,
		CreatedAt:  s.now(),
		Confidence: InitialConfidence,
	})
	if err := s.save(ctx, doc); err != nil {
		return false, err
	}

	s.logger.Info("added preference",
		zap.String("mood", m.String()), zap.String("track", trackName), zap.String("artist", artistName))
	return true, nil
}

// UpdatePreference moves the confidence of an existing (m, trackID) record by
// one step in the direction of fb. It never creates a record: it returns
// false when there is nothing to update.
func (s *Store) UpdatePreference(ctx context.Context, m mood.Mood, trackID string, fb Feedback) (bool, error) {
	doc, err := s.loadForWrite(ctx)
	if err != nil {
		return false, err
	}

	records := doc[m]
	idx := slices.IndexFunc(records, func(r Record) bool { return r.TrackID == trackID })
	if idx < 0 {
		return false, nil
	}

	records[idx].Confidence = adjust(records[idx].Confidence, fb)
	if err := s.save(ctx, doc); err != nil {
		return false, err
	}

	s.logger.Info("updated preference confidence",
		zap.String("mood", m.String()),
		zap.String("track", records[idx].TrackName),
		zap.Float64("confidence", records[idx].Confidence))
	return true, nil
}

// adjust applies one feedback step, clamps to [0,1] and rounds to two decimals
// so repeated steps land on exact values.
func adjust(confidence float64, fb Feedback) float64 {
	delta := -confidenceStep
	if fb == Like {
		delta = confidenceStep
	}
	c := math.Round((confidence+delta)*100) / 100
	return math.Max(0, math.Min(1, c))
}

// MoodPreferences returns the records for m with confidence >= minConfidence
// in storage order.
func (s *Store) MoodPreferences(ctx context.Context, m mood.Mood, minConfidence float64) ([]Record, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range doc[m] {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	return out, nil
}

// TrackMoods returns every mood that has a record for trackID, in display order.
func (s *Store) TrackMoods(ctx context.Context, trackID string) ([]mood.Mood, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []mood.Mood
	for _, m := range mood.All() {
		if slices.ContainsFunc(doc[m], func(r Record) bool { return r.TrackID == trackID }) {
			out = append(out, m)
		}
	}
	return out, nil
}
