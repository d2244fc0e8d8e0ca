// Package preferences persists per-mood track preferences with a confidence
// score that moves with user feedback.
package preferences

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

// Record is one liked track for one mood.
type Record struct {
	TrackID    string    `json:"track_id"`
	TrackName  string    `json:"track_name"`
	ArtistName string    `json:"artist_name"`
	CreatedAt  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// naiveISO is the timestamp layout written without a zone offset.
const naiveISO = "2006-01-02T15:04:05.999999"

// missingConfidence is assumed for records stored without a confidence.
const missingConfidence = 0.5

// UnmarshalJSON accepts RFC 3339 timestamps and naive ISO timestamps.
// A record without a confidence gets missingConfidence.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		TrackID    string   `json:"track_id"`
		TrackName  string   `json:"track_name"`
		ArtistName string   `json:"artist_name"`
		Timestamp  string   `json:"timestamp"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var createdAt time.Time
	if raw.Timestamp != "" {
		var err error
		createdAt, err = time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			createdAt, err = time.ParseInLocation(naiveISO, raw.Timestamp, time.Local)
			if err != nil {
				return fmt.Errorf("parsing timestamp %q: %w", raw.Timestamp, err)
			}
		}
	}

	confidence := missingConfidence
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}

	*r = Record{
		TrackID:    raw.TrackID,
		TrackName:  raw.TrackName,
		ArtistName: raw.ArtistName,
		CreatedAt:  createdAt,
		Confidence: confidence,
	}
	return nil
}

// Document is the whole persisted structure: mood -> records in insertion order.
type Document map[mood.Mood][]Record

// decodeDocument parses a persisted document. Individual records that fail to
// decode or lack a track ID are skipped, as are unknown mood keys.
func decodeDocument(data []byte, logger *zap.Logger) (Document, error) {
	doc := make(Document)
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing preferences document: %w", err)
	}

	for key, items := range raw {
		m, err := mood.Parse(key)
		if err != nil {
			logger.Warn("skipping preferences for unknown mood", zap.String("mood", key))
			continue
		}
		records := make([]Record, 0, len(items))
		for i, item := range items {
			var rec Record
			if err := json.Unmarshal(item, &rec); err != nil {
				logger.Warn("skipping malformed preference record",
					zap.String("mood", key), zap.Int("index", i), zap.Error(err))
				continue
			}
			if rec.TrackID == "" {
				logger.Warn("skipping preference record without track id",
					zap.String("mood", key), zap.Int("index", i))
				continue
			}
			records = append(records, rec)
		}
		doc[m] = records
	}
	return doc, nil
}

func encodeDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding preferences document: %w", err)
	}
	return data, nil
}
