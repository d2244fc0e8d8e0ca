package cooldown

import (
	"testing"
	"time"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func TestIsCoolingDown(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"immediately", 0, true},
		{"after one hour", time.Hour, true},
		{"one second before window", DefaultWindow - time.Second, true},
		{"exactly at window", DefaultWindow, false},
		{"one second after window", DefaultWindow + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, clock := newTestTracker()
			tracker.RecordDislike(mood.Calming, "T1")
			clock.Advance(tt.elapsed)

			if got := tracker.IsCoolingDown(mood.Calming, "T1", DefaultWindow); got != tt.want {
				t.Errorf("IsCoolingDown() after %v = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestCooldownIsPerMood(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.RecordDislike(mood.Calming, "T1")

	if tracker.IsCoolingDown(mood.Upbeat, "T1", DefaultWindow) {
		t.Error("T1 should not cool down under UPBEAT")
	}
	if tracker.IsCoolingDown(mood.Calming, "T2", DefaultWindow) {
		t.Error("T2 was never disliked")
	}
}

func TestRecordDislikeOverwrites(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.RecordDislike(mood.Calming, "T1")

	clock.Advance(90 * time.Minute)
	tracker.RecordDislike(mood.Calming, "T1")

	clock.Advance(time.Hour)
	if !tracker.IsCoolingDown(mood.Calming, "T1", DefaultWindow) {
		t.Error("newer dislike should restart the window")
	}
}

func TestEvictExpired(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.RecordDislike(mood.Calming, "old")
	tracker.RecordDislike(mood.Upbeat, "old-upbeat")

	clock.Advance(time.Hour)
	tracker.RecordDislike(mood.Calming, "new")

	clock.Advance(time.Hour)
	removed := tracker.EvictExpired(DefaultWindow)

	if removed != 2 {
		t.Errorf("EvictExpired() removed %d, want 2", removed)
	}
	if tracker.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tracker.Len())
	}
	if _, ok := tracker.disliked[mood.Upbeat]; ok {
		t.Error("empty mood map should be removed")
	}
	if !tracker.IsCoolingDown(mood.Calming, "new", DefaultWindow) {
		t.Error("new entry should survive eviction")
	}
}

func TestCoolingDown(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.RecordDislike(mood.Focused, "A")
	clock.Advance(3 * time.Hour)
	tracker.RecordDislike(mood.Focused, "B")

	ids := tracker.CoolingDown(mood.Focused, DefaultWindow)
	if len(ids) != 1 || ids[0] != "B" {
		t.Errorf("CoolingDown() = %v, want [B]", ids)
	}
}
