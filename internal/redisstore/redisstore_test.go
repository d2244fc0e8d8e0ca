package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

func TestKey(t *testing.T) {
	if got := Key("spotify-user"); got != "moodsync:preferences:spotify-user" {
		t.Errorf("Key() = %q", got)
	}
}

func TestDialRequiresAddr(t *testing.T) {
	if _, err := Dial(context.Background(), ""); err == nil {
		t.Error("Dial(\"\") should fail")
	}
}

func TestBackendRoundTrip(t *testing.T) {
	addr := os.Getenv("MOODSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOODSYNC_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	owner := "test-" + uuid.NewString()
	t.Cleanup(func() { s.rdb.Del(context.Background(), Key(owner)) })

	b := s.Backend(owner)
	data, err := b.Load(ctx)
	if err != nil || data != nil {
		t.Fatalf("Load() on empty key = %q, %v", data, err)
	}

	store := preferences.New(b)
	if added, err := store.AddPreference(ctx, mood.Intense, "T1", "Loud", "Band"); err != nil || !added {
		t.Fatalf("AddPreference() = %v, %v", added, err)
	}
	moods, err := store.TrackMoods(ctx, "T1")
	if err != nil || len(moods) != 1 || moods[0] != mood.Intense {
		t.Errorf("TrackMoods() = %v, %v", moods, err)
	}
}
