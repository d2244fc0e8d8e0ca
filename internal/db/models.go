package db

import (
	"time"
)

// User represents a Spotify user who has signed in.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSeenAt  *time.Time // nullable
}
