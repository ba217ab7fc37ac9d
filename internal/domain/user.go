package domain

import (
	"time"
)

// UserSession identifies an authenticated (or guest) user. The shape is
// fixed: required fields only, no free-form extension payload.
type UserSession struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	IsGuest    bool      `json:"is_guest"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdleFor reports how long the user has been inactive.
func (u *UserSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(u.LastSeenAt)
}
