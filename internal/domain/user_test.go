package domain

import (
	"testing"
	"time"
)

func TestUserSessionIdleFor(t *testing.T) {
	now := time.Now()
	u := &UserSession{UserID: "guest-1", LastSeenAt: now.Add(-90 * time.Minute)}

	if got := u.IdleFor(now); got != 90*time.Minute {
		t.Errorf("IdleFor = %v, want %v", got, 90*time.Minute)
	}
}
