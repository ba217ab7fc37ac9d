package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "orion.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedGuest(t *testing.T, repo store.Repository, userID string, lastSeen time.Time) {
	t.Helper()
	if err := repo.UpsertUser(context.Background(), &domain.UserSession{
		UserID: userID, Name: "Visitante", IsGuest: true,
		LastSeenAt: lastSeen, CreatedAt: lastSeen, UpdatedAt: lastSeen,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
}

func TestSweep_RemovesStaleGuests(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedGuest(t, repo, "guest-old", time.Now().Add(-2*time.Hour))
	seedGuest(t, repo, "guest-new", time.Now())
	if _, err := repo.SaveFact(ctx, "guest-old", "efêmero"); err != nil {
		t.Fatalf("SaveFact failed: %v", err)
	}

	var cleaned []string
	s := NewSweeper(repo, time.Hour, func(userID string) {
		cleaned = append(cleaned, userID)
	})
	s.Sweep(ctx)

	if len(cleaned) != 1 || cleaned[0] != "guest-old" {
		t.Errorf("Unexpected cleanup callbacks: %v", cleaned)
	}
	if got, _ := repo.GetUser(ctx, "guest-old"); got != nil {
		t.Error("Stale guest survived the sweep")
	}
	if got, _ := repo.GetUser(ctx, "guest-new"); got == nil {
		t.Error("Fresh guest was swept")
	}
	if facts, _ := repo.GetFacts(ctx, "guest-old"); len(facts) != 0 {
		t.Error("Guest facts survived the sweep")
	}
}

func TestSweep_IgnoresRegisteredUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := repo.UpsertUser(ctx, &domain.UserSession{
		UserID: "u-fixo", Name: "Ana", Email: "ana@example.com",
		LastSeenAt: old, CreatedAt: old, UpdatedAt: old,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	NewSweeper(repo, time.Hour, nil).Sweep(ctx)

	if got, _ := repo.GetUser(ctx, "u-fixo"); got == nil {
		t.Error("Registered user was swept")
	}
}

func TestSweeper_StartRejectsBadSpec(t *testing.T) {
	s := NewSweeper(newTestRepo(t), time.Hour, nil)
	if err := s.Start("not a spec"); err == nil {
		t.Error("Expected error for invalid cron spec")
	}
}

func TestSweeper_StartAndStop(t *testing.T) {
	s := NewSweeper(newTestRepo(t), time.Hour, nil)
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
}
