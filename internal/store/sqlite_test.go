package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "orion.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return repo
}

func TestSQLiteStore_UserRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	user := &domain.UserSession{
		UserID:     "u-abc123",
		Name:       "teste",
		Email:      "teste@example.com",
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err := repo.GetUser(ctx, "u-abc123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected user, got nil")
	}
	if got.Name != "teste" || got.Email != "teste@example.com" || got.IsGuest {
		t.Errorf("Unexpected user: %+v", got)
	}
}

func TestSQLiteStore_GetUserMissing(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetUser(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing user, got %+v", got)
	}
}

func TestSQLiteStore_SaveFactDeduplicates(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	saved, err := repo.SaveFact(ctx, "u-1", "gosta de café")
	if err != nil {
		t.Fatalf("SaveFact failed: %v", err)
	}
	if !saved {
		t.Error("Expected first save to report true")
	}

	saved, err = repo.SaveFact(ctx, "u-1", "gosta de café")
	if err != nil {
		t.Fatalf("Duplicate SaveFact failed: %v", err)
	}
	if saved {
		t.Error("Expected duplicate save to report false")
	}

	// Same content for a different user is not a duplicate.
	saved, err = repo.SaveFact(ctx, "u-2", "gosta de café")
	if err != nil {
		t.Fatalf("SaveFact for second user failed: %v", err)
	}
	if !saved {
		t.Error("Expected fact scoping per user")
	}

	facts, err := repo.GetFacts(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetFacts failed: %v", err)
	}
	if len(facts) != 1 {
		t.Errorf("Expected 1 fact, got %d", len(facts))
	}
}

func TestSQLiteStore_ClearFacts(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if _, err := repo.SaveFact(ctx, "u-1", "fato um"); err != nil {
		t.Fatalf("SaveFact failed: %v", err)
	}
	if _, err := repo.SaveFact(ctx, "u-1", "fato dois"); err != nil {
		t.Fatalf("SaveFact failed: %v", err)
	}

	if err := repo.ClearFacts(ctx, "u-1"); err != nil {
		t.Fatalf("ClearFacts failed: %v", err)
	}

	facts, err := repo.GetFacts(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetFacts failed: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("Expected no facts after clear, got %d", len(facts))
	}
}

func TestSQLiteStore_HistoryCap(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	messages := make([]domain.Message, 0, HistoryCap+10)
	for i := 0; i < HistoryCap+10; i++ {
		messages = append(messages, domain.Message{
			ID:        fmt.Sprintf("m%d", i),
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf("mensagem %d", i),
			CreatedAt: time.Now(),
		})
	}

	if err := repo.SaveHistory(ctx, "u-1", messages); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	got, err := repo.GetHistory(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(got) != HistoryCap {
		t.Fatalf("Expected %d messages, got %d", HistoryCap, len(got))
	}
	// The oldest messages are the ones discarded.
	if got[0].ID != "m10" {
		t.Errorf("Expected first kept message m10, got %s", got[0].ID)
	}
	if got[len(got)-1].ID != fmt.Sprintf("m%d", HistoryCap+9) {
		t.Errorf("Unexpected last message %s", got[len(got)-1].ID)
	}
}

func TestSQLiteStore_SaveHistoryReplaces(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := []domain.Message{
		{ID: "a", Role: domain.RoleUser, Content: "oi", CreatedAt: time.Now()},
		{ID: "b", Role: domain.RoleAgent, Content: "olá", CreatedAt: time.Now()},
	}
	if err := repo.SaveHistory(ctx, "u-1", first); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	second := []domain.Message{
		{ID: "c", Role: domain.RoleUser, Content: "novo", CreatedAt: time.Now()},
	}
	if err := repo.SaveHistory(ctx, "u-1", second); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	got, err := repo.GetHistory(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Expected replaced history [c], got %+v", got)
	}
}

func TestSQLiteStore_DeleteUserCascades(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	user := &domain.UserSession{
		UserID: "guest-1", Name: "Visitante", IsGuest: true,
		LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if _, err := repo.SaveFact(ctx, "guest-1", "efêmero"); err != nil {
		t.Fatalf("SaveFact failed: %v", err)
	}
	if err := repo.SaveHistory(ctx, "guest-1", []domain.Message{
		{ID: "m", Role: domain.RoleUser, Content: "oi", CreatedAt: now},
	}); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	if err := repo.DeleteUser(ctx, "guest-1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if got, _ := repo.GetUser(ctx, "guest-1"); got != nil {
		t.Error("User survived deletion")
	}
	if facts, _ := repo.GetFacts(ctx, "guest-1"); len(facts) != 0 {
		t.Error("Facts survived deletion")
	}
	if hist, _ := repo.GetHistory(ctx, "guest-1"); len(hist) != 0 {
		t.Error("History survived deletion")
	}
}

func TestSQLiteStore_GetStaleGuests(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()

	users := []*domain.UserSession{
		{UserID: "guest-old", Name: "Visitante", IsGuest: true, LastSeenAt: old, CreatedAt: old, UpdatedAt: old},
		{UserID: "guest-new", Name: "Visitante", IsGuest: true, LastSeenAt: fresh, CreatedAt: fresh, UpdatedAt: fresh},
		{UserID: "u-perm", Name: "fixo", IsGuest: false, LastSeenAt: old, CreatedAt: old, UpdatedAt: old},
	}
	for _, u := range users {
		if err := repo.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
	}

	stale, err := repo.GetStaleGuests(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GetStaleGuests failed: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("Expected 1 stale guest, got %d", len(stale))
	}
	if stale[0].UserID != "guest-old" {
		t.Errorf("Expected guest-old, got %s", stale[0].UserID)
	}
}
