package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

func writeDrop(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write spool file: %v", err)
	}
}

func startWatcher(t *testing.T, dir string, handlers Handlers) *Watcher {
	t.Helper()
	w, err := NewWatcher(dir, handlers)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := w.Run(ctx); err != nil {
			t.Errorf("Run failed: %v", err)
		}
	}()
	return w
}

func TestWatcher_IngestsDrop(t *testing.T) {
	dir := t.TempDir()
	got := make(chan domain.SysNotification, 1)
	w := startWatcher(t, dir, Handlers{
		OnNotification: func(n domain.SysNotification) { got <- n },
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeDrop(t, dir, "battery.json", `{"title":"Bateria fraca","details":"15%","priority":"high","category":"hardware"}`)

	select {
	case n := <-got:
		if n.Title != "Bateria fraca" || n.Priority != domain.PriorityHigh || n.Category != domain.CategoryHardware {
			t.Errorf("Unexpected notification: %+v", n)
		}
		if n.ID == "" {
			t.Error("Notification missing ID")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Notification never arrived")
	}

	if unread := w.Unread(); len(unread) != 1 {
		t.Errorf("Expected 1 unread, got %d", len(unread))
	}
	if _, err := os.Stat(filepath.Join(dir, "battery.json")); !os.IsNotExist(err) {
		t.Error("Ingested drop not removed from spool")
	}
}

func TestWatcher_IngestsPreexistingDrops(t *testing.T) {
	dir := t.TempDir()
	writeDrop(t, dir, "old.json", `{"title":"Pendente","priority":"low"}`)

	got := make(chan domain.SysNotification, 1)
	startWatcher(t, dir, Handlers{
		OnNotification: func(n domain.SysNotification) { got <- n },
	})

	select {
	case n := <-got:
		if n.Title != "Pendente" {
			t.Errorf("Unexpected notification: %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Preexisting drop never ingested")
	}
}

func TestWatcher_PowerDrop(t *testing.T) {
	dir := t.TempDir()
	got := make(chan bool, 1)
	w := startWatcher(t, dir, Handlers{
		OnPower: func(charging bool) { got <- charging },
	})

	time.Sleep(100 * time.Millisecond)
	writeDrop(t, dir, "power.json", `{"power":"charging"}`)

	select {
	case charging := <-got:
		if !charging {
			t.Error("Expected charging=true")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Power event never arrived")
	}
	if unread := w.Unread(); len(unread) != 0 {
		t.Error("Power drop must not become a notification")
	}
}

func TestWatcher_IgnoresMalformedAndNonJSON(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, Handlers{})

	time.Sleep(100 * time.Millisecond)
	writeDrop(t, dir, "broken.json", `{nope`)
	writeDrop(t, dir, "notes.txt", `ignorado`)

	time.Sleep(300 * time.Millisecond)
	if unread := w.Unread(); len(unread) != 0 {
		t.Errorf("Malformed input produced notifications: %+v", unread)
	}
}

func TestWatcher_MarkRead(t *testing.T) {
	w := &Watcher{unread: []domain.SysNotification{
		{ID: "a", Title: "um"},
		{ID: "b", Title: "dois"},
	}}

	w.MarkRead("a")
	unread := w.Unread()
	if len(unread) != 1 || unread[0].ID != "b" {
		t.Errorf("Unexpected unread set: %+v", unread)
	}

	w.ClearRead()
	if len(w.Unread()) != 0 {
		t.Error("ClearRead left notifications behind")
	}
}

func TestNormalizePriorityAndCategory(t *testing.T) {
	if got := normalizePriority("  critical "); got != domain.PriorityCritical {
		t.Errorf("Expected CRITICAL, got %q", got)
	}
	if got := normalizePriority("unknown"); got != domain.PriorityMedium {
		t.Errorf("Expected MEDIUM fallback, got %q", got)
	}
	if got := normalizeCategory("security"); got != domain.CategorySecurity {
		t.Errorf("Expected SECURITY, got %q", got)
	}
	if got := normalizeCategory(""); got != domain.CategoryGeneral {
		t.Errorf("Expected GENERAL fallback, got %q", got)
	}
}
