// Package notify watches a spool directory for system notification
// drops. Host-side agents write one JSON file per event; the watcher
// parses them into notifications for prompt context and power state
// changes for the interaction machine.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// spoolEntry is the on-disk format of one drop. Power entries drive the
// ambient Charging/OnBattery states instead of becoming notifications.
type spoolEntry struct {
	Title    string `json:"title"`
	Details  string `json:"details"`
	Priority string `json:"priority"`
	Category string `json:"category"`
	Power    string `json:"power,omitempty"`
}

// Handlers receives parsed spool events. Either callback may be nil.
type Handlers struct {
	OnNotification func(domain.SysNotification)
	OnPower        func(charging bool)
}

// Watcher tails a spool directory and keeps the current unread set.
type Watcher struct {
	dir      string
	handlers Handlers

	mu     sync.Mutex
	unread []domain.SysNotification
}

// NewWatcher creates a watcher over dir, creating it if needed.
func NewWatcher(dir string, handlers Handlers) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Watcher{dir: dir, handlers: handlers}, nil
}

// Run watches the spool until ctx is cancelled. Files present at
// startup are ingested first so a restart does not lose drops.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read spool dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.ingest(filepath.Join(w.dir, entry.Name()))
		}
	}

	slog.Info("Notification spool watcher started", "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// Writers may still be mid-write on Create; the short delay
			// lets small drops settle before parsing.
			time.Sleep(50 * time.Millisecond)
			w.ingest(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Spool watcher error", "error", err)
		}
	}
}

// ingest parses one spool file and removes it. Malformed drops are
// logged and discarded.
func (w *Watcher) ingest(path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read spool file", "path", path, "error", err)
		}
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Error("Failed to remove spool file", "path", path, "error", err)
		}
	}()

	var entry spoolEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Error("Malformed spool file", "path", path, "error", err)
		return
	}

	switch strings.ToLower(entry.Power) {
	case "charging":
		if w.handlers.OnPower != nil {
			w.handlers.OnPower(true)
		}
		return
	case "battery":
		if w.handlers.OnPower != nil {
			w.handlers.OnPower(false)
		}
		return
	}

	if entry.Title == "" {
		slog.Error("Spool file missing title", "path", path)
		return
	}

	notification := domain.SysNotification{
		ID:        uuid.NewString(),
		Title:     entry.Title,
		Details:   entry.Details,
		Priority:  normalizePriority(entry.Priority),
		Category:  normalizeCategory(entry.Category),
		CreatedAt: time.Now(),
	}

	w.mu.Lock()
	w.unread = append(w.unread, notification)
	w.mu.Unlock()

	if w.handlers.OnNotification != nil {
		w.handlers.OnNotification(notification)
	}
}

// Unread returns the current unread notifications, newest last.
func (w *Watcher) Unread() []domain.SysNotification {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.SysNotification(nil), w.unread...)
}

// MarkRead drops one notification from the unread set.
func (w *Watcher) MarkRead(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, n := range w.unread {
		if n.ID == id {
			w.unread = append(w.unread[:i], w.unread[i+1:]...)
			return
		}
	}
}

// ClearRead empties the unread set.
func (w *Watcher) ClearRead() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unread = nil
}

func normalizePriority(p string) string {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case domain.PriorityLow:
		return domain.PriorityLow
	case domain.PriorityHigh:
		return domain.PriorityHigh
	case domain.PriorityCritical:
		return domain.PriorityCritical
	default:
		return domain.PriorityMedium
	}
}

func normalizeCategory(c string) string {
	switch strings.ToUpper(strings.TrimSpace(c)) {
	case domain.CategoryHardware:
		return domain.CategoryHardware
	case domain.CategorySecurity:
		return domain.CategorySecurity
	case domain.CategoryMemory:
		return domain.CategoryMemory
	default:
		return domain.CategoryGeneral
	}
}
