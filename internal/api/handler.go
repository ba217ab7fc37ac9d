// Package api provides HTTP handlers for the Orion API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/identity"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/notify"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/realtime"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo       store.Repository
	hub        *realtime.Hub
	watcher    *notify.Watcher
	singleUser bool
	isDev      bool
}

// NewHandler creates a new Handler with common dependencies. watcher
// may be nil when no notification spool is configured.
func NewHandler(repo store.Repository, hub *realtime.Hub, watcher *notify.Watcher, singleUser, isDev bool) *Handler {
	return &Handler{
		repo:       repo,
		hub:        hub,
		watcher:    watcher,
		singleUser: singleUser,
		isDev:      isDev,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// requireUser resolves the request identity or writes a 401.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (userID string, ok bool) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "not authenticated")
		return "", false
	}
	return user.UserID, true
}

// Health reports API and database status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.hub.Count(),
	})
}
