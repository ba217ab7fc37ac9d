// Package realtime provides WebSocket-based session streaming: activity
// events in, interface snapshots out.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/orchestrator"
)

// Hub tracks active conversation sessions per user and tab.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*orchestrator.Session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[string]*orchestrator.Session),
	}
}

// Get returns the active session for a user and tab, or nil.
func (h *Hub) Get(userID, sessionID string) *orchestrator.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if sessions, ok := h.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a session for a user/tab. A session already occupying
// the slot is closed and replaced.
func (h *Hub) Register(userID, sessionID string, s *orchestrator.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]*orchestrator.Session)
	}
	if existing, exists := h.active[userID][sessionID]; exists && existing != s {
		existing.Close()
	}
	h.active[userID][sessionID] = s
	slog.Info("Session registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a session for a user/tab. A different session in
// the slot is left alone.
func (h *Hub) Unregister(userID, sessionID string, s *orchestrator.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == s {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(h.active, userID)
			}
			slog.Info("Session unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser terminates every active session of a user.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[userID]
	if !ok {
		return
	}
	for sid, s := range sessions {
		s.Close()
		slog.Info("Session closed", "user_id", userID, "session_id", sid)
	}
	delete(h.active, userID)
}

// BroadcastPower propagates an ambient power change to every session.
func (h *Hub) BroadcastPower(charging bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sessions := range h.active {
		for _, s := range sessions {
			s.Power(charging)
		}
	}
}

// Count returns the number of active sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.active {
		n += len(sessions)
	}
	return n
}
