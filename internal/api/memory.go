package api

import (
	"log/slog"
	"net/http"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// GetMemory lists the user's persisted facts.
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	facts, err := h.repo.GetFacts(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load facts", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load memory")
		return
	}
	if facts == nil {
		facts = []domain.MemoryEntry{}
	}
	JSON(w, http.StatusOK, facts)
}

// ClearMemory removes every persisted fact for the user.
func (h *Handler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.repo.ClearFacts(r.Context(), userID); err != nil {
		slog.Error("Failed to clear facts", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to clear memory")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GetHistory returns the persisted conversation log.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	history, err := h.repo.GetHistory(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load history", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []domain.Message{}
	}
	JSON(w, http.StatusOK, history)
}

// ClearHistory removes the persisted conversation log.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.repo.ClearHistory(r.Context(), userID); err != nil {
		slog.Error("Failed to clear history", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
