package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// GetNotifications lists unread system notifications.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	unread := []domain.SysNotification{}
	if h.watcher != nil {
		unread = h.watcher.Unread()
	}
	JSON(w, http.StatusOK, unread)
}

// ReadNotification marks one notification as read.
func (h *Handler) ReadNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		Error(w, http.StatusBadRequest, "missing notification id")
		return
	}
	if h.watcher != nil {
		h.watcher.MarkRead(id)
	}
	JSON(w, http.StatusOK, map[string]string{"status": "read"})
}
