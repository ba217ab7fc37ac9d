package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/identity"
)

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login resolves an email to a user identity and binds the browser to
// it. Disabled in single-user mode.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.singleUser {
		Error(w, http.StatusBadRequest, "authentication disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := identity.Login(r.Context(), h.repo, req.Email, req.Name)
	if err != nil {
		slog.Warn("Login rejected", "error", err)
		Error(w, http.StatusBadRequest, "invalid email")
		return
	}

	identity.SetSessionCookie(w, user.UserID, h.isDev)
	JSON(w, http.StatusOK, user)
}

// Guest starts an ephemeral guest identity with no persistent memory.
func (h *Handler) Guest(w http.ResponseWriter, r *http.Request) {
	if h.singleUser {
		Error(w, http.StatusBadRequest, "authentication disabled")
		return
	}

	guest, err := identity.StartGuest(r.Context(), h.repo)
	if err != nil {
		slog.Error("Failed to start guest", "error", err)
		Error(w, http.StatusInternalServerError, "failed to start guest session")
		return
	}

	identity.SetSessionCookie(w, guest.UserID, h.isDev)
	JSON(w, http.StatusOK, guest)
}

// Logout clears the identity cookie and terminates the user's live
// sessions. Guest data stays until the TTL sweep collects it.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.singleUser {
		Error(w, http.StatusBadRequest, "authentication disabled")
		return
	}

	if user := identity.UserFromContext(r.Context()); user != nil {
		h.hub.CloseUser(user.UserID)
	}
	identity.ClearSessionCookie(w, h.isDev)
	JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated user, so the frontend can restore a
// persisted session on load.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	JSON(w, http.StatusOK, user)
}
