package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/identity"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/orchestrator"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/state"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/transport"
)

// wsMessage is one client event.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Empty   bool   `json:"empty,omitempty"`
	Allowed bool   `json:"allowed,omitempty"`
}

// snapshotEnvelope frames a snapshot on the wire.
type snapshotEnvelope struct {
	Type string `json:"type"`
	orchestrator.Snapshot
}

// WebSocketHandler upgrades connections and binds each one to a
// conversation session.
type WebSocketHandler struct {
	repo          store.Repository
	transport     transport.Transport
	hub           *Hub
	machineCfg    state.Config
	notifications func() []domain.SysNotification
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates the session endpoint handler.
// notifications may be nil when no spool watcher is configured.
func NewWebSocketHandler(repo store.Repository, tr transport.Transport, hub *Hub, machineCfg state.Config, notifications func() []domain.SysNotification, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		transport:     tr,
		hub:           hub,
		machineCfg:    machineCfg,
		notifications: notifications,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if user == nil {
		// No identity yet: hold the connection on the unauthenticated
		// snapshot until the client logs in over REST and reconnects.
		h.serveUnauthenticated(ctx, ws)
		return
	}

	outbound := make(chan orchestrator.Snapshot, 32)
	session := orchestrator.NewSession(*user, h.repo, h.transport, orchestrator.Config{
		Machine:       h.machineCfg,
		Notifications: h.notifications,
		OnRender: func(snap orchestrator.Snapshot) {
			// Keep the latest snapshot when the client cannot keep up.
			for {
				select {
				case outbound <- snap:
					return
				default:
					select {
					case <-outbound:
					default:
					}
				}
			}
		},
		OnLogout: cancel,
	})
	defer session.Close()

	h.hub.Register(user.UserID, sessionID, session)
	defer h.hub.Unregister(user.UserID, sessionID, session)

	go h.writeLoop(ctx, ws, outbound, user.UserID)

	session.Start(r.URL.Query().Get("fresh") == "1")
	h.readLoop(ctx, ws, session, user.UserID)
	slog.Info("Session connection ended", "user_id", user.UserID, "session_id", sessionID)
}

func (h *WebSocketHandler) serveUnauthenticated(ctx context.Context, ws *websocket.Conn) {
	snap := orchestrator.Snapshot{State: state.Unauthenticated, Messages: []domain.Message{}}
	if err := h.writeJSON(ctx, ws, snapshotEnvelope{Type: "snapshot", Snapshot: snap}); err != nil {
		return
	}
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, session *orchestrator.Session, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("Malformed client event", "user_id", userID, "error", err)
			continue
		}

		switch msg.Type {
		case "submit":
			session.Submit(msg.Content)
		case "decide":
			session.Decide(msg.Allowed)
		case "focus":
			session.Focus(msg.Empty)
		case "blur":
			session.Blur()
		case "input":
			session.InputChanged(msg.Empty)
		case "activity":
			session.Activity()
		case "anomaly":
			session.Anomaly()
		case "ping":
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			slog.Debug("Unknown client event", "user_id", userID, "type", msg.Type)
		}
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, outbound <-chan orchestrator.Snapshot, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-outbound:
			if err := h.writeJSON(ctx, ws, snapshotEnvelope{Type: "snapshot", Snapshot: snap}); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
