package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/identity"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/state"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

type wireSnapshot struct {
	Type     string           `json:"type"`
	State    string           `json:"state"`
	Messages []domain.Message `json:"messages"`
}

func fastMachineConfig() state.Config {
	cfg := state.DefaultConfig()
	cfg.Delays = state.Delays{
		Authenticating: 5 * time.Millisecond,
		Boot:           5 * time.Millisecond,
		Searching:      5 * time.Millisecond,
		AutoRevert:     50 * time.Millisecond,
		Alert:          50 * time.Millisecond,
		ResetClear:     10 * time.Millisecond,
		Logout:         10 * time.Millisecond,
		SleepStage:     time.Minute,
		Observe:        time.Minute,
	}
	cfg.SingleUser = true
	return cfg
}

func dialSession(t *testing.T) *websocket.Conn {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "orion.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	h := NewWebSocketHandler(repo, nopTransport{}, NewHub(), fastMachineConfig(), nil, "*", true)
	srv := httptest.NewServer(identity.Middleware(repo, true)(h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, cond func(wireSnapshot) bool) wireSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		var snap wireSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("Malformed frame %q: %v", data, err)
		}
		if snap.Type == "snapshot" && cond(snap) {
			return snap
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg wsMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestWebSocket_BootsToIdle(t *testing.T) {
	conn := dialSession(t)
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "BOOTING" })
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "IDLE" })
}

func TestWebSocket_SubmitRoundTrip(t *testing.T) {
	conn := dialSession(t)
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "IDLE" })

	send(t, conn, wsMessage{Type: "submit", Content: "olá"})
	snap := readUntil(t, conn, func(s wireSnapshot) bool {
		return s.State == "ACTIVE" && len(s.Messages) == 2
	})
	if snap.Messages[0].Content != "olá" {
		t.Errorf("Unexpected user message: %+v", snap.Messages[0])
	}
	if snap.Messages[1].Role != domain.RoleAgent {
		t.Errorf("Expected agent reply, got %+v", snap.Messages[1])
	}
}

func TestWebSocket_FocusEvents(t *testing.T) {
	conn := dialSession(t)
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "IDLE" })

	send(t, conn, wsMessage{Type: "focus", Empty: true})
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "FOCUSED_EMPTY" })

	send(t, conn, wsMessage{Type: "input", Empty: false})
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "FOCUSED" })

	send(t, conn, wsMessage{Type: "blur"})
	readUntil(t, conn, func(s wireSnapshot) bool { return s.State == "IDLE" })
}
