// Package transport sends conversation turns to the generative backend
// and returns the raw annotated reply text.
package transport

import (
	"context"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// historyWindow is the maximum number of trailing messages sent as
// conversation context.
const historyWindow = 12

// TurnRequest carries one user turn and its ambient context.
type TurnRequest struct {
	UserID        string
	IsGuest       bool
	Utterance     string
	History       []domain.Message
	Notifications []domain.SysNotification
	Memories      []domain.MemoryEntry
}

// Transport defines the interface to the generative backend. SendTurn
// blocks until the backend answers; callers run it off the session loop.
type Transport interface {
	SendTurn(ctx context.Context, req TurnRequest) (string, error)
}

// windowHistory trims history to the trailing window, drops system-role
// entries, and drops a leading agent turn so context always begins on a
// user turn.
func windowHistory(history []domain.Message) []domain.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	trimmed := make([]domain.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == domain.RoleSystem {
			continue
		}
		trimmed = append(trimmed, msg)
	}
	if len(trimmed) > 0 && trimmed[0].Role == domain.RoleAgent {
		trimmed = trimmed[1:]
	}
	return trimmed
}
