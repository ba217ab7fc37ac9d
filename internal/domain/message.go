// Package domain contains core domain types for the Orion application.
package domain

import (
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message typed (or decided) by the user.
	RoleUser Role = "user"
	// RoleAgent marks a reply produced by the agent core.
	RoleAgent Role = "agent"
	// RoleSystem marks an internal annotation that is rendered but never
	// sent to the transport.
	RoleSystem Role = "system"
)

// Message is a single entry in the conversation log. Messages are
// immutable once appended; insertion order is significant.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingAction is the authorization request attached to a session while
// it is awaiting a user decision. Exactly one grant/deny outcome resolves
// it; there is no timeout.
type PendingAction struct {
	Description   string `json:"description"`
	PrecedingText string `json:"preceding_text"`
}
