package domain

import (
	"time"
)

// Notification priorities, highest last.
const (
	PriorityLow      = "LOW"
	PriorityMedium   = "MEDIUM"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// Notification categories.
const (
	CategoryHardware = "HARDWARE"
	CategorySecurity = "SECURITY"
	CategoryMemory   = "MEMORY"
	CategoryGeneral  = "GENERAL"
)

// SysNotification is a system event surfaced to the agent as ambient
// context. Unread notifications ride along on every transport call.
type SysNotification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	Priority  string    `json:"priority"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
