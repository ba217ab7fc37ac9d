package domain

import (
	"time"
)

// MemoryEntry is one persisted long-term fact about a user. Entries are
// deduplicated by exact content equality before persistence.
type MemoryEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
