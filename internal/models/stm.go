package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Role identifies who produced a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ShortTermMemory is one conversational turn in the session-scoped,
// expirable turn log. TurnNumber is strictly increasing within a
// (user, session) pair; a nil Expires means the turn never expires.
type ShortTermMemory struct {
	ID         surrealmodels.RecordID `json:"id"`
	User       string                 `json:"user"`
	Session    string                 `json:"session"`
	Content    string                 `json:"content"`
	Role       Role                   `json:"role"`
	Embedding  []float32              `json:"embedding,omitempty"`
	TurnNumber int                    `json:"turn_number"`
	Created    time.Time              `json:"created,omitempty"`
	Expires    *time.Time             `json:"expires,omitempty"`
}

// Expired reports whether the turn has an expiry in the past relative to now.
func (m *ShortTermMemory) Expired(now time.Time) bool {
	return m.Expires != nil && !m.Expires.After(now)
}

// ScoredTurn pairs a short-term turn with its similarity against a query.
type ScoredTurn struct {
	Turn       ShortTermMemory `json:"turn"`
	Similarity float64         `json:"similarity"`
}
