package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MemoryType categorizes a long-term memory.
type MemoryType string

const (
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypeContext    MemoryType = "context"
	MemoryTypeGoal       MemoryType = "goal"
	MemoryTypeTrigger    MemoryType = "trigger"
	MemoryTypeCoping     MemoryType = "coping"
	MemoryTypeGeneral    MemoryType = "general"
)

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypePreference, MemoryTypeFact, MemoryTypeContext, MemoryTypeGoal,
		MemoryTypeTrigger, MemoryTypeCoping, MemoryTypeGeneral:
		return true
	}
	return false
}

// LongTermMemory is one durable fact or preference about a user.
// Importance stays clamped within [0, 1]; AccessCount never decreases
// and is incremented on every retrieval that includes this record.
type LongTermMemory struct {
	ID          surrealmodels.RecordID `json:"id"`
	User        string                 `json:"user"`
	Content     string                 `json:"content"`
	Type        MemoryType             `json:"memory_type"`
	Summary     string                 `json:"summary"`
	Importance  float64                `json:"importance"`
	Embedding   []float32              `json:"embedding,omitempty"`
	AccessCount int                    `json:"access_count"`
	Accessed    *time.Time             `json:"accessed,omitempty"`
	Verified    bool                   `json:"verified"`
	Created     time.Time              `json:"created,omitempty"`
	Updated     time.Time              `json:"updated,omitempty"`
}

// ScoredMemory is a long-term memory with its similarity against a query.
// The embedded struct keeps the stored fields flat for CBOR/JSON decoding
// of `SELECT *, ... AS similarity` rows.
type ScoredMemory struct {
	LongTermMemory
	Similarity float64 `json:"similarity"`
}

// ClampImportance forces v into the [0, 1] importance domain.
func ClampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
