package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// KnowledgeChunk is a domain-agnostic retrievable unit in the shared
// knowledge base. Chunks are owned by the store, not by any user.
// The embedding must be regenerated whenever Content changes.
type KnowledgeChunk struct {
	ID        surrealmodels.RecordID `json:"id"`
	Headers   []string               `json:"headers"`
	Content   string                 `json:"content"`
	Summary   string                 `json:"summary"`
	Keywords  []string               `json:"keywords"`
	Type      string                 `json:"type"`
	Embedding []float32              `json:"embedding,omitempty"`
	Created   time.Time              `json:"created,omitempty"`
	Updated   time.Time              `json:"updated,omitempty"`
}

// ScoredChunk pairs a knowledge chunk with its similarity against a query.
type ScoredChunk struct {
	KnowledgeChunk
	Similarity float64 `json:"similarity"`
}
