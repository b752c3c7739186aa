// Package models defines data structures for the Memora memory engine.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// User is the identity anchor that owns all memory records.
// Users are created on first contact and never auto-deleted by the engine;
// removal is an administrative action that cascades to all owned memories.
type User struct {
	ID              surrealmodels.RecordID `json:"id"`
	DisplayName     *string                `json:"display_name,omitempty"`
	Preferences     *string                `json:"preferences,omitempty"`
	Created         time.Time              `json:"created,omitempty"`
	LastInteraction time.Time              `json:"last_interaction,omitempty"`
}
