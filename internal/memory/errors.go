package memory

import (
	"fmt"

	"github.com/memoraio/memora/internal/db"
	"github.com/memoraio/memora/internal/llm"
)

// Sentinel errors surfaced by the memory managers. The storage and
// embedding layers own the underlying values; they are re-exported here
// so callers only depend on this package.
var (
	// ErrNotFound indicates the referenced user, memory, or chunk
	// does not exist.
	ErrNotFound = db.ErrNotFound

	// ErrConcurrencyConflict indicates a write lost a race, such as two
	// turns claiming the same turn number. Safe to retry.
	ErrConcurrencyConflict = db.ErrConflict

	// ErrDimensionMismatch indicates an embedding vector whose length
	// does not match the configured dimension.
	ErrDimensionMismatch = db.ErrDimensionMismatch

	// ErrEmbeddingFailure indicates the embedding backend failed.
	ErrEmbeddingFailure = llm.ErrEmbeddingFailure
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
