package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a SurrealDB transaction conflict or unique
	// index violation. This occurs when concurrent operations race on the
	// same records, e.g. two appends claiming the same turn number.
	// Callers should retry with bounded attempts.
	ErrConflict = errors.New("write conflict")

	// ErrDimensionMismatch indicates an embedding whose length differs
	// from the dimension the vector indexes were built with. This is a
	// configuration error; the engine never truncates or pads vectors.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the
// appropriate sentinel if it matches a known query error pattern.
// Returns the original error otherwise.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
		// Unique index violation, e.g. the stm_turn_unique backstop.
		if strings.Contains(msg, "already contains") {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
	}

	return err
}
