package db

import (
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// firstRecord extracts the first record of the first statement result.
// Returns nil when the query matched nothing.
func firstRecord[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

// lastRecord extracts the first record of the last non-empty statement
// result. Multi-statement transactions interleave NONE results (from LET
// bindings) with the statement that actually returns data.
func lastRecord[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil {
		return nil
	}
	for i := len(*results) - 1; i >= 0; i-- {
		if len((*results)[i].Result) > 0 {
			return &(*results)[i].Result[0]
		}
	}
	return nil
}

// resultSlice extracts the first statement result as a slice, never nil.
func resultSlice[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 || (*results)[0].Result == nil {
		return []T{}
	}
	return (*results)[0].Result
}

// recordIDs converts bare string IDs into typed record IDs for a table.
func recordIDs(table string, ids []string) []surrealmodels.RecordID {
	out := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		out[i] = surrealmodels.NewRecordID(table, id)
	}
	return out
}
