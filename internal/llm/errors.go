package llm

import "errors"

// ErrEmbeddingFailure indicates the embedding backend was unreachable
// or returned an unusable result. Callers decide whether the operation
// can proceed without a vector.
var ErrEmbeddingFailure = errors.New("embedding failure")
