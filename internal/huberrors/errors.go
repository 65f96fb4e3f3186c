// Package huberrors provides sentinel and custom error types for the application.
package huberrors

import "fmt"

// ErrNormalization is the sentinel for upload-payload normalization failures.
var ErrNormalization = &NormalizationError{}

// NormalizationError reports a malformed upload payload. It fails the whole
// ingestion call before any writes occur.
type NormalizationError struct {
	Message string
	Err     error
}

// NewNormalizationError creates a NormalizationError with a custom message.
func NewNormalizationError(message string, err error) *NormalizationError {
	return &NormalizationError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("normalization failed: %s: %v", e.Message, e.Err)
	}

	if e.Message != "" {
		return "normalization failed: " + e.Message
	}

	return "normalization failed"
}

// Unwrap returns the underlying cause, if any.
func (e *NormalizationError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *NormalizationError) Is(target error) bool {
	_, ok := target.(*NormalizationError)

	return ok
}

// ErrEmbedding is the sentinel for remote embedding call failures.
var ErrEmbedding = &EmbeddingError{}

// EmbeddingError reports a failed remote embedding call (network error,
// non-success status, malformed response body). Embedding calls are
// all-or-nothing, so the batch or query using one is aborted.
type EmbeddingError struct {
	Op  string
	Err error
}

// NewEmbeddingError creates an EmbeddingError for the given operation.
func NewEmbeddingError(op string, err error) *EmbeddingError {
	return &EmbeddingError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
	}

	if e.Err != nil {
		return fmt.Sprintf("embedding failed: %v", e.Err)
	}

	return "embedding failed"
}

// Unwrap returns the underlying cause, if any.
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *EmbeddingError) Is(target error) bool {
	_, ok := target.(*EmbeddingError)

	return ok
}

// ErrPartialWrite is the sentinel for batches whose relational insert committed
// but whose vector insert did not.
var ErrPartialWrite = &PartialWriteError{}

// PartialWriteError reports that the relational insert for a batch succeeded
// but one or more vector inserts for that batch failed. The rows are stored
// and retrievable by id but not yet searchable; callers must surface this
// distinctly from a total failure.
type PartialWriteError struct {
	Batch      int // 1-based index of the failing batch
	Batches    int // total batches in the ingestion call
	Collection string
	Err        error
}

// NewPartialWriteError creates a PartialWriteError for the given batch and collection.
func NewPartialWriteError(batch, batches int, collection string, err error) *PartialWriteError {
	return &PartialWriteError{Batch: batch, Batches: batches, Collection: collection, Err: err}
}

// Error implements the error interface.
func (e *PartialWriteError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("batch %d of %d stored but not searchable: vector insert into %q failed: %v",
			e.Batch, e.Batches, e.Collection, e.Err)
	}

	return "batch stored but not searchable"
}

// Unwrap returns the underlying cause, if any.
func (e *PartialWriteError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *PartialWriteError) Is(target error) bool {
	_, ok := target.(*PartialWriteError)

	return ok
}

// ErrSearch is the sentinel for per-collection search failures.
var ErrSearch = &SearchError{}

// SearchError reports that vector search or relational resolution failed for
// one requested collection. Sibling collections in a multi-collection search
// are unaffected.
type SearchError struct {
	Collection string
	Err        error
}

// NewSearchError creates a SearchError for the given collection.
func NewSearchError(collection string, err error) *SearchError {
	return &SearchError{Collection: collection, Err: err}
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("search in %q failed: %v", e.Collection, e.Err)
	}

	return "search failed"
}

// Unwrap returns the underlying cause, if any.
func (e *SearchError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *SearchError) Is(target error) bool {
	_, ok := target.(*SearchError)

	return ok
}
