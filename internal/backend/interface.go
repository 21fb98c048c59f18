// Package backend defines the storage collaborator consumed by the memory
// graph and the reasoning bank.
//
// The engine does not own persistence: any store that can hold entries with
// embeddings and answer similarity searches can back it. Two implementations
// ship with this module: an in-memory store for tests and embedders, and a
// chromem-go store for persistent embedded deployments.
package backend

import (
	"context"
	"errors"
)

// Sentinel errors for backend operations.
var (
	// ErrInvalidConfig indicates invalid backend configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyEntryID is returned when storing an entry without an ID.
	ErrEmptyEntryID = errors.New("entry ID cannot be empty")

	// ErrEmptyEntries indicates an empty or nil entry slice.
	ErrEmptyEntries = errors.New("empty or nil entries")
)

// Entry is a memory record as the backend sees it. The engine only requires
// an id; embedding, references, and metadata are optional.
type Entry struct {
	// ID is the unique entry identifier.
	ID string

	// Content is the text content of the entry, if any.
	Content string

	// Embedding is the dense vector for similarity search. May be nil for
	// entries that are only reachable through references.
	Embedding []float32

	// References lists the IDs of other entries this entry points at.
	References []string

	// Metadata carries free-form key-value pairs (e.g. "category").
	Metadata map[string]interface{}
}

// Category returns the entry's category from metadata, or "" when unset.
func (e Entry) Category() string {
	if e.Metadata == nil {
		return ""
	}
	if c, ok := e.Metadata["category"].(string); ok {
		return c
	}
	return ""
}

// Match is a scored similarity search result.
type Match struct {
	Entry Entry

	// Score is the similarity to the query embedding (higher is closer).
	Score float64
}

// QueryFilter restricts Query results. Zero value matches everything.
type QueryFilter struct {
	// IDs restricts results to the given ids when non-empty.
	IDs []string

	// Metadata requires exact matches on every listed key when non-empty.
	Metadata map[string]interface{}

	// Limit caps the number of returned entries when positive.
	Limit int
}

// SearchOptions tunes similarity search.
type SearchOptions struct {
	// Limit caps the number of matches. Implementations apply their own
	// default when it is not positive.
	Limit int

	// MinScore drops matches scoring below the threshold when positive.
	MinScore float64
}

// Store is the minimum surface the engine needs from a backing store.
//
// Implementations must return entries in a stable order from Query so that
// graph construction is deterministic.
type Store interface {
	// Store inserts or replaces a single entry.
	Store(ctx context.Context, entry Entry) error

	// Query returns entries matching the filter, in insertion order.
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)

	// Search returns entries most similar to the embedding, best first.
	Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]Match, error)

	// BulkInsert inserts or replaces many entries in one pass.
	BulkInsert(ctx context.Context, entries []Entry) error

	// BulkDelete removes entries by id. Unknown ids are skipped silently.
	BulkDelete(ctx context.Context, ids []string) error

	// Close releases backend resources.
	Close() error
}
