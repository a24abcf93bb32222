// Package searchstore defines the capability contract the cache layer
// needs from a full-text engine, and a bleve-backed implementation.
//
// The contract is deliberately narrow: which numbers are stored, upsert a
// document, query one field. This isolates the cache's reconciliation
// logic from the engine and lets tests run against an in-memory index.
package searchstore

import "context"

// Field names the store indexes per document.
const (
	FieldTitle = "title"
	FieldBody  = "body"
)

// Store is a persistent full-text index keyed uniquely by document number.
type Store interface {
	// Numbers returns the sorted document numbers currently stored.
	Numbers() ([]int, error)

	// Batch starts a new write batch. Upserts accumulate until Flush.
	Batch() Batch

	// Query runs text as a match query scoped to field and returns the
	// matching document numbers.
	Query(ctx context.Context, field, text string) ([]int, error)

	// Close releases the underlying index.
	Close() error
}

// Batch accumulates document upserts for a single commit.
type Batch interface {
	// Upsert adds or replaces the document stored under number.
	Upsert(number int, title, body string) error

	// Flush commits the accumulated upserts and resets the batch.
	Flush() error
}
