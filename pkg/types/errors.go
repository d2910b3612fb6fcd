package types

import "errors"

// Domain errors surfaced by the query engine and persistence layer. Callers
// dispatch on these with errors.Is; wrapped forms carry path and position
// context.
var (
	// ErrFileNotIndexed is returned when a query references a relative path
	// absent from the index
	ErrFileNotIndexed = errors.New("file not indexed")

	// ErrNoTokenAtPosition is returned when a go_to span does not intersect
	// any token in the file's token table
	ErrNoTokenAtPosition = errors.New("no token at position")

	// ErrIndexCorrupt is returned when structural validation fails on load
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrIndexMissing is returned when the index directory holds no index
	ErrIndexMissing = errors.New("index missing")

	// ErrIndexStale is returned in strict mode when the index no longer
	// matches the on-disk repository content
	ErrIndexStale = errors.New("index stale")

	// ErrRepositoryUnreadable is returned when the repository root path is
	// missing or inaccessible
	ErrRepositoryUnreadable = errors.New("repository unreadable")

	// ErrTokenizationFailure records a per-file tokenization error during a
	// build; it is never fatal to the whole build
	ErrTokenizationFailure = errors.New("tokenization failure")
)
