// Package query executes navigation and search operations over index
// snapshots.
//
// The Engine is the read side of the system: GoTo resolves a source span to
// the token covering it, TextSearch finds exact occurrences with a
// subsequence-match fallback, FuzzySearch finds keys within an edit-distance
// bound, and HoverableRanges returns a file's interactive spans.
//
// Snapshots are immutable once loaded. The Engine keeps recently used
// snapshots in an LRU keyed by index path and checks staleness against the
// repository on every query; the configured rebuild policy decides whether a
// stale index is rebuilt, served as-is, or rejected.
package query
