// Package index builds and models the persisted repository index.
//
// A build is a pure function of (repository content, configuration):
//
//	b := index.NewBuilder(nil, nil)
//	idx, stats, err := b.Build(ctx, "/path/to/repo")
//
// # Pipeline
//
//  1. Scan: enumerate files in deterministic order (internal/scanner)
//  2. Tokenize + hash each file in a worker pool (one result slot per
//     file, no shared state)
//  3. Merge: a single writer folds the slots into the Index in path order
//
// The merge-after-workers shape trades peak memory (all per-file results
// held before merging) for a lock-free build, matching the concurrency
// model the index was designed around.
//
// # Structures
//
// Each FileRecord carries the file's ordered token table, its SHA-256
// content hash, and its hoverable ranges (spans of navigable kinds, in
// ascending order). The Index adds the inverted postings map from exact
// token text to occurrences, plus a case-folded key table for
// case-insensitive lookup.
//
// # Partial failure
//
// A file that cannot be read or tokenized (for example, non-UTF-8 content)
// is recorded in Statistics.ErrorMessages and left out of the Index; the
// rest of the build proceeds.
package index
