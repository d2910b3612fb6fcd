// Package storage persists the index to a SQLite database inside the index
// directory and loads it back.
//
// Save writes the whole index in one transaction to a temporary file and
// renames it into place, so readers never observe a partially written
// database. Load validates the schema version and the structural
// invariants of the loaded index; anything malformed surfaces as
// ErrIndexCorrupt and is never silently repaired.
//
// IsStale rescans the repository and compares content hashes against the
// loaded index, reporting whether a rebuild is needed.
//
// The package supports two SQLite drivers selected at build time:
//
//   - Default (pure Go): modernc.org/sqlite, no CGO required
//   - With -tags sqlite_cgo: github.com/mattn/go-sqlite3, requires CGO
//
// The database layout is private to this package. Save, Load, and IsStale
// are the only supported access paths.
package storage
