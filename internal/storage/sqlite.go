package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codenav-mcp/internal/index"
	"github.com/dshills/codenav-mcp/internal/scanner"
	"github.com/dshills/codenav-mcp/pkg/types"
)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Save writes the Index into the index directory as a SQLite database.
// The database is written to a temporary file in the same directory and
// renamed into place, so a crash mid-write never leaves a corrupt index
// observable to readers. Rows are inserted in deterministic order
// (files by path, postings by term then occurrence) so identical indexes
// persist identically.
func Save(ctx context.Context, idx *index.Index, indexPath string) error {
	if err := os.MkdirAll(indexPath, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(indexPath, "index-*.db.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary index file: %w", err)
	}
	defer func() { _ = os.Remove(tmpPath) }() // no-op after a successful rename

	db, err := openDatabase(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to open temporary index database: %w", err)
	}

	if err := writeIndex(ctx, db, idx); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close index database: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(indexPath, DBFileName)); err != nil {
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	return nil
}

// writeIndex creates the schema and inserts the whole index in one
// transaction
func writeIndex(ctx context.Context, db *sql.DB, idx *index.Index) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := [][2]string{
		{"root_path", idx.RootPath},
		{"schema_version", CurrentSchemaVersion},
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to write meta: %w", err)
		}
	}

	insertFile, err := tx.PrepareContext(ctx, `INSERT INTO files (path, content_hash) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = insertFile.Close() }()

	insertToken, err := tx.PrepareContext(ctx, `
		INSERT INTO tokens (file_id, seq, text, kind, line, col_start, col_end, hoverable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = insertToken.Close() }()

	fileIDs := make(map[string]int64, len(idx.Files))
	for _, path := range idx.Paths() {
		rec := idx.Files[path]
		res, err := insertFile.ExecContext(ctx, rec.Path, rec.ContentHash[:])
		if err != nil {
			return fmt.Errorf("failed to write file record %s: %w", rec.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		fileIDs[path] = id

		hover := make(map[types.Position]struct{}, len(rec.HoverableRanges))
		for _, r := range rec.HoverableRanges {
			hover[r] = struct{}{}
		}
		for seq, tok := range rec.Tokens {
			_, isHover := hover[tok.Range]
			if _, err := insertToken.ExecContext(ctx, id, seq, tok.Text, string(tok.Kind),
				tok.Range.Line, tok.Range.ColumnStart, tok.Range.ColumnEnd, boolToInt(isHover)); err != nil {
				return fmt.Errorf("failed to write tokens for %s: %w", rec.Path, err)
			}
		}
	}

	insertFailed, err := tx.PrepareContext(ctx, `INSERT INTO failed_files (path, content_hash) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = insertFailed.Close() }()

	for _, path := range idx.FailedPaths() {
		hash := idx.Failed[path]
		if _, err := insertFailed.ExecContext(ctx, path, hash[:]); err != nil {
			return fmt.Errorf("failed to write failed-file record %s: %w", path, err)
		}
	}

	insertPosting, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (term, term_folded, file_id, line, col_start, col_end)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = insertPosting.Close() }()

	for _, key := range idx.Keys() {
		fold := strings.ToLower(key)
		for _, p := range idx.Postings[key] {
			if _, err := insertPosting.ExecContext(ctx, key, fold, fileIDs[p.File],
				p.Range.Line, p.Range.ColumnStart, p.Range.ColumnEnd); err != nil {
				return fmt.Errorf("failed to write postings for %q: %w", key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Load reads an Index back from the index directory. It fails with
// ErrIndexMissing when no database exists and ErrIndexCorrupt when the
// schema version mismatches or structural validation fails. Corruption is
// never silently repaired; the caller decides whether to force a rebuild.
func Load(ctx context.Context, indexPath string) (*index.Index, error) {
	dbPath := filepath.Join(indexPath, DBFileName)
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrIndexMissing, indexPath)
		}
		return nil, fmt.Errorf("failed to stat index database: %w", err)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	defer func() { _ = db.Close() }()

	idx, err := readIndex(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := idx.Validate(); err != nil {
		return nil, err // Validate wraps ErrIndexCorrupt
	}
	return idx, nil
}

// readIndex reconstructs the in-memory Index from the database rows
func readIndex(ctx context.Context, db *sql.DB) (*index.Index, error) {
	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta["schema_version"] != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: schema version %q, want %q",
			types.ErrIndexCorrupt, meta["schema_version"], CurrentSchemaVersion)
	}

	idx := index.NewIndex(meta["root_path"])
	paths := make(map[int64]string)

	rows, err := db.QueryContext(ctx, `SELECT id, path, content_hash FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	for rows.Next() {
		var id int64
		var path string
		var hash []byte
		if err := rows.Scan(&id, &path, &hash); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
		}
		if len(hash) != sha256.Size {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: malformed content hash for %s", types.ErrIndexCorrupt, path)
		}
		rec := &index.FileRecord{Path: path}
		copy(rec.ContentHash[:], hash)
		idx.Files[path] = rec
		paths[id] = path
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	_ = rows.Close()

	if err := readFailedFiles(ctx, db, idx); err != nil {
		return nil, err
	}
	if err := readTokens(ctx, db, idx, paths); err != nil {
		return nil, err
	}
	if err := readPostings(ctx, db, idx, paths); err != nil {
		return nil, err
	}
	return idx, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	if _, ok := meta["root_path"]; !ok {
		return nil, fmt.Errorf("%w: missing root_path", types.ErrIndexCorrupt)
	}
	return meta, nil
}

func readFailedFiles(ctx context.Context, db *sql.DB, idx *index.Index) error {
	rows, err := db.QueryContext(ctx, `SELECT path, content_hash FROM failed_files ORDER BY path`)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path string
		var hash []byte
		if err := rows.Scan(&path, &hash); err != nil {
			return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
		}
		if len(hash) != sha256.Size {
			return fmt.Errorf("%w: malformed content hash for failed file %s", types.ErrIndexCorrupt, path)
		}
		var h [32]byte
		copy(h[:], hash)
		idx.Failed[path] = h
	}
	return rows.Err()
}

func readTokens(ctx context.Context, db *sql.DB, idx *index.Index, paths map[int64]string) error {
	rows, err := db.QueryContext(ctx, `
		SELECT file_id, text, kind, line, col_start, col_end, hoverable
		FROM tokens ORDER BY file_id, seq`)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var fileID int64
		var text, kind string
		var line, colStart, colEnd, hoverable int
		if err := rows.Scan(&fileID, &text, &kind, &line, &colStart, &colEnd, &hoverable); err != nil {
			return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
		}
		path, ok := paths[fileID]
		if !ok {
			return fmt.Errorf("%w: token references unknown file id %d", types.ErrIndexCorrupt, fileID)
		}
		tok := types.Token{
			Text: text,
			Kind: types.TokenKind(kind),
			File: path,
			Range: types.Position{
				Line:        line,
				ColumnStart: colStart,
				ColumnEnd:   colEnd,
			},
		}
		if err := tok.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", types.ErrIndexCorrupt, path, err)
		}
		rec := idx.Files[path]
		rec.Tokens = append(rec.Tokens, tok)
		if hoverable != 0 {
			rec.HoverableRanges = append(rec.HoverableRanges, tok.Range)
		}
	}
	return rows.Err()
}

func readPostings(ctx context.Context, db *sql.DB, idx *index.Index, paths map[int64]string) error {
	rows, err := db.QueryContext(ctx, `
		SELECT p.term, p.term_folded, p.file_id, p.line, p.col_start, p.col_end
		FROM postings p JOIN files f ON f.id = p.file_id
		ORDER BY p.term, f.path, p.line, p.col_start, p.col_end`)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	seenFold := make(map[string]map[string]struct{})
	for rows.Next() {
		var term, fold string
		var fileID int64
		var line, colStart, colEnd int
		if err := rows.Scan(&term, &fold, &fileID, &line, &colStart, &colEnd); err != nil {
			return fmt.Errorf("%w: %v", types.ErrIndexCorrupt, err)
		}
		path, ok := paths[fileID]
		if !ok {
			return fmt.Errorf("%w: posting references unknown file id %d", types.ErrIndexCorrupt, fileID)
		}
		idx.Postings[term] = append(idx.Postings[term], types.Posting{
			File: path,
			Range: types.Position{
				Line:        line,
				ColumnStart: colStart,
				ColumnEnd:   colEnd,
			},
		})
		if seenFold[fold] == nil {
			seenFold[fold] = make(map[string]struct{})
		}
		if _, ok := seenFold[fold][term]; !ok {
			seenFold[fold][term] = struct{}{}
			idx.Folded[fold] = append(idx.Folded[fold], term)
		}
	}
	return rows.Err()
}

// IsStale rescans the repository and reports whether the Index no longer
// matches it: a changed content hash, or files added or removed since the
// build. A file that failed to index is compared against the hash it had at
// failure time, so an unchanged failed file never marks a just-built index
// stale.
func IsStale(ctx context.Context, idx *index.Index, rootPath string, sc *scanner.Scanner) (bool, error) {
	if sc == nil {
		sc = scanner.New(nil)
	}
	entries, err := sc.Scan(rootPath)
	if err != nil {
		return false, err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		seen[entry.Path] = struct{}{}
		rec, ok := idx.Files[entry.Path]
		if !ok {
			failedHash, wasFailed := idx.Failed[entry.Path]
			if !wasFailed {
				return true, nil // added since the build
			}
			content, err := os.ReadFile(entry.AbsPath)
			if err != nil {
				continue // failed then, unreadable now: unchanged
			}
			if sha256.Sum256(content) != failedHash {
				return true, nil // changed; a rebuild may index it now
			}
			continue
		}
		content, err := os.ReadFile(entry.AbsPath)
		if err != nil {
			return true, nil // unreadable now means the snapshot changed
		}
		if sha256.Sum256(content) != rec.ContentHash {
			return true, nil
		}
	}
	for path := range idx.Files {
		if _, ok := seen[path]; !ok {
			return true, nil // removed since the build
		}
	}
	// A deleted failed file contributed nothing queryable, so its removal
	// does not mark the index stale.
	return false, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
