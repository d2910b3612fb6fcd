package storage

const (
	// CurrentSchemaVersion tracks the index database schema version. Load
	// refuses databases written by a different version; the caller decides
	// whether to force a rebuild. Version 2 added the failed_files table.
	CurrentSchemaVersion = "2"

	// DBFileName is the database file inside the index directory. The
	// directory layout is private to this package; Save and Load are the
	// only supported access paths.
	DBFileName = "index.db"
)

const schemaSQL = `
-- Index metadata: schema version, repository root.
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- One row per indexed file.
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    content_hash BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);

-- Files that could not be indexed, with the content hash they had at build
-- time. An all-zero hash means the content was unreadable. Staleness checks
-- use this to tell an unchanged failed file from a newly added one.
CREATE TABLE IF NOT EXISTS failed_files (
    path TEXT PRIMARY KEY,
    content_hash BLOB NOT NULL
);

-- Per-file ordered token table. seq is the token's position in the file's
-- stream; hoverable marks tokens whose range is in the file's
-- hoverable-range list.
CREATE TABLE IF NOT EXISTS tokens (
    file_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    text TEXT NOT NULL,
    kind TEXT NOT NULL,
    line INTEGER NOT NULL,
    col_start INTEGER NOT NULL,
    col_end INTEGER NOT NULL,
    hoverable INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (file_id, seq),
    FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
) WITHOUT ROWID;

-- Inverted text index: one row per occurrence. term preserves case;
-- term_folded supports case-insensitive lookup without duplicating
-- position data into a second posting list.
CREATE TABLE IF NOT EXISTS postings (
    term TEXT NOT NULL,
    term_folded TEXT NOT NULL,
    file_id INTEGER NOT NULL,
    line INTEGER NOT NULL,
    col_start INTEGER NOT NULL,
    col_end INTEGER NOT NULL,
    FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_postings_term ON postings(term);
CREATE INDEX IF NOT EXISTS idx_postings_folded ON postings(term_folded);
`
