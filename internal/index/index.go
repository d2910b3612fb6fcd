package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/codenav-mcp/pkg/types"
)

// FileRecord holds everything indexed for one file. Records are created in
// a single build pass, replaced wholesale on reindex, and never partially
// mutated.
type FileRecord struct {
	Path            string
	ContentHash     [32]byte
	Tokens          []types.Token
	HoverableRanges []types.Position
}

// Index is the top-level artifact built from a repository snapshot. It is
// immutable once loaded for a query session and entirely rebuilt, not
// patched, when the repository changes.
//
// Postings maps exact (case-preserved) token text to its occurrences.
// Folded maps a case-folded key to the exact keys sharing that fold, so
// case-insensitive search reuses the exact postings without duplicating
// position data.
//
// Failed maps the paths that could not be indexed to the content hash they
// had at build time (zero when the content could not even be read).
// Staleness checks consult it so a file that failed once does not read as
// "added since the build" on every later comparison.
type Index struct {
	RootPath string
	Files    map[string]*FileRecord
	Postings map[string][]types.Posting
	Folded   map[string][]string
	Failed   map[string][32]byte
}

// NewIndex creates an empty Index for a repository root
func NewIndex(rootPath string) *Index {
	return &Index{
		RootPath: rootPath,
		Files:    make(map[string]*FileRecord),
		Postings: make(map[string][]types.Posting),
		Folded:   make(map[string][]string),
		Failed:   make(map[string][32]byte),
	}
}

// Paths returns the indexed relative paths in lexicographic order
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.Files))
	for p := range idx.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FailedPaths returns the paths that failed to index in lexicographic order
func (idx *Index) FailedPaths() []string {
	paths := make([]string, 0, len(idx.Failed))
	for p := range idx.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Keys returns the distinct exact token-text keys in lexicographic order
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.Postings))
	for k := range idx.Postings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the postings for an exact key, or the merged postings of
// every exact key sharing the query's case fold when caseSensitive is
// false. Results are ordered by file path then position.
func (idx *Index) Lookup(key string, caseSensitive bool) []types.Posting {
	if caseSensitive {
		return idx.Postings[key]
	}
	exacts := idx.Folded[strings.ToLower(key)]
	if len(exacts) == 1 {
		return idx.Postings[exacts[0]]
	}
	var merged []types.Posting
	for _, exact := range exacts {
		merged = append(merged, idx.Postings[exact]...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return merged
}

// Validate checks the structural invariants: every posting corresponds to
// an actual token in its file's token table, postings are ordered, folded
// keys resolve, and hoverable ranges are ascending and non-overlapping.
func (idx *Index) Validate() error {
	for key, postings := range idx.Postings {
		for i, posting := range postings {
			rec, ok := idx.Files[posting.File]
			if !ok {
				return fmt.Errorf("%w: posting for %q references unindexed file %s",
					types.ErrIndexCorrupt, key, posting.File)
			}
			if !hasToken(rec, key, posting.Range) {
				return fmt.Errorf("%w: posting for %q at %s:%d:%d has no backing token",
					types.ErrIndexCorrupt, key, posting.File, posting.Range.Line, posting.Range.ColumnStart)
			}
			if i > 0 && postings[i].Before(postings[i-1]) {
				return fmt.Errorf("%w: postings for %q out of order", types.ErrIndexCorrupt, key)
			}
		}
	}

	for fold, exacts := range idx.Folded {
		for _, exact := range exacts {
			if strings.ToLower(exact) != fold {
				return fmt.Errorf("%w: folded key %q lists mismatched exact key %q",
					types.ErrIndexCorrupt, fold, exact)
			}
			if _, ok := idx.Postings[exact]; !ok {
				return fmt.Errorf("%w: folded key %q lists unknown exact key %q",
					types.ErrIndexCorrupt, fold, exact)
			}
		}
	}

	for path := range idx.Failed {
		if _, ok := idx.Files[path]; ok {
			return fmt.Errorf("%w: %s is both indexed and marked failed", types.ErrIndexCorrupt, path)
		}
	}

	for path, rec := range idx.Files {
		for i := 1; i < len(rec.HoverableRanges); i++ {
			prev, cur := rec.HoverableRanges[i-1], rec.HoverableRanges[i]
			if !prev.Before(cur) {
				return fmt.Errorf("%w: hoverable ranges out of order in %s", types.ErrIndexCorrupt, path)
			}
			if prev.Overlap(cur) > 0 {
				return fmt.Errorf("%w: overlapping hoverable ranges in %s", types.ErrIndexCorrupt, path)
			}
		}
	}
	return nil
}

// hasToken reports whether the record's token table holds a token with the
// given text at exactly the given range. Tokens are stored in position
// order, so a binary search narrows the candidates.
func hasToken(rec *FileRecord, text string, at types.Position) bool {
	i := sort.Search(len(rec.Tokens), func(i int) bool {
		return !rec.Tokens[i].Range.Before(at)
	})
	for ; i < len(rec.Tokens); i++ {
		r := rec.Tokens[i].Range
		if r != at {
			return false
		}
		if rec.Tokens[i].Text == text {
			return true
		}
	}
	return false
}

// Equal reports structural equality of two indexes: same root, same file
// records, same postings, same failed-file set. Nil and empty slices
// compare equal.
func (idx *Index) Equal(other *Index) bool {
	if idx == nil || other == nil {
		return idx == other
	}
	if idx.RootPath != other.RootPath || len(idx.Files) != len(other.Files) ||
		len(idx.Postings) != len(other.Postings) || len(idx.Folded) != len(other.Folded) ||
		len(idx.Failed) != len(other.Failed) {
		return false
	}
	for path, hash := range idx.Failed {
		o, ok := other.Failed[path]
		if !ok || o != hash {
			return false
		}
	}
	for path, rec := range idx.Files {
		o, ok := other.Files[path]
		if !ok || !recordsEqual(rec, o) {
			return false
		}
	}
	for key, postings := range idx.Postings {
		o, ok := other.Postings[key]
		if !ok || len(o) != len(postings) {
			return false
		}
		for i := range postings {
			if postings[i] != o[i] {
				return false
			}
		}
	}
	for fold, exacts := range idx.Folded {
		o, ok := other.Folded[fold]
		if !ok || len(o) != len(exacts) {
			return false
		}
		for i := range exacts {
			if exacts[i] != o[i] {
				return false
			}
		}
	}
	return true
}

func recordsEqual(a, b *FileRecord) bool {
	if a.Path != b.Path || a.ContentHash != b.ContentHash ||
		len(a.Tokens) != len(b.Tokens) || len(a.HoverableRanges) != len(b.HoverableRanges) {
		return false
	}
	for i := range a.Tokens {
		if a.Tokens[i] != b.Tokens[i] {
			return false
		}
	}
	for i := range a.HoverableRanges {
		if a.HoverableRanges[i] != b.HoverableRanges[i] {
			return false
		}
	}
	return true
}
