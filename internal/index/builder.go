package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codenav-mcp/internal/scanner"
	"github.com/dshills/codenav-mcp/internal/tokenizer"
	"github.com/dshills/codenav-mcp/pkg/types"
)

// DefaultHoverableKinds is the navigable kind set: identifiers and
// literals. Comments, whitespace and pure punctuation are excluded.
var DefaultHoverableKinds = []types.TokenKind{
	types.KindIdentifier,
	types.KindString,
	types.KindNumber,
}

// Config contains configuration for a build
type Config struct {
	Workers        int               // Number of concurrent workers (default: runtime.NumCPU())
	HoverableKinds []types.TokenKind // Kinds marked interactive (default: DefaultHoverableKinds)
	Rules          []tokenizer.Rule  // Lexical rule table (default: tokenizer.DefaultRules)
}

// Statistics describes the outcome of one build
type Statistics struct {
	FilesIndexed    int
	FilesFailed     int
	TokensExtracted int
	DistinctKeys    int
	Duration        time.Duration
	ErrorMessages   []string
}

// Builder turns a repository tree into an Index
type Builder struct {
	scanner *scanner.Scanner
	config  Config
}

// NewBuilder creates a Builder. A nil config uses defaults; a nil scanner
// uses the default ignore sets.
func NewBuilder(sc *scanner.Scanner, config *Config) *Builder {
	if sc == nil {
		sc = scanner.New(nil)
	}
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if len(cfg.HoverableKinds) == 0 {
		cfg.HoverableKinds = DefaultHoverableKinds
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = tokenizer.DefaultRules
	}
	return &Builder{scanner: sc, config: cfg}
}

// fileResult holds one worker's output before the merge phase. Postings
// are keyed by exact token text and already in position order because the
// lexer emits tokens left to right. A failed file carries its path and the
// content hash at failure time instead of a record; the hash stays zero
// when the content could not be read at all.
type fileResult struct {
	record   *FileRecord
	postings map[string][]types.Posting

	failedPath string
	failedHash [32]byte
}

// Build scans, tokenizes and hashes every file under rootPath and merges
// the per-file results into a new Index. Files are processed by a worker
// pool; each worker writes into its own result slot, and a single writer
// merges slots in deterministic path order afterwards, so identical inputs
// always yield an identical Index. A single file's tokenization failure is
// recorded in the statistics and in the Index's failed-file set, and
// excludes only that file.
func (b *Builder) Build(ctx context.Context, rootPath string) (*Index, *Statistics, error) {
	start := time.Now()
	stats := &Statistics{}

	entries, err := b.scanner.Scan(rootPath)
	if err != nil {
		return nil, nil, err
	}

	hoverable := make(map[types.TokenKind]struct{}, len(b.config.HoverableKinds))
	for _, k := range b.config.HoverableKinds {
		hoverable[k] = struct{}{}
	}

	results := make([]*fileResult, len(entries))
	var failed int32
	var mu sync.Mutex // guards stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.indexFile(entry, hoverable)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", entry.Path, err))
				mu.Unlock()
				// per-file failures never abort the build; the slot still
				// records the failed path so the Index remembers it
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	sort.Strings(stats.ErrorMessages)

	// Single-writer merge phase: no coordination on the shared maps.
	idx := NewIndex(rootPath)
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.record == nil {
			idx.Failed[res.failedPath] = res.failedHash
			continue
		}
		idx.Files[res.record.Path] = res.record
		for key, postings := range res.postings {
			idx.Postings[key] = append(idx.Postings[key], postings...)
		}
		stats.TokensExtracted += len(res.record.Tokens)
	}
	for key := range idx.Postings {
		fold := foldKey(key)
		idx.Folded[fold] = append(idx.Folded[fold], key)
	}
	for fold := range idx.Folded {
		sort.Strings(idx.Folded[fold])
	}

	stats.FilesIndexed = len(idx.Files)
	stats.FilesFailed = int(failed)
	stats.DistinctKeys = len(idx.Postings)
	stats.Duration = time.Since(start)
	return idx, stats, nil
}

// indexFile tokenizes and hashes one file into a result slot. On failure
// the result still identifies the file and, when the content was readable,
// its hash, so staleness checks can tell an unchanged failed file from a
// new one.
func (b *Builder) indexFile(entry scanner.Entry, hoverable map[types.TokenKind]struct{}) (*fileResult, error) {
	content, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		return &fileResult{failedPath: entry.Path},
			fmt.Errorf("%w: %v", types.ErrTokenizationFailure, err)
	}

	tokens, err := tokenizer.TokenizeWithRules(entry.Path, string(content), b.config.Rules)
	if err != nil {
		return &fileResult{failedPath: entry.Path, failedHash: sha256.Sum256(content)}, err
	}

	record := &FileRecord{
		Path:        entry.Path,
		ContentHash: sha256.Sum256(content),
		Tokens:      tokens,
	}
	res := &fileResult{record: record, postings: make(map[string][]types.Posting)}

	for _, tok := range tokens {
		if _, ok := hoverable[tok.Kind]; ok {
			record.HoverableRanges = append(record.HoverableRanges, tok.Range)
		}
		if tok.Kind == types.KindWhitespace {
			// Whitespace is indexed for coverage, not for search.
			continue
		}
		res.postings[tok.Text] = append(res.postings[tok.Text], types.Posting{
			File:  entry.Path,
			Range: tok.Range,
		})
	}
	return res, nil
}

// foldKey is the case-fold used for case-insensitive lookup. Simple
// lowercasing matches folding whole file content to lower case, which is
// how the case-insensitive side of the index is defined.
func foldKey(key string) string {
	return strings.ToLower(key)
}
