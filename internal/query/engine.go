package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codenav-mcp/internal/config"
	"github.com/dshills/codenav-mcp/internal/index"
	"github.com/dshills/codenav-mcp/internal/scanner"
	"github.com/dshills/codenav-mcp/internal/storage"
	"github.com/dshills/codenav-mcp/pkg/types"
)

// GoToRequest asks for the token at a span within one indexed file.
// A zero-width span is treated as the single column at ColumnStart.
type GoToRequest struct {
	RootPath  string
	IndexPath string // Empty means the configured default under RootPath
	File      string // Relative to RootPath, slash-separated
	Span      types.Position
}

// SearchRequest asks for exact occurrences of a token text, falling back
// to subsequence fuzzy matching when the exact key is absent.
type SearchRequest struct {
	RootPath      string
	IndexPath     string
	Query         string
	CaseSensitive bool
}

// FuzzyRequest asks for keys within an edit-distance bound of the query.
// MaxDistance <= 0 applies the configured default.
type FuzzyRequest struct {
	RootPath    string
	IndexPath   string
	Query       string
	MaxDistance int
}

// HoverRequest asks for the hoverable ranges of one indexed file.
type HoverRequest struct {
	RootPath  string
	IndexPath string
	File      string
}

// Status describes an index directory for diagnostics.
type Status struct {
	Exists       bool
	Stale        bool
	RootPath     string
	Files        int
	Failed       int
	Tokens       int
	DistinctKeys int
}

// Engine executes read-only queries over immutable index snapshots.
// Snapshots are cached per index path in an LRU and replaced wholesale on
// rebuild; queries never mutate a loaded snapshot, so concurrent use is
// safe. Rebuilds are serialized by a mutex.
type Engine struct {
	cfg     *config.Config
	sc      *scanner.Scanner
	builder *index.Builder
	scorer  Scorer

	buildMu sync.Mutex
	cache   *lru.Cache[string, *index.Index]
}

// NewEngine creates an Engine from the given configuration. A nil config
// uses the defaults.
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	// Config slices replace the scanner defaults wholesale, so an absent
	// setting falls back to the default ignore sets here.
	ignoreDirs := cfg.Scan.IgnoreDirs
	if len(ignoreDirs) == 0 {
		ignoreDirs = scanner.DefaultIgnoreDirs
	}
	ignoreExts := cfg.Scan.IgnoreExts
	if len(ignoreExts) == 0 {
		ignoreExts = scanner.DefaultIgnoreExts
	}
	sc := scanner.New(&scanner.Options{
		IgnoreDirs:    ignoreDirs,
		IgnoreExts:    ignoreExts,
		IgnoreGlobs:   cfg.Scan.IgnoreGlobs,
		IncludeHidden: cfg.Scan.IncludeHidden,
		UseGitignore:  cfg.Scan.UseGitignore,
	})
	cache, err := lru.New[string, *index.Index](cfg.Search.CacheSize)
	if err != nil {
		// Only possible with a non-positive size, which Default prevents
		panic(fmt.Sprintf("failed to create snapshot cache: %v", err))
	}
	return &Engine{
		cfg: cfg,
		sc:  sc,
		builder: index.NewBuilder(sc, &index.Config{
			Workers:        cfg.Index.Workers,
			HoverableKinds: cfg.HoverableKindSet(),
		}),
		scorer: SubsequenceScorer{},
		cache:  cache,
	}
}

// IndexRepository builds (or refreshes) the index for a repository. When
// force is false and a fresh index already exists it is reused instead of
// rebuilt; statistics then summarize the existing index.
func (e *Engine) IndexRepository(ctx context.Context, rootPath, indexPath string, force bool) (*index.Statistics, error) {
	indexPath = e.resolveIndexPath(rootPath, indexPath)

	if !force {
		idx, err := storage.Load(ctx, indexPath)
		if err == nil {
			stale, staleErr := storage.IsStale(ctx, idx, rootPath, e.sc)
			if staleErr == nil && !stale {
				e.cache.Add(indexPath, idx)
				return summarize(idx), nil
			}
		}
	}

	_, stats, err := e.rebuild(ctx, rootPath, indexPath)
	return stats, err
}

// GoTo resolves the token at the requested span. Among intersecting tokens
// it prefers one that fully contains the span, then the largest overlap,
// then the smallest token, then the earliest.
func (e *Engine) GoTo(ctx context.Context, req GoToRequest) (*types.TokenInfo, error) {
	idx, err := e.snapshot(ctx, req.RootPath, req.IndexPath)
	if err != nil {
		return nil, err
	}

	rec, ok := idx.Files[req.File]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrFileNotIndexed, req.File)
	}

	span := req.Span
	if err := span.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNoTokenAtPosition, err)
	}
	if span.Width() == 0 {
		span.ColumnEnd = span.ColumnStart + 1
	}

	var best *types.Token
	bestOverlap := 0
	bestContained := false
	for i := range rec.Tokens {
		tok := &rec.Tokens[i]
		overlap := tok.Range.Overlap(span)
		if overlap == 0 {
			continue
		}
		contained := tok.Range.Contains(span)
		switch {
		case best == nil:
		case contained != bestContained:
			if !contained {
				continue
			}
		case overlap != bestOverlap:
			if overlap < bestOverlap {
				continue
			}
		case !contained || tok.Range.Width() >= best.Range.Width():
			// Smallest-enclosing wins among nested tokens; every other
			// tie goes to the earlier token.
			continue
		}
		best = tok
		bestOverlap = overlap
		bestContained = contained
	}

	if best == nil {
		return nil, fmt.Errorf("%w: %s line %d columns [%d,%d)",
			types.ErrNoTokenAtPosition, req.File, req.Span.Line, req.Span.ColumnStart, req.Span.ColumnEnd)
	}
	return &types.TokenInfo{
		Text:  best.Text,
		Kind:  best.Kind,
		Range: best.Range,
		File:  best.File,
	}, nil
}

// TextSearch finds occurrences of a token text. An exact postings hit wins;
// otherwise every distinct key is scored as a subsequence match and the
// top-scoring keys are returned. Result Score is the subsequence score.
func (e *Engine) TextSearch(ctx context.Context, req SearchRequest) ([]types.SearchResult, error) {
	idx, err := e.snapshot(ctx, req.RootPath, req.IndexPath)
	if err != nil {
		return nil, err
	}

	if exact := e.exactResults(idx, req); len(exact) > 0 {
		return exact, nil
	}
	return e.fuzzyResults(idx, req.Query)
}

// exactResults returns one SearchResult per exact key matching the query,
// honoring case sensitivity.
func (e *Engine) exactResults(idx *index.Index, req SearchRequest) []types.SearchResult {
	var keys []string
	if req.CaseSensitive {
		if _, ok := idx.Postings[req.Query]; ok {
			keys = []string{req.Query}
		}
	} else {
		keys = idx.Folded[strings.ToLower(req.Query)]
	}

	results := make([]types.SearchResult, 0, len(keys))
	for _, key := range keys {
		score, _ := e.scorer.Score(req.Query, key)
		results = append(results, types.SearchResult{
			Key:      key,
			Score:    score,
			Postings: clonePostings(idx.Postings[key]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	return results
}

// fuzzyResults scores every distinct key and keeps the configured top-K.
func (e *Engine) fuzzyResults(idx *index.Index, query string) ([]types.SearchResult, error) {
	if len(idx.Postings) > e.cfg.Search.MaxFuzzyKeys {
		return nil, fmt.Errorf("fuzzy matching unavailable: index has %d distinct keys, limit is %d",
			len(idx.Postings), e.cfg.Search.MaxFuzzyKeys)
	}

	var results []types.SearchResult
	for key := range idx.Postings {
		score, ok := e.scorer.Score(query, key)
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{Key: key, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	if len(results) > e.cfg.Search.MaxResults {
		results = results[:e.cfg.Search.MaxResults]
	}
	for i := range results {
		results[i].Postings = clonePostings(idx.Postings[results[i].Key])
	}
	return results, nil
}

// FuzzySearch finds keys within an edit-distance bound of the query.
// Result Score is the edit distance; results order by ascending distance,
// then key.
func (e *Engine) FuzzySearch(ctx context.Context, req FuzzyRequest) ([]types.SearchResult, error) {
	idx, err := e.snapshot(ctx, req.RootPath, req.IndexPath)
	if err != nil {
		return nil, err
	}

	maxDistance := req.MaxDistance
	if maxDistance <= 0 {
		maxDistance = e.cfg.Search.MaxEditDistance
	}
	if len(idx.Postings) > e.cfg.Search.MaxFuzzyKeys {
		return nil, fmt.Errorf("fuzzy matching unavailable: index has %d distinct keys, limit is %d",
			len(idx.Postings), e.cfg.Search.MaxFuzzyKeys)
	}

	var results []types.SearchResult
	for key := range idx.Postings {
		dist := editDistanceWithin(req.Query, key, maxDistance)
		if dist > maxDistance {
			continue
		}
		results = append(results, types.SearchResult{Key: key, Score: dist})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	if len(results) > e.cfg.Search.MaxResults {
		results = results[:e.cfg.Search.MaxResults]
	}
	for i := range results {
		results[i].Postings = clonePostings(idx.Postings[results[i].Key])
	}
	return results, nil
}

// HoverableRanges returns the stored hoverable ranges of one file.
func (e *Engine) HoverableRanges(ctx context.Context, req HoverRequest) ([]types.Position, error) {
	idx, err := e.snapshot(ctx, req.RootPath, req.IndexPath)
	if err != nil {
		return nil, err
	}

	rec, ok := idx.Files[req.File]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrFileNotIndexed, req.File)
	}
	out := make([]types.Position, len(rec.HoverableRanges))
	copy(out, rec.HoverableRanges)
	return out, nil
}

// Status loads the index at indexPath and reports its shape and staleness
// against the repository root it was built from.
func (e *Engine) Status(ctx context.Context, indexPath string) (*Status, error) {
	idx, err := storage.Load(ctx, indexPath)
	if err != nil {
		if isMissing(err) {
			return &Status{Exists: false}, nil
		}
		return nil, err
	}

	st := &Status{
		Exists:       true,
		RootPath:     idx.RootPath,
		Files:        len(idx.Files),
		Failed:       len(idx.Failed),
		DistinctKeys: len(idx.Postings),
	}
	for _, rec := range idx.Files {
		st.Tokens += len(rec.Tokens)
	}
	stale, err := storage.IsStale(ctx, idx, idx.RootPath, e.sc)
	if err != nil {
		return nil, err
	}
	st.Stale = stale
	return st, nil
}

// snapshot returns the current index for a repository, loading and, per the
// rebuild policy, rebuilding as needed.
func (e *Engine) snapshot(ctx context.Context, rootPath, indexPath string) (*index.Index, error) {
	indexPath = e.resolveIndexPath(rootPath, indexPath)

	idx, cached := e.cache.Get(indexPath)
	if !cached {
		loaded, err := storage.Load(ctx, indexPath)
		switch {
		case err == nil:
			idx = loaded
			e.cache.Add(indexPath, idx)
		case isMissing(err) && e.cfg.Index.AutoRebuild:
			rebuilt, _, buildErr := e.rebuild(ctx, rootPath, indexPath)
			if buildErr != nil {
				return nil, buildErr
			}
			return rebuilt, nil
		default:
			return nil, err
		}
	}

	stale, err := storage.IsStale(ctx, idx, rootPath, e.sc)
	if err != nil {
		return nil, err
	}
	if !stale {
		return idx, nil
	}
	if e.cfg.Index.StrictStale {
		return nil, fmt.Errorf("%w: %s", types.ErrIndexStale, rootPath)
	}
	if !e.cfg.Index.AutoRebuild {
		return idx, nil // serve the stale snapshot rather than fail
	}
	rebuilt, _, err := e.rebuild(ctx, rootPath, indexPath)
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}

// rebuild builds the index, persists it, and replaces the cached snapshot.
func (e *Engine) rebuild(ctx context.Context, rootPath, indexPath string) (*index.Index, *index.Statistics, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	idx, stats, err := e.builder.Build(ctx, rootPath)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.Save(ctx, idx, indexPath); err != nil {
		return nil, nil, err
	}
	e.cache.Add(indexPath, idx)
	return idx, stats, nil
}

func (e *Engine) resolveIndexPath(rootPath, indexPath string) string {
	if indexPath != "" {
		return indexPath
	}
	return e.cfg.IndexPath(rootPath)
}

// summarize derives build-shaped statistics from an existing index
func summarize(idx *index.Index) *index.Statistics {
	stats := &index.Statistics{
		FilesIndexed: len(idx.Files),
		FilesFailed:  len(idx.Failed),
		DistinctKeys: len(idx.Postings),
	}
	for _, rec := range idx.Files {
		stats.TokensExtracted += len(rec.Tokens)
	}
	return stats
}

func clonePostings(postings []types.Posting) []types.Posting {
	out := make([]types.Posting, len(postings))
	copy(out, postings)
	return out
}

func isMissing(err error) bool {
	return errors.Is(err, types.ErrIndexMissing)
}
