package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codenav-mcp/internal/config"
	"github.com/dshills/codenav-mcp/pkg/types"
)

func newTestEngine(t *testing.T, files map[string]string) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	cfg := config.Default()
	cfg.Index.Path = t.TempDir()
	return NewEngine(cfg), root
}

func TestGoTo_ResolvesIdentifier(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"main.go": "package main\nfunc greet(name string) {}\n",
	})

	// Point inside "greet" on line 1: "func greet(..." columns 5..10.
	info, err := e.GoTo(context.Background(), GoToRequest{
		RootPath: root,
		File:     "main.go",
		Span:     types.Position{Line: 1, ColumnStart: 7, ColumnEnd: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, "greet", info.Text)
	assert.Equal(t, types.KindIdentifier, info.Kind)
	assert.Equal(t, types.Position{Line: 1, ColumnStart: 5, ColumnEnd: 10}, info.Range)
	assert.Equal(t, "main.go", info.File)
}

func TestGoTo_SpanPrefersContainingToken(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "alpha beta\n",
	})

	// A span across "beta" resolves to beta, not the preceding space.
	info, err := e.GoTo(context.Background(), GoToRequest{
		RootPath: root,
		File:     "m.go",
		Span:     types.Position{Line: 0, ColumnStart: 6, ColumnEnd: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "beta", info.Text)
}

func TestGoTo_PartialOverlapPicksLargest(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "alpha beta\n",
	})

	// Span [3,8) covers 2 columns of "alpha", the space, and 2 of "beta";
	// equal overlaps resolve to the earlier token.
	info, err := e.GoTo(context.Background(), GoToRequest{
		RootPath: root,
		File:     "m.go",
		Span:     types.Position{Line: 0, ColumnStart: 3, ColumnEnd: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, "alpha", info.Text)
}

func TestGoTo_MissBeyondLineEnd(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "short\n",
	})

	_, err := e.GoTo(context.Background(), GoToRequest{
		RootPath: root,
		File:     "m.go",
		Span:     types.Position{Line: 0, ColumnStart: 40, ColumnEnd: 41},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoTokenAtPosition)
}

func TestGoTo_FileNotIndexed(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "content\n",
	})

	_, err := e.GoTo(context.Background(), GoToRequest{
		RootPath: root,
		File:     "other.go",
		Span:     types.Position{Line: 0, ColumnStart: 0, ColumnEnd: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFileNotIndexed)
}

func TestTextSearch_ExactMatch(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "handler handler\n",
		"b.go": "handler\n",
	})

	results, err := e.TextSearch(context.Background(), SearchRequest{
		RootPath:      root,
		Query:         "handler",
		CaseSensitive: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "handler", results[0].Key)
	require.Len(t, results[0].Postings, 3)
	for i := 1; i < len(results[0].Postings); i++ {
		assert.True(t, results[0].Postings[i-1].Before(results[0].Postings[i]))
	}
}

func TestTextSearch_CaseInsensitiveGroupsByExactKey(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "Config config\n",
	})

	results, err := e.TextSearch(context.Background(), SearchRequest{
		RootPath: root,
		Query:    "config",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	keys := []string{results[0].Key, results[1].Key}
	assert.ElementsMatch(t, []string{"Config", "config"}, keys)
}

func TestTextSearch_FuzzyFallbackOrdering(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "go_to get_token_options\n",
	})

	results, err := e.TextSearch(context.Background(), SearchRequest{
		RootPath: root,
		Query:    "gto",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	assert.Equal(t, "go_to", results[0].Key)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.NotEmpty(t, results[0].Postings)
}

func TestTextSearch_NoMatchReturnsEmpty(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "alpha\n",
	})

	results, err := e.TextSearch(context.Background(), SearchRequest{
		RootPath: root,
		Query:    "zzzz",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuzzySearch_OrdersByDistance(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "handle handler handling\n",
	})

	results, err := e.FuzzySearch(context.Background(), FuzzyRequest{
		RootPath:    root,
		Query:       "handler",
		MaxDistance: 3,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "handler", results[0].Key)
	assert.Equal(t, 0, results[0].Score)
	assert.Equal(t, "handle", results[1].Key)
	assert.Equal(t, 1, results[1].Score)
	assert.Equal(t, "handling", results[2].Key)
	assert.Equal(t, 3, results[2].Score)
}

func TestFuzzySearch_RespectsBound(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.go": "handle handler handling\n",
	})

	results, err := e.FuzzySearch(context.Background(), FuzzyRequest{
		RootPath:    root,
		Query:       "handler",
		MaxDistance: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "handler", results[0].Key)
	assert.Equal(t, "handle", results[1].Key)
}

func TestHoverableRanges_OrderedAndNavigable(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"h.go": "// comment\nvalue := 42\n",
	})

	ranges, err := e.HoverableRanges(context.Background(), HoverRequest{
		RootPath: root,
		File:     "h.go",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	// value and 42; the comment and punctuation are excluded.
	assert.Len(t, ranges, 2)
	for i := 1; i < len(ranges); i++ {
		assert.True(t, ranges[i-1].Before(ranges[i]))
	}
}

func TestEngine_AutoRebuildOnModification(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "before\n",
	})

	results, err := e.TextSearch(context.Background(), SearchRequest{
		RootPath: root, Query: "before", CaseSensitive: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("after\n"), 0644))

	results, err = e.TextSearch(context.Background(), SearchRequest{
		RootPath: root, Query: "after", CaseSensitive: true,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEngine_StrictStaleFailsInsteadOfRebuilding(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("before\n"), 0644))

	cfg := config.Default()
	cfg.Index.Path = t.TempDir()
	cfg.Index.StrictStale = true
	e := NewEngine(cfg)

	_, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("after\n"), 0644))

	_, err = e.TextSearch(context.Background(), SearchRequest{
		RootPath: root, Query: "after", CaseSensitive: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexStale)
}

func TestEngine_StrictStaleAppliesWithoutAutoRebuild(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("before\n"), 0644))

	cfg := config.Default()
	cfg.Index.Path = t.TempDir()
	cfg.Index.AutoRebuild = false
	cfg.Index.StrictStale = true
	e := NewEngine(cfg)

	_, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("after\n"), 0644))

	_, err = e.TextSearch(context.Background(), SearchRequest{
		RootPath: root, Query: "after", CaseSensitive: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexStale)
}

func TestIndexRepository_FailedFileDoesNotForceRebuild(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"good.go": "package ok\n",
		"bad.go":  "hi\xff\xfe",
	})

	stats, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)

	// The unchanged tree still reads as fresh despite the failed file, so a
	// second non-forced call reuses the index instead of rebuilding.
	st, err := e.Status(context.Background(), e.cfg.IndexPath(root))
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.False(t, st.Stale)
	assert.Equal(t, 1, st.Failed)

	again, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)
	assert.Equal(t, stats.FilesIndexed, again.FilesIndexed)
	assert.Equal(t, 1, again.FilesFailed)
}

func TestIndexRepository_ReusesFreshIndex(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "one two\n",
	})

	first, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)
	second, err := e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)

	assert.Equal(t, first.FilesIndexed, second.FilesIndexed)
	assert.Equal(t, first.DistinctKeys, second.DistinctKeys)
}

func TestStatus(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "one two\n",
	})
	indexPath := e.cfg.IndexPath(root)

	st, err := e.Status(context.Background(), indexPath)
	require.NoError(t, err)
	assert.False(t, st.Exists)

	_, err = e.IndexRepository(context.Background(), root, "", false)
	require.NoError(t, err)

	st, err = e.Status(context.Background(), indexPath)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.False(t, st.Stale)
	assert.Equal(t, root, st.RootPath)
	assert.Equal(t, 1, st.Files)
	assert.Equal(t, 2, st.DistinctKeys)

	require.NoError(t, os.WriteFile(filepath.Join(root, "m.go"), []byte("three\n"), 0644))
	st, err = e.Status(context.Background(), indexPath)
	require.NoError(t, err)
	assert.True(t, st.Stale)
}

func TestGoTo_UsesExplicitIndexPath(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"m.go": "token\n",
	})
	indexPath := t.TempDir()

	info, err := e.GoTo(context.Background(), GoToRequest{
		RootPath:  root,
		IndexPath: indexPath,
		File:      "m.go",
		Span:      types.Position{Line: 0, ColumnStart: 0, ColumnEnd: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "token", info.Text)

	_, err = os.Stat(filepath.Join(indexPath, "index.db"))
	assert.NoError(t, err)
}
