package index

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codenav-mcp/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func buildRepo(t *testing.T, files map[string]string) (*Index, *Statistics) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}
	b := NewBuilder(nil, nil)
	idx, stats, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	return idx, stats
}

func TestBuild_PostingsNeverDangle(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{
		"a.go": "package alpha\nfunc Run() { Run() }\n",
		"b.go": "package beta\nvar Run = 1\n",
	})

	require.NoError(t, idx.Validate())

	postings := idx.Lookup("Run", true)
	require.Len(t, postings, 3)
	for _, p := range postings {
		rec, ok := idx.Files[p.File]
		require.True(t, ok)
		found := false
		for _, tok := range rec.Tokens {
			if tok.Range == p.Range && tok.Text == "Run" {
				found = true
				break
			}
		}
		assert.True(t, found, "posting at %s:%d has no token", p.File, p.Range.Line)
	}
}

func TestBuild_CaseFoldedLookup(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{
		"x.go": "Config config CONFIG\n",
	})

	assert.Len(t, idx.Lookup("Config", true), 1)
	all := idx.Lookup("config", false)
	require.Len(t, all, 3)
	// Merged case-insensitive postings stay in file/position order.
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Before(all[i]))
	}
}

func TestBuild_HoverableRangesExcludeCommentsAndPunctuation(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{
		"h.go": "// leading comment\nvalue := compute(42)\n",
	})

	rec := idx.Files["h.go"]
	require.NotNil(t, rec)
	require.NotEmpty(t, rec.HoverableRanges)

	hover := make(map[types.Position]struct{}, len(rec.HoverableRanges))
	for _, r := range rec.HoverableRanges {
		hover[r] = struct{}{}
	}
	for _, tok := range rec.Tokens {
		_, isHover := hover[tok.Range]
		switch tok.Kind {
		case types.KindIdentifier, types.KindString, types.KindNumber:
			assert.True(t, isHover, "token %q should be hoverable", tok.Text)
		case types.KindComment, types.KindPunctuation, types.KindWhitespace:
			assert.False(t, isHover, "token %q should not be hoverable", tok.Text)
		}
	}
}

func TestBuild_HoverableRangesOrderedNonOverlapping(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{
		"o.go": "alpha beta gamma\ndelta epsilon\n",
	})

	rec := idx.Files["o.go"]
	require.NotNil(t, rec)
	for i := 1; i < len(rec.HoverableRanges); i++ {
		prev, cur := rec.HoverableRanges[i-1], rec.HoverableRanges[i]
		assert.True(t, prev.Before(cur))
		assert.Zero(t, prev.Overlap(cur))
	}
}

func TestBuild_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "m.go", "package m\nfunc F(x int) int { return x * 2 }\n")
	writeFile(t, root, "n.go", "package m\nconst N = \"value\"\n")

	b := NewBuilder(nil, nil)
	first, _, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	second, _, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestBuild_BadFileRecordedNotFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", "package ok\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.bin.go"), []byte{0xff, 0xfe, 0x00, 0x01}, 0644))

	b := NewBuilder(nil, nil)
	idx, stats, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "bad.bin.go")

	_, ok := idx.Files["bad.bin.go"]
	assert.False(t, ok)
	_, ok = idx.Files["good.go"]
	assert.True(t, ok)
}

func TestBuild_FailedFileTrackedWithContentHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", "package ok\n")
	badContent := []byte{0x68, 0x69, 0xff, 0xfe}
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.go"), badContent, 0644))

	b := NewBuilder(nil, nil)
	idx, stats, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, idx.Validate())

	assert.Equal(t, 1, stats.FilesFailed)
	require.Contains(t, idx.Failed, "bad.go")
	assert.Equal(t, sha256.Sum256(badContent), idx.Failed["bad.go"])
	assert.Equal(t, []string{"bad.go"}, idx.FailedPaths())
	assert.NotContains(t, idx.Files, "bad.go")
}

func TestBuild_WhitespaceNotSearchable(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{
		"w.go": "a  b\n",
	})

	assert.Empty(t, idx.Lookup("  ", true))
	assert.NotEmpty(t, idx.Lookup("a", true))
}

func TestBuild_Statistics(t *testing.T) {
	_, stats := buildRepo(t, map[string]string{
		"s.go": "one two three\n",
	})

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Zero(t, stats.FilesFailed)
	assert.Greater(t, stats.TokensExtracted, 0)
	assert.Equal(t, 3, stats.DistinctKeys)
}

func TestValidate_DetectsDanglingPosting(t *testing.T) {
	idx, _ := buildRepo(t, map[string]string{"v.go": "token\n"})
	idx.Postings["ghost"] = []types.Posting{{File: "missing.go", Range: types.Position{}}}

	err := idx.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexCorrupt)
}
