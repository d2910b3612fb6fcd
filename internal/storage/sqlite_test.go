package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codenav-mcp/internal/index"
	"github.com/dshills/codenav-mcp/pkg/types"
)

func buildTestIndex(t *testing.T, files map[string]string) (*index.Index, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	b := index.NewBuilder(nil, nil)
	idx, _, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	return idx, root
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	idx, _ := buildTestIndex(t, map[string]string{
		"main.go":     "package main\n\nfunc main() {\n\tgreet(\"world\")\n}\n",
		"sub/util.go": "package sub\n\n// Greet builds a greeting.\nfunc Greet(name string) string {\n\treturn \"hello \" + name\n}\n",
	})

	indexPath := t.TempDir()
	require.NoError(t, Save(context.Background(), idx, indexPath))

	loaded, err := Load(context.Background(), indexPath)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())

	assert.True(t, idx.Equal(loaded), "loaded index should equal the saved one")
}

func TestSave_OverwritesPreviousIndex(t *testing.T) {
	first, _ := buildTestIndex(t, map[string]string{"a.go": "alpha\n"})
	second, _ := buildTestIndex(t, map[string]string{"b.go": "beta\n"})

	indexPath := t.TempDir()
	require.NoError(t, Save(context.Background(), first, indexPath))
	require.NoError(t, Save(context.Background(), second, indexPath))

	loaded, err := Load(context.Background(), indexPath)
	require.NoError(t, err)
	assert.True(t, second.Equal(loaded))
	assert.False(t, first.Equal(loaded))
}

func TestLoad_MissingIndex(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexMissing)
}

func TestLoad_CorruptDatabase(t *testing.T) {
	indexPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(indexPath, DBFileName), []byte("not a database"), 0644))

	_, err := Load(context.Background(), indexPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexCorrupt)
}

func TestLoad_SchemaVersionMismatch(t *testing.T) {
	idx, _ := buildTestIndex(t, map[string]string{"v.go": "token\n"})
	indexPath := t.TempDir()
	require.NoError(t, Save(context.Background(), idx, indexPath))

	db, err := openDatabase(filepath.Join(indexPath, DBFileName))
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE meta SET value = '999' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Load(context.Background(), indexPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIndexCorrupt)
}

func TestIsStale_FreshIndex(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{"f.go": "package f\n"})

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_ModifiedFile(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{"f.go": "package f\n"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "f.go"), []byte("package f // changed\n"), 0644))

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_AddedFile(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{"f.go": "package f\n"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "g.go"), []byte("package f\n"), 0644))

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_RemovedFile(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{
		"f.go": "package f\n",
		"g.go": "package f\n",
	})

	require.NoError(t, os.Remove(filepath.Join(root, "g.go")))

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestSaveLoad_PersistsFailedFiles(t *testing.T) {
	idx, _ := buildTestIndex(t, map[string]string{
		"good.go": "package ok\n",
		"bad.go":  "hi\xff\xfe",
	})
	require.Len(t, idx.Failed, 1)

	indexPath := t.TempDir()
	require.NoError(t, Save(context.Background(), idx, indexPath))

	loaded, err := Load(context.Background(), indexPath)
	require.NoError(t, err)
	assert.Equal(t, idx.Failed, loaded.Failed)
	assert.True(t, idx.Equal(loaded))
}

func TestIsStale_UnchangedFailedFile(t *testing.T) {
	// A file that fails tokenization is excluded from the token tables, but
	// a just-built index over the same tree still reads as fresh.
	idx, root := buildTestIndex(t, map[string]string{
		"good.go": "package ok\n",
		"bad.go":  "hi\xff\xfe",
	})

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_ModifiedFailedFile(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{
		"good.go": "package ok\n",
		"bad.go":  "hi\xff\xfe",
	})

	// The broken file becomes valid text; a rebuild would index it now.
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.go"), []byte("fixed\n"), 0644))

	stale, err := IsStale(context.Background(), idx, root, nil)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_MissingRoot(t *testing.T) {
	idx, root := buildTestIndex(t, map[string]string{"f.go": "package f\n"})

	_, err := IsStale(context.Background(), idx, filepath.Join(root, "nope"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRepositoryUnreadable)
}

func TestSave_LeavesNoTempFilesBehind(t *testing.T) {
	idx, _ := buildTestIndex(t, map[string]string{"f.go": "package f\n"})
	indexPath := t.TempDir()
	require.NoError(t, Save(context.Background(), idx, indexPath))

	entries, err := os.ReadDir(indexPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DBFileName, entries[0].Name())
}
