package scanner

import (
	"os"
	"path/filepath"
	"runtime"
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

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zz.go", "z")
	writeFile(t, root, "aa.go", "a")
	writeFile(t, root, "sub/mid.go", "m")

	s := New(nil)
	first, err := s.Scan(root)
	require.NoError(t, err)

	var paths []string
	for _, e := range first {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"aa.go", "sub/mid.go", "zz.go"}, paths)

	second, err := s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScan_IgnoresVCSAndBinaries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, ".git/config", "noise")
	writeFile(t, root, "assets/logo.png", "\x89PNG")
	writeFile(t, root, "node_modules/dep/index.js", "x")

	s := New(nil)
	entries, err := s.Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "main.go", entries[0].Path)
}

func TestScan_IgnoreGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "k")
	writeFile(t, root, "gen/schema_gen.go", "g")
	writeFile(t, root, "notes.log", "l")

	s := New(&Options{
		IgnoreGlobs: []string{"*.log", "gen"},
	})
	entries, err := s.Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "keep.go", entries[0].Path)
}

func TestScan_GitignorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# build artifacts\n*.log\nbuild/\n/secrets.txt\n!keep.log\n")
	writeFile(t, root, "main.go", "m")
	writeFile(t, root, "debug.log", "d")
	writeFile(t, root, "build/out.txt", "o")
	writeFile(t, root, "secrets.txt", "s")

	s := New(nil)
	entries, err := s.Scan(root)
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestScan_GitignoreDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n")
	writeFile(t, root, "main.go", "m")
	writeFile(t, root, "debug.log", "d")

	s := New(&Options{IgnoreDirs: DefaultIgnoreDirs, IgnoreExts: DefaultIgnoreExts})
	entries, err := s.Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 2)
}

func TestScan_MissingRoot(t *testing.T) {
	s := New(nil)
	_, err := s.Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRepositoryUnreadable)
}

func TestScan_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.go", "x")

	s := New(nil)
	_, err := s.Scan(filepath.Join(root, "f.go"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRepositoryUnreadable)
}

func TestScan_SymlinkCycleBroken(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks unreliable on windows CI")
	}
	root := t.TempDir()
	writeFile(t, root, "a/one.go", "1")
	// a/loop -> a creates a cycle when followed
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "loop")))

	s := New(nil)
	entries, err := s.Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "a/one.go", entries[0].Path)
}

func TestScan_SymlinkedFileVisitedOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks unreliable on windows CI")
	}
	root := t.TempDir()
	writeFile(t, root, "real.go", "r")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.go"), filepath.Join(root, "alias.go")))

	s := New(nil)
	entries, err := s.Scan(root)
	require.NoError(t, err)

	// Canonical-path dedup keeps whichever name sorts first in walk order.
	require.Len(t, entries, 1)
}
