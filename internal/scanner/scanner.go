package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/codenav-mcp/pkg/types"
)

// Entry identifies one regular file found under the repository root
type Entry struct {
	// Path is relative to the root, slash-separated
	Path string
	// AbsPath is the absolute on-disk path used to read the content
	AbsPath string
}

// Options configures which paths a scan skips
type Options struct {
	// IgnoreDirs are directory base names skipped entirely
	IgnoreDirs []string
	// IgnoreExts are file extensions (with leading dot) skipped as binary
	IgnoreExts []string
	// IgnoreGlobs are filepath.Match patterns tried against both the
	// relative path and the base name
	IgnoreGlobs []string
	// IncludeHidden scans dot-directories and dot-files when true
	IncludeHidden bool
	// UseGitignore folds simple patterns from the repository root
	// .gitignore into the ignore globs for each scan
	UseGitignore bool
}

// DefaultIgnoreDirs covers version-control metadata, dependency trees, and
// the index directory this system writes under the repository root.
var DefaultIgnoreDirs = []string{".git", ".hg", ".svn", "node_modules", "__pycache__", ".codenav"}

// DefaultIgnoreExts covers common binary artifacts that tokenize to noise
var DefaultIgnoreExts = []string{
	".exe", ".dll", ".so", ".dylib", ".a", ".o", ".obj", ".bin", ".wasm",
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".pdf",
	".zip", ".gz", ".tar", ".bz2", ".xz", ".7z",
	".jar", ".class", ".pyc",
	".woff", ".woff2", ".ttf", ".eot",
	".db", ".sqlite", ".sqlite3",
}

// Scanner enumerates the regular files of a repository tree in a
// deterministic order
type Scanner struct {
	ignoreDirs    map[string]struct{}
	ignoreExts    map[string]struct{}
	ignoreGlobs   []string
	includeHidden bool
	useGitignore  bool
}

// New creates a Scanner. A nil opts uses the default ignore sets with
// gitignore support; explicit opts replace them wholesale so callers
// control the full filter.
func New(opts *Options) *Scanner {
	if opts == nil {
		opts = &Options{
			IgnoreDirs:   DefaultIgnoreDirs,
			IgnoreExts:   DefaultIgnoreExts,
			UseGitignore: true,
		}
	}
	s := &Scanner{
		ignoreDirs:    make(map[string]struct{}, len(opts.IgnoreDirs)),
		ignoreExts:    make(map[string]struct{}, len(opts.IgnoreExts)),
		ignoreGlobs:   opts.IgnoreGlobs,
		includeHidden: opts.IncludeHidden,
		useGitignore:  opts.UseGitignore,
	}
	for _, d := range opts.IgnoreDirs {
		s.ignoreDirs[d] = struct{}{}
	}
	for _, e := range opts.IgnoreExts {
		s.ignoreExts[strings.ToLower(e)] = struct{}{}
	}
	return s
}

// Scan walks the tree under root and returns every reachable regular file,
// sorted lexicographically by relative path so repeated scans of an
// unchanged tree are byte-identical. Directory symlinks are followed, but a
// visited set of canonical paths breaks cycles and guarantees each file
// appears at most once.
func (s *Scanner) Scan(root string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRepositoryUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: not a directory", types.ErrRepositoryUnreadable, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRepositoryUnreadable, root, err)
	}

	globs := s.ignoreGlobs
	if s.useGitignore {
		globs = append(append([]string(nil), globs...), gitignoreGlobs(absRoot)...)
	}

	walk := &walker{
		scanner:     s,
		root:        absRoot,
		globs:       globs,
		visitedDirs: make(map[string]struct{}),
		seenFiles:   make(map[string]struct{}),
	}
	if err := walk.dir(absRoot); err != nil {
		return nil, err
	}

	sort.Slice(walk.entries, func(i, j int) bool {
		return walk.entries[i].Path < walk.entries[j].Path
	})
	return walk.entries, nil
}

// walker carries the traversal state for one Scan call
type walker struct {
	scanner     *Scanner
	root        string
	globs       []string
	visitedDirs map[string]struct{}
	seenFiles   map[string]struct{}
	entries     []Entry
}

// gitignoreGlobs reads the repository root .gitignore into filepath.Match
// patterns. Only the simple subset translates: blank lines, comments,
// negations and ** patterns are skipped. A leading / anchors to the root
// and a trailing / marks a directory; matchesGlob approximates both by
// trying the relative path and the base name.
func gitignoreGlobs(root string) []string {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var globs []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.Contains(line, "**") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		if line == "" {
			continue
		}
		if _, err := filepath.Match(line, "x"); err != nil {
			continue // malformed pattern
		}
		globs = append(globs, line)
	}
	return globs
}

func (w *walker) dir(dir string) error {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Dangling symlink or permission problem below the root: skip the
		// subtree, the rest of the repository still indexes.
		return nil
	}
	if _, ok := w.visitedDirs[canonical]; ok {
		return nil
	}
	w.visitedDirs[canonical] = struct{}{}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if dir == w.root {
			return fmt.Errorf("%w: %s: %v", types.ErrRepositoryUnreadable, dir, err)
		}
		return nil
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })

	for _, de := range dirents {
		name := de.Name()
		path := filepath.Join(dir, name)

		if !w.scanner.includeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				continue
			}
			isDir = target.IsDir()
		}

		if isDir {
			if _, skip := w.scanner.ignoreDirs[name]; skip {
				continue
			}
			if w.matchesGlob(path, name) {
				continue
			}
			if err := w.dir(path); err != nil {
				return err
			}
			continue
		}

		if err := w.file(path, name, de); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) file(path, name string, de os.DirEntry) error {
	info, err := os.Stat(path) // follows symlinks
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, skip := w.scanner.ignoreExts[ext]; skip {
		return nil
	}
	if w.matchesGlob(path, name) {
		return nil
	}

	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil
	}
	if _, ok := w.seenFiles[canonical]; ok {
		return nil
	}
	w.seenFiles[canonical] = struct{}{}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return nil
	}
	w.entries = append(w.entries, Entry{
		Path:    filepath.ToSlash(rel),
		AbsPath: path,
	})
	return nil
}

// matchesGlob tries the configured patterns against the root-relative path
// and the base name
func (w *walker) matchesGlob(path, name string) bool {
	if len(w.globs) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = name
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.globs {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
