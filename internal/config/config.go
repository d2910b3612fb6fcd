package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dshills/codenav-mcp/pkg/types"
)

// Config holds the complete server configuration.
type Config struct {
	// Index configuration
	Index IndexConfig `toml:"index"`

	// Scan configuration
	Scan ScanConfig `toml:"scan"`

	// Search configuration
	Search SearchConfig `toml:"search"`
}

// IndexConfig controls index building and persistence.
type IndexConfig struct {
	// Path is the directory the index database is written to.
	// Empty means <repository root>/.codenav.
	Path string `toml:"path"`
	// Workers is the number of concurrent tokenization workers.
	// Zero means runtime.NumCPU().
	Workers int `toml:"workers"`
	// HoverableKinds lists the token kinds exposed by hoverable-range
	// queries. Empty means identifier, string, number.
	HoverableKinds []string `toml:"hoverable_kinds"`
	// AutoRebuild rebuilds a stale or missing index transparently on
	// query instead of failing.
	AutoRebuild bool `toml:"auto_rebuild"`
	// StrictStale makes queries against a stale index fail instead of
	// rebuilding or serving the stale snapshot. Takes precedence over
	// AutoRebuild.
	StrictStale bool `toml:"strict_stale"`
}

// ScanConfig controls repository traversal.
type ScanConfig struct {
	// IgnoreDirs are directory names skipped during traversal
	IgnoreDirs []string `toml:"ignore_dirs"`
	// IgnoreExts are file extensions skipped during traversal
	IgnoreExts []string `toml:"ignore_exts"`
	// IgnoreGlobs are glob patterns matched against relative paths
	IgnoreGlobs []string `toml:"ignore_globs"`
	// IncludeHidden includes dotfiles and dot-directories
	IncludeHidden bool `toml:"include_hidden"`
	// UseGitignore folds simple patterns from the repository root
	// .gitignore into the ignore globs at scan time
	UseGitignore bool `toml:"use_gitignore"`
}

// SearchConfig controls text and fuzzy search behavior.
type SearchConfig struct {
	// MaxResults caps the number of distinct keys a fuzzy search returns
	MaxResults int `toml:"max_results"`
	// MaxFuzzyKeys caps the number of distinct index keys a fuzzy scan
	// will consider before giving up on fuzzy matching entirely
	MaxFuzzyKeys int `toml:"max_fuzzy_keys"`
	// MaxEditDistance is the default edit-distance bound for
	// fuzzy_search when the caller does not pass one
	MaxEditDistance int `toml:"max_edit_distance"`
	// CacheSize is the number of loaded index snapshots kept in memory
	CacheSize int `toml:"cache_size"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Workers:        runtime.NumCPU(),
			HoverableKinds: []string{"identifier", "string", "number"},
			AutoRebuild:    true,
			StrictStale:    false,
		},
		Scan: ScanConfig{
			IgnoreDirs:   nil, // scanner defaults apply
			IgnoreExts:   nil,
			UseGitignore: true,
		},
		Search: SearchConfig{
			MaxResults:      10,
			MaxFuzzyKeys:    50000,
			MaxEditDistance: 2,
			CacheSize:       4,
		},
	}
}

// Load reads configuration from the file named by the CODENAV_CONFIG
// environment variable, falling back to defaults when it is unset. The
// CODENAV_INDEX_PATH environment variable overrides index.path either way.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CODENAV_CONFIG"); path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over the given config.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - CODENAV_CONFIG: path to the TOML config file (read by Load)
//   - CODENAV_INDEX_PATH: overrides index.path
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CODENAV_INDEX_PATH"); path != "" {
		c.Index.Path = path
	}
}

// setDefaults fills in zero values left by a partial config file.
func (c *Config) setDefaults() {
	defaults := Default()

	if c.Index.Workers <= 0 {
		c.Index.Workers = defaults.Index.Workers
	}
	if len(c.Index.HoverableKinds) == 0 {
		c.Index.HoverableKinds = defaults.Index.HoverableKinds
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	if c.Search.MaxFuzzyKeys <= 0 {
		c.Search.MaxFuzzyKeys = defaults.Search.MaxFuzzyKeys
	}
	if c.Search.MaxEditDistance <= 0 {
		c.Search.MaxEditDistance = defaults.Search.MaxEditDistance
	}
	if c.Search.CacheSize <= 0 {
		c.Search.CacheSize = defaults.Search.CacheSize
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	for _, kind := range c.Index.HoverableKinds {
		tok := types.Token{Kind: types.TokenKind(kind)}
		if err := tok.ValidateKind(); err != nil {
			return fmt.Errorf("index.hoverable_kinds: %w", err)
		}
	}
	for _, glob := range c.Scan.IgnoreGlobs {
		if _, err := filepath.Match(glob, "x"); err != nil {
			return fmt.Errorf("scan.ignore_globs: bad pattern %q: %w", glob, err)
		}
	}
	if c.Search.MaxEditDistance > 10 {
		return fmt.Errorf("search.max_edit_distance: %d is too large (max 10)", c.Search.MaxEditDistance)
	}
	return nil
}

// IndexPath resolves the index directory for a repository root, applying
// the default location when none is configured.
func (c *Config) IndexPath(rootPath string) string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(rootPath, ".codenav")
}

// HoverableKindSet converts the configured kind names to token kinds.
func (c *Config) HoverableKindSet() []types.TokenKind {
	kinds := make([]types.TokenKind, 0, len(c.Index.HoverableKinds))
	for _, name := range c.Index.HoverableKinds {
		kinds = append(kinds, types.TokenKind(name))
	}
	return kinds
}
