// Package config provides configuration loading for the codenav server.
//
// Configuration is TOML with built-in defaults; every field is optional.
//
// # Configuration Precedence
//
// Settings are resolved from (in order of precedence):
//   - Environment variables (CODENAV_INDEX_PATH)
//   - The TOML file named by CODENAV_CONFIG
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	workers := cfg.Index.Workers
//	limit := cfg.Search.MaxResults
package config
