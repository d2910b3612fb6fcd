// Package mcp implements the MCP (Model Context Protocol) server exposing
// repository navigation and search over stdio.
//
// # Tools
//
// The server registers six tools:
//
// index_repository builds or refreshes the token index for a repository.
// When the existing index still matches the repository it is reused unless
// force is set.
//
//	Parameters:
//	  root_path  (required) absolute path to the repository root
//	  index_path (optional) index directory, default <root_path>/.codenav
//	  force      (optional) rebuild even when the index is fresh
//
// go_to resolves a source span to the token covering it. Among
// intersecting tokens a fully containing token wins, then the largest
// overlap, then the smallest token.
//
//	Parameters:
//	  root_path, index_path as above
//	  relative_path (required) file path relative to root_path
//	  line          (required) zero-based line number
//	  start_index   (required) zero-based rune column
//	  end_index     (optional) exclusive end column; omitted means a
//	                point query at start_index
//
// text_search finds exact occurrences of a token text. When no key
// matches exactly the query falls back to subsequence scoring over all
// distinct keys and returns the top-scoring ones.
//
//	Parameters:
//	  root_path, index_path as above
//	  query          (required) token text
//	  case_sensitive (optional) default false
//
// fuzzy_search finds keys within a Levenshtein edit-distance bound of the
// query; result scores carry the distance.
//
//	Parameters:
//	  root_path, index_path as above
//	  query        (required) token text
//	  max_distance (optional) default from configuration
//
// get_hoverable_ranges lists the spans of one file that resolve to
// navigable tokens, in file order.
//
// get_status reports whether an index exists, its statistics, and whether
// it is stale against the repository it was built from.
//
// # Error Codes
//
// Handlers map the engine's sentinel errors to distinct protocol codes so
// clients can react without parsing messages:
//
//	-32602 invalid parameters
//	-32603 internal error
//	-32001 file not indexed
//	-32002 no token at position
//	-32003 index missing
//	-32004 index stale
//	-32005 index corrupt
//	-32006 repository unreadable
//
// # Transport
//
// The server speaks MCP over stdio. Stdout carries the protocol; all
// logging goes to stderr.
package mcp
