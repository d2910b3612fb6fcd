// Package types provides shared type definitions for the CodeNav MCP server.
//
// This package defines the domain types used across the indexing pipeline and
// query engine: tokens, positions, postings, query results and the sentinel
// error kinds of the boundary contract.
//
// # Core Types
//
// Token represents a classified lexical unit with its source range:
//
//	token := types.Token{
//	    Text: "ParseFile",
//	    Kind: types.KindIdentifier,
//	    Range: types.Position{Line: 12, ColumnStart: 5, ColumnEnd: 14},
//	    File: "internal/parser/parser.go",
//	}
//
// Position spans are half-open [ColumnStart, ColumnEnd) and confined to a
// single line; lines and columns are zero-based rune offsets into the file
// text as decoded at index-build time. The same decoding must be used at
// query time or positions are meaningless.
//
// Posting links a token's text to one occurrence:
//
//	posting := types.Posting{
//	    File:  "internal/parser/parser.go",
//	    Range: token.Range,
//	}
//
// # Errors
//
// Query and persistence failures are distinct, inspectable sentinels so the
// binding layer can present precise diagnostics:
//
//	if errors.Is(err, types.ErrFileNotIndexed) { ... }
//	if errors.Is(err, types.ErrNoTokenAtPosition) { ... }
package types
