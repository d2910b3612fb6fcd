package tokenizer

import (
	"regexp"

	"github.com/dshills/codenav-mcp/pkg/types"
)

// Rule pairs a token kind with an anchored pattern. Rules are tried in
// order; the first match wins, so earlier rules take priority over later
// ones (comments before punctuation, numbers before identifiers).
type Rule struct {
	Kind    types.TokenKind
	Pattern *regexp.Regexp
}

// DefaultRules is the generic, language-agnostic lexical grammar. It is a
// single prioritized rule table rather than a per-language lexer hierarchy;
// richer per-language tables can be swapped in via NewWithRules.
var DefaultRules = []Rule{
	// Line comments (C-family, shell/Python, SQL/Lua) and block comments.
	// An unterminated block comment runs to end of input so no offset is
	// left unaccounted for. The lexer rejects a "--" match directly after
	// an identifier rune; a prefix decrement after whitespace still lexes
	// as a comment, the cost of a language-agnostic table.
	{types.KindComment, regexp.MustCompile(`\A(//[^\n]*|#[^\n]*|--[^\n]*|/\*(?s:.)*?(\*/|\z))`)},

	// String and character literals. Quoted forms stop at the line end when
	// unterminated; raw backtick strings may span lines.
	{types.KindString, regexp.MustCompile(`\A("(\\.|[^"\\\n])*("|\n|\z)|'(\\.|[^'\\\n])*('|\n|\z)|` + "`[^`]*(`|\\z)" + `)`)},

	// Numeric literals: hex/octal/binary prefixes, decimals, exponents.
	{types.KindNumber, regexp.MustCompile(`\A(0[xXoObB][0-9a-fA-F_]+|[0-9][0-9_]*(\.[0-9][0-9_]*)?([eE][+-]?[0-9]+)?)`)},

	// Identifiers: Unicode letters or underscore, then letters, digits,
	// underscore. Keyword classification happens after the match.
	{types.KindIdentifier, regexp.MustCompile(`\A[\p{L}_][\p{L}\p{N}_]*`)},

	// Horizontal and vertical whitespace runs.
	{types.KindWhitespace, regexp.MustCompile(`\A[ \t\r\n\f\v]+`)},

	// Operator and delimiter runs. Grouping a run keeps multi-character
	// operators like == and -> as single tokens.
	{types.KindPunctuation, regexp.MustCompile(`\A[-+*/%=<>!&|^~?:;,.()\[\]{}@$\\]+`)},

	// Catch-all: any single remaining rune, so the token stream covers the
	// entire input with no gaps.
	{types.KindOther, regexp.MustCompile(`\A(?s:.)`)},
}

// genericKeywords is a cross-language keyword set good enough for
// navigation highlighting. It deliberately mixes languages; identifier vs
// keyword classification never affects postings, only the reported kind.
var genericKeywords = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "chan": {}, "class": {},
	"const": {}, "continue": {}, "def": {}, "defer": {}, "del": {},
	"elif": {}, "else": {}, "enum": {}, "except": {}, "extends": {},
	"false": {}, "finally": {}, "fn": {}, "for": {}, "func": {},
	"function": {}, "go": {}, "if": {}, "impl": {}, "import": {},
	"in": {}, "interface": {}, "lambda": {}, "let": {}, "map": {},
	"match": {}, "mod": {}, "new": {}, "nil": {}, "none": {},
	"null": {}, "package": {}, "pass": {}, "pub": {}, "raise": {},
	"range": {}, "return": {}, "select": {}, "self": {}, "static": {},
	"struct": {}, "switch": {}, "this": {}, "throw": {}, "trait": {},
	"true": {}, "try": {}, "type": {}, "use": {}, "var": {},
	"void": {}, "while": {}, "with": {}, "yield": {},
}

// IsKeyword reports whether the identifier text is in the generic keyword
// set. Matching is case-sensitive except for literal-style keywords the set
// stores lowercase (None/True/False are covered by their Python spellings).
func IsKeyword(text string) bool {
	if _, ok := genericKeywords[text]; ok {
		return true
	}
	switch text {
	case "None", "True", "False":
		return true
	}
	return false
}
