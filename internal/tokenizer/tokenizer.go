package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/codenav-mcp/pkg/types"
)

// Lexer produces a lazy, finite, restartable token stream over one file's
// text. Tokens are emitted in left-to-right, top-to-bottom order, never
// overlap, and cover every rune of every line: unrecognized runs fall
// through to the catch-all rule rather than being dropped.
//
// Lexemes that span lines (block comments, raw strings, whitespace runs)
// are split into one token per line so every token fits the single-line
// Position model. Line terminators themselves belong to no token.
type Lexer struct {
	file  string
	text  string
	rules []Rule

	off     int // byte offset into text
	line    int
	col     int // rune column within the current line
	pending []types.Token
}

// New creates a Lexer over text using the default rule table. The file is
// recorded on every emitted token as its repository-relative path.
func New(file, text string) *Lexer {
	return NewWithRules(file, text, DefaultRules)
}

// NewWithRules creates a Lexer with a caller-supplied rule table. Rules are
// tried in order; the table must end with a catch-all rule or coverage is
// not guaranteed.
func NewWithRules(file, text string, rules []Rule) *Lexer {
	return &Lexer{file: file, text: text, rules: rules}
}

// Reset rewinds the lexer to the start of the text
func (l *Lexer) Reset() {
	l.off = 0
	l.line = 0
	l.col = 0
	l.pending = nil
}

// Next returns the next token and true, or a zero token and false once the
// text is exhausted.
func (l *Lexer) Next() (types.Token, bool) {
	for {
		if len(l.pending) > 0 {
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok, true
		}
		if l.off >= len(l.text) {
			return types.Token{}, false
		}
		l.scan()
	}
}

// scan matches the highest-priority rule at the current offset and queues
// the per-line tokens of the matched lexeme.
func (l *Lexer) scan() {
	rest := l.text[l.off:]
	for _, rule := range l.rules {
		loc := rule.Pattern.FindStringIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		lexeme := rest[:loc[1]]
		if rule.Kind == types.KindComment && strings.HasPrefix(lexeme, "--") && l.afterWordRune() {
			// "--" only opens a comment at a word boundary, so C-family
			// decrements like i-- fall through to the punctuation rule.
			continue
		}
		l.emit(lexeme, rule.Kind)
		l.off += loc[1]
		return
	}
	// The catch-all rule matches any rune; reaching here means the rule
	// table is malformed. Consume one rune as "other" to preserve coverage.
	_, size := utf8.DecodeRuneInString(rest)
	l.emit(rest[:size], types.KindOther)
	l.off += size
}

// afterWordRune reports whether the rune immediately before the current
// offset is an identifier rune
func (l *Lexer) afterWordRune() bool {
	r, size := utf8.DecodeLastRuneInString(l.text[:l.off])
	if size == 0 {
		return false
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// emit splits a lexeme on line terminators and queues one token per
// non-empty line segment, advancing the line/column cursor.
func (l *Lexer) emit(lexeme string, kind types.TokenKind) {
	if kind == types.KindIdentifier && IsKeyword(lexeme) {
		kind = types.KindKeyword
	}
	segments := strings.Split(lexeme, "\n")
	for i, seg := range segments {
		if i > 0 {
			l.line++
			l.col = 0
		}
		if seg == "" {
			continue
		}
		width := utf8.RuneCountInString(seg)
		l.pending = append(l.pending, types.Token{
			Text: seg,
			Kind: kind,
			File: l.file,
			Range: types.Position{
				Line:        l.line,
				ColumnStart: l.col,
				ColumnEnd:   l.col + width,
			},
		})
		l.col += width
	}
}

// Tokenize runs a Lexer to completion and returns the full token table for
// one file. Non-decodable text fails with ErrTokenizationFailure so the
// build can record the error and skip the file.
func Tokenize(file, text string) ([]types.Token, error) {
	return TokenizeWithRules(file, text, DefaultRules)
}

// TokenizeWithRules is Tokenize with a caller-supplied rule table
func TokenizeWithRules(file, text string, rules []Rule) ([]types.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: %s: invalid UTF-8", types.ErrTokenizationFailure, file)
	}
	lex := NewWithRules(file, text, rules)
	var tokens []types.Token
	for {
		tok, ok := lex.Next()
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
