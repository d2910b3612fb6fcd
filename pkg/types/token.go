package types

import "errors"

// TokenKind classifies a lexical unit produced by the tokenizer
type TokenKind string

const (
	KindIdentifier  TokenKind = "identifier"
	KindKeyword     TokenKind = "keyword"
	KindString      TokenKind = "string"
	KindNumber      TokenKind = "number"
	KindComment     TokenKind = "comment"
	KindPunctuation TokenKind = "punctuation"
	KindWhitespace  TokenKind = "whitespace"
	KindOther       TokenKind = "other"
)

// Position identifies a half-open [ColumnStart, ColumnEnd) span within one
// line of one file. Lines and columns are zero-based rune offsets into the
// file text as decoded at index-build time.
type Position struct {
	Line        int
	ColumnStart int
	ColumnEnd   int
}

// Validate checks structural validity of the position
func (p Position) Validate() error {
	if p.Line < 0 {
		return errors.New("line must be non-negative")
	}
	if p.ColumnStart < 0 {
		return errors.New("column start must be non-negative")
	}
	if p.ColumnEnd < p.ColumnStart {
		return errors.New("column end must be >= column start")
	}
	return nil
}

// Width returns the number of columns the span covers
func (p Position) Width() int {
	return p.ColumnEnd - p.ColumnStart
}

// Overlap returns the number of columns shared with other on the same line.
// Positions on different lines never overlap.
func (p Position) Overlap(other Position) int {
	if p.Line != other.Line {
		return 0
	}
	start := p.ColumnStart
	if other.ColumnStart > start {
		start = other.ColumnStart
	}
	end := p.ColumnEnd
	if other.ColumnEnd < end {
		end = other.ColumnEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Contains reports whether other lies entirely within p
func (p Position) Contains(other Position) bool {
	return p.Line == other.Line &&
		p.ColumnStart <= other.ColumnStart &&
		other.ColumnEnd <= p.ColumnEnd
}

// Before orders positions by (line, column-start, column-end)
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	if p.ColumnStart != other.ColumnStart {
		return p.ColumnStart < other.ColumnStart
	}
	return p.ColumnEnd < other.ColumnEnd
}

// Token is a classified, range-tagged lexical unit of source text.
// Tokens are immutable after creation and owned by their file's token table.
type Token struct {
	Text  string
	Kind  TokenKind
	Range Position
	File  string // Relative to repository root
}

// ValidateKind checks if the token kind is one of the known categories
func (t *Token) ValidateKind() error {
	switch t.Kind {
	case KindIdentifier, KindKeyword, KindString, KindNumber,
		KindComment, KindPunctuation, KindWhitespace, KindOther:
		return nil
	default:
		return errors.New("invalid token kind")
	}
}

// Validate performs comprehensive validation of the token
func (t *Token) Validate() error {
	if t.Text == "" {
		return errors.New("token text is required")
	}
	if t.File == "" {
		return errors.New("token file is required")
	}
	if err := t.ValidateKind(); err != nil {
		return err
	}
	return t.Range.Validate()
}
