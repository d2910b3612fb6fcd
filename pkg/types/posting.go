package types

// Posting records one occurrence of a token's text at a specific file and
// position. Many postings may share the same text key in the inverted index.
type Posting struct {
	File  string
	Range Position
}

// Before orders postings by file path, then position
func (p Posting) Before(other Posting) bool {
	if p.File != other.File {
		return p.File < other.File
	}
	return p.Range.Before(other.Range)
}

// TokenInfo is the result of a go_to query: the matched token's text, kind
// and range.
type TokenInfo struct {
	Text  string
	Kind  TokenKind
	Range Position
	File  string
}

// SearchResult pairs a matched token-text key with its postings and the
// score the ranking policy assigned to the key. Text search scores are
// subsequence-match scores (higher ranks first); fuzzy search scores carry
// the edit distance (lower ranks first).
type SearchResult struct {
	Key      string
	Score    int
	Postings []Posting
}
