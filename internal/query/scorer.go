package query

import (
	"strings"
	"unicode"
)

// Scorer ranks an index key against a search query. Returns the score and
// whether the key matched at all; higher scores rank first.
type Scorer interface {
	Score(query, key string) (int, bool)
}

// SubsequenceScorer matches every query character in order within the key,
// case-insensitively.
//
// Scoring rules:
//   - Each matched character scores 1
//   - Consecutive matches get bonus points
//   - Matches at the start of the key get bonus points
//   - Matches at word boundaries (after _, -, ., / or a camelCase hump)
//     get bonus points
//   - Exact-case matches get a small bonus
//   - Longer keys are penalized so tighter matches rank first
//
// Examples:
//   - "gto" matches "go_to" with a high score (start + boundary)
//   - "gto" matches "get_token_options" with a lower score (longer key)
//   - "xyz" does not match "go_to"
type SubsequenceScorer struct{}

// Score implements Scorer.
func (SubsequenceScorer) Score(query, key string) (int, bool) {
	if query == "" {
		return 0, true
	}

	queryRunes := []rune(strings.ToLower(query))
	keyRunes := []rune(strings.ToLower(key))

	if len(queryRunes) > len(keyRunes) {
		return 0, false
	}

	queryOrig := []rune(query)
	keyOrig := []rune(key)

	queryPos := 0
	score := 0
	lastMatchPos := -1

	for keyPos := 0; keyPos < len(keyRunes) && queryPos < len(queryRunes); keyPos++ {
		if keyRunes[keyPos] != queryRunes[queryPos] {
			continue
		}

		matchScore := 1
		if lastMatchPos == keyPos-1 {
			matchScore += 5
		}
		if keyPos == 0 {
			matchScore += 10
		}
		if isWordBoundary(keyOrig, keyPos) {
			matchScore += 7
		}
		if keyOrig[keyPos] == queryOrig[queryPos] {
			matchScore += 2
		}

		score += matchScore
		lastMatchPos = keyPos
		queryPos++
	}

	if queryPos != len(queryRunes) {
		return 0, false
	}

	// Shorter keys are better matches.
	score -= len(keyRunes) / 4

	return score, true
}

// isWordBoundary reports whether the position starts a word within the key:
// after a separator character or at a lowercase-to-uppercase hump.
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	prev := runes[pos-1]
	if prev == '_' || prev == '-' || prev == '.' || prev == '/' || prev == ' ' {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(runes[pos])
}
