package query

// editDistanceWithin computes the Levenshtein distance between two strings,
// the minimum number of single-rune insertions, deletions, and substitutions
// turning one into the other. Returns maxDistance+1 as soon as the distance
// provably exceeds maxDistance, so callers can filter cheaply.
func editDistanceWithin(a, b string, maxDistance int) int {
	runesA := []rune(a)
	runesB := []rune(b)

	lenA := len(runesA)
	lenB := len(runesB)

	lengthDiff := lenA - lenB
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff > maxDistance {
		return maxDistance + 1
	}

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	prevRow := make([]int, lenB+1)
	currRow := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prevRow[j] = j
	}

	for i := 1; i <= lenA; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}

			deletion := prevRow[j] + 1
			insertion := currRow[j-1] + 1
			substitution := prevRow[j-1] + cost

			currRow[j] = min3(deletion, insertion, substitution)
			if currRow[j] < minInRow {
				minInRow = currRow[j]
			}
		}

		// Every cell only grows from here, so the final distance cannot
		// come back under the bound.
		if minInRow > maxDistance {
			return maxDistance + 1
		}

		prevRow, currRow = currRow, prevRow
	}

	return prevRow[lenB]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
