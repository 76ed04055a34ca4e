package matching

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	substringBoostFloor = 0.90
	tokenBoostFloor     = 0.85
	substringMinLen     = 4
)

// Score computes a similarity in [0,1] between a normalized query and a
// normalized title. The base is a character-level SequenceMatcher ratio;
// two boosts then floor the score upward, never lowering it. Raw sequence
// similarity punishes a short query against a long title even when the
// query is fully contained in it, which is exactly the common case here.
func Score(normalizedQuery, normalizedTitle string) float64 {
	m := difflib.NewMatcher(
		strings.Split(normalizedQuery, ""),
		strings.Split(normalizedTitle, ""),
	)
	score := m.Ratio()

	// Substring boost: query appears verbatim inside the title.
	if len(normalizedQuery) >= substringMinLen && strings.Contains(normalizedTitle, normalizedQuery) {
		if score < substringBoostFloor {
			score = substringBoostFloor
		}
	}

	// Token-overlap boost: every query token appears among the title tokens.
	queryTokens := strings.Fields(normalizedQuery)
	if len(queryTokens) > 0 {
		titleTokens := make(map[string]bool)
		for _, tok := range strings.Fields(normalizedTitle) {
			titleTokens[tok] = true
		}
		all := true
		for _, tok := range queryTokens {
			if !titleTokens[tok] {
				all = false
				break
			}
		}
		if all && score < tokenBoostFloor {
			score = tokenBoostFloor
		}
	}

	return score
}
