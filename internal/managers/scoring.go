package managers

import "strings"

const (
	phraseMatchScore    = 0.5
	termDensityScale    = 0.5
	repeatTermIncrement = 0.1
)

// scoreChunk computes the lexical base score of a chunk against a
// query. Both text and phrase must already be lowercased; terms are
// the whitespace-split words of the phrase.
//
// The exact-phrase component contributes 0.5 when the chunk contains
// the full query verbatim. The term-density component counts substring
// occurrences per term, where each occurrence past the first adds 0.1
// on top of 1.0 for presence, normalized by twice the term count and
// scaled by 0.5. The sum is usually within [0, 1] but
// heavy term repetition can push it above 1; only the rerank step
// clamps.
func scoreChunk(text string, phrase string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}

	var score float64

	if strings.Contains(text, phrase) {
		score += phraseMatchScore
	}

	var termSum float64

	for _, term := range terms {
		count := strings.Count(text, term)
		if count > 0 {
			termSum += 1 + repeatTermIncrement*float64(count-1)
		}
	}

	score += termSum / float64(len(terms)*2) * termDensityScale

	return score
}
