package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// lexicalTolerance is the maximum normalized edit distance at which a query
// token still counts as matching a chunk word. 0 is an exact match, 1 a
// complete rewrite.
const lexicalTolerance = 0.4

// lexicalScore rates how well content matches query by fuzzy token overlap.
// Each query token is matched against the chunk's words with case folding;
// a token contributes its closeness (1 - normalized edit distance) when the
// best word stays within the tolerance. The final score is the mean token
// contribution, so it lands in (0, 1] and is comparable across chunks.
// A score of 0 means no token matched.
func lexicalScore(query, content string) float64 {
	tokens := lexicalTokens(query)
	if len(tokens) == 0 {
		return 0
	}
	words := lexicalTokens(content)
	if len(words) == 0 {
		return 0
	}

	var total float64
	for _, tok := range tokens {
		if closeness := bestWordMatch(tok, words); closeness > 0 {
			total += closeness
		}
	}
	return total / float64(len(tokens))
}

// bestWordMatch compares the token against every word by edit distance, so
// substitution typos count just as insertions and deletions do. Tokens are
// already lowercased by lexicalTokens.
func bestWordMatch(token string, words []string) float64 {
	best := 0.0
	for _, word := range words {
		longest := max(utf8.RuneCountInString(token), utf8.RuneCountInString(word))
		if longest == 0 {
			continue
		}
		normalized := float64(fuzzy.LevenshteinDistance(token, word)) / float64(longest)
		if normalized > lexicalTolerance {
			continue
		}
		if closeness := 1 - normalized; closeness > best {
			best = closeness
		}
	}
	return best
}

func lexicalTokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
