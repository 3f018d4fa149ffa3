package agents

import (
	"regexp"
	"strings"
)

// stopWords are dropped during keyword extraction. Misinformation markers
// (viral, fake, hoax, leaked) are deliberately kept out of this set when
// they help a search, and per-agent callers can strip them further.
var stopWords = map[string]struct{}{
	"is": {}, "are": {}, "was": {}, "were": {}, "the": {}, "a": {}, "an": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
	"by": {}, "has": {}, "have": {}, "had": {}, "been": {}, "it": {},
	"this": {}, "that": {}, "from": {}, "about": {}, "near": {}, "some": {},
	"few": {}, "reportedly": {}, "allegedly": {}, "breaking": {},
	"official": {}, "confirmed": {}, "news": {}, "report": {}, "check": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// ExtractKeywords produces a compact search query from a claim: lowercase,
// punctuation stripped, stop words removed, tokens shorter than three runes
// dropped, and at most max surviving tokens kept in their original order.
// An empty result means the claim is too vague to search.
func ExtractKeywords(text string, max int) string {
	tokens := ExtractTokens(text, max)
	return strings.Join(tokens, " ")
}

// ExtractTokens is ExtractKeywords without the final join.
func ExtractTokens(text string, max int) []string {
	if max <= 0 {
		max = 6
	}
	clean := nonWord.ReplaceAllString(strings.ToLower(text), "")
	var tokens []string
	for _, word := range strings.Fields(clean) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
		if len(tokens) == max {
			break
		}
	}
	return tokens
}

// Similarity computes bag-of-words Jaccard similarity between two texts:
// |intersection| / |union| over their normalized token sets, 0 when either
// set is empty.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	clean := nonWord.ReplaceAllString(strings.ToLower(text), "")
	set := make(map[string]struct{})
	for _, word := range strings.Fields(clean) {
		set[word] = struct{}{}
	}
	return set
}
