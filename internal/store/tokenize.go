package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into full-text tokens: compatibility decomposition,
// combining marks removed, case folded, split on anything that is neither a
// letter nor a digit. "Café-Crème" yields ["cafe", "creme"].
//
// Duplicates are kept; callers that store tokens dedupe them.
func Tokenize(text string) []string {
	// Transformers carry state and are built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = cases.Fold().String(folded)

	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// queryToken is one token of a search term. A prefix token matches every
// indexed token that starts with text.
type queryToken struct {
	text   string
	prefix bool
}

// parseSearchTerm tokenizes a search term. A word ending in '*' turns its
// last token into a prefix token.
func parseSearchTerm(term string) []queryToken {
	var out []queryToken
	for _, word := range strings.Fields(term) {
		prefix := strings.HasSuffix(word, "*")
		tokens := Tokenize(strings.TrimRight(word, "*"))
		for i, tok := range tokens {
			out = append(out, queryToken{text: tok, prefix: prefix && i == len(tokens)-1})
		}
	}
	return out
}

// uniqueTokens returns the distinct tokens of values in first-seen order.
func uniqueTokens(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, tok := range Tokenize(v) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}
