package analyzer

import (
	"strings"
	"unicode"
)

// SignificantTerms extracts the content-bearing words of a query for the
// keyword-fallback search: lowercased, stopwords and single characters
// removed, order preserved, duplicates dropped.
func SignificantTerms(text string) []string {
	words := splitWords(text)
	terms := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 2 || seen[word] {
			continue
		}
		if stopwords[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}
	return terms
}

// splitWords splits text on unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "how": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "their": true, "there": true, "these": true, "they": true,
	"this": true, "to": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"will": true, "with": true, "you": true, "your": true,
}
