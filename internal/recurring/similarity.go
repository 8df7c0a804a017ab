package recurring

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// regionCodes are trailing location tokens that vary between occurrences of
// the same merchant on card statements.
var regionCodes = map[string]bool{
	// Canadian provinces and territories
	"ab": true, "bc": true, "mb": true, "nb": true, "nl": true, "ns": true,
	"nt": true, "nu": true, "on": true, "pe": true, "qc": true, "sk": true, "yt": true,
	// US states most often seen on exports
	"ca": true, "ny": true, "tx": true, "fl": true, "wa": true, "il": true,
	"ma": true, "nj": true, "pa": true, "oh": true, "ga": true, "az": true, "co": true,
	"or": true, "mi": true, "mn": true, "va": true, "nc": true, "ut": true,
	// Country suffixes
	"can": true, "usa": true, "us": true,
}

// Normalize reduces a raw transaction description to the form compared by
// the grouper: lower case, single spaces, no punctuation noise, and no
// trailing tokens that differ per occurrence (store numbers, reference IDs,
// region codes). At least one token is always kept.
func Normalize(description string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '&' || r == '\'' || r == '.':
			return r
		default:
			return ' '
		}
	}, description)

	tokens := strings.Fields(cleaned)
	for i, tok := range tokens {
		tokens[i] = strings.Trim(tok, ".'")
	}
	tokens = dropEmpty(tokens)

	// A store or reference number ends the merchant name; whatever follows
	// it is usually a location.
	for i := 1; i < len(tokens); i++ {
		if hasDigit(tokens[i]) {
			tokens = tokens[:i]
			break
		}
	}

	for len(tokens) > 1 && isVolatileToken(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

func dropEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// isVolatileToken reports whether a trailing token is likely to change
// between occurrences of the same merchant.
func isVolatileToken(tok string) bool {
	return regionCodes[tok] || hasDigit(tok)
}

func hasDigit(tok string) bool {
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Similarity scores two normalized descriptions in [0,1]. It takes the
// larger of the token-overlap (Jaccard) score and the edit-distance ratio, so
// reordered words and small spelling differences both score high.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return max(tokenOverlap(a, b), editRatio(a, b))
}

func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	shared := 0
	for tok := range setA {
		if setB[tok] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func editRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
