// Package suggest ranks known names by their similarity to an unknown one,
// for "did you mean" hints in diagnostics.
//
// Names are compared after normalization: CamelCase and separators are
// folded away, so "has_id", "HasID" and "hasId" are the same name.
package suggest

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// DefaultThreshold is the minimum score for a name to be suggested.
const DefaultThreshold = 0.6

// Candidate is a known name scored against the name looked up.
type Candidate struct {
	Name       string
	Normalized string
	// Score is the normalized similarity, 1 for identical names.
	Score float64
}

// CandidateList is ordered best first.
type CandidateList []Candidate

// Rank scores every known name against name, best first. Ties are broken
// alphabetically so results are deterministic.
func Rank(name string, known []string) CandidateList {
	target := Normalize(name)
	out := make(CandidateList, 0, len(known))

	for _, k := range known {
		norm := Normalize(k)
		out = append(out, Candidate{
			Name:       k,
			Normalized: norm,
			Score:      levenshtein.Similarity(target, norm, nil),
		})
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})

	return out
}

// Best returns the best candidate, or nil if there are none.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}

	return &c[0]
}

// AboveThreshold returns the candidates scoring at least threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var out CandidateList

	for _, cand := range c {
		if cand.Score >= threshold {
			out = append(out, cand)
		}
	}

	return out
}

// Closest returns the known name most similar to name, if any is similar enough.
func Closest(name string, known []string) (string, bool) {
	best := Rank(name, known).AboveThreshold(DefaultThreshold).Best()
	if best == nil {
		return "", false
	}

	return best.Name, true
}

// Hint formats a " (did you mean ...?)" suffix, or "" when nothing is close.
func Hint(name string, known []string) string {
	closest, ok := Closest(name, known)
	if !ok || closest == name {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", closest)
}

// Normalize lowercases an identifier and drops word separators.
func Normalize(s string) string {
	return strings.Join(Tokens(s), "")
}

// Tokens splits an identifier into lowercase words at separators and
// case changes: "XMLParser" gives [xml parser], "order_id" gives [order id].
func Tokens(s string) []string {
	var (
		tokens []string
		word   []rune
	)

	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && startsWord(runes, i) {
			flush()
		}

		word = append(word, r)
	}

	flush()

	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

// startsWord reports a lower-to-upper transition ("orderID") or the last
// capital of an acronym followed by a lowercase letter ("XMLParser").
func startsWord(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) || isSeparator(prev) {
		return false
	}

	if !unicode.IsUpper(prev) {
		return true
	}

	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
