// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Analyzer turns raw text into the terms counted by the vectorizer:
// lowercase, accent-folded to ASCII, stop words removed, then n-grams over
// the remaining tokens. An Analyzer is safe for concurrent use.
type Analyzer struct {
	minN, maxN int
}

// NewAnalyzer returns an analyzer producing n-grams in the inclusive range.
func NewAnalyzer(ngram [2]int) *Analyzer {
	minN, maxN := ngram[0], ngram[1]
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	return &Analyzer{minN: minN, maxN: maxN}
}

// NGramRange returns the analyzer's inclusive n-gram span.
func (a *Analyzer) NGramRange() [2]int { return [2]int{a.minN, a.maxN} }

// Tokens returns the folded, stop-word-filtered word tokens of text.
func (a *Analyzer) Tokens(text string) []string {
	words := tokenPattern.FindAllString(foldASCII(strings.ToLower(text)), -1)
	kept := words[:0]
	for _, w := range words {
		if _, stop := englishStopWords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return kept
}

// Terms returns every n-gram of text in the configured range.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	if a.minN == 1 && a.maxN == 1 {
		return tokens
	}

	var terms []string
	for n := a.minN; n <= a.maxN; n++ {
		if n == 1 {
			terms = append(terms, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// foldASCII decomposes text and drops every non-ASCII rune, so "café"
// becomes "cafe". Characters without an ASCII decomposition disappear.
func foldASCII(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
