// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"math"
	"strings"
	"time"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// priorityScores rates issue priorities for popularity; unknown
// priorities score 0.5.
var priorityScores = map[string]float64{
	"critical": 1.0,
	"high":     0.8,
	"medium":   0.6,
	"low":      0.4,
}

// KeywordScore measures lexical overlap between the whitespace-separated
// words of query and content: the fraction of query words present as whole
// words plus half the fraction contained in some content word, capped at 1.
func KeywordScore(query, content string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	contentWords := wordSet(content)

	exact, partial := 0, 0
	for q := range queryWords {
		if _, ok := contentWords[q]; ok {
			exact++
		}
		for c := range contentWords {
			if strings.Contains(c, q) {
				partial++
				break
			}
		}
	}
	n := float64(len(queryWords))
	return math.Min(1.0, float64(exact)/n+0.5*float64(partial)/n)
}

// FreshnessScore is a step function of document age in days. A document
// without a timestamp scores a neutral 0.5.
func FreshnessScore(ts, now time.Time) float64 {
	if ts.IsZero() {
		return 0.5
	}
	days := now.Sub(ts).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.8
	case days <= 90:
		return 0.6
	case days <= 365:
		return 0.4
	default:
		return 0.2
	}
}

// PopularityScore blends usage indicators: match count and a size sweet
// spot for code files, priority for issues. Pages carry no indicator.
func PopularityScore(doc types.Document) float64 {
	var score float64
	switch d := doc.(type) {
	case *types.CodeFile:
		score += 0.5 * math.Min(1.0, float64(len(d.Matches))/10)
		if d.Size > 1000 && d.Size < 100000 {
			score += 0.3
		}
	case *types.JiraIssue:
		p, ok := priorityScores[strings.ToLower(d.Priority)]
		if !ok {
			p = 0.5
		}
		score += 0.2 * p
	}
	return math.Min(1.0, score)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
