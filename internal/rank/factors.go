// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// ContentRelevance rates how well query matches the document: the fraction
// of query terms found anywhere in the ranking text, half the fraction found
// inside a single word, and one and a half times the fraction found in the
// title, averaged and capped at 1. An empty query scores 0.5.
func ContentRelevance(doc types.Document, query string) float64 {
	terms := uniqueWords(query)
	if len(terms) == 0 {
		return 0.5
	}
	text := strings.ToLower(doc.RankingText())
	words := strings.Fields(text)
	title := strings.ToLower(titleText(doc))

	exact, partial, inTitle := 0, 0, 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			exact++
		}
		for _, w := range words {
			if strings.Contains(w, term) {
				partial++
				break
			}
		}
		if strings.Contains(title, term) {
			inTitle++
		}
	}
	n := float64(len(terms))
	score := (float64(exact)/n + 0.5*float64(partial)/n + 1.5*float64(inTitle)/n) / 2
	return math.Min(1.0, score)
}

// Recency is a piecewise-linear decay over whole days since ts: 1.0 within
// a day, falling through 0.8 at a week, 0.6 at a month, 0.4 at a quarter
// and 0.2 at a year, then slowly toward 0.1. No timestamp scores 0.5.
func Recency(ts, now time.Time) float64 {
	if ts.IsZero() {
		return 0.5
	}
	days := math.Floor(now.Sub(ts).Hours() / 24)
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.95 - (days-1)*0.025
	case days <= 30:
		return 0.8 - (days-7)*0.0087
	case days <= 90:
		return 0.6 - (days-30)*0.0033
	case days <= 365:
		return 0.4 - (days-90)*0.0007
	default:
		return math.Max(0.1, 0.2-(days-365)*0.0001)
	}
}

// TeamRelevance rates the document against the caller's team context.
func TeamRelevance(doc types.Document, user types.UserContext) float64 {
	if user.IsZero() {
		return 0.5
	}
	score := 0.5

	var keywords []string
	for _, k := range user.TeamKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) > 0 {
		text := strings.ToLower(doc.RankingText())
		hits := 0
		for _, k := range keywords {
			if strings.Contains(text, k) {
				hits++
			}
		}
		score += 0.3 * float64(hits) / float64(len(keywords))
	}

	username := strings.ToLower(user.Username)
	switch d := doc.(type) {
	case *types.JiraIssue:
		if username != "" && (strings.Contains(strings.ToLower(d.Assignee), username) ||
			strings.Contains(strings.ToLower(d.Reporter), username)) {
			score += 0.2
		}
		if containsFold(user.Projects, d.Project) {
			score += 0.15
		}
	case *types.ConfluencePage:
		if username != "" && strings.Contains(strings.ToLower(d.Author), username) {
			score += 0.15
		}
		if containsFold(user.Spaces, d.Space) {
			score += 0.15
		}
	}
	return math.Min(1.0, score)
}

// QualityIndicators applies the source-specific quality heuristics.
func QualityIndicators(doc types.Document) float64 {
	switch d := doc.(type) {
	case *types.ConfluencePage:
		return pageQuality(d)
	case *types.JiraIssue:
		return issueQuality(d)
	case *types.CodeFile:
		return fileQuality(d)
	default:
		return 0.5
	}
}

var guideWords = []string{"guide", "documentation", "how to", "tutorial"}

func pageQuality(p *types.ConfluencePage) float64 {
	score := 0.5
	switch n := len(p.Content) + len(p.Excerpt); {
	case n > 1000:
		score += 0.2
	case n > 500:
		score += 0.1
	}
	if containsAny(strings.ToLower(p.Title), guideWords) {
		score += 0.15
	}
	if len(p.Labels) > 0 {
		score += 0.1
	}
	if !p.LastModified.IsZero() && !p.Created.IsZero() && !p.LastModified.Equal(p.Created) {
		score += 0.05
	}
	return math.Min(1.0, score)
}

func issueQuality(i *types.JiraIssue) float64 {
	score := 0.5
	if len(i.Description) > 100 {
		score += 0.15
	}
	if len(i.Components) > 0 {
		score += 0.1
	}
	if len(i.Labels) > 0 {
		score += 0.1
	}
	switch strings.ToLower(i.Priority) {
	case "high", "critical", "blocker":
		score += 0.1
	case "medium":
		score += 0.05
	}
	if n := len(i.Comments); n > 0 {
		score += math.Min(0.1, float64(n)*0.02)
	}
	return math.Min(1.0, score)
}

var (
	coreExtensions   = []string{"java", "py", "js", "ts", "cpp", "c", "go"}
	configExtensions = []string{"sql", "yaml", "yml", "json"}
	docExtensions    = []string{"md", "txt"}
	corePaths        = []string{"src/main", "lib/", "core/", "api/"}
	testPaths        = []string{"test/", "spec/", "__test__"}
)

func fileQuality(f *types.CodeFile) float64 {
	score := 0.5
	path := strings.ToLower(f.Path)

	ext := ""
	if i := strings.LastIndex(path, "."); i >= 0 {
		ext = path[i+1:]
	}
	switch {
	case slices.Contains(coreExtensions, ext):
		score += 0.15
	case slices.Contains(configExtensions, ext):
		score += 0.1
	case slices.Contains(docExtensions, ext):
		score += 0.05
	}

	switch {
	case containsAny(path, corePaths):
		score += 0.1
	case containsAny(path, testPaths):
		score += 0.05
	}

	switch {
	case f.Size >= 1000 && f.Size <= 50000:
		score += 0.1
	case f.Size >= 100 && f.Size <= 100000:
		score += 0.05
	}

	if n := len(f.Matches); n > 0 {
		score += math.Min(0.15, float64(n)*0.03)
	}
	return math.Min(1.0, score)
}

var priorityBoosts = map[string]float64{
	"blocker":  0.3,
	"critical": 0.25,
	"high":     0.2,
	"medium":   0.1,
	"low":      0.0,
}

// PriorityBoost maps an issue priority to a fixed boost; unknown
// priorities get 0.05.
func PriorityBoost(i *types.JiraIssue) float64 {
	if b, ok := priorityBoosts[strings.ToLower(i.Priority)]; ok {
		return b
	}
	return 0.05
}

var (
	activeIntent   = []string{"current", "active", "working", "progress"}
	activeStatus   = []string{"in progress", "open", "reopened"}
	resolvedIntent = []string{"resolved", "fixed", "completed", "done"}
	resolvedStatus = []string{"resolved", "closed", "done"}
)

// StatusRelevance is 0.2 when the query asks for active or resolved work
// and the issue status agrees, else 0.1.
func StatusRelevance(i *types.JiraIssue, query string) float64 {
	status := strings.ToLower(i.Status)
	q := strings.ToLower(query)
	if containsAny(q, activeIntent) && slices.Contains(activeStatus, status) {
		return 0.2
	}
	if containsAny(q, resolvedIntent) && slices.Contains(resolvedStatus, status) {
		return 0.2
	}
	return 0.1
}

// MatchDensity is ten times the matches per line, capped at 0.2.
func MatchDensity(f *types.CodeFile) float64 {
	if len(f.Matches) == 0 {
		return 0
	}
	lines := f.Lines
	if lines < 1 {
		lines = 1
	}
	return math.Min(0.2, float64(len(f.Matches))/float64(lines)*10)
}

var (
	entryPatterns   = []string{"main.", "index.", "app.", "server.", "config."}
	servicePatterns = []string{"service", "controller", "manager", "handler"}
	helperPatterns  = []string{"util", "helper", "common"}
)

// FileImportance rates a path by the role its name suggests.
func FileImportance(f *types.CodeFile) float64 {
	path := strings.ToLower(f.Path)
	switch {
	case containsAny(path, entryPatterns):
		return 0.15
	case containsAny(path, servicePatterns):
		return 0.1
	case containsAny(path, helperPatterns):
		return 0.05
	default:
		return 0
	}
}

func titleText(doc types.Document) string {
	switch d := doc.(type) {
	case *types.ConfluencePage:
		return d.Title
	case *types.JiraIssue:
		return d.Summary
	case *types.CodeFile:
		return d.Path
	default:
		return doc.DisplayTitle()
	}
}

// uniqueWords returns the distinct lowercase whitespace-separated words of
// s in first-seen order.
func uniqueWords(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
