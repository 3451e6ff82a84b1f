// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newRanker(t *testing.T) *Ranker {
	t.Helper()
	r, err := New(types.DefaultRankingConfig(),
		WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return r
}

// panicDoc is a document whose text accessors blow up.
type panicDoc struct{ types.ConfluencePage }

func (p *panicDoc) RankingText() string { panic("corrupt record") }

// --- construction ---

func TestNew_ValidatesWeights(t *testing.T) {
	cfg := types.DefaultRankingConfig()
	delete(cfg.Weights, types.FactorRecency)
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = types.DefaultRankingConfig()
	cfg.Weights[types.FactorRecency] = 0.5
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = types.DefaultRankingConfig()
	cfg.Weights[types.FactorPriorityBoost] = 1.5
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestBaseWeightsSumToOne(t *testing.T) {
	cfg := types.DefaultRankingConfig()
	var sum float64
	for _, f := range types.BaseFactors {
		sum += cfg.Weights[f]
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestWeight_DefaultsForExtras(t *testing.T) {
	r := newRanker(t)
	assert.Equal(t, 0.35, r.Weight(types.FactorContentRelevance))
	assert.Equal(t, types.DefaultFactorWeight, r.Weight(types.FactorPriorityBoost))
	assert.Equal(t, types.DefaultFactorWeight, r.Weight(types.FactorFileImportance))
}

// --- composite ---

func TestRank_NeutralInputsComposite(t *testing.T) {
	r := newRanker(t)
	got := r.Rank(map[types.SourceType][]types.Document{
		types.SourceConfluence: {&types.ConfluencePage{ID: "1", Title: "x"}},
		types.SourceJira:       {&types.JiraIssue{Key: "A-1"}},
	}, "", types.UserContext{})

	require.Len(t, got[types.SourceConfluence], 1)
	assert.InDelta(t, 0.4, got[types.SourceConfluence][0].Score, 1e-9)

	require.Len(t, got[types.SourceJira], 1)
	jira := got[types.SourceJira][0]
	assert.InDelta(t, 0.4075, jira.Score, 1e-9)
	assert.Equal(t, 0.05, jira.Breakdown[types.FactorPriorityBoost])
	assert.Equal(t, 0.1, jira.Breakdown[types.FactorStatusRelevance])

	_, ok := got[types.SourceCode]
	assert.False(t, ok)
}

func TestRank_FailuresFallBackToNeutral(t *testing.T) {
	r := newRanker(t)
	docs := []types.Document{
		nil,
		&panicDoc{types.ConfluencePage{ID: "bad", Title: "broken"}},
		&types.ConfluencePage{ID: "ok", Title: "OAuth guide", Excerpt: "oauth setup"},
	}
	items := r.RankSource(types.SourceConfluence, docs, "oauth", types.UserContext{})
	require.Len(t, items, 3)

	neutral := 0
	for _, it := range items {
		if it.Score == NeutralScore {
			neutral++
		}
	}
	assert.Equal(t, 2, neutral)
}

func TestRank_SortedAndBounded(t *testing.T) {
	r := newRanker(t)
	docs := []types.Document{
		&types.CodeFile{Path: "docs/readme.txt", Modified: now.AddDate(-3, 0, 0)},
		&types.CodeFile{
			Path: "src/main/api/OAuthService.java", ContentPreview: "oauth token refresh",
			Size: 4000, Lines: 10, Matches: []string{"a", "b", "c", "d", "e"}, Modified: now,
		},
		&types.CodeFile{Path: "lib/util/helpers.go", ContentPreview: "oauth", Size: 200, Modified: now.AddDate(0, -2, 0)},
	}
	items := r.RankSource(types.SourceCode, docs, "oauth token", types.UserContext{Username: "dana", TeamKeywords: []string{"oauth"}})
	require.Len(t, items, 3)

	assert.Equal(t, "code:src/main/api/OAuthService.java", items[0].Document.DocumentID())
	for i, it := range items {
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.LessOrEqual(t, it.Score, 1.0)
		for f, v := range it.Breakdown {
			assert.GreaterOrEqual(t, v, 0.0, f)
			assert.LessOrEqual(t, v, 1.0, f)
		}
		if i > 0 {
			assert.GreaterOrEqual(t, items[i-1].Score, it.Score)
		}
	}
	assert.Contains(t, items[0].Explanations, "Multiple matches in file")
	assert.Contains(t, items[0].Explanations, "Very recent content")
}

func TestRank_Deterministic(t *testing.T) {
	r := newRanker(t)
	docs := map[types.SourceType][]types.Document{
		types.SourceJira: {
			&types.JiraIssue{Key: "A-1", Summary: "OAuth login bug", Priority: "High", Updated: now.AddDate(0, 0, -3)},
			&types.JiraIssue{Key: "A-2", Summary: "OAuth login bug", Priority: "High", Updated: now.AddDate(0, 0, -3)},
			&types.JiraIssue{Key: "A-3", Summary: "Database outage", Priority: "Low", Updated: now.AddDate(0, -5, 0)},
		},
	}
	first := r.Rank(docs, "oauth bug", types.UserContext{})
	second := r.Rank(docs, "oauth bug", types.UserContext{})
	assert.Equal(t, first, second)
	// Equal scores keep input order.
	assert.Equal(t, "jira:A-1", first[types.SourceJira][0].Document.DocumentID())
	assert.Equal(t, "jira:A-2", first[types.SourceJira][1].Document.DocumentID())
}

// --- explanations ---

func TestExplain(t *testing.T) {
	got := Explain(map[types.Factor]float64{
		types.FactorContentRelevance:  0.85,
		types.FactorRecency:           0.75,
		types.FactorQualityIndicators: 0.6,
		types.FactorPriorityBoost:     0.2,
	}, types.SourceJira)
	assert.Equal(t, []string{
		"Excellent keyword match", "Recent content", "Good quality indicators", "High priority issue",
	}, got)

	got = Explain(map[types.Factor]float64{
		types.FactorContentRelevance:  0.3,
		types.FactorRecency:           0.5,
		types.FactorQualityIndicators: 0.5,
		types.FactorFileImportance:    0.15,
	}, types.SourceCode)
	assert.Equal(t, []string{"Limited keyword match", "Older content", "Important file type"}, got)
}
