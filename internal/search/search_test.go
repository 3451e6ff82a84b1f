// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/relevance-engine/internal/index"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

// --- test helpers ---

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type staticIndexes map[types.SourceType]*index.Index

func (s staticIndexes) Get(st types.SourceType) *index.Index { return s[st] }

func smallCorpusConfig() types.IndexConfig {
	cfg := types.DefaultIndexConfig()
	cfg.MinDF = 1
	cfg.MaxDF = 1.0
	return cfg
}

func oauthPages() []types.Document {
	return []types.Document{
		&types.ConfluencePage{
			ID:      "101",
			Title:   "OAuth Setup Guide",
			Excerpt: "Step by step guide to setup OAuth client credentials and redirect URIs for the identity provider.",
		},
		&types.ConfluencePage{
			ID:      "102",
			Title:   "OAuth Token Refresh",
			Excerpt: "How access tokens are refreshed before expiry and how refresh failures surface to callers.",
		},
		&types.ConfluencePage{
			ID:      "103",
			Title:   "OAuth Scopes Reference",
			Excerpt: "Reference table of every scope the platform grants and which APIs require each scope.",
		},
	}
}

func loginIssues() []types.Document {
	return []types.Document{
		&types.JiraIssue{Key: "PROJ-1", Summary: "OAuth login fails", Description: "OAuth login fails with callback error", Priority: "High", Updated: fixedNow.AddDate(0, 0, -2)},
		&types.JiraIssue{Key: "PROJ-2", Summary: "OAuth login timeout", Description: "OAuth login times out on callback", Priority: "Low", Updated: fixedNow.AddDate(0, 0, -40)},
		&types.JiraIssue{Key: "PROJ-3", Summary: "Database migration stalls", Description: "Orders table migration never completes", Updated: fixedNow.AddDate(-2, 0, 0)},
	}
}

func build(t *testing.T, st types.SourceType, docs []types.Document) *index.Index {
	t.Helper()
	ix, err := index.Build(context.Background(), st, docs, smallCorpusConfig())
	require.NoError(t, err)
	return ix
}

func newSearcher(t *testing.T, ix Indexes) *Searcher {
	t.Helper()
	s, err := New(ix, types.DefaultSearchConfig(),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return s
}

// --- construction ---

func TestNew_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := types.DefaultSearchConfig()
	cfg.Weights.Keyword = 0.5
	_, err := New(staticIndexes{}, cfg)
	assert.Error(t, err)
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, types.DefaultSearchConfig().Weights.Sum(), 1e-9)
}

// --- search ---

func TestSearch_SetupGuideRanksFirst(t *testing.T) {
	s := newSearcher(t, staticIndexes{types.SourceConfluence: build(t, types.SourceConfluence, oauthPages())})

	results, err := s.Search(context.Background(), "oauth setup guide", nil, 20, 0.1)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "confluence:101", top.ID)
	assert.Equal(t, "OAuth Setup Guide", top.Title)
	assert.Greater(t, top.CombinedScore, 0.5)
	assert.InDelta(t, 1.0, top.KeywordScore, 1e-9)
}

func TestSearch_MissingIndexYieldsEmptyResults(t *testing.T) {
	reg, err := index.NewRegistry(smallCorpusConfig())
	require.NoError(t, err)
	defer reg.Release()

	assert.False(t, reg.Rebuild(context.Background(), types.SourceConfluence, nil))

	s := newSearcher(t, reg)
	results, err := s.Search(context.Background(), "oauth", []types.SourceType{types.SourceConfluence}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_NoTimestampIsNeutralFreshness(t *testing.T) {
	s := newSearcher(t, staticIndexes{types.SourceConfluence: build(t, types.SourceConfluence, oauthPages())})

	results, err := s.Search(context.Background(), "oauth", nil, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, 0.5, r.FreshnessScore, r.ID)
	}
}

func TestSearch_ScoresBoundedAndOrdered(t *testing.T) {
	s := newSearcher(t, staticIndexes{
		types.SourceConfluence: build(t, types.SourceConfluence, oauthPages()),
		types.SourceJira:       build(t, types.SourceJira, loginIssues()),
	})

	results, err := s.Search(context.Background(), "oauth login callback error", nil, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i, r := range results {
		for _, v := range []float64{r.SemanticScore, r.KeywordScore, r.FreshnessScore, r.PopularityScore, r.CombinedScore} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].CombinedScore, r.CombinedScore)
		}
	}
}

func TestSearch_Deterministic(t *testing.T) {
	s := newSearcher(t, staticIndexes{
		types.SourceConfluence: build(t, types.SourceConfluence, oauthPages()),
		types.SourceJira:       build(t, types.SourceJira, loginIssues()),
	})
	ctx := context.Background()

	first, err := s.Search(ctx, "oauth login", nil, 10, 0)
	require.NoError(t, err)
	second, err := s.Search(ctx, "oauth login", nil, 10, 0)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestSearch_LimitAndMinScore(t *testing.T) {
	s := newSearcher(t, staticIndexes{
		types.SourceConfluence: build(t, types.SourceConfluence, oauthPages()),
		types.SourceJira:       build(t, types.SourceJira, loginIssues()),
	})
	ctx := context.Background()

	results, err := s.Search(ctx, "oauth", nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search(ctx, "oauth", nil, 10, 0.99)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RestrictsSources(t *testing.T) {
	s := newSearcher(t, staticIndexes{
		types.SourceConfluence: build(t, types.SourceConfluence, oauthPages()),
		types.SourceJira:       build(t, types.SourceJira, loginIssues()),
	})

	results, err := s.Search(context.Background(), "oauth", []types.SourceType{types.SourceJira}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, types.SourceJira, r.SourceType)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	s := newSearcher(t, staticIndexes{types.SourceConfluence: build(t, types.SourceConfluence, oauthPages())})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "oauth", nil, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- find similar ---

func TestFindSimilar(t *testing.T) {
	s := newSearcher(t, staticIndexes{types.SourceJira: build(t, types.SourceJira, loginIssues())})
	ctx := context.Background()

	results, err := s.FindSimilar(ctx, "jira:PROJ-1", types.SourceJira, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "jira:PROJ-2", results[0].ID)
	for _, r := range results {
		assert.NotEqual(t, "jira:PROJ-1", r.ID)
		assert.Greater(t, r.SemanticScore, 0.1)
		assert.Equal(t, r.SemanticScore, r.CombinedScore)
	}

	results, err = s.FindSimilar(ctx, "jira:NOPE-1", types.SourceJira, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.FindSimilar(ctx, "jira:PROJ-1", types.SourceCode, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --- formatting ---

func TestRescore_WithoutIndex(t *testing.T) {
	s := newSearcher(t, staticIndexes{})
	docs := loginIssues()
	got := s.Rescore("oauth login", []types.Document{docs[2], nil, docs[1], docs[0]})
	require.Len(t, got, 3)

	assert.Equal(t, "jira:PROJ-1", got[0].ID)
	assert.Equal(t, "jira:PROJ-2", got[1].ID)
	assert.Equal(t, "jira:PROJ-3", got[2].ID)

	top := got[0]
	assert.Equal(t, 0.0, top.SemanticScore)
	assert.Equal(t, 1.0, top.KeywordScore)
	assert.Equal(t, 1.0, top.FreshnessScore)
	assert.InDelta(t, 0.16, top.PopularityScore, 1e-9)
	assert.InDelta(t, 0.3+0.15+0.15*0.16, top.CombinedScore, 1e-9)

	assert.Empty(t, s.Rescore("oauth", nil))
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, &buf)
	assert.Equal(t, "No results found.\n", buf.String())

	buf.Reset()
	FormatTable([]types.ScoredResult{{Title: "OAuth Setup Guide", SourceType: types.SourceConfluence, CombinedScore: 0.61}}, &buf)
	assert.Contains(t, buf.String(), "OAuth Setup Guide")
	assert.Contains(t, buf.String(), "1 results")
}

func TestFormatJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(nil, &buf))
	assert.JSONEq(t, "[]", buf.String())
}
