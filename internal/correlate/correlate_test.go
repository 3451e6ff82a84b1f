// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package correlate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

var today = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newCorrelator(t *testing.T) *Correlator {
	t.Helper()
	c, err := New(types.DefaultCorrelationConfig(),
		WithPoolSize(2),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func loginBug() *types.JiraIssue {
	return &types.JiraIssue{
		Key:         "PROJ-55",
		Summary:     "fix OAuth login bug",
		Description: "Users hit an authentication error on OAuth login. Fix the token refresh in OAuthHandler.",
		Updated:     today,
	}
}

func oauthHandler() *types.CodeFile {
	return &types.CodeFile{
		Path:           "src/auth/OAuthHandler.java",
		ContentPreview: "// PROJ-55: fix OAuth login bug, authentication error on token refresh\npublic class OAuthHandler { void refresh() {} }",
		Modified:       today.Add(-2 * time.Hour),
	}
}

func item(doc types.Document, score float64) types.RankedItem {
	return types.RankedItem{Document: doc, Score: score}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := types.DefaultCorrelationConfig()
	cfg.Thresholds[types.PairKey(types.SourceJira, types.SourceCode)] = 1.2
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestCorrelate_IssueReferencedInCode(t *testing.T) {
	c := newCorrelator(t)
	ranked := map[types.SourceType][]types.RankedItem{
		types.SourceJira: {item(loginBug(), 0.6)},
		types.SourceCode: {item(oauthHandler(), 0.5)},
	}

	report, err := c.Correlate(context.Background(), ranked)
	require.NoError(t, err)

	got := report.Pairs[types.PairKey(types.SourceJira, types.SourceCode)]
	require.Len(t, got, 1)
	corr := got[0]
	assert.Equal(t, "jira:PROJ-55", corr.IDA)
	assert.Equal(t, "code:src/auth/OAuthHandler.java", corr.IDB)
	assert.GreaterOrEqual(t, corr.Strength, 0.5)
	assert.InDelta(t, 0.6*9.0/16.0+0.3*0.3+0.1, corr.Strength, 1e-9)
	assert.False(t, corr.Strong)
	assert.Contains(t, corr.Factors, "JIRA key referenced in code")
	assert.Contains(t, corr.Factors, "Similar timeframe")
	assert.Contains(t, corr.Factors, "Common technical terms: authentication, bug, error")

	assert.Equal(t, []string{"Found 1 cross-source correlations", "1 issue-code correlations"}, report.Insights)
}

func TestStrength_UnrelatedPairStaysBelowThresholds(t *testing.T) {
	page := &types.ConfluencePage{ID: "1", Title: "Quarterly hiring plan", Excerpt: "Headcount targets for marketing", LastModified: today.AddDate(-1, 0, 0)}
	issue := &types.JiraIssue{Key: "OPS-9", Summary: "Rotate kafka certificates", Updated: today}

	s := Strength(page, issue)
	assert.LessOrEqual(t, s, 0.08)
	assert.InDelta(t, 0.02, s, 1e-9)

	c := newCorrelator(t)
	report, err := c.Correlate(context.Background(), map[types.SourceType][]types.RankedItem{
		types.SourceConfluence: {item(page, 0.5)},
		types.SourceJira:       {item(issue, 0.5)},
	})
	require.NoError(t, err)
	assert.Empty(t, report.All())
	assert.Empty(t, report.Insights)
}

func TestCorrelate_EveryPairListed(t *testing.T) {
	c := newCorrelator(t)
	report, err := c.Correlate(context.Background(), map[types.SourceType][]types.RankedItem{
		types.SourceJira: {item(loginBug(), 0.6)},
	})
	require.NoError(t, err)
	require.Len(t, report.Pairs, len(types.CorrelationPairs))
	for _, pair := range types.CorrelationPairs {
		got, ok := report.Pairs[pair.Key()]
		assert.True(t, ok, pair.Key())
		assert.NotNil(t, got, pair.Key())
		assert.Empty(t, got, pair.Key())
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestCorrelate_TopKBoundsComparisons(t *testing.T) {
	cfg := types.DefaultCorrelationConfig()
	cfg.TopK[types.SourceCode] = 1
	c, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer c.Release()

	unrelated := &types.CodeFile{Path: "docs/changelog.md", ContentPreview: "release notes"}
	report, err := c.Correlate(context.Background(), map[types.SourceType][]types.RankedItem{
		types.SourceJira: {item(loginBug(), 0.6)},
		types.SourceCode: {item(unrelated, 0.9), item(oauthHandler(), 0.5)},
	})
	require.NoError(t, err)
	assert.Empty(t, report.All())
}

func TestCorrelate_SkipsNilDocuments(t *testing.T) {
	c := newCorrelator(t)
	report, err := c.Correlate(context.Background(), map[types.SourceType][]types.RankedItem{
		types.SourceJira: {{Score: 0.5}, item(loginBug(), 0.6)},
		types.SourceCode: {item(oauthHandler(), 0.5), {Score: 0.5}},
	})
	require.NoError(t, err)
	assert.Len(t, report.All(), 1)
}

func TestCorrelate_Cancelled(t *testing.T) {
	c := newCorrelator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Correlate(ctx, map[types.SourceType][]types.RankedItem{
		types.SourceJira: {item(loginBug(), 0.6)},
		types.SourceCode: {item(oauthHandler(), 0.5)},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyBoosts_AdditiveAndClamped(t *testing.T) {
	c := newCorrelator(t)
	issue := loginBug()
	file := oauthHandler()
	other := &types.CodeFile{Path: "src/auth/TokenStore.java"}

	ranked := map[types.SourceType][]types.RankedItem{
		types.SourceJira: {item(issue, 0.95)},
		types.SourceCode: {item(other, 0.4), item(file, 0.3)},
	}
	report := types.CorrelationReport{Pairs: map[string][]types.Correlation{
		types.PairKey(types.SourceJira, types.SourceCode): {
			{SourceA: types.SourceJira, IDA: issue.DocumentID(), SourceB: types.SourceCode, IDB: file.DocumentID(), Strength: 1.0},
			{SourceA: types.SourceJira, IDA: issue.DocumentID(), SourceB: types.SourceCode, IDB: other.DocumentID(), Strength: 0.6},
		},
	}}

	c.ApplyBoosts(ranked, report)

	// 0.95 + 0.1 + 0.06 exceeds one.
	jira := ranked[types.SourceJira][0]
	assert.Equal(t, 1.0, jira.Score)
	assert.InDelta(t, 0.16, jira.CorrelationBoost, 1e-9)

	code := ranked[types.SourceCode]
	require.Len(t, code, 2)
	assert.Equal(t, "code:src/auth/TokenStore.java", code[0].Document.DocumentID())
	assert.InDelta(t, 0.46, code[0].Score, 1e-9)
	assert.InDelta(t, 0.06, code[0].CorrelationBoost, 1e-9)
	assert.Equal(t, "code:src/auth/OAuthHandler.java", code[1].Document.DocumentID())
	assert.InDelta(t, 0.4, code[1].Score, 1e-9)
	assert.InDelta(t, 0.1, code[1].CorrelationBoost, 1e-9)
}

func TestDateProximity(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 1.0}, {1, 1.0}, {5, 0.8}, {20, 0.6}, {60, 0.4}, {400, 0.2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateProximity(today, today.AddDate(0, 0, -tt.days)), "days=%d", tt.days)
		assert.Equal(t, tt.want, DateProximity(today.AddDate(0, 0, -tt.days), today), "days=%d reversed", tt.days)
	}
	assert.Equal(t, 0.0, DateProximity(time.Time{}, today))
}

func TestInsights_PairLabels(t *testing.T) {
	corr := types.Correlation{Strength: 0.8, Strong: true}
	r := types.CorrelationReport{
		Pairs: map[string][]types.Correlation{
			types.PairKey(types.SourceConfluence, types.SourceJira): {corr},
			types.PairKey(types.SourceConfluence, types.SourceCode): {corr, corr},
		},
		Strong: []types.Correlation{corr, corr, corr},
	}
	assert.Equal(t, []string{
		"Found 3 cross-source correlations",
		"3 strong correlations detected",
		"1 documentation-issue correlations",
		"2 documentation-code correlations",
	}, Insights(r))
}
