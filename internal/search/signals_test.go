// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"empty query", "", "anything", 0},
		{"no overlap", "oauth", "database migration", 0},
		{"exact match caps at one", "oauth setup", "OAuth setup guide", 1.0},
		{"substring only", "auth", "oauthhandler refresh", 0.5},
		{"half exact", "oauth kafka", "oauth login", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, KeywordScore(tt.query, tt.content), 1e-9)
		})
	}
}

func TestFreshnessScore_Steps(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		days int
		want float64
	}{
		{0, 1.0}, {7, 1.0}, {8, 0.8}, {30, 0.8}, {31, 0.6},
		{90, 0.6}, {91, 0.4}, {365, 0.4}, {366, 0.2}, {3000, 0.2},
	}
	for _, tt := range tests {
		got := FreshnessScore(now.AddDate(0, 0, -tt.days), now)
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}
	assert.Equal(t, 0.5, FreshnessScore(time.Time{}, now))
}

func TestFreshnessScore_Monotonic(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	prev := FreshnessScore(now, now)
	for d := 1; d <= 800; d++ {
		cur := FreshnessScore(now.AddDate(0, 0, -d), now)
		assert.LessOrEqual(t, cur, prev, "day %d", d)
		prev = cur
	}
}

func TestPopularityScore(t *testing.T) {
	tests := []struct {
		name string
		doc  types.Document
		want float64
	}{
		{"page", &types.ConfluencePage{ID: "1"}, 0},
		{"critical issue", &types.JiraIssue{Key: "A-1", Priority: "Critical"}, 0.2},
		{"unknown priority", &types.JiraIssue{Key: "A-2"}, 0.1},
		{"code sweet spot", &types.CodeFile{Path: "a.go", Size: 5000, Matches: []string{"x", "y"}}, 0.4},
		{"code many matches", &types.CodeFile{Path: "a.go", Size: 50, Matches: make([]string, 25)}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PopularityScore(tt.doc), 1e-9)
		})
	}
}
