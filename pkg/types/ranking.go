// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Factor names one component of a ranked item's composite score.
type Factor string

const (
	FactorContentRelevance       Factor = "content_relevance"
	FactorRecency                Factor = "recency"
	FactorCrossSourceCorrelation Factor = "cross_source_correlation"
	FactorTeamRelevance          Factor = "team_relevance"
	FactorQualityIndicators      Factor = "quality_indicators"
	FactorInteractionHistory     Factor = "interaction_history"

	// Source-specific extras. These are absent from the default weight
	// table and contribute with DefaultFactorWeight.
	FactorPriorityBoost   Factor = "priority_boost"
	FactorStatusRelevance Factor = "status_relevance"
	FactorMatchDensity    Factor = "match_density"
	FactorFileImportance  Factor = "file_importance"
)

// DefaultFactorWeight is the weight of any factor missing from the
// ranking weight table.
const DefaultFactorWeight = 0.05

// BaseFactors are the factors every weight table must carry.
var BaseFactors = []Factor{
	FactorContentRelevance,
	FactorRecency,
	FactorCrossSourceCorrelation,
	FactorTeamRelevance,
	FactorQualityIndicators,
	FactorInteractionHistory,
}

// UserContext describes the caller for team relevance scoring. The zero
// value means no context.
type UserContext struct {
	Username     string   `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	TeamKeywords []string `json:"team_keywords,omitempty" yaml:"team_keywords,omitempty" mapstructure:"team_keywords"`
	Projects     []string `json:"projects,omitempty" yaml:"projects,omitempty" mapstructure:"projects"`
	Spaces       []string `json:"spaces,omitempty" yaml:"spaces,omitempty" mapstructure:"spaces"`
}

// IsZero reports whether no context was supplied.
func (u UserContext) IsZero() bool {
	return u.Username == "" && len(u.TeamKeywords) == 0 && len(u.Projects) == 0 && len(u.Spaces) == 0
}

// ResultSet holds already-fetched documents keyed by source type, together
// with the query that produced them.
type ResultSet struct {
	Query   string
	Sources map[SourceType][]Document
}

// Len returns the total number of documents across sources.
func (rs ResultSet) Len() int {
	n := 0
	for _, docs := range rs.Sources {
		n += len(docs)
	}
	return n
}

// RankedItem is a fetched document with its ranking attached.
type RankedItem struct {
	Document Document

	// Score is the composite ranking score in [0, 1], including any
	// correlation boost.
	Score     float64
	Breakdown map[Factor]float64
	// Explanations are human-readable reasons in fixed factor order.
	Explanations []string
	// CorrelationBoost is the total boost added by cross-source
	// correlations; zero when the item took part in none.
	CorrelationBoost float64
}

// MarshalJSON renders the document's own fields with the ranking fields
// added alongside them.
func (r RankedItem) MarshalJSON() ([]byte, error) {
	fields, err := r.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// MarshalYAML renders the same flattened view as MarshalJSON.
func (r RankedItem) MarshalYAML() (any, error) {
	return r.fields()
}

func (r RankedItem) fields() (map[string]any, error) {
	fields := map[string]any{}
	if r.Document != nil {
		raw, err := json.Marshal(r.Document)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", r.Document.DocumentID(), err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("flattening %s: %w", r.Document.DocumentID(), err)
		}
		fields["id"] = r.Document.DocumentID()
		fields["source_type"] = r.Document.Kind()
	}
	fields["ranking_score"] = r.Score
	fields["ranking_breakdown"] = r.Breakdown
	fields["ranking_factors"] = r.Explanations
	if r.CorrelationBoost > 0 {
		fields["correlation_boost"] = r.CorrelationBoost
	}
	return fields, nil
}

// Correlation links two ranked items from different sources.
type Correlation struct {
	SourceA  SourceType `json:"source_a" yaml:"source_a"`
	IDA      string     `json:"id_a" yaml:"id_a"`
	SourceB  SourceType `json:"source_b" yaml:"source_b"`
	IDB      string     `json:"id_b" yaml:"id_b"`
	Strength float64    `json:"strength" yaml:"strength"`
	Factors  []string   `json:"factors" yaml:"factors"`
	Strong   bool       `json:"strong" yaml:"strong"`
}

// Pair returns the ordered source pair of the correlation.
func (c Correlation) Pair() SourcePair { return SourcePair{A: c.SourceA, B: c.SourceB} }

func (c Correlation) String() string {
	return fmt.Sprintf("%s <-> %s (%.3f) %s", c.IDA, c.IDB, c.Strength, strings.Join(c.Factors, "; "))
}

// CorrelationReport is the correlator's output for one result set.
type CorrelationReport struct {
	// Pairs holds correlations per pair key in CorrelationPairs order.
	Pairs map[string][]Correlation `json:"pairs" yaml:"pairs"`

	// Strong lists correlations flagged strong, in pair order.
	Strong []Correlation `json:"strong_correlations" yaml:"strong_correlations"`

	// Insights are human-readable summaries of the correlations found.
	Insights []string `json:"correlation_insights" yaml:"correlation_insights"`
}

// All returns every correlation in canonical pair order.
func (r CorrelationReport) All() []Correlation {
	var all []Correlation
	for _, p := range CorrelationPairs {
		all = append(all, r.Pairs[p.Key()]...)
	}
	return all
}

// RankingInsights summarises a ranked and correlated result set.
type RankingInsights struct {
	TotalResults int `json:"total_results" yaml:"total_results"`

	// FactorAverages maps each factor seen to its mean across all items,
	// rounded to three decimals.
	FactorAverages map[Factor]float64 `json:"factor_averages" yaml:"factor_averages"`

	TopFactors             []string `json:"top_factors" yaml:"top_factors"`
	CorrelationCount       int      `json:"correlation_count" yaml:"correlation_count"`
	StrongCorrelationCount int      `json:"strong_correlation_count" yaml:"strong_correlation_count"`
	CorrelationSummary     []string `json:"correlation_summary" yaml:"correlation_summary"`
	Recommendations        []string `json:"recommendations" yaml:"recommendations"`
}
