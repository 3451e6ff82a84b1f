// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insights aggregates a ranked, correlated result set into summary
// statistics and recommendations.
package insights

import (
	"math"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

const (
	topFactorThreshold  = 0.7
	weakContentAverage  = 0.5
	staleRecencyAverage = 0.4
	strongCountToReport = 3
)

// Report computes RankingInsights over every ranked item. Factor averages
// divide by the total item count, so an item without a breakdown counts
// as zero for every factor.
func Report(ranked map[types.SourceType][]types.RankedItem, corr types.CorrelationReport) types.RankingInsights {
	out := types.RankingInsights{
		FactorAverages:         map[types.Factor]float64{},
		CorrelationCount:       len(corr.All()),
		StrongCorrelationCount: len(corr.Strong),
		CorrelationSummary:     corr.Insights,
	}

	sums := map[types.Factor]float64{}
	for _, st := range types.SourceTypes {
		for _, item := range ranked[st] {
			out.TotalResults++
			for f, v := range item.Breakdown {
				sums[f] += v
			}
		}
	}
	if out.TotalResults == 0 {
		return out
	}

	n := float64(out.TotalResults)
	avg := func(f types.Factor) float64 { return sums[f] / n }
	for f := range sums {
		out.FactorAverages[f] = round3(avg(f))
	}

	content := avg(types.FactorContentRelevance)
	recency := avg(types.FactorRecency)
	quality := avg(types.FactorQualityIndicators)

	if content > topFactorThreshold {
		out.TopFactors = append(out.TopFactors, "High content relevance")
	}
	if recency > topFactorThreshold {
		out.TopFactors = append(out.TopFactors, "Recent content")
	}
	if quality > topFactorThreshold {
		out.TopFactors = append(out.TopFactors, "High quality indicators")
	}

	if content < weakContentAverage {
		out.Recommendations = append(out.Recommendations, "Consider refining search terms for better content matching")
	}
	if recency < staleRecencyAverage {
		out.Recommendations = append(out.Recommendations, "Results are mostly older content - consider updating documentation")
	}
	if len(corr.Strong) > strongCountToReport {
		out.Recommendations = append(out.Recommendations, "Strong cross-source correlations found - check related items")
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
