// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs the ranking path over an already-fetched result set:
// rank each source, correlate across sources, apply correlation boosts and
// summarise the outcome.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/relevance-engine/internal/correlate"
	"github.com/pdiddy/relevance-engine/internal/insights"
	"github.com/pdiddy/relevance-engine/internal/rank"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

// Output is the ranked and correlated result set.
type Output struct {
	Query             string                                  `json:"query" yaml:"query"`
	Sources           map[types.SourceType][]types.RankedItem `json:"sources" yaml:"sources"`
	CrossCorrelations types.CorrelationReport                 `json:"cross_correlations" yaml:"cross_correlations"`
	RankingInsights   types.RankingInsights                   `json:"ranking_insights" yaml:"ranking_insights"`
}

// Engine owns a ranker and a correlator built from one configuration.
type Engine struct {
	ranker     *rank.Ranker
	correlator *correlate.Correlator
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger, shared with the ranker and correlator.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithClock sets the time source used for recency scoring.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		e.now = now
		return nil
	}
}

// New validates cfg as a whole and builds the ranking components.
func New(cfg types.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	ranker, err := rank.New(cfg.Ranking, rank.WithLogger(e.logger), rank.WithClock(e.now))
	if err != nil {
		return nil, err
	}

	corrOpts := []correlate.Option{correlate.WithLogger(e.logger)}
	if cfg.Workers > 0 {
		corrOpts = append(corrOpts, correlate.WithPoolSize(cfg.Workers))
	}
	correlator, err := correlate.New(cfg.Correlation, corrOpts...)
	if err != nil {
		return nil, err
	}

	e.ranker = ranker
	e.correlator = correlator
	return e, nil
}

// Close releases the correlator's worker pool.
func (e *Engine) Close() {
	e.correlator.Release()
}

// Rank scores every source in rs, detects cross-source correlations, boosts
// correlated items and reports insights. An empty query falls back to
// rs.Query.
func (e *Engine) Rank(ctx context.Context, rs types.ResultSet, query string, user types.UserContext) (*Output, error) {
	if query == "" {
		query = rs.Query
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ranked := e.ranker.Rank(rs.Sources, query, user)

	report, err := e.correlator.Correlate(ctx, ranked)
	if err != nil {
		return nil, fmt.Errorf("correlating results: %w", err)
	}
	e.correlator.ApplyBoosts(ranked, report)

	out := &Output{
		Query:             query,
		Sources:           ranked,
		CrossCorrelations: report,
		RankingInsights:   insights.Report(ranked, report),
	}
	e.logger.Info("ranking completed",
		"results", out.RankingInsights.TotalResults,
		"correlations", out.RankingInsights.CorrelationCount,
		"elapsed", time.Since(start))
	return out, nil
}
