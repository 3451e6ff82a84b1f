// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"math"
)

// weightTolerance bounds floating-point drift when checking that a weight
// table sums to one.
const weightTolerance = 1e-6

// IndexConfig holds settings for building per-source semantic indexes.
type IndexConfig struct {
	// MaxFeatures caps the vocabulary size (default 10000).
	MaxFeatures int `json:"max_features" yaml:"max_features" mapstructure:"max_features"`

	// NGramRange is the inclusive [min, max] n-gram span (default [1, 3]).
	NGramRange [2]int `json:"ngram_range" yaml:"ngram_range" mapstructure:"ngram_range"`

	// SVDComponents is both the vocabulary size above which dimensionality
	// reduction is applied and the target dimension (default 300).
	SVDComponents int `json:"svd_components" yaml:"svd_components" mapstructure:"svd_components"`

	// MinDF is the minimum number of documents a term must occur in (default 2).
	MinDF int `json:"min_df" yaml:"min_df" mapstructure:"min_df"`

	// MaxDF is the maximum proportion of documents a term may occur in (default 0.8).
	MaxDF float64 `json:"max_df" yaml:"max_df" mapstructure:"max_df"`

	// MinTextLength drops documents whose trimmed searchable text is not
	// longer than this many bytes (default 10).
	MinTextLength int `json:"min_text_length" yaml:"min_text_length" mapstructure:"min_text_length"`
}

// SearchWeights are the four combined-score weights of the semantic searcher.
type SearchWeights struct {
	Semantic   float64 `json:"semantic" yaml:"semantic" mapstructure:"semantic"`
	Keyword    float64 `json:"keyword" yaml:"keyword" mapstructure:"keyword"`
	Freshness  float64 `json:"freshness" yaml:"freshness" mapstructure:"freshness"`
	Popularity float64 `json:"popularity" yaml:"popularity" mapstructure:"popularity"`
}

// Sum returns the total of all four weights.
func (w SearchWeights) Sum() float64 {
	return w.Semantic + w.Keyword + w.Freshness + w.Popularity
}

// SearchConfig holds settings for the semantic search stage.
type SearchConfig struct {
	Weights SearchWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// Limit is the default maximum number of results (default 20).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// MinScore is the default minimum combined score (default 0.1).
	MinScore float64 `json:"min_score" yaml:"min_score" mapstructure:"min_score"`

	// SimilarFloor is the minimum cosine similarity for FindSimilar (default 0.1).
	SimilarFloor float64 `json:"similar_floor" yaml:"similar_floor" mapstructure:"similar_floor"`
}

// RankingConfig holds the factor weight table of the multi-factor ranker.
type RankingConfig struct {
	// Weights maps factor names to composite weights. The six base factors
	// must be present and sum to one.
	Weights map[Factor]float64 `json:"weights" yaml:"weights" mapstructure:"weights"`

	// DefaultWeight applies to factors missing from Weights, such as the
	// source-specific extras (default 0.05).
	DefaultWeight float64 `json:"default_weight" yaml:"default_weight" mapstructure:"default_weight"`
}

// CorrelationConfig holds settings for cross-source correlation.
type CorrelationConfig struct {
	// TopK bounds how many ranked items per source take part in pairwise
	// comparison (defaults confluence 10, jira 10, code 15).
	TopK map[SourceType]int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// Thresholds maps a pair key (see PairKey) to the strength a pair must
	// exceed to be recorded.
	Thresholds map[string]float64 `json:"thresholds" yaml:"thresholds" mapstructure:"thresholds"`

	// StrongThreshold flags correlations above it as strong (default 0.75).
	StrongThreshold float64 `json:"strong_threshold" yaml:"strong_threshold" mapstructure:"strong_threshold"`

	// BoostFactor scales correlation strength into a score boost (default 0.1).
	BoostFactor float64 `json:"boost_factor" yaml:"boost_factor" mapstructure:"boost_factor"`
}

// LogConfig selects the slog handler used by the CLI.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all engine settings.
type Config struct {
	Index       IndexConfig       `json:"index" yaml:"index" mapstructure:"index"`
	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	Ranking     RankingConfig     `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Correlation CorrelationConfig `json:"correlation" yaml:"correlation" mapstructure:"correlation"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`

	// DataDir is the base directory for persisted indexes (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Workers is the worker pool size for index builds and correlation.
	// Zero selects runtime.NumCPU()/2.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// PairKey names an ordered source pair, e.g. "confluence_jira".
func PairKey(a, b SourceType) string {
	return string(a) + "_" + string(b)
}

// SourcePair is an ordered pair of source types compared by the correlator.
type SourcePair struct {
	A, B SourceType
}

// Key returns the configuration key of the pair.
func (p SourcePair) Key() string { return PairKey(p.A, p.B) }

// CorrelationPairs lists the compared pairs in canonical order.
var CorrelationPairs = []SourcePair{
	{SourceConfluence, SourceJira},
	{SourceConfluence, SourceCode},
	{SourceJira, SourceCode},
}

// DefaultIndexConfig returns the default indexing settings.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		MaxFeatures:   10000,
		NGramRange:    [2]int{1, 3},
		SVDComponents: 300,
		MinDF:         2,
		MaxDF:         0.8,
		MinTextLength: 10,
	}
}

// DefaultSearchConfig returns the default search settings.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Weights: SearchWeights{
			Semantic:   0.4,
			Keyword:    0.3,
			Freshness:  0.15,
			Popularity: 0.15,
		},
		Limit:        20,
		MinScore:     0.1,
		SimilarFloor: 0.1,
	}
}

// DefaultRankingConfig returns the default factor weight table.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		Weights: map[Factor]float64{
			FactorContentRelevance:       0.35,
			FactorRecency:                0.20,
			FactorCrossSourceCorrelation: 0.15,
			FactorTeamRelevance:          0.15,
			FactorQualityIndicators:      0.10,
			FactorInteractionHistory:     0.05,
		},
		DefaultWeight: DefaultFactorWeight,
	}
}

// DefaultCorrelationConfig returns the default correlation settings.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		TopK: map[SourceType]int{
			SourceConfluence: 10,
			SourceJira:       10,
			SourceCode:       15,
		},
		Thresholds: map[string]float64{
			PairKey(SourceConfluence, SourceJira): 0.6,
			PairKey(SourceConfluence, SourceCode): 0.5,
			PairKey(SourceJira, SourceCode):       0.5,
		},
		StrongThreshold: 0.75,
		BoostFactor:     0.1,
	}
}

// DefaultConfig returns a complete configuration with every default applied.
func DefaultConfig() Config {
	return Config{
		Index:       DefaultIndexConfig(),
		Search:      DefaultSearchConfig(),
		Ranking:     DefaultRankingConfig(),
		Correlation: DefaultCorrelationConfig(),
		Log:         LogConfig{Level: "info", Format: "text"},
		DataDir:     "data",
	}
}

// Validate reports every problem with the index settings.
func (c IndexConfig) Validate() error {
	var errs []error
	if c.MaxFeatures <= 0 {
		errs = append(errs, fmt.Errorf("index.max_features must be positive, got %d", c.MaxFeatures))
	}
	if c.NGramRange[0] < 1 || c.NGramRange[1] < c.NGramRange[0] {
		errs = append(errs, fmt.Errorf("index.ngram_range must satisfy 1 <= min <= max, got %v", c.NGramRange))
	}
	if c.SVDComponents <= 0 {
		errs = append(errs, fmt.Errorf("index.svd_components must be positive, got %d", c.SVDComponents))
	}
	if c.MinDF < 1 {
		errs = append(errs, fmt.Errorf("index.min_df must be at least 1, got %d", c.MinDF))
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		errs = append(errs, fmt.Errorf("index.max_df must be in (0, 1], got %v", c.MaxDF))
	}
	if c.MinTextLength < 0 {
		errs = append(errs, fmt.Errorf("index.min_text_length must not be negative, got %d", c.MinTextLength))
	}
	return errors.Join(errs...)
}

// Validate reports every problem with the search settings.
func (c SearchConfig) Validate() error {
	var errs []error
	w := c.Weights
	for _, nv := range []struct {
		name string
		v    float64
	}{
		{"semantic", w.Semantic}, {"keyword", w.Keyword},
		{"freshness", w.Freshness}, {"popularity", w.Popularity},
	} {
		if !inUnit(nv.v) {
			errs = append(errs, fmt.Errorf("search.weights.%s must be in [0, 1], got %v", nv.name, nv.v))
		}
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("search.weights must sum to 1, got %v", w.Sum()))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("search.limit must not be negative, got %d", c.Limit))
	}
	if !inUnit(c.MinScore) {
		errs = append(errs, fmt.Errorf("search.min_score must be in [0, 1], got %v", c.MinScore))
	}
	if !inUnit(c.SimilarFloor) {
		errs = append(errs, fmt.Errorf("search.similar_floor must be in [0, 1], got %v", c.SimilarFloor))
	}
	return errors.Join(errs...)
}

// Validate reports every problem with the factor weight table. The base
// factors must all be present and sum to one.
func (c RankingConfig) Validate() error {
	var errs []error
	sum := 0.0
	for _, f := range BaseFactors {
		w, ok := c.Weights[f]
		if !ok {
			errs = append(errs, fmt.Errorf("ranking.weights is missing base factor %q", f))
			continue
		}
		sum += w
	}
	for f, w := range c.Weights {
		if !inUnit(w) {
			errs = append(errs, fmt.Errorf("ranking.weights.%s must be in [0, 1], got %v", f, w))
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("ranking.weights base factors must sum to 1, got %v", sum))
	}
	if !inUnit(c.DefaultWeight) {
		errs = append(errs, fmt.Errorf("ranking.default_weight must be in [0, 1], got %v", c.DefaultWeight))
	}
	return errors.Join(errs...)
}

// Validate reports every problem with the correlation settings.
func (c CorrelationConfig) Validate() error {
	var errs []error
	for _, st := range SourceTypes {
		if k, ok := c.TopK[st]; !ok || k < 0 {
			errs = append(errs, fmt.Errorf("correlation.top_k.%s must be set and not negative", st))
		}
	}
	for _, p := range CorrelationPairs {
		t, ok := c.Thresholds[p.Key()]
		if !ok {
			errs = append(errs, fmt.Errorf("correlation.thresholds is missing pair %q", p.Key()))
			continue
		}
		if !inUnit(t) {
			errs = append(errs, fmt.Errorf("correlation.thresholds.%s must be in [0, 1], got %v", p.Key(), t))
		}
	}
	if !inUnit(c.StrongThreshold) {
		errs = append(errs, fmt.Errorf("correlation.strong_threshold must be in [0, 1], got %v", c.StrongThreshold))
	}
	if !inUnit(c.BoostFactor) {
		errs = append(errs, fmt.Errorf("correlation.boost_factor must be in [0, 1], got %v", c.BoostFactor))
	}
	return errors.Join(errs...)
}

// Validate reports every problem across all sections.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	return errors.Join(
		c.Index.Validate(),
		c.Search.Validate(),
		c.Ranking.Validate(),
		c.Correlation.Validate(),
		errors.Join(errs...),
	)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}
