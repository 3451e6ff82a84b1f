// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ScoredResult is one hit returned by the semantic searcher. Every score is
// in [0, 1]; CombinedScore is the weighted sum of the four signals.
type ScoredResult struct {
	// ID is the document identifier, e.g. "code:src/auth/OAuthHandler.java".
	ID string `json:"id" yaml:"id"`

	// Content is the searchable text the document was indexed with.
	Content string `json:"content" yaml:"content"`

	SourceType SourceType     `json:"source_type" yaml:"source_type"`
	Title      string         `json:"title" yaml:"title"`
	URL        string         `json:"url,omitempty" yaml:"url,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	SemanticScore   float64 `json:"semantic_score" yaml:"semantic_score"`
	KeywordScore    float64 `json:"keyword_score" yaml:"keyword_score"`
	FreshnessScore  float64 `json:"freshness_score" yaml:"freshness_score"`
	PopularityScore float64 `json:"popularity_score" yaml:"popularity_score"`
	CombinedScore   float64 `json:"combined_score" yaml:"combined_score"`
}

// IndexStats describes one built index without exposing its matrices.
type IndexStats struct {
	SourceType     SourceType `json:"source_type" yaml:"source_type"`
	DocumentCount  int        `json:"document_count" yaml:"document_count"`
	VocabularySize int        `json:"vocabulary_size" yaml:"vocabulary_size"`
	// FeatureCount is the dimension of the document vectors: the number of
	// SVD components when reduced, else the vocabulary size.
	FeatureCount  int       `json:"feature_count" yaml:"feature_count"`
	HasSVD        bool      `json:"has_svd" yaml:"has_svd"`
	SVDComponents int       `json:"svd_components" yaml:"svd_components"`
	BuiltAt       time.Time `json:"built_at" yaml:"built_at"`
}
