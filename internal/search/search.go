// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the per-source semantic indexes and blends vector
// similarity with keyword, freshness and popularity signals into a single
// combined score per hit.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/relevance-engine/internal/index"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

// Indexes resolves the current index of a source type. A nil index means
// the source is unavailable.
type Indexes interface {
	Get(source types.SourceType) *index.Index
}

// Searcher runs semantic searches over a set of indexes.
type Searcher struct {
	indexes Indexes
	cfg     types.SearchConfig
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithClock sets the time source used for freshness scoring.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// New returns a Searcher. The configuration is validated here so that a bad
// weight table fails construction rather than skewing scores.
func New(indexes Indexes, cfg types.SearchConfig, opts ...Option) (*Searcher, error) {
	if indexes == nil {
		return nil, fmt.Errorf("search: indexes are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	s := &Searcher{
		indexes: indexes,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search scores query against each requested source's index and returns
// the merged hits sorted by combined score, keeping those at or above
// minScore, at most limit of them. A nil sources list means every source
// type; limit <= 0 selects the configured default. Sources without an
// index contribute nothing. The only error is cancellation of ctx.
func (s *Searcher) Search(ctx context.Context, query string, sources []types.SourceType, limit int, minScore float64) ([]types.ScoredResult, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	minScore = clamp(minScore)
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var all []types.ScoredResult
	for _, st := range uniqueSources(sources) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ix := s.indexes.Get(st)
		if ix == nil {
			s.logger.Debug("no index for source", "source", st)
			continue
		}
		all = append(all, s.searchIndex(ix, query, 2*limit)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CombinedScore > all[j].CombinedScore
	})

	kept := all[:0]
	for _, r := range all {
		if r.CombinedScore >= minScore {
			kept = append(kept, r)
		}
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}

	s.logger.Debug("search completed", "query", query, "candidates", len(all), "results", len(kept))
	return kept, nil
}

// searchIndex returns up to fetch candidates from one index, each fully
// scored.
func (s *Searcher) searchIndex(ix *index.Index, query string, fetch int) []types.ScoredResult {
	sims := ix.Similarities(ix.EmbedQuery(query))
	now := s.now()

	var out []types.ScoredResult
	for _, pos := range topPositions(sims, fetch, 0) {
		doc := ix.Document(pos)
		r := newResult(doc)
		r.SemanticScore = clamp(sims[pos])
		r.KeywordScore = KeywordScore(query, r.Content)
		r.FreshnessScore = FreshnessScore(doc.Timestamp(), now)
		r.PopularityScore = PopularityScore(doc)
		r.CombinedScore = s.combine(r)
		out = append(out, r)
	}
	return out
}

// FindSimilar returns up to limit documents of the same index whose cosine
// similarity to the given document exceeds the configured floor. The
// document itself is excluded; the combined score equals the similarity.
func (s *Searcher) FindSimilar(ctx context.Context, documentID string, source types.SourceType, limit int) ([]types.ScoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	ix := s.indexes.Get(source)
	if ix == nil {
		return nil, nil
	}
	emb, ok := ix.Embedding(documentID)
	if !ok {
		return nil, nil
	}

	sims := ix.Similarities(emb)
	var out []types.ScoredResult
	for _, pos := range topPositions(sims, len(sims), s.cfg.SimilarFloor) {
		doc := ix.Document(pos)
		if doc.DocumentID() == documentID {
			continue
		}
		r := newResult(doc)
		r.SemanticScore = clamp(sims[pos])
		r.CombinedScore = r.SemanticScore
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Rescore scores documents fetched elsewhere with the keyword, freshness
// and popularity signals alone. No index is consulted, so the semantic
// score stays 0. Results are sorted by combined score; nil documents are
// skipped.
func (s *Searcher) Rescore(query string, docs []types.Document) []types.ScoredResult {
	now := s.now()
	out := make([]types.ScoredResult, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		r := newResult(doc)
		r.KeywordScore = KeywordScore(query, r.Content)
		r.FreshnessScore = FreshnessScore(doc.Timestamp(), now)
		r.PopularityScore = PopularityScore(doc)
		r.CombinedScore = s.combine(r)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	return out
}

func (s *Searcher) combine(r types.ScoredResult) float64 {
	w := s.cfg.Weights
	return clamp(w.Semantic*r.SemanticScore +
		w.Keyword*r.KeywordScore +
		w.Freshness*r.FreshnessScore +
		w.Popularity*r.PopularityScore)
}

func newResult(doc types.Document) types.ScoredResult {
	return types.ScoredResult{
		ID:         doc.DocumentID(),
		Content:    doc.SearchableText(),
		SourceType: doc.Kind(),
		Title:      doc.DisplayTitle(),
		URL:        doc.Link(),
		Metadata:   doc.Metadata(),
	}
}

// topPositions returns positions whose similarity exceeds floor, highest
// first, at most n of them. Ties keep document order.
func topPositions(sims []float64, n int, floor float64) []int {
	pos := make([]int, 0, len(sims))
	for i, v := range sims {
		if v > floor {
			pos = append(pos, i)
		}
	}
	sort.SliceStable(pos, func(a, b int) bool { return sims[pos[a]] > sims[pos[b]] })
	if len(pos) > n {
		pos = pos[:n]
	}
	return pos
}

func uniqueSources(sources []types.SourceType) []types.SourceType {
	if len(sources) == 0 {
		return types.SourceTypes
	}
	seen := make(map[types.SourceType]bool, len(sources))
	var out []types.SourceType
	for _, st := range sources {
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(1.0, v)
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(results []types.ScoredResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-10s  %-6s  %-6s  %-6s  %-6s  %-6s\n",
		"Rank", "Title", "Source", "Score", "Sem", "Kw", "Fresh", "Pop")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-50s  %-10s  %-6.3f  %-6.3f  %-6.3f  %-6.3f  %-6.3f\n",
			i+1, truncate(r.Title, 50), r.SourceType, r.CombinedScore,
			r.SemanticScore, r.KeywordScore, r.FreshnessScore, r.PopularityScore)
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(results []types.ScoredResult, w io.Writer) error {
	if results == nil {
		results = []types.ScoredResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
