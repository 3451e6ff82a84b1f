// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores already-fetched results with a weighted composite of
// named factors and explains each score.
package rank

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// NeutralScore is assigned to an item whose scoring failed.
const NeutralScore = 0.5

// factorOrder fixes the summation order of the composite so that results
// do not depend on map iteration.
var factorOrder = []types.Factor{
	types.FactorContentRelevance,
	types.FactorRecency,
	types.FactorCrossSourceCorrelation,
	types.FactorTeamRelevance,
	types.FactorQualityIndicators,
	types.FactorInteractionHistory,
	types.FactorPriorityBoost,
	types.FactorStatusRelevance,
	types.FactorMatchDensity,
	types.FactorFileImportance,
}

// Ranker computes composite ranking scores.
type Ranker struct {
	weights       map[types.Factor]float64
	defaultWeight float64
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithClock sets the time source used for recency.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		r.now = now
		return nil
	}
}

// New returns a Ranker using the weight table in cfg, which is validated.
func New(cfg types.RankingConfig, opts ...Option) (*Ranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}
	weights := make(map[types.Factor]float64, len(cfg.Weights))
	for f, w := range cfg.Weights {
		weights[f] = w
	}
	r := &Ranker{
		weights:       weights,
		defaultWeight: cfg.DefaultWeight,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Weight returns the composite weight of f, falling back to the default
// weight for factors missing from the table.
func (r *Ranker) Weight(f types.Factor) float64 {
	if w, ok := r.weights[f]; ok {
		return w
	}
	return r.defaultWeight
}

// Rank scores every source's documents independently and returns each
// list sorted by score, highest first.
func (r *Ranker) Rank(results map[types.SourceType][]types.Document, query string, user types.UserContext) map[types.SourceType][]types.RankedItem {
	now := r.now()
	out := make(map[types.SourceType][]types.RankedItem, len(results))
	for _, st := range types.SourceTypes {
		docs, ok := results[st]
		if !ok {
			continue
		}
		out[st] = r.rankSource(st, docs, query, user, now)
	}
	return out
}

// RankSource scores one source's documents and sorts them.
func (r *Ranker) RankSource(source types.SourceType, docs []types.Document, query string, user types.UserContext) []types.RankedItem {
	return r.rankSource(source, docs, query, user, r.now())
}

func (r *Ranker) rankSource(source types.SourceType, docs []types.Document, query string, user types.UserContext, now time.Time) []types.RankedItem {
	items := make([]types.RankedItem, len(docs))
	for i, doc := range docs {
		items[i] = r.scoreItem(source, doc, query, user, now)
	}
	SortItems(items)
	return items
}

// scoreItem never fails: a panic, a NaN or a missing document leaves the
// item in place with NeutralScore.
func (r *Ranker) scoreItem(source types.SourceType, doc types.Document, query string, user types.UserContext, now time.Time) (item types.RankedItem) {
	item.Document = doc
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("ranking item failed", "source", source, "panic", p)
			item = types.RankedItem{Document: doc, Score: NeutralScore}
		}
	}()

	if doc == nil {
		r.logger.Warn("ranking item failed", "source", source, "error", "nil document")
		item.Score = NeutralScore
		return item
	}

	breakdown := Factors(doc, query, user, now)
	score, err := r.composite(breakdown)
	if err != nil {
		r.logger.Warn("ranking item failed", "source", source, "id", doc.DocumentID(), "error", err)
		item.Score = NeutralScore
		return item
	}

	item.Score = score
	item.Breakdown = breakdown
	item.Explanations = Explain(breakdown, doc.Kind())
	return item
}

// Factors computes every factor that applies to doc.
func Factors(doc types.Document, query string, user types.UserContext, now time.Time) map[types.Factor]float64 {
	f := map[types.Factor]float64{
		types.FactorContentRelevance:  ContentRelevance(doc, query),
		types.FactorRecency:           Recency(doc.Timestamp(), now),
		types.FactorTeamRelevance:     TeamRelevance(doc, user),
		types.FactorQualityIndicators: QualityIndicators(doc),
	}
	switch d := doc.(type) {
	case *types.JiraIssue:
		f[types.FactorPriorityBoost] = PriorityBoost(d)
		f[types.FactorStatusRelevance] = StatusRelevance(d, query)
	case *types.CodeFile:
		f[types.FactorMatchDensity] = MatchDensity(d)
		f[types.FactorFileImportance] = FileImportance(d)
	}
	return f
}

func (r *Ranker) composite(breakdown map[types.Factor]float64) (float64, error) {
	var sum float64
	for _, f := range factorOrder {
		v, ok := breakdown[f]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("factor %s is %v", f, v)
		}
		sum += v * r.Weight(f)
	}
	return clamp(sum), nil
}

// SortItems orders items by score, highest first. Equal scores keep their
// relative order.
func SortItems(items []types.RankedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

// Explain turns a factor breakdown into human-readable reasons.
func Explain(scores map[types.Factor]float64, source types.SourceType) []string {
	var out []string

	switch c := scores[types.FactorContentRelevance]; {
	case c > 0.8:
		out = append(out, "Excellent keyword match")
	case c > 0.6:
		out = append(out, "Good keyword match")
	case c > 0.4:
		out = append(out, "Partial keyword match")
	default:
		out = append(out, "Limited keyword match")
	}

	switch rec := scores[types.FactorRecency]; {
	case rec > 0.9:
		out = append(out, "Very recent content")
	case rec > 0.7:
		out = append(out, "Recent content")
	case rec > 0.5:
		out = append(out, "Moderately recent content")
	default:
		out = append(out, "Older content")
	}

	switch q := scores[types.FactorQualityIndicators]; {
	case q > 0.7:
		out = append(out, "High quality indicators")
	case q > 0.5:
		out = append(out, "Good quality indicators")
	}

	switch source {
	case types.SourceJira:
		if scores[types.FactorPriorityBoost] > 0.15 {
			out = append(out, "High priority issue")
		}
	case types.SourceCode:
		if scores[types.FactorMatchDensity] > 0.1 {
			out = append(out, "Multiple matches in file")
		}
		if scores[types.FactorFileImportance] > 0.1 {
			out = append(out, "Important file type")
		}
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1.0, v))
}
