// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package correlate detects related items across sources in a ranked result
// set and feeds a bounded boost back into their ranking scores.
package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/relevance-engine/internal/rank"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

// termPattern extracts terms of three or more word characters.
var termPattern = regexp.MustCompile(`\b\w{3,}\b`)

// techTerms is the fixed technical vocabulary whose shared occurrence hints
// that two items describe the same work.
var techTerms = []string{"api", "authentication", "bug", "config", "database", "deploy", "error", "feature"}

// Correlator compares the top items of each source pair.
type Correlator struct {
	cfg    types.CorrelationConfig
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Correlator.
type Option func(*Correlator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Correlator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of pair comparisons run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *Correlator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if c.pool != nil {
			c.pool.Release()
		}
		c.pool = pool
		return nil
	}
}

// New returns a Correlator with validated settings.
func New(cfg types.CorrelationConfig, opts ...Option) (*Correlator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid correlation config: %w", err)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &Correlator{cfg: cfg, pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Release()
			return nil, err
		}
	}
	return c, nil
}

// Release frees the worker pool.
func (c *Correlator) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// Correlate compares the top-K items of every source pair and reports the
// correlations whose strength exceeds the pair threshold. Each pair runs
// as its own task and writes only its own result slot.
func (c *Correlator) Correlate(ctx context.Context, ranked map[types.SourceType][]types.RankedItem) (types.CorrelationReport, error) {
	slots := make([][]types.Correlation, len(types.CorrelationPairs))

	var wg sync.WaitGroup
	for i, pair := range types.CorrelationPairs {
		a := c.top(ranked[pair.A], pair.A)
		b := c.top(ranked[pair.B], pair.B)
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			slots[i] = c.comparePair(ctx, pair, a, b)
		}
		if err := c.pool.Submit(task); err != nil {
			c.logger.Warn("correlation task not scheduled, running inline", "pair", pair.Key(), "error", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return types.CorrelationReport{}, err
	}

	report := types.CorrelationReport{
		Pairs:  make(map[string][]types.Correlation, len(slots)),
		Strong: []types.Correlation{},
	}
	for i, pair := range types.CorrelationPairs {
		if slots[i] == nil {
			slots[i] = []types.Correlation{}
		}
		report.Pairs[pair.Key()] = slots[i]
		for _, corr := range slots[i] {
			if corr.Strong {
				report.Strong = append(report.Strong, corr)
			}
		}
	}
	report.Insights = Insights(report)
	if report.Insights == nil {
		report.Insights = []string{}
	}
	return report, nil
}

func (c *Correlator) top(items []types.RankedItem, source types.SourceType) []types.RankedItem {
	k := c.cfg.TopK[source]
	if len(items) > k {
		items = items[:k]
	}
	return items
}

func (c *Correlator) comparePair(ctx context.Context, pair types.SourcePair, as, bs []types.RankedItem) []types.Correlation {
	threshold := c.cfg.Thresholds[pair.Key()]
	var out []types.Correlation
	for _, a := range as {
		if ctx.Err() != nil {
			return nil
		}
		if a.Document == nil {
			continue
		}
		for _, b := range bs {
			if b.Document == nil {
				continue
			}
			strength := Strength(a.Document, b.Document)
			if strength <= threshold {
				continue
			}
			out = append(out, types.Correlation{
				SourceA:  pair.A,
				IDA:      a.Document.DocumentID(),
				SourceB:  pair.B,
				IDB:      b.Document.DocumentID(),
				Strength: strength,
				Factors:  Factors(a.Document, b.Document),
				Strong:   strength > c.cfg.StrongThreshold,
			})
		}
	}
	return out
}

// ApplyBoosts adds BoostFactor × strength to both endpoints of every
// correlation, caps each ranking score at 1 and re-sorts every list. Boosts
// from several correlations on one item add up before capping. Runs after
// all comparisons finished, so no synchronization is needed.
func (c *Correlator) ApplyBoosts(ranked map[types.SourceType][]types.RankedItem, report types.CorrelationReport) {
	boosts := map[string]float64{}
	for _, corr := range report.All() {
		amount := corr.Strength * c.cfg.BoostFactor
		boosts[corr.IDA] += amount
		boosts[corr.IDB] += amount
	}
	if len(boosts) == 0 {
		return
	}

	for _, items := range ranked {
		for i := range items {
			if items[i].Document == nil {
				continue
			}
			b, ok := boosts[items[i].Document.DocumentID()]
			if !ok {
				continue
			}
			items[i].Score = math.Min(1.0, items[i].Score+b)
			items[i].CorrelationBoost = b
		}
		rank.SortItems(items)
	}
}

// Strength scores how strongly two documents are related:
// 0.6 × term overlap + 0.3 × indicators + 0.1 × date proximity, capped at 1.
func Strength(a, b types.Document) float64 {
	ta, tb := terms(a), terms(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := intersect(ta, tb)
	overlap := float64(len(common)) / float64(max(len(ta), len(tb)))

	var indicators float64
	for _, t := range techTerms {
		if common[t] {
			indicators += 0.1
		}
	}
	if keyInPath(a, b) {
		indicators += 0.2
	}

	return math.Min(1.0, 0.6*overlap+0.3*indicators+0.1*DateProximity(a.Timestamp(), b.Timestamp()))
}

// Factors lists the human-readable reasons two documents correlate.
func Factors(a, b types.Document) []string {
	common := intersect(terms(a), terms(b))
	var shared []string
	for _, t := range techTerms {
		if common[t] {
			shared = append(shared, t)
		}
	}

	var out []string
	if len(shared) > 0 {
		if len(shared) > 3 {
			shared = shared[:3]
		}
		out = append(out, "Common technical terms: "+strings.Join(shared, ", "))
	}
	if DateProximity(a.Timestamp(), b.Timestamp()) > 0.6 {
		out = append(out, "Similar timeframe")
	}
	if keyInText(a, b) {
		out = append(out, "JIRA key referenced in code")
	}
	return out
}

// DateProximity is a step function of the whole days between two
// timestamps. A missing timestamp scores 0.
func DateProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	days := math.Floor(math.Abs(a.Sub(b).Hours()) / 24)
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.8
	case days <= 30:
		return 0.6
	case days <= 90:
		return 0.4
	default:
		return 0.2
	}
}

// keyInPath reports whether a hyphen-delimited part of an issue key longer
// than two characters appears in a code file's path.
func keyInPath(a, b types.Document) bool {
	issue, file, ok := issueAndFile(a, b)
	if !ok {
		return false
	}
	path := strings.ToLower(file.Path)
	for _, part := range strings.Split(issue.Key, "-") {
		if len(part) > 2 && strings.Contains(path, strings.ToLower(part)) {
			return true
		}
	}
	return false
}

// keyInText reports whether any part of an issue key appears in the code
// file's path or preview.
func keyInText(a, b types.Document) bool {
	issue, file, ok := issueAndFile(a, b)
	if !ok {
		return false
	}
	text := strings.ToLower(file.RankingText())
	for _, part := range strings.Split(issue.Key, "-") {
		if part != "" && strings.Contains(text, strings.ToLower(part)) {
			return true
		}
	}
	return false
}

func issueAndFile(a, b types.Document) (*types.JiraIssue, *types.CodeFile, bool) {
	issue, ok := a.(*types.JiraIssue)
	if !ok || issue.Key == "" {
		return nil, nil, false
	}
	file, ok := b.(*types.CodeFile)
	if !ok {
		return nil, nil, false
	}
	return issue, file, true
}

func terms(doc types.Document) map[string]bool {
	set := map[string]bool{}
	for _, t := range termPattern.FindAllString(strings.ToLower(doc.RankingText()), -1) {
		set[t] = true
	}
	return set
}

func intersect(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for t := range a {
		if b[t] {
			out[t] = true
		}
	}
	return out
}

// Insights summarises a correlation report in plain sentences.
func Insights(r types.CorrelationReport) []string {
	var out []string
	if n := len(r.All()); n > 0 {
		out = append(out, fmt.Sprintf("Found %d cross-source correlations", n))
	}
	if n := len(r.Strong); n > 0 {
		out = append(out, fmt.Sprintf("%d strong correlations detected", n))
	}
	labels := []struct {
		pair  types.SourcePair
		label string
	}{
		{types.CorrelationPairs[0], "documentation-issue"},
		{types.CorrelationPairs[2], "issue-code"},
		{types.CorrelationPairs[1], "documentation-code"},
	}
	for _, l := range labels {
		if n := len(r.Pairs[l.pair.Key()]); n > 0 {
			out = append(out, fmt.Sprintf("%d %s correlations", n, l.label))
		}
	}
	return out
}

// SortByStrength orders correlations strongest first, keeping pair order
// for ties.
func SortByStrength(cs []types.Correlation) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Strength > cs[j].Strength })
}
