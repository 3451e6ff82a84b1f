// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus reads document corpora and fetched result sets from YAML
// or JSON files and decodes their records into typed documents.
package corpus

import (
	"fmt"
	"log/slog"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// LoadReport counts decoded and skipped records per source.
type LoadReport struct {
	Loaded  map[types.SourceType]int
	Skipped map[types.SourceType]int
}

func newReport() LoadReport {
	return LoadReport{Loaded: map[types.SourceType]int{}, Skipped: map[types.SourceType]int{}}
}

// TotalSkipped returns the number of malformed records across sources.
func (r LoadReport) TotalSkipped() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Loader decodes corpus and result-set files.
type Loader struct {
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadCorpus reads a file shaped {confluence: [...], jira: [...], code: [...]}.
func (l *Loader) LoadCorpus(path string) (map[types.SourceType][]types.Document, LoadReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return l.DecodeCorpus(data)
}

// DecodeCorpus decodes corpus file contents. Unknown top-level keys are
// ignored.
func (l *Loader) DecodeCorpus(data []byte) (map[types.SourceType][]types.Document, LoadReport, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, LoadReport{}, fmt.Errorf("parsing corpus: %w", err)
	}
	report := newReport()
	docs := map[types.SourceType][]types.Document{}
	for _, st := range types.SourceTypes {
		records, ok := raw[string(st)]
		if !ok {
			continue
		}
		docs[st] = l.decodeAll(st, records, &report)
	}
	return docs, report, nil
}

// LoadResultSet reads fetched results shaped
// {query: ..., sources: {confluence: {data: [...]}, ...}}. A source entry
// may also be a plain list of records.
func (l *Loader) LoadResultSet(path string) (types.ResultSet, LoadReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResultSet{}, LoadReport{}, fmt.Errorf("reading result set %s: %w", path, err)
	}
	return l.DecodeResultSet(data)
}

// DecodeResultSet decodes result-set file contents.
func (l *Loader) DecodeResultSet(data []byte) (types.ResultSet, LoadReport, error) {
	var raw struct {
		Query   string         `yaml:"query"`
		Sources map[string]any `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return types.ResultSet{}, LoadReport{}, fmt.Errorf("parsing result set: %w", err)
	}

	report := newReport()
	rs := types.ResultSet{Query: raw.Query, Sources: map[types.SourceType][]types.Document{}}
	for _, st := range types.SourceTypes {
		entry, ok := raw.Sources[string(st)]
		if !ok || entry == nil {
			continue
		}
		if env, isMap := entry.(map[string]any); isMap {
			entry = env["data"]
		}
		rs.Sources[st] = l.decodeAll(st, entry, &report)
	}
	return rs, report, nil
}

func (l *Loader) decodeAll(st types.SourceType, records any, report *LoadReport) []types.Document {
	list, ok := records.([]any)
	if !ok {
		if records != nil {
			l.logger.Warn("skipping source, records are not a list", "source", st)
		}
		return []types.Document{}
	}
	docs := make([]types.Document, 0, len(list))
	for i, rec := range list {
		doc, err := Decode(st, rec)
		if err != nil {
			l.logger.Warn("skipping malformed record", "source", st, "index", i, "error", err)
			report.Skipped[st]++
			continue
		}
		docs = append(docs, doc)
		report.Loaded[st]++
	}
	return docs
}
