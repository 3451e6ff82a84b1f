// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index builds per-source semantic indexes: a TF-IDF model over the
// documents' searchable text, optionally reduced by truncated SVD, with one
// L2-normalized embedding per document. Indexes are immutable once built and
// are published through a Registry.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

var (
	// ErrEmptyCorpus is returned when Build receives no documents.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrNoValidDocuments is returned when every document is too short.
	ErrNoValidDocuments = errors.New("no documents long enough to index")

	// ErrEmptyVocabulary is returned when pruning leaves no terms.
	ErrEmptyVocabulary = errors.New("empty vocabulary")

	// ErrDecomposition is returned when dimensionality reduction fails.
	ErrDecomposition = errors.New("dimensionality reduction failed")
)

// Index is an immutable semantic index over one source type's documents.
type Index struct {
	source     types.SourceType
	builtAt    time.Time
	docs       []types.Document
	vectorizer *Vectorizer
	reducer    *Reducer // nil when the vocabulary was small enough
	embeddings [][]float64
	positions  map[string]int
}

// Build fits an index over docs. Documents whose trimmed searchable text is
// not longer than cfg.MinTextLength are dropped first. When the vocabulary
// exceeds cfg.SVDComponents, embeddings are reduced to at most that many
// dimensions. ctx is checked between phases.
func Build(ctx context.Context, source types.SourceType, docs []types.Document, cfg types.IndexConfig) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	var kept []types.Document
	var texts []string
	for _, d := range docs {
		if d == nil {
			continue
		}
		text := strings.TrimSpace(d.SearchableText())
		if len(text) <= cfg.MinTextLength {
			continue
		}
		kept = append(kept, d)
		texts = append(texts, text)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: all %d documents are %d characters or shorter",
			ErrNoValidDocuments, len(docs), cfg.MinTextLength)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec, rows, err := Fit(texts, FitOptions{
		NGramRange:  cfg.NGramRange,
		MaxFeatures: cfg.MaxFeatures,
		MinDF:       cfg.MinDF,
		MaxDF:       cfg.MaxDF,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var red *Reducer
	if vec.Size() > cfg.SVDComponents {
		red, err = FitReducer(ctx, rows, vec.Size(), cfg.SVDComponents)
		if err != nil {
			return nil, err
		}
	}

	ix := &Index{
		source:     source,
		builtAt:    time.Now().UTC(),
		docs:       kept,
		vectorizer: vec,
		reducer:    red,
	}
	ix.embed(rows)
	return ix, nil
}

func (ix *Index) embed(rows []SparseVector) {
	ix.embeddings = make([][]float64, len(rows))
	ix.positions = make(map[string]int, len(ix.docs))
	for i, row := range rows {
		ix.embeddings[i] = ix.project(row)
	}
	for i, d := range ix.docs {
		if _, dup := ix.positions[d.DocumentID()]; !dup {
			ix.positions[d.DocumentID()] = i
		}
	}
}

// project maps a TF-IDF row into embedding space and L2-normalizes it.
func (ix *Index) project(row SparseVector) []float64 {
	var out []float64
	if ix.reducer != nil {
		out = ix.reducer.Project(row)
	} else {
		out = row.Dense(ix.vectorizer.Size())
	}
	normalize(out)
	return out
}

// EmbedQuery projects free text into the index's embedding space.
func (ix *Index) EmbedQuery(text string) []float64 {
	return ix.project(ix.vectorizer.Transform(text))
}

// Similarities returns the cosine similarity of vec to every document, in
// document order.
func (ix *Index) Similarities(vec []float64) []float64 {
	sims := make([]float64, len(ix.embeddings))
	for i, e := range ix.embeddings {
		sims[i] = dot(vec, e)
	}
	return sims
}

// Embedding returns the embedding of the document with the given id.
func (ix *Index) Embedding(id string) ([]float64, bool) {
	pos, ok := ix.positions[id]
	if !ok {
		return nil, false
	}
	return ix.embeddings[pos], true
}

// Position returns the position of the document with the given id.
func (ix *Index) Position(id string) (int, bool) {
	pos, ok := ix.positions[id]
	return pos, ok
}

// Document returns the document at position i.
func (ix *Index) Document(i int) types.Document { return ix.docs[i] }

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Source returns the source type the index was built for.
func (ix *Index) Source() types.SourceType { return ix.source }

// BuiltAt returns when the index was fit.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

// Stats summarises the index.
func (ix *Index) Stats() types.IndexStats {
	st := types.IndexStats{
		SourceType:     ix.source,
		DocumentCount:  len(ix.docs),
		VocabularySize: ix.vectorizer.Size(),
		FeatureCount:   ix.vectorizer.Size(),
		BuiltAt:        ix.builtAt,
	}
	if ix.reducer != nil {
		st.HasSVD = true
		st.SVDComponents = ix.reducer.Components()
		st.FeatureCount = ix.reducer.Components()
	}
	return st
}

// Snapshot is the persistable form of an index. Embeddings are not stored;
// they are recomputed from the documents on restore.
type Snapshot struct {
	Source     types.SourceType
	BuiltAt    time.Time
	NGramRange [2]int
	Terms      []string
	IDF        []float64
	Components [][]float64
	Documents  []types.Document
}

// Snapshot returns the persistable state of the index.
func (ix *Index) Snapshot() Snapshot {
	s := Snapshot{
		Source:     ix.source,
		BuiltAt:    ix.builtAt,
		NGramRange: ix.vectorizer.NGramRange(),
		Terms:      ix.vectorizer.Terms(),
		IDF:        ix.vectorizer.IDF(),
		Documents:  ix.docs,
	}
	if ix.reducer != nil {
		s.Components = ix.reducer.Matrix()
	}
	return s
}

// FromSnapshot restores an index, recomputing every document embedding
// with the stored vocabulary and components.
func FromSnapshot(s Snapshot) (*Index, error) {
	if len(s.Documents) == 0 {
		return nil, ErrEmptyCorpus
	}
	vec, err := NewVectorizer(s.NGramRange, s.Terms, s.IDF)
	if err != nil {
		return nil, fmt.Errorf("restoring %s vectorizer: %w", s.Source, err)
	}
	var red *Reducer
	if len(s.Components) > 0 {
		if red, err = NewReducer(s.Components, vec.Size()); err != nil {
			return nil, fmt.Errorf("restoring %s reducer: %w", s.Source, err)
		}
	}

	ix := &Index{
		source:     s.Source,
		builtAt:    s.BuiltAt,
		docs:       s.Documents,
		vectorizer: vec,
		reducer:    red,
	}
	rows := make([]SparseVector, len(s.Documents))
	for i, d := range s.Documents {
		rows[i] = vec.Transform(strings.TrimSpace(d.SearchableText()))
	}
	ix.embed(rows)
	return ix, nil
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
