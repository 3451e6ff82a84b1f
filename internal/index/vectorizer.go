// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"fmt"
	"math"
	"sort"
)

// SparseVector holds the non-zero entries of a vector, indices ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product of two sparse vectors.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Dense expands the vector into a slice of length n.
func (v SparseVector) Dense(n int) []float64 {
	out := make([]float64, n)
	for k, idx := range v.Indices {
		out[idx] = v.Values[k]
	}
	return out
}

// Vectorizer is a fitted TF-IDF model: a sorted vocabulary with one smooth
// inverse document frequency per term.
type Vectorizer struct {
	analyzer *Analyzer
	terms    []string
	vocab    map[string]int
	idf      []float64
}

// FitOptions bound the vocabulary learned by Fit.
type FitOptions struct {
	NGramRange  [2]int
	MaxFeatures int
	MinDF       int     // absolute document count
	MaxDF       float64 // proportion of documents
}

// Fit learns a vocabulary and idf weights from texts and returns the
// vectorizer together with the L2-normalized TF-IDF row of every text.
func Fit(texts []string, opts FitOptions) (*Vectorizer, []SparseVector, error) {
	if len(texts) == 0 {
		return nil, nil, ErrEmptyCorpus
	}
	analyzer := NewAnalyzer(opts.NGramRange)
	n := len(texts)

	counts := make([]map[string]int, n)
	df := map[string]int{}
	total := map[string]int{}
	for i, text := range texts {
		c := map[string]int{}
		for _, term := range analyzer.Terms(text) {
			c[term]++
		}
		for term, k := range c {
			df[term]++
			total[term] += k
		}
		counts[i] = c
	}

	maxDocs := opts.MaxDF * float64(n)
	if float64(opts.MinDF) > maxDocs {
		return nil, nil, fmt.Errorf("%w: max_df %.2f of %d documents is below min_df %d",
			ErrEmptyVocabulary, opts.MaxDF, n, opts.MinDF)
	}

	var kept []string
	for term, d := range df {
		if d >= opts.MinDF && float64(d) <= maxDocs {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return nil, nil, fmt.Errorf("%w: no terms left after document-frequency pruning", ErrEmptyVocabulary)
	}

	if opts.MaxFeatures > 0 && len(kept) > opts.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if total[kept[i]] != total[kept[j]] {
				return total[kept[i]] > total[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opts.MaxFeatures]
	}
	sort.Strings(kept)

	v := &Vectorizer{
		analyzer: analyzer,
		terms:    kept,
		vocab:    make(map[string]int, len(kept)),
		idf:      make([]float64, len(kept)),
	}
	for j, term := range kept {
		v.vocab[term] = j
		v.idf[j] = smoothIDF(n, df[term])
	}

	rows := make([]SparseVector, n)
	for i, c := range counts {
		rows[i] = v.weigh(c)
	}
	return v, rows, nil
}

// NewVectorizer restores a fitted vectorizer from its vocabulary and idf
// weights. terms must be sorted and unique.
func NewVectorizer(ngram [2]int, terms []string, idf []float64) (*Vectorizer, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d idf weights", len(terms), len(idf))
	}
	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	v := &Vectorizer{
		analyzer: NewAnalyzer(ngram),
		terms:    terms,
		vocab:    make(map[string]int, len(terms)),
		idf:      idf,
	}
	for j, term := range terms {
		if j > 0 && terms[j-1] >= term {
			return nil, fmt.Errorf("vocabulary is not sorted at %q", term)
		}
		v.vocab[term] = j
	}
	return v, nil
}

// Transform returns the L2-normalized TF-IDF vector of text. Terms outside
// the vocabulary are ignored.
func (v *Vectorizer) Transform(text string) SparseVector {
	c := map[string]int{}
	for _, term := range v.analyzer.Terms(text) {
		if _, ok := v.vocab[term]; ok {
			c[term]++
		}
	}
	return v.weigh(c)
}

// Terms returns the sorted vocabulary.
func (v *Vectorizer) Terms() []string { return v.terms }

// IDF returns the idf weight of every vocabulary term.
func (v *Vectorizer) IDF() []float64 { return v.idf }

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int { return len(v.terms) }

// NGramRange returns the n-gram span the vectorizer was fit with.
func (v *Vectorizer) NGramRange() [2]int { return v.analyzer.NGramRange() }

func (v *Vectorizer) weigh(counts map[string]int) SparseVector {
	var sv SparseVector
	for term := range counts {
		j, ok := v.vocab[term]
		if !ok {
			continue
		}
		sv.Indices = append(sv.Indices, j)
	}
	sort.Ints(sv.Indices)
	sv.Values = make([]float64, len(sv.Indices))
	var norm float64
	for k, j := range sv.Indices {
		w := float64(counts[v.terms[j]]) * v.idf[j]
		sv.Values[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range sv.Values {
			sv.Values[k] /= norm
		}
	}
	return sv
}

func smoothIDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}
