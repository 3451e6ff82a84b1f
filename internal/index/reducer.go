// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// eigenFloor discards eigenvalues that are numerically zero.
const eigenFloor = 1e-10

const (
	// exactLimit is the largest Gram matrix side decomposed exactly.
	exactLimit = 512

	oversample      = 10
	powerIterations = 5
	randomSeed      = 42
)

// Reducer projects TF-IDF vectors onto the leading right singular vectors
// of the training matrix (truncated SVD).
type Reducer struct {
	// components is k×V, one right singular vector per row, strongest first.
	components [][]float64
}

// NewReducer restores a reducer from stored components.
func NewReducer(components [][]float64, vocabSize int) (*Reducer, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: no components", ErrDecomposition)
	}
	for i, c := range components {
		if len(c) != vocabSize {
			return nil, fmt.Errorf("%w: component %d has %d entries, vocabulary has %d",
				ErrDecomposition, i, len(c), vocabSize)
		}
	}
	return &Reducer{components: components}, nil
}

// FitReducer computes up to k components from rows, a matrix with vocabSize
// columns. Small inputs decompose whichever Gram matrix is smaller: X·Xᵀ
// when there are fewer documents than terms, Xᵀ·X otherwise. Larger inputs
// use a seeded randomized range finder, so repeated builds agree.
func FitReducer(ctx context.Context, rows []SparseVector, vocabSize, k int) (*Reducer, error) {
	n := len(rows)
	if n == 0 || vocabSize == 0 || k <= 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecomposition)
	}

	var components [][]float64
	var err error
	switch {
	case min(n, vocabSize) > exactLimit:
		components, err = fitRandomized(ctx, rows, vocabSize, k)
	case n <= vocabSize:
		components, err = fitFromDocumentGram(ctx, rows, vocabSize, k)
	default:
		components, err = fitFromTermGram(ctx, rows, vocabSize, k)
	}
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: matrix has rank zero", ErrDecomposition)
	}
	return &Reducer{components: components}, nil
}

// fitFromDocumentGram eigen-decomposes X·Xᵀ (n×n). For eigenpair (λ, u),
// the right singular vector is Xᵀu/σ with σ = √λ.
func fitFromDocumentGram(ctx context.Context, rows []SparseVector, vocabSize, k int) ([][]float64, error) {
	n := len(rows)
	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gram.SetSym(i, j, rows[i].Dot(rows[j]))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vals, vecs, err := eigen(gram)
	if err != nil {
		return nil, err
	}

	var components [][]float64
	for _, col := range leading(vals, k) {
		sigma := math.Sqrt(vals[col])
		v := make([]float64, vocabSize)
		for i, row := range rows {
			u := vecs.At(i, col)
			if u == 0 {
				continue
			}
			for p, idx := range row.Indices {
				v[idx] += row.Values[p] * u
			}
		}
		for t := range v {
			v[t] /= sigma
		}
		components = append(components, v)
	}
	return components, nil
}

// fitFromTermGram eigen-decomposes Xᵀ·X (V×V), whose eigenvectors are the
// right singular vectors directly.
func fitFromTermGram(ctx context.Context, rows []SparseVector, vocabSize, k int) ([][]float64, error) {
	gram := mat.NewSymDense(vocabSize, nil)
	for _, row := range rows {
		for a, ia := range row.Indices {
			for b := a; b < len(row.Indices); b++ {
				ib := row.Indices[b]
				gram.SetSym(ia, ib, gram.At(ia, ib)+row.Values[a]*row.Values[b])
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vals, vecs, err := eigen(gram)
	if err != nil {
		return nil, err
	}

	var components [][]float64
	for _, col := range leading(vals, k) {
		v := make([]float64, vocabSize)
		for t := range v {
			v[t] = vecs.At(t, col)
		}
		components = append(components, v)
	}
	return components, nil
}

// fitRandomized approximates the leading right singular vectors in
// O(nnz·(k+p)) per pass (Halko, Martinsson and Tropp). It samples the range
// of X with a Gaussian test matrix, sharpens it with power iterations, and
// takes the SVD of the small projection Xᵀ·Q.
func fitRandomized(ctx context.Context, rows []SparseVector, vocabSize, k int) ([][]float64, error) {
	n := len(rows)
	l := min(k+oversample, n, vocabSize)

	rng := rand.New(rand.NewPCG(randomSeed, 0))
	omega := mat.NewDense(vocabSize, l, nil)
	for i := 0; i < vocabSize; i++ {
		row := omega.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}

	q := mulRows(rows, omega, l)
	orthonormalize(q)
	for it := 0; it < powerIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := mulRowsT(rows, q, vocabSize, l)
		orthonormalize(z)
		q = mulRows(rows, z, l)
		orthonormalize(q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Xᵀ·Q = Uz·Σ·Vzᵀ, so the right singular vectors of X are the columns
	// of Uz.
	z := mulRowsT(rows, q, vocabSize, l)
	var svd mat.SVD
	if ok := svd.Factorize(z, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: singular value decomposition did not converge", ErrDecomposition)
	}
	sigma := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	var components [][]float64
	for c, s := range sigma {
		if len(components) == k || s*s <= eigenFloor {
			break
		}
		v := make([]float64, vocabSize)
		mat.Col(v, c, &u)
		components = append(components, v)
	}
	return components, nil
}

// mulRows returns X·m for the sparse rows X.
func mulRows(rows []SparseVector, m *mat.Dense, cols int) *mat.Dense {
	out := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		dst := out.RawRowView(i)
		for p, idx := range row.Indices {
			floats.AddScaled(dst, row.Values[p], m.RawRowView(idx))
		}
	}
	return out
}

// mulRowsT returns Xᵀ·m for the sparse rows X.
func mulRowsT(rows []SparseVector, m *mat.Dense, vocabSize, cols int) *mat.Dense {
	out := mat.NewDense(vocabSize, cols, nil)
	for i, row := range rows {
		src := m.RawRowView(i)
		for p, idx := range row.Indices {
			floats.AddScaled(out.RawRowView(idx), row.Values[p], src)
		}
	}
	return out
}

// orthonormalize replaces the columns of a tall matrix with an orthonormal
// basis of their span, in place.
func orthonormalize(m *mat.Dense) {
	raw := m.RawMatrix()
	tau := make([]float64, raw.Cols)
	work := make([]float64, 1)
	lapack64.Geqrf(raw, tau, work, -1)
	work = make([]float64, int(work[0]))
	lapack64.Geqrf(raw, tau, work, len(work))

	work = work[:1]
	lapack64.Orgqr(raw, tau, work, -1)
	work = make([]float64, int(work[0]))
	lapack64.Orgqr(raw, tau, work, len(work))
}

func eigen(gram *mat.SymDense) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(gram, true); !ok {
		return nil, nil, fmt.Errorf("%w: eigen-decomposition did not converge", ErrDecomposition)
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	return es.Values(nil), &vecs, nil
}

// leading returns the column indices of the k largest eigenvalues above
// eigenFloor, largest first.
func leading(vals []float64, k int) []int {
	cols := make([]int, 0, len(vals))
	for i, v := range vals {
		if v > eigenFloor {
			cols = append(cols, i)
		}
	}
	sort.SliceStable(cols, func(a, b int) bool { return vals[cols[a]] > vals[cols[b]] })
	if len(cols) > k {
		cols = cols[:k]
	}
	return cols
}

// Components returns the number of retained components.
func (r *Reducer) Components() int { return len(r.components) }

// Matrix returns the k×V component matrix.
func (r *Reducer) Matrix() [][]float64 { return r.components }

// Project maps a TF-IDF vector into the reduced space.
func (r *Reducer) Project(v SparseVector) []float64 {
	out := make([]float64, len(r.components))
	for c, comp := range r.components {
		var sum float64
		for p, idx := range v.Indices {
			sum += v.Values[p] * comp[idx]
		}
		out[c] = sum
	}
	return out
}
