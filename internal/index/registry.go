// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// slot holds the published index of one source type. mu serializes
// rebuilds; readers only load current.
type slot struct {
	mu      sync.Mutex
	current atomic.Pointer[Index]
}

// Registry publishes one immutable index per source type. Readers always
// observe a complete index or none. Rebuilds of one source type never
// interleave; rebuilds of different source types run concurrently.
type Registry struct {
	cfg    types.IndexConfig
	slots  map[types.SourceType]*slot
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of concurrent background builds.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Registry) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// NewRegistry returns an empty registry with one slot per source type.
func NewRegistry(cfg types.IndexConfig, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index config: %w", err)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:    cfg,
		slots:  make(map[types.SourceType]*slot, len(types.SourceTypes)),
		pool:   pool,
		logger: slog.Default(),
	}
	for _, st := range types.SourceTypes {
		r.slots[st] = &slot{}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// Get returns the current index for source, or nil when none is available.
func (r *Registry) Get(source types.SourceType) *Index {
	s, ok := r.slots[source]
	if !ok {
		return nil
	}
	return s.current.Load()
}

// Rebuild builds a new index for source and publishes it. On failure the
// previous index stays in place, the error is logged and false is returned.
func (r *Registry) Rebuild(ctx context.Context, source types.SourceType, docs []types.Document) bool {
	if err := r.rebuild(ctx, source, docs); err != nil {
		r.logger.Warn("index rebuild failed", "source", source, "documents", len(docs), "error", err)
		return false
	}
	return true
}

func (r *Registry) rebuild(ctx context.Context, source types.SourceType, docs []types.Document) error {
	s, ok := r.slots[source]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownSourceType, source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ix, err := Build(ctx, source, docs, r.cfg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.current.Store(ix)

	st := ix.Stats()
	r.logger.Info("index built",
		"source", source,
		"documents", st.DocumentCount,
		"vocabulary", st.VocabularySize,
		"svd", st.HasSVD,
		"features", st.FeatureCount)
	return nil
}

// RebuildAsync runs Rebuild on the worker pool. The returned channel
// receives the outcome once and is then closed.
func (r *Registry) RebuildAsync(ctx context.Context, source types.SourceType, docs []types.Document) <-chan bool {
	done := make(chan bool, 1)
	err := r.pool.Submit(func() {
		done <- r.Rebuild(ctx, source, docs)
		close(done)
	})
	if err != nil {
		r.logger.Warn("index rebuild not scheduled", "source", source, "error", err)
		done <- false
		close(done)
	}
	return done
}

// RebuildAll rebuilds every source in corpus concurrently and reports the
// outcome per source.
func (r *Registry) RebuildAll(ctx context.Context, corpus map[types.SourceType][]types.Document) map[types.SourceType]bool {
	pending := make(map[types.SourceType]<-chan bool, len(corpus))
	for _, st := range types.SourceTypes {
		docs, ok := corpus[st]
		if !ok {
			continue
		}
		pending[st] = r.RebuildAsync(ctx, st, docs)
	}

	results := make(map[types.SourceType]bool, len(pending))
	for st, ch := range pending {
		results[st] = <-ch
	}
	return results
}

// Install publishes a prebuilt index, typically one restored from storage.
func (r *Registry) Install(ix *Index) error {
	if ix == nil {
		return fmt.Errorf("install: nil index")
	}
	s, ok := r.slots[ix.Source()]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownSourceType, ix.Source())
	}
	s.mu.Lock()
	s.current.Store(ix)
	s.mu.Unlock()
	return nil
}

// Stats reports every available index in canonical source order.
func (r *Registry) Stats() []types.IndexStats {
	var out []types.IndexStats
	for _, st := range types.SourceTypes {
		if ix := r.Get(st); ix != nil {
			out = append(out, ix.Stats())
		}
	}
	return out
}

// Release frees the worker pool.
func (r *Registry) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}
