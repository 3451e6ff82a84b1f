// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(smallCorpusConfig(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func issues() []types.Document {
	return []types.Document{
		&types.JiraIssue{Key: "PROJ-1", Summary: "Login fails with OAuth error", Description: "The OAuth callback returns an error page."},
		&types.JiraIssue{Key: "PROJ-2", Summary: "Database migration stalls", Description: "Migration of the orders table never completes."},
	}
}

func TestNewRegistry_InvalidConfig(t *testing.T) {
	cfg := smallCorpusConfig()
	cfg.MaxDF = 2
	_, err := NewRegistry(cfg)
	assert.Error(t, err)
}

func TestRegistry_EmptyCorpusLeavesSlotEmpty(t *testing.T) {
	r := newTestRegistry(t)
	assert.False(t, r.Rebuild(context.Background(), types.SourceConfluence, nil))
	assert.Nil(t, r.Get(types.SourceConfluence))
	assert.Empty(t, r.Stats())
}

func TestRegistry_FailedRebuildKeepsPrevious(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.True(t, r.Rebuild(ctx, types.SourceConfluence, oauthPages()))
	before := r.Get(types.SourceConfluence)
	require.NotNil(t, before)

	assert.False(t, r.Rebuild(ctx, types.SourceConfluence, nil))
	assert.Same(t, before, r.Get(types.SourceConfluence))
}

func TestRegistry_UnknownSource(t *testing.T) {
	r := newTestRegistry(t)
	assert.False(t, r.Rebuild(context.Background(), types.SourceType("wiki"), oauthPages()))
	assert.Nil(t, r.Get(types.SourceType("wiki")))
}

func TestRegistry_RebuildAsync(t *testing.T) {
	r := newTestRegistry(t)
	ok := <-r.RebuildAsync(context.Background(), types.SourceJira, issues())
	assert.True(t, ok)
	require.NotNil(t, r.Get(types.SourceJira))
	assert.Equal(t, 2, r.Get(types.SourceJira).Len())
}

func TestRegistry_RebuildAll(t *testing.T) {
	r := newTestRegistry(t)
	got := r.RebuildAll(context.Background(), map[types.SourceType][]types.Document{
		types.SourceConfluence: oauthPages(),
		types.SourceJira:       issues(),
		types.SourceCode:       nil,
	})
	assert.Equal(t, map[types.SourceType]bool{
		types.SourceConfluence: true,
		types.SourceJira:       true,
		types.SourceCode:       false,
	}, got)

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, types.SourceConfluence, stats[0].SourceType)
	assert.Equal(t, types.SourceJira, stats[1].SourceType)
}

// Concurrent rebuilds of one source and concurrent readers must only ever
// see complete indexes.
func TestRegistry_ConcurrentRebuildsAndReads(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Rebuild(ctx, types.SourceConfluence, oauthPages())
		}()
		go func() {
			defer wg.Done()
			if ix := r.Get(types.SourceConfluence); ix != nil {
				assert.Equal(t, 3, ix.Len())
				assert.Len(t, ix.Similarities(ix.EmbedQuery("oauth")), 3)
			}
		}()
	}
	wg.Wait()
	require.NotNil(t, r.Get(types.SourceConfluence))
}

func TestRegistry_Install(t *testing.T) {
	r := newTestRegistry(t)
	ix, err := Build(context.Background(), types.SourceConfluence, oauthPages(), smallCorpusConfig())
	require.NoError(t, err)

	require.NoError(t, r.Install(ix))
	assert.Same(t, ix, r.Get(types.SourceConfluence))
	assert.Error(t, r.Install(nil))
}
