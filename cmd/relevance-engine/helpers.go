// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/relevance-engine/internal/index"
	"github.com/pdiddy/relevance-engine/internal/store"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

func newRegistry(cfg types.Config) (*index.Registry, error) {
	var opts []index.Option
	if cfg.Workers > 0 {
		opts = append(opts, index.WithPoolSize(cfg.Workers))
	}
	return index.NewRegistry(cfg.Index, opts...)
}

// loadRegistry restores every stored snapshot into a fresh registry. A
// source without a snapshot stays empty and searches over it return
// nothing.
func loadRegistry(ctx context.Context, cfg types.Config) (*index.Registry, error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	indexes, err := st.LoadAll(ctx)
	if err != nil {
		reg.Release()
		return nil, err
	}
	for _, ix := range indexes {
		if err := reg.Install(ix); err != nil {
			reg.Release()
			return nil, err
		}
	}
	return reg, nil
}

func sourcesFlag(cmd *cobra.Command) ([]types.SourceType, error) {
	names, _ := cmd.Flags().GetStringSlice("source")
	return types.ParseSourceTypes(names)
}

// sourceOfID derives the source type from a document ID such as
// "jira:PROJ-55".
func sourceOfID(id string) (types.SourceType, error) {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return "", errors.New("document ID must be prefixed with its source, e.g. jira:PROJ-55")
	}
	st, err := types.ParseSourceType(prefix)
	if err != nil {
		return "", fmt.Errorf("document ID %q: %w", id, err)
	}
	return st, nil
}
