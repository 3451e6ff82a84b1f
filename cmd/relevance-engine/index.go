// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/relevance-engine/internal/corpus"
	"github.com/pdiddy/relevance-engine/internal/index"
	"github.com/pdiddy/relevance-engine/internal/store"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index <corpus-file>",
	Short: "Build semantic indexes from a corpus file and persist them",
	Long: `Index reads a YAML or JSON corpus shaped {confluence: [...], jira: [...],
code: [...]}, fits one TF-IDF index (reduced with SVD when the vocabulary is
large) per source, and stores the snapshots in the index database.

Malformed records are skipped and counted. A source whose build fails keeps
its previously stored snapshot. With --watch the corpus is re-indexed every
time the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]
	sources, err := sourcesFlag(cmd)
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(appConfig.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := newRegistry(appConfig)
	if err != nil {
		return err
	}
	defer reg.Release()

	loader := corpus.NewLoader()
	if err := indexCorpus(ctx, loader, reg, st, path, sources, os.Stdout); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	return loader.Watch(ctx, path, func() {
		if err := indexCorpus(ctx, loader, reg, st, path, sources, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "reindex failed: %v\n", err)
		}
	})
}

// indexCorpus loads the corpus, rebuilds the requested sources and saves
// every successful build.
func indexCorpus(ctx context.Context, loader *corpus.Loader, reg *index.Registry, st *store.Store, path string, sources []types.SourceType, w io.Writer) error {
	docs, report, err := loader.LoadCorpus(path)
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		filtered := make(map[types.SourceType][]types.Document, len(sources))
		for _, s := range sources {
			if d, ok := docs[s]; ok {
				filtered[s] = d
			}
		}
		docs = filtered
	}

	built := reg.RebuildAll(ctx, docs)
	var failed int
	for _, s := range types.SourceTypes {
		ok, attempted := built[s]
		if !attempted {
			continue
		}
		if !ok {
			fmt.Fprintf(w, "failed  %s (%d documents, %d skipped)\n", s, len(docs[s]), report.Skipped[s])
			failed++
			continue
		}
		ix := reg.Get(s)
		if err := st.SaveIndex(ctx, ix); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", s, err)
			failed++
			continue
		}
		stats := ix.Stats()
		fmt.Fprintf(w, "indexed %s (%d documents, %d features, %d skipped)\n",
			s, stats.DocumentCount, stats.FeatureCount, report.Skipped[s])
	}

	fmt.Fprintf(w, "\nindexed: %d, failed: %d, skipped records: %d\n",
		len(built)-failed, failed, report.TotalSkipped())
	if failed > 0 {
		return fmt.Errorf("%d source(s) failed indexing", failed)
	}
	return nil
}

func init() {
	indexCmd.Flags().StringSlice("source", nil, "sources to index (confluence, jira, code); default all")
	indexCmd.Flags().Bool("watch", false, "re-index whenever the corpus file changes")

	rootCmd.AddCommand(indexCmd)
}
