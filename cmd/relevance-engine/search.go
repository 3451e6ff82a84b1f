// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/relevance-engine/internal/corpus"
	"github.com/pdiddy/relevance-engine/internal/search"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the stored indexes",
	Long: `Search embeds the query into each stored index, blends vector similarity
with keyword, freshness and popularity signals, and prints the merged hits
sorted by combined score. Sources without a stored index contribute nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	sources, err := sourcesFlag(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	minScore := appConfig.Search.MinScore
	if cmd.Flags().Changed("min-score") {
		minScore, _ = cmd.Flags().GetFloat64("min-score")
	}

	ctx := context.Background()
	searcher, release, err := newSearcher(ctx)
	if err != nil {
		return err
	}
	defer release()

	results, err := searcher.Search(ctx, query, sources, limit, minScore)
	if err != nil {
		return err
	}
	return printResults(cmd, results)
}

var similarCmd = &cobra.Command{
	Use:   "similar <document-id>",
	Short: "Find documents similar to a stored document",
	Long: `Similar looks up a document by ID (for example jira:PROJ-55) in its
source's stored index and prints the documents closest to it by cosine
similarity, excluding the document itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	id := args[0]
	source, err := sourceOfID(id)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := context.Background()
	searcher, release, err := newSearcher(ctx)
	if err != nil {
		return err
	}
	defer release()

	results, err := searcher.FindSimilar(ctx, id, source, limit)
	if err != nil {
		return err
	}
	return printResults(cmd, results)
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore <results-file>",
	Short: "Re-score fetched results without an index",
	Long: `Rescore reads an already-fetched result set and scores each item with the
keyword, freshness and popularity signals only, then prints all items sorted
by combined score. No stored index is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRescore,
}

func runRescore(cmd *cobra.Command, args []string) error {
	rs, report, err := corpus.NewLoader().LoadResultSet(args[0])
	if err != nil {
		return err
	}
	if n := report.TotalSkipped(); n > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d malformed record(s)\n", n)
	}
	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		query = rs.Query
	}

	reg, err := newRegistry(appConfig)
	if err != nil {
		return err
	}
	defer reg.Release()
	searcher, err := search.New(reg, appConfig.Search)
	if err != nil {
		return err
	}

	var docs []types.Document
	for _, st := range types.SourceTypes {
		docs = append(docs, rs.Sources[st]...)
	}
	return printResults(cmd, searcher.Rescore(query, docs))
}

func newSearcher(ctx context.Context) (*search.Searcher, func(), error) {
	reg, err := loadRegistry(ctx, appConfig)
	if err != nil {
		return nil, nil, err
	}
	s, err := search.New(reg, appConfig.Search)
	if err != nil {
		reg.Release()
		return nil, nil, err
	}
	return s, reg.Release, nil
}

func printResults(cmd *cobra.Command, results []types.ScoredResult) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return search.FormatJSON(results, os.Stdout)
	}
	search.FormatTable(results, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().StringSlice("source", nil, "sources to search (confluence, jira, code); default all")
	searchCmd.Flags().Int("limit", 0, "maximum results (0 = use search.limit)")
	searchCmd.Flags().Float64("min-score", 0, "minimum combined score (default search.min_score)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	similarCmd.Flags().Int("limit", 5, "maximum similar documents")
	similarCmd.Flags().Bool("json", false, "output results as JSON")

	rescoreCmd.Flags().String("query", "", "query to score against (default: the file's query)")
	rescoreCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(rescoreCmd)
}
