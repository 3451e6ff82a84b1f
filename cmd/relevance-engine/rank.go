// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/relevance-engine/internal/corpus"
	"github.com/pdiddy/relevance-engine/internal/engine"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank <results-file>",
	Short: "Rank a fetched result set with cross-source correlation",
	Long: `Rank reads already-fetched results shaped
{query: ..., sources: {confluence: {data: [...]}, jira: {...}, code: {...}}},
scores every item with the weighted ranking factors, detects correlations
between documentation, issues and code, boosts correlated items, and prints
the ranked lists with insights.`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	query, _ := cmd.Flags().GetString("query")
	user := userContextFromFlags(cmd)

	rs, report, err := corpus.NewLoader().LoadResultSet(args[0])
	if err != nil {
		return err
	}
	if n := report.TotalSkipped(); n > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d malformed record(s)\n", n)
	}

	eng, err := engine.New(appConfig)
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := eng.Rank(context.Background(), rs, query, user)
	if err != nil {
		return err
	}

	switch format {
	case "table", "":
		engine.FormatTable(out, os.Stdout)
		return nil
	case "json":
		return engine.FormatJSON(out, os.Stdout)
	case "yaml":
		return engine.FormatYAML(out, os.Stdout)
	default:
		return fmt.Errorf("unsupported format %q: use table, json or yaml", format)
	}
}

func userContextFromFlags(cmd *cobra.Command) types.UserContext {
	username, _ := cmd.Flags().GetString("user")
	keywords, _ := cmd.Flags().GetStringSlice("team-keywords")
	projects, _ := cmd.Flags().GetStringSlice("projects")
	spaces, _ := cmd.Flags().GetStringSlice("spaces")
	return types.UserContext{
		Username:     username,
		TeamKeywords: keywords,
		Projects:     projects,
		Spaces:       spaces,
	}
}

func init() {
	rankCmd.Flags().String("query", "", "query text (default: the query stored in the results file)")
	rankCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rankCmd.Flags().String("user", "", "username for team relevance")
	rankCmd.Flags().StringSlice("team-keywords", nil, "team keywords for team relevance")
	rankCmd.Flags().StringSlice("projects", nil, "issue projects the user works in")
	rankCmd.Flags().StringSlice("spaces", nil, "documentation spaces the user works in")

	rootCmd.AddCommand(rankCmd)
}
