// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/relevance-engine/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics for the stored indexes",
	Long: `Stats lists every stored index snapshot with its document count,
vocabulary size, feature count and build time, without loading the index.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := store.Open(appConfig.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.List(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Printf("No indexes stored in %s\n", st.Path())
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-9s  %-10s  %-8s  %-5s  %s\n",
		"Source", "Documents", "Vocabulary", "Features", "SVD", "Built")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, s := range stats {
		fmt.Fprintf(os.Stdout, "%-10s  %-9d  %-10d  %-8d  %-5t  %s\n",
			s.SourceType, s.DocumentCount, s.VocabularySize, s.FeatureCount, s.HasSVD,
			s.BuiltAt.Format(time.RFC3339))
	}
	return nil
}

func init() {
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}
