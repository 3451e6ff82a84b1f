// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/relevance-engine/internal/correlate"
	"github.com/pdiddy/relevance-engine/pkg/types"
)

// FormatJSON writes out as indented JSON to w.
func FormatJSON(out *Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatYAML writes out as YAML to w.
func FormatYAML(out *Output, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// FormatTable writes a human-readable summary: one table per source,
// correlations strongest first, then insights.
func FormatTable(out *Output, w io.Writer) {
	if out.RankingInsights.TotalResults == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	for _, st := range types.SourceTypes {
		items, ok := out.Sources[st]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", st, len(items))
		fmt.Fprintf(w, "%-4s  %-50s  %-6s  %-6s  %s\n", "Rank", "Title", "Score", "Boost", "Factors")
		fmt.Fprintln(w, strings.Repeat("-", 110))
		for i, it := range items {
			title := "(missing document)"
			if it.Document != nil {
				title = it.Document.DisplayTitle()
			}
			fmt.Fprintf(w, "%-4d  %-50s  %-6.3f  %-6.3f  %s\n",
				i+1, truncate(title, 50), it.Score, it.CorrelationBoost, strings.Join(it.Explanations, ", "))
		}
		fmt.Fprintln(w)
	}

	if all := out.CrossCorrelations.All(); len(all) > 0 {
		correlate.SortByStrength(all)
		fmt.Fprintln(w, "Correlations")
		for _, c := range all {
			marker := " "
			if c.Strong {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s\n", marker, c)
		}
		fmt.Fprintln(w)
	}

	in := out.RankingInsights
	fmt.Fprintf(w, "%d results, %d correlations (%d strong)\n",
		in.TotalResults, in.CorrelationCount, in.StrongCorrelationCount)
	for _, f := range in.TopFactors {
		fmt.Fprintf(w, "  + %s\n", f)
	}
	for _, r := range in.Recommendations {
		fmt.Fprintf(w, "  ! %s\n", r)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
