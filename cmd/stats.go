package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/gallery-chat/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and response times",
	Long: `Display a dashboard of gallery-chat usage: turn counts, completion rate,
time to first fragment, answer durations, and the models in use.

Data is collected automatically and stored locally in ~/.gallery-chat/stats.json.
Message text is never recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 gallery stats\n\n")

		if summary.TotalTurns == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Chat with the guide for a while and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		// Overview
		green.Fprintf(os.Stderr, "  Turns:       ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalTurns)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Completed:   ")
		if summary.CompletionRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		}

		// Latency
		green.Fprintf(os.Stderr, "  First text:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstFragmentMs)
		green.Fprintf(os.Stderr, "  Full answer: ")
		fmt.Fprintf(os.Stderr, "%dms avg", summary.AvgDurationMs)
		dim.Fprintf(os.Stderr, "  (%.1f fragments)\n", summary.AvgFragments)

		printBreakdown := func(title string, counts map[string]int) {
			if len(counts) == 0 {
				return
			}
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  "+title)
			for _, k := range keys {
				count := counts[k]
				pct := float64(count) / float64(summary.TotalTurns) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-10s ", k)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, count, pct)
			}
		}
		printBreakdown("Outcomes", summary.OutcomeBreakdown)
		printBreakdown("Surfaces", summary.SurfaceBreakdown)

		// Top models
		if len(summary.TopModels) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Models")
			for i, mc := range summary.TopModels {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", mc.Model)
				dim.Fprintf(os.Stderr, "(%dx)\n", mc.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}
