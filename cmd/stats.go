package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/ollama-chat/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show streaming statistics",
	Long: `Display a dashboard of your ochat usage: answers streamed, success rate,
time to first chunk, stream duration and a per-model breakdown.

Data is collected automatically and stored locally in ~/.ochat/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 ochat stats\n\n")

		if summary.TotalStreams == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Chat for a while and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		// Overview
		green.Fprintf(os.Stderr, "  Answers:      ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalStreams)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Success:      ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%", summary.SuccessRate)
		}
		if summary.Cancelled > 0 {
			dim.Fprintf(os.Stderr, "  (%d stopped)", summary.Cancelled)
		}
		fmt.Fprintln(os.Stderr)

		// Latency
		green.Fprintf(os.Stderr, "  First chunk:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstChunkMs)
		green.Fprintf(os.Stderr, "  Stream time:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgElapsedMs)
		green.Fprintf(os.Stderr, "  Thinking:     ")
		fmt.Fprintf(os.Stderr, "%.0f%% of answers\n", summary.ThinkingShare)

		// Models
		if len(summary.Models) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Models")
			for _, m := range summary.Models {
				pct := float64(m.Streams) / float64(summary.TotalStreams) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-20s ", m.Model)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)", bar, m.Streams, pct)
				dim.Fprintf(os.Stderr, "  first %dms, total %dms\n", m.AvgFirstChunkMs, m.AvgElapsedMs)
			}
		}

		// Front ends
		if len(summary.FrontendBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Front ends")
			names := make([]string, 0, len(summary.FrontendBreakdown))
			for name := range summary.FrontendBreakdown {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				dim.Fprintf(os.Stderr, "  %-10s ", name)
				fmt.Fprintf(os.Stderr, "%d\n", summary.FrontendBreakdown[name])
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}
