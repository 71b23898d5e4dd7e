package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pmadusud/salesagent/internal/metrics"
)

var (
	statsDays   int
	statsDBPath string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show invocation counts per mode",
	Long: `
Print cumulative and per-day invocation counts recorded by chat, query, mcp-server and
agent tool calls. Only counts are stored; queries are never recorded.
`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Number of recent days to list")
	statsCmd.Flags().StringVar(&statsDBPath, "db", "", "Stats database path (defaults to STATS_DB_PATH or ~/.salesagent/stats.db)")
}

func runStats(cmd *cobra.Command, args []string) error {
	path := statsDBPath
	if path == "" {
		path = os.Getenv("STATS_DB_PATH")
	}

	store, err := metrics.NewStore(path)
	if err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}
	defer func() { _ = store.Close() }()

	return printStats(cmd.Context(), cmd.OutOrStdout(), store, statsDays)
}

func printStats(ctx context.Context, w io.Writer, store *metrics.Store, days int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	totals, err := store.Totals(ctx)
	if err != nil {
		return err
	}
	daily, err := store.Daily(ctx, days)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MODE\tTOTAL")
	for _, mode := range metrics.AllModes {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", mode, totals[mode])
	}
	_, _ = fmt.Fprintln(tw)
	_, _ = fmt.Fprintf(tw, "DATE\tMODE\tCOUNT\n")
	if len(daily) == 0 {
		_, _ = fmt.Fprintf(tw, "(no invocations in the last %d days)\n", days)
	}
	for _, d := range daily {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Date, d.Mode, d.Count)
	}
	return tw.Flush()
}
