package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmadusud/salesagent/internal/metrics"
	"github.com/pmadusud/salesagent/internal/types"
)

var (
	queryText    string
	queryLimit   int
	queryFields  []string
	queryFormat  string
	queryTimeout time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one hybrid search against MongoDB Atlas",
	Long: `
Run the same hybrid (vector + full-text) search the agent uses and print the shaped
documents. When the cluster does not support $rankFusion the search falls back to
vector-only once.

Examples:
  salesagent query -q "waterproof hiking boots"
  salesagent query -q "tents" --limit 5 --fields _id,name,price
  salesagent query -q "camping stoves" --format yaml
`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "Text to search for (required)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 0, "Maximum number of results, 1-5 (defaults to SEARCH_DEFAULT_LIMIT)")
	queryCmd.Flags().StringSliceVar(&queryFields, "fields", nil, "Comma-separated fields to include (default: _id,content)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "o", formatJSON, "Output format: json|yaml|text")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 0, "Overall timeout for the run; each search attempt is also bounded by SEARCH_TIMEOUT")

	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(queryText) == "" {
		return fmt.Errorf("query text cannot be empty")
	}
	if !validFormat(queryFormat) {
		return fmt.Errorf("invalid format %q (allowed: json|yaml|text)", queryFormat)
	}

	cfg, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()

	// SEARCH_TIMEOUT already bounds each search attempt; --timeout caps the whole run.
	ctx := context.Background()
	if queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}

	stack, err := newSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	metrics.RecordInvocation(ctx, metrics.ModeQuery)
	resp := stack.service.Search(ctx, types.SearchQuery{
		Text:          queryText,
		Limit:         queryLimit,
		IncludeFields: queryFields,
	})

	return writeSearchResponse(os.Stdout, resp, queryFormat)
}
