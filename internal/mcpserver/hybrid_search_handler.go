package mcpserver

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pmadusud/salesagent/internal/metrics"
	"github.com/pmadusud/salesagent/internal/search"
	"github.com/pmadusud/salesagent/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var mcpTracer = otel.Tracer("salesagent/mcpserver")

const maxAttributeLength = 256

// Searcher runs a product search; *search.HybridSearchService implements it.
type Searcher interface {
	Search(ctx context.Context, query types.SearchQuery) *search.SearchResponse
}

// HybridSearchHandler serves the hybrid search tool to MCP clients
type HybridSearchHandler struct {
	searcher Searcher
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewHybridSearchHandler creates a handler. A zero rateLimit disables throttling.
func NewHybridSearchHandler(searcher Searcher, rateLimit float64, burst int) *HybridSearchHandler {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return &HybridSearchHandler{
		searcher: searcher,
		limiter:  limiter,
		logger:   log.New(log.Writer(), "[MCPServer] ", log.LstdFlags),
	}
}

// Tool returns the MCP tool definition, sharing its schema with the agent toolset
func (h *HybridSearchHandler) Tool() *mcp.Tool {
	return &mcp.Tool{
		Name:        search.ToolName,
		Description: search.ToolDescription,
		InputSchema: search.ToolInputSchema(),
	}
}

// HandleSDKToolCall implements mcp.ToolHandler. Argument and throttling problems are
// reported as tool errors so the client model can see them; a search that found
// nothing is a normal empty result.
func (h *HybridSearchHandler) HandleSDKToolCall(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordInvocation(ctx, metrics.ModeMCP)

	ctx, span := mcpTracer.Start(ctx, "mcpserver.hybrid_search")
	defer span.End()

	outcome := &callOutcome{
		start: time.Now(),
		attrs: []attribute.KeyValue{attribute.String("mcp.tool.name", search.ToolName)},
	}
	defer func() { outcome.record(ctx) }()

	if h.limiter != nil && !h.limiter.Allow() {
		outcome.errType = "rate_limited"
		span.SetStatus(codes.Error, outcome.errType)
		return errorResult("rate limit exceeded, retry later"), nil
	}

	var raw []byte
	if req != nil && req.Params != nil {
		raw = req.Params.Arguments
		span.SetAttributes(attribute.String("mcp.request.arguments", truncateForAttribute(string(raw))))
	}

	query, err := search.ParseToolArguments(raw)
	if err != nil {
		outcome.errType = "invalid_arguments"
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.errType)
		return errorResult(err.Error()), nil
	}
	span.SetAttributes(
		attribute.String("mcp.query", truncateForAttribute(query.Text)),
		attribute.Int("mcp.search.limit", query.Limit),
	)

	resp := h.searcher.Search(ctx, query)
	h.logger.Printf("%d result(s) via %s in %s (request %s)", resp.TotalResults, resp.SearchMethod, resp.SearchTime, resp.RequestID)
	span.SetAttributes(
		attribute.Int("mcp.search.total", resp.TotalResults),
		attribute.String("mcp.search.method", string(resp.SearchMethod)),
	)
	outcome.attrs = append(outcome.attrs, attribute.String("mcp.search.method", string(resp.SearchMethod)))
	outcome.results = resp.TotalResults
	if resp.Error != "" {
		outcome.errType = "search_failed"
	}

	encoded, err := search.EncodeDocuments(resp.Documents)
	if err != nil {
		outcome.errType = "encode_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.errType)
		return errorResult(fmt.Sprintf("failed to encode results: %v", err)), nil
	}

	span.SetStatus(codes.Ok, "hybrid_search_completed")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
	}, nil
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// truncateForAttribute caps s at maxAttributeLength runes. Exporters reject attribute
// values that are not valid UTF-8, so the cut never splits a rune.
func truncateForAttribute(s string) string {
	if utf8.RuneCountInString(s) <= maxAttributeLength {
		return s
	}
	return string([]rune(s)[:maxAttributeLength]) + "..."
}
