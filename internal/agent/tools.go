package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pmadusud/salesagent/internal/metrics"
	"github.com/pmadusud/salesagent/internal/search"
	"github.com/pmadusud/salesagent/internal/types"
	openai "github.com/sashabaranov/go-openai"
)

// Searcher runs a product search; *search.HybridSearchService implements it.
type Searcher interface {
	Search(ctx context.Context, query types.SearchQuery) *search.SearchResponse
}

// ToolSet exposes the hybrid search function to the agent and executes its calls.
type ToolSet struct {
	searcher Searcher
	logger   *log.Logger
}

// NewToolSet creates a toolset backed by searcher.
func NewToolSet(searcher Searcher) *ToolSet {
	return &ToolSet{
		searcher: searcher,
		logger:   log.New(log.Writer(), "[AgentTools] ", log.LstdFlags),
	}
}

// Definitions returns the function tools registered on the agent.
func (ts *ToolSet) Definitions() []openai.AssistantTool {
	return []openai.AssistantTool{{
		Type: openai.AssistantToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        search.ToolName,
			Description: search.ToolDescription,
			Parameters:  search.ToolInputSchema(),
		},
	}}
}

// Execute runs each tool call in order. Failures become an {"error": ...} output so
// the run can continue and the model can explain the problem.
func (ts *ToolSet) Execute(ctx context.Context, calls []openai.ToolCall) []openai.ToolOutput {
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     ts.execute(ctx, call),
		})
	}
	return outputs
}

func (ts *ToolSet) execute(ctx context.Context, call openai.ToolCall) string {
	if call.Function.Name != search.ToolName {
		ts.logger.Printf("Unknown function %q requested (call %s)", call.Function.Name, call.ID)
		return errorOutput(fmt.Errorf("unknown function %q", call.Function.Name))
	}

	query, err := search.ParseToolArguments([]byte(call.Function.Arguments))
	if err != nil {
		ts.logger.Printf("Rejected arguments for call %s: %v", call.ID, err)
		return errorOutput(err)
	}

	metrics.RecordInvocation(ctx, metrics.ModeTool)
	resp := ts.searcher.Search(ctx, query)
	ts.logger.Printf("Call %s: %d result(s) via %s in %s (request %s)",
		call.ID, resp.TotalResults, resp.SearchMethod, resp.SearchTime, resp.RequestID)

	encoded, err := search.EncodeDocuments(resp.Documents)
	if err != nil {
		return errorOutput(fmt.Errorf("failed to encode results: %w", err))
	}
	return string(encoded)
}

func errorOutput(err error) string {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(out)
}
