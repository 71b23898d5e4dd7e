package search

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pmadusud/salesagent/internal/types"
)

// ToolName is the function name the agent and MCP clients call.
const ToolName = "hybrid_search_mongodb_atlas"

// ToolDescription is shown to the model when it decides whether to call the tool.
const ToolDescription = "Connects to MongoDB Atlas and performs a hybrid search (text + vector) on the product " +
	"collection. Falls back to vector-only search if $rankFusion is not supported. Returns a list of " +
	"matching documents with limited fields to stay under the 512KB tool output limit."

// ToolInputSchema describes search_content, limit and include_fields.
func ToolInputSchema() *jsonschema.Schema {
	minLen := 1
	minLimit := float64(1)
	maxLimit := float64(types.MaxSearchLimit)
	defaultLimit, _ := json.Marshal(3)

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"search_content": {
				Type:        "string",
				Description: "The content to search for.",
				MinLength:   &minLen,
			},
			"limit": {
				Type:        "integer",
				Description: fmt.Sprintf("Maximum number of results to return (default: 3, max: %d).", types.MaxSearchLimit),
				Minimum:     &minLimit,
				Maximum:     &maxLimit,
				Default:     defaultLimit,
			},
			"include_fields": {
				Type:        "array",
				Description: "Fields to include in results, reduces output size (default: _id, content).",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
		Required: []string{"search_content"},
	}
}

// ParseToolArguments decodes a JSON arguments object into a query. limit may be a
// number or a numeric string; include_fields may be an array or a comma separated string.
func ParseToolArguments(raw []byte) (types.SearchQuery, error) {
	var args map[string]any
	if len(strings.TrimSpace(string(raw))) == 0 {
		return types.SearchQuery{}, fmt.Errorf("tool arguments are empty")
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return types.SearchQuery{}, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return QueryFromArguments(args)
}

// QueryFromArguments converts an already decoded arguments map.
func QueryFromArguments(args map[string]any) (types.SearchQuery, error) {
	var q types.SearchQuery

	text, ok := args["search_content"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return q, fmt.Errorf("search_content is required and must be a non-empty string")
	}
	q.Text = text

	switch v := args["limit"].(type) {
	case nil:
	case float64:
		if v != math.Trunc(v) {
			return q, fmt.Errorf("limit must be an integer, got %v", v)
		}
		// Clamp before converting; int() of an out-of-range float is undefined.
		v = math.Max(math.Min(v, types.MaxSearchLimit), 0)
		q.Limit = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return q, fmt.Errorf("limit must be an integer, got %q", v)
		}
		q.Limit = n
	default:
		return q, fmt.Errorf("limit must be an integer, got %T", v)
	}

	switch v := args["include_fields"].(type) {
	case nil:
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return q, fmt.Errorf("include_fields must contain strings, got %T", item)
			}
			q.IncludeFields = append(q.IncludeFields, s)
		}
	case string:
		q.IncludeFields = strings.Split(v, ",")
	default:
		return q, fmt.Errorf("include_fields must be an array of strings, got %T", v)
	}

	return q, nil
}
