package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"

	"github.com/pmadusud/salesagent/internal/search"
	"github.com/pmadusud/salesagent/internal/types"
)

func sampleResponse() *search.SearchResponse {
	return &search.SearchResponse{
		RequestID: "req-42",
		Documents: []bson.D{
			{{Key: "_id", Value: "p1"}, {Key: "name", Value: "Trail Boots"}, {Key: "price", Value: 129.5}},
			{{Key: "_id", Value: "p2"}, {Key: "name", Value: "Rain Jacket"}, {Key: "tags", Value: bson.A{"outdoor", "waterproof"}}},
		},
		TotalResults:   2,
		SearchMethod:   types.SearchMethodVector,
		FallbackReason: "$rankFusion not supported",
		SearchTime:     "12ms",
	}
}

func TestWriteSearchResponseJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchResponse(&buf, sampleResponse(), formatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "req-42", decoded["request_id"])
	assert.Equal(t, "vector", decoded["search_method"])
	assert.Equal(t, float64(2), decoded["total_results"])

	docs, ok := decoded["documents"].([]any)
	require.True(t, ok)
	require.Len(t, docs, 2)
	assert.Equal(t, "Trail Boots", docs[0].(map[string]any)["name"])

	// field order within a document is preserved
	raw := buf.String()
	assert.Less(t, strings.Index(raw, `"_id": "p1"`), strings.Index(raw, `"name": "Trail Boots"`))
}

func TestWriteSearchResponseYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchResponse(&buf, sampleResponse(), formatYAML))

	var decoded struct {
		RequestID      string           `yaml:"request_id"`
		SearchMethod   string           `yaml:"search_method"`
		TotalResults   int              `yaml:"total_results"`
		FallbackReason string           `yaml:"fallback_reason"`
		Documents      []map[string]any `yaml:"documents"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "req-42", decoded.RequestID)
	assert.Equal(t, "vector", decoded.SearchMethod)
	assert.Equal(t, 2, decoded.TotalResults)
	assert.Equal(t, "$rankFusion not supported", decoded.FallbackReason)
	require.Len(t, decoded.Documents, 2)
	assert.Equal(t, 129.5, decoded.Documents[0]["price"])
	assert.Equal(t, []any{"outdoor", "waterproof"}, decoded.Documents[1]["tags"])
}

func TestWriteSearchResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *search.SearchResponse
		want []string
	}{
		{
			name: "documents",
			resp: sampleResponse(),
			want: []string{
				"Search method: vector (2 result(s) in 12ms)",
				"Fallback: $rankFusion not supported",
				"=== Result 1 ===",
				"name: Trail Boots",
				`tags: ["outdoor","waterproof"]`,
			},
		},
		{
			name: "empty with error",
			resp: &search.SearchResponse{Documents: []bson.D{}, SearchMethod: types.SearchMethodNone, Error: "no reachable servers"},
			want: []string{"Error: no reachable servers", "No matching documents."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeSearchResponse(&buf, tt.resp, formatText))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	assert.True(t, validFormat("json"))
	assert.True(t, validFormat("yaml"))
	assert.True(t, validFormat("text"))
	assert.False(t, validFormat("xml"))
	require.Error(t, writeSearchResponse(&bytes.Buffer{}, sampleResponse(), "xml"))
}

func TestWriteSearchResponseYAMLKeepsNestedFieldOrder(t *testing.T) {
	id := bson.NewObjectID()
	resp := &search.SearchResponse{
		Documents: []bson.D{{
			{Key: "_id", Value: id},
			{Key: "specs", Value: bson.D{{Key: "weight", Value: "2kg"}, {Key: "capacity", Value: 4}, {Key: "area", Value: "3m2"}}},
			{Key: "variants", Value: bson.A{bson.D{{Key: "sku", Value: "T-4"}, {Key: "color", Value: "green"}}}},
		}},
		SearchMethod: types.SearchMethodHybrid,
	}

	var buf bytes.Buffer
	require.NoError(t, writeSearchResponse(&buf, resp, formatYAML))
	raw := buf.String()

	assert.Contains(t, raw, id.Hex())
	assert.Less(t, strings.Index(raw, "weight: 2kg"), strings.Index(raw, "capacity: 4"))
	assert.Less(t, strings.Index(raw, "capacity: 4"), strings.Index(raw, "area: 3m2"))
	assert.Less(t, strings.Index(raw, "sku: T-4"), strings.Index(raw, "color: green"))
}
