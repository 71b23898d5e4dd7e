package mcpserver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestToolCallMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	toolInstrumentsOnce = sync.Once{}
	mcpInstruments = toolInstruments{}

	searcher := &fakeSearcher{docs: []bson.D{{{Key: "_id", Value: 1}}, {{Key: "_id", Value: 2}}}}
	handler := NewHybridSearchHandler(searcher, 0, 0)
	_, err := handler.HandleSDKToolCall(ctx, callRequest(`{"search_content":"tents"}`))
	require.NoError(t, err)
	_, err = handler.HandleSDKToolCall(ctx, callRequest(`{}`))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	errorTypes := map[string]int64{}
	var resultsSum int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
					if m.Name == "salesagent.mcp.errors.total" {
						errType, _ := dp.Attributes.Value("error.type")
						errorTypes[errType.AsString()] += dp.Value
					}
				}
			case metricdata.Histogram[int64]:
				if m.Name == "salesagent.mcp.results" {
					for _, dp := range data.DataPoints {
						resultsSum += dp.Sum
					}
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["salesagent.mcp.requests.total"])
	assert.Equal(t, map[string]int64{"invalid_arguments": 1}, errorTypes)
	assert.Equal(t, int64(2), resultsSum)
}
