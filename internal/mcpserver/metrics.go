package mcpserver

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type toolInstruments struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	results  metric.Int64Histogram
}

var (
	toolInstrumentsOnce sync.Once
	mcpInstruments      toolInstruments
)

func getToolInstruments() toolInstruments {
	toolInstrumentsOnce.Do(func() {
		meter := otel.Meter("salesagent/mcpserver")

		var err error
		if mcpInstruments.calls, err = meter.Int64Counter(
			"salesagent.mcp.requests.total",
			metric.WithDescription("MCP tool calls received"),
		); err != nil {
			log.Printf("mcpserver: failed to create request counter: %v", err)
		}
		if mcpInstruments.failures, err = meter.Int64Counter(
			"salesagent.mcp.errors.total",
			metric.WithDescription("MCP tool calls that were rejected or failed, by error.type"),
		); err != nil {
			log.Printf("mcpserver: failed to create error counter: %v", err)
		}
		if mcpInstruments.latency, err = meter.Float64Histogram(
			"salesagent.mcp.response_time",
			metric.WithDescription("MCP tool call duration"),
			metric.WithUnit("ms"),
		); err != nil {
			log.Printf("mcpserver: failed to create latency histogram: %v", err)
		}
		if mcpInstruments.results, err = meter.Int64Histogram(
			"salesagent.mcp.results",
			metric.WithDescription("Documents returned per MCP tool call"),
			metric.WithUnit("{document}"),
		); err != nil {
			log.Printf("mcpserver: failed to create results histogram: %v", err)
		}
	})
	return mcpInstruments
}

// callOutcome accumulates what a single tool call did; record emits it once.
type callOutcome struct {
	start   time.Time
	attrs   []attribute.KeyValue
	errType string
	results int
}

func (o *callOutcome) record(ctx context.Context) {
	inst := getToolInstruments()
	opts := metric.WithAttributes(o.attrs...)

	if inst.calls != nil {
		inst.calls.Add(ctx, 1, opts)
	}
	if inst.latency != nil {
		inst.latency.Record(ctx, float64(time.Since(o.start).Milliseconds()), opts)
	}
	if o.errType != "" {
		if inst.failures != nil {
			withType := append(append([]attribute.KeyValue{}, o.attrs...), attribute.String("error.type", o.errType))
			inst.failures.Add(ctx, 1, metric.WithAttributes(withType...))
		}
		return
	}
	if inst.results != nil {
		inst.results.Record(ctx, int64(o.results), opts)
	}
}
