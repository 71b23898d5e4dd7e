package search

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/pmadusud/salesagent/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	searchTracer = otel.Tracer("salesagent/search")

	instrumentsOnce sync.Once
	instruments     searchInstruments
)

type searchInstruments struct {
	requests    metric.Int64Counter
	fallbacks   metric.Int64Counter
	resultBytes metric.Int64Histogram
}

func getInstruments() searchInstruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("salesagent/search")

		var err error
		instruments.requests, err = meter.Int64Counter(
			"salesagent.search.requests",
			metric.WithDescription("Hybrid search invocations by resulting method"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Printf("search: failed to create request counter: %v", err)
		}

		instruments.fallbacks, err = meter.Int64Counter(
			"salesagent.search.fallbacks",
			metric.WithDescription("Searches that fell back from $rankFusion to vector-only"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Printf("search: failed to create fallback counter: %v", err)
		}

		instruments.resultBytes, err = meter.Int64Histogram(
			"salesagent.search.result_bytes",
			metric.WithDescription("Serialized size of shaped search results"),
			metric.WithUnit("By"),
		)
		if err != nil {
			log.Printf("search: failed to create result size histogram: %v", err)
		}
	})
	return instruments
}

func recordSearch(ctx context.Context, method types.SearchMethod, fellBack bool, resultBytes int) {
	inst := getInstruments()
	attrs := metric.WithAttributes(attribute.String("search.method", string(method)))
	if inst.requests != nil {
		inst.requests.Add(ctx, 1, attrs)
	}
	if fellBack && inst.fallbacks != nil {
		inst.fallbacks.Add(ctx, 1)
	}
	if resultBytes >= 0 && inst.resultBytes != nil {
		inst.resultBytes.Record(ctx, int64(resultBytes), attrs)
	}
}

func truncateQueryAttribute(query string) string {
	const maxAttributeLength = 120
	trimmed := strings.TrimSpace(query)
	runes := []rune(trimmed)
	if len(runes) <= maxAttributeLength {
		return trimmed
	}
	return string(runes[:maxAttributeLength]) + "…"
}
