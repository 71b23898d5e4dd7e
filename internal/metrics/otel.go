package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	gaugeOnce sync.Once
	gaugeErr  error
)

// InitOTelMetrics registers salesagent.invocations.total, an observable gauge reporting
// the SQLite totals per mode. Call after observability.Init.
func InitOTelMetrics() error {
	gaugeOnce.Do(func() {
		_, gaugeErr = otel.Meter("salesagent/metrics").Int64ObservableGauge(
			"salesagent.invocations.total",
			metric.WithDescription("Cumulative invocations by mode (chat, query, mcp, tool)"),
			metric.WithUnit("{invocation}"),
			metric.WithInt64Callback(observeTotals),
		)
		if gaugeErr != nil {
			log.Printf("metrics: failed to create invocation gauge: %v", gaugeErr)
		}
	})
	return gaugeErr
}

func observeTotals(ctx context.Context, observer metric.Int64Observer) error {
	totals := Totals(ctx)
	for _, mode := range AllModes {
		observer.Observe(totals[mode], metric.WithAttributes(attribute.String("mode", string(mode))))
	}
	return nil
}
