package app

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// engineMetrics are shared by both search engines and split by the
// engine attribute.
type engineMetrics struct {
	poolsScanned       metric.Int64Counter
	opportunitiesFound metric.Int64Counter
}

var (
	engineMetricsOnce sync.Once
	engineStats       engineMetrics
)

func engineMeters() *engineMetrics {
	engineMetricsOnce.Do(func() {
		meter := otel.Meter("arbitrage.engines")
		engineStats.poolsScanned, _ = meter.Int64Counter(
			"arbitrage_engine_pools_scanned_total",
			metric.WithDescription("Pools examined by the search engines"),
		)
		engineStats.opportunitiesFound, _ = meter.Int64Counter(
			"arbitrage_engine_opportunities_total",
			metric.WithDescription("Raw opportunities emitted before gating"),
			metric.WithUnit("{opportunity}"),
		)
	})
	return &engineStats
}

func engineAttr(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("engine", name))
}
