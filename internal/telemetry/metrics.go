package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type HarnessMetrics struct {
	FetchCount        metric.Int64Counter
	FetchDuration     metric.Float64Histogram
	DeliveryOptions   metric.Int64Histogram
	ReadinessCount    metric.Int64Counter
	ReadinessDuration metric.Float64Histogram
	ScriptLoadAttempt metric.Int64Counter
}

func NewHarnessMetrics(m metric.Meter) (*HarnessMetrics, error) {
	fetchCount, err := m.Int64Counter("promise.api.fetch.count",
		metric.WithUnit("{request}"),
		metric.WithDescription("Delivery-options requests issued by the API panel"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := m.Float64Histogram("promise.api.fetch.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock duration of a delivery-options request"),
	)
	if err != nil {
		return nil, err
	}

	deliveryOptions, err := m.Int64Histogram("promise.api.delivery_options",
		metric.WithUnit("{option}"),
		metric.WithDescription("Delivery options returned per response"),
	)
	if err != nil {
		return nil, err
	}

	readinessCount, err := m.Int64Counter("promise.widget.readiness.count",
		metric.WithUnit("{activation}"),
		metric.WithDescription("Widget readiness poll outcomes"),
	)
	if err != nil {
		return nil, err
	}

	readinessDuration, err := m.Float64Histogram("promise.widget.readiness.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time from activation until the widget entry point was found or the poll timed out"),
	)
	if err != nil {
		return nil, err
	}

	scriptLoadAttempt, err := m.Int64Counter("promise.widget.script_load.attempts",
		metric.WithUnit("{attempt}"),
		metric.WithDescription("Widget script download attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &HarnessMetrics{
		FetchCount:        fetchCount,
		FetchDuration:     fetchDuration,
		DeliveryOptions:   deliveryOptions,
		ReadinessCount:    readinessCount,
		ReadinessDuration: readinessDuration,
		ScriptLoadAttempt: scriptLoadAttempt,
	}, nil
}

func (m *HarnessMetrics) RecordReadiness(ctx context.Context, outcome string, durationSec float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ReadinessCount.Add(ctx, 1, attrs)
	m.ReadinessDuration.Record(ctx, durationSec, attrs)
}

type FetchParams struct {
	Retailer    string
	Outcome     string
	StatusCode  int
	DurationSec float64
	Options     int
}

func (m *HarnessMetrics) RecordFetch(ctx context.Context, p FetchParams) {
	attrs := metric.WithAttributes(
		attribute.String("retailer", p.Retailer),
		attribute.String("outcome", p.Outcome),
		attribute.Int("http.status_code", p.StatusCode),
	)
	m.FetchCount.Add(ctx, 1, attrs)
	m.FetchDuration.Record(ctx, p.DurationSec, attrs)
	if p.Outcome == "success" {
		m.DeliveryOptions.Record(ctx, int64(p.Options), metric.WithAttributes(attribute.String("retailer", p.Retailer)))
	}
}
