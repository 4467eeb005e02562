package promise

import (
	"context"
	"time"

	"promise-harness/internal/logging"
	"promise-harness/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedPanel adds a span, metrics and a log line around Panel.Fetch.
type InstrumentedPanel struct {
	*Panel
	tracer  trace.Tracer
	metrics *telemetry.HarnessMetrics
}

func NewInstrumentedPanel(panel *Panel, tracer trace.Tracer, metrics *telemetry.HarnessMetrics) *InstrumentedPanel {
	return &InstrumentedPanel{Panel: panel, tracer: tracer, metrics: metrics}
}

func (ip *InstrumentedPanel) Fetch(ctx context.Context) (RequestStatus, error) {
	payload := ip.Payload()
	retailer := ip.Retailer()

	ctx, span := ip.tracer.Start(ctx, "promise_api.fetch",
		trace.WithAttributes(
			attribute.String("promise.retailer", retailer),
			attribute.String("promise.sku", payload.SKU()),
			attribute.String("promise.destination.postal_code", payload.Destination.PostalCode),
			attribute.String("promise.destination.country", payload.Destination.Country),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("request_sent")

	status, resp, err := ip.Panel.fetch(ctx)

	duration := time.Since(start).Seconds()
	options := len(resp.DeliveryOptions())

	span.SetAttributes(
		attribute.String("promise.status", status.Kind.String()),
		attribute.Int("http.response.status_code", status.Code),
	)

	outcome := status.Kind.String()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Warn(ctx).Err(err).Str("kind", Kind(err)).Str("retailer", retailer).Msg("delivery options request did not succeed")
	} else {
		span.SetAttributes(attribute.Int("promise.delivery_options", options))
		span.AddEvent("delivery_options_received", trace.WithAttributes(
			attribute.Int("count", options),
		))
		logging.Info(ctx).Int("status", status.Code).Int("options", options).Str("retailer", retailer).Msg("delivery options received")
	}

	if ip.metrics != nil {
		ip.metrics.RecordFetch(ctx, telemetry.FetchParams{
			Retailer:    retailer,
			Outcome:     outcome,
			StatusCode:  status.Code,
			DurationSec: duration,
			Options:     options,
		})
	}

	return status, err
}
