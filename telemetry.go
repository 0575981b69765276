package hookbus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName is the scope name for hookbus tracing and metrics.
const instrumentationName = "github.com/zoobzio/hookbus"

// telemetry holds the OpenTelemetry instruments of one registry.
// Without configured providers the global noop implementations are used.
//
// Instruments:
//   - hookbus.fire.count (Int64Counter): fires, by hook and kind
//   - hookbus.fire.duration (Float64Histogram): dispatch time in seconds
//   - hookbus.listener.failures (Int64Counter): contained listener failures
type telemetry struct {
	tracer   trace.Tracer
	fires    metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

func newTelemetry(tracer trace.Tracer, meter metric.Meter) *telemetry {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	fires, err := meter.Int64Counter("hookbus.fire.count",
		metric.WithDescription("Total number of hook fires"),
		metric.WithUnit("{fire}"),
	)
	if err != nil {
		fires, _ = fallback.Int64Counter("hookbus.fire.count")
	}

	duration, err := meter.Float64Histogram("hookbus.fire.duration",
		metric.WithDescription("Duration of hook dispatch in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		duration, _ = fallback.Float64Histogram("hookbus.fire.duration")
	}

	failures, err := meter.Int64Counter("hookbus.listener.failures",
		metric.WithDescription("Total number of contained listener failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		failures, _ = fallback.Int64Counter("hookbus.listener.failures")
	}

	return &telemetry{
		tracer:   tracer,
		fires:    fires,
		duration: duration,
		failures: failures,
	}
}

func (t *telemetry) startFire(ctx context.Context, name Key, kind Kind) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookbus.fire",
		trace.WithAttributes(
			attribute.String("hookbus.hook", name),
			attribute.String("hookbus.kind", kind.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// annotate records how many listeners a fire dispatched to.
func (t *telemetry) annotate(ctx context.Context, listeners int) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("hookbus.listeners", listeners))
}

func (t *telemetry) finishFire(ctx context.Context, span trace.Span, name Key, kind Kind, elapsed time.Duration) {
	span.SetAttributes(attribute.Bool("hookbus.dispatched", kind != KindUnknown))
	span.SetStatus(codes.Ok, "")

	attrs := metric.WithAttributes(
		attribute.String("hook", name),
		attribute.String("kind", kind.String()),
	)
	t.fires.Add(ctx, 1, attrs)
	t.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (t *telemetry) recordFailure(ctx context.Context, name Key, listener string, err error) {
	trace.SpanFromContext(ctx).RecordError(err,
		trace.WithAttributes(attribute.String("hookbus.listener", listener)),
	)
	t.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hook", name),
		attribute.String("listener", listener),
	))
}
