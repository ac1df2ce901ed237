package commands

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "preorder/commands"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// newSweepCounter counts orders moved by the sweeps, labelled by target
// status.
func newSweepCounter() metric.Int64Counter {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"preorder.sweep.transitions",
		metric.WithDescription("Orders moved to a new status by a sweep"),
	)
	if err != nil {
		otel.Handle(err)
	}
	if counter == nil {
		return noop.Int64Counter{}
	}
	return counter
}

// endSpan closes span, marking it failed for infrastructure errors only.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	if isExpectedOutcome(err) {
		span.SetAttributes(attribute.String("preorder.outcome", err.Error()))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
