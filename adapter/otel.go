package adapter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmstate"
)

// OTelConfig carries the instruments the caller provisioned.
type OTelConfig struct {
	Meter  metric.Meter
	Tracer trace.Tracer
}

// Instrumentation bridges the process event trail into OpenTelemetry and
// offers traced wrappers for the blocking helpers.
type Instrumentation struct {
	tracer trace.Tracer
	events metric.Int64Counter
}

// Instrument registers an event-trail listener that counts every lifecycle
// event on "shmstate.lifecycle.events" with op and state attributes. The
// listener stays registered for the life of the process.
func Instrument(cfg OTelConfig) (*Instrumentation, error) {
	counter, err := cfg.Meter.Int64Counter("shmstate.lifecycle.events",
		metric.WithDescription("State and transaction lifecycle events."))
	if err != nil {
		return nil, err
	}
	in := &Instrumentation{tracer: cfg.Tracer, events: counter}
	shmstate.OnEvent(func(e shmstate.Event) {
		in.events.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("op", string(e.Op)),
			attribute.String("state", e.Name),
		))
	})
	return in, nil
}

// SubscribeWait runs shmstate.SubscribeWait under a span named
// "shmstate.SubscribeWait" carrying the state name and outcome.
func (in *Instrumentation) SubscribeWait(ctx context.Context, st *shmstate.State, name string, perms shmstate.Permission) error {
	ctx, span := in.tracer.Start(ctx, "shmstate.SubscribeWait",
		trace.WithAttributes(attribute.String("state", name)))
	defer span.End()
	if err := shmstate.SubscribeWait(ctx, st, name, perms); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
