// Package tracer is a small tracing port for the gateway hot path. The
// router emits spans through this interface so the routing code stays free
// of direct OpenTelemetry imports and tests can run with the no-op
// implementation.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span for one routed request.
type Span interface {
	// End completes the span. A non-nil err marks the span failed.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the gateway.
const (
	SpanRoute    = "gateway.route"
	SpanDispatch = "gateway.dispatch"
)

// Attribute keys used by the gateway.
const (
	AttrModel        = "model"
	AttrBackendID    = "backend_id"
	AttrRegion       = "region"
	AttrConnectionID = "connection_id"
	AttrStep         = "step"
	AttrUpstreamCode = "upstream.status_code"
)

// Event names used by the gateway.
const (
	EventStepRejected = "policy.step_rejected"
)
