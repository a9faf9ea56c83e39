package audit

import (
	"context"
	"log/slog"
	"time"

	"hubgate/internal/platform/middleware"
)

// Emitter is the interface for audit event persistence.
// Satisfied by InMemoryStore.
type Emitter interface {
	Append(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event persistence.
// Use this in services to standardize audit logging patterns.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
	now        func() time.Time
}

// NewLogger creates an audit logger. textLogger is used for structured
// logging; emitter is optional for event persistence.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
		now:        time.Now,
	}
}

// Record logs an audit event and appends it to the audit store.
// Automatically enriches with the request ID from context.
func (l *Logger) Record(ctx context.Context, action Action, event Event) {
	event.Action = string(action)
	event.RequestID = middleware.GetRequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	if l.textLogger != nil {
		l.textLogger.InfoContext(ctx, string(action),
			"log_type", "audit",
			"tenant_id", event.TenantID,
			"subject", event.Subject,
			"outcome", event.Outcome,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}

	if l.emitter == nil {
		return
	}
	if err := l.emitter.Append(ctx, event); err != nil && l.textLogger != nil {
		// Audit persistence failure must not fail the operation, but it
		// must be visible.
		l.textLogger.ErrorContext(ctx, "audit append failed", "error", err, "action", action)
	}
}
