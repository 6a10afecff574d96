package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// WithRequestID tags ctx so every record logged with it carries request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUserID tags ctx so every record logged with it carries user_id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestFields returns the request and user ids stored on ctx, if any.
func RequestFields(ctx context.Context) (requestID, userID string) {
	requestID, _ = ctx.Value(requestIDKey).(string)
	userID, _ = ctx.Value(userIDKey).(string)
	return requestID, userID
}

// RequestHandler decorates records with the span and request identity found
// on the record's context.
type RequestHandler struct {
	next slog.Handler
}

func NewRequestHandler(next slog.Handler) *RequestHandler {
	return &RequestHandler{next: next}
}

func (h *RequestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RequestHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	requestID, userID := RequestFields(ctx)
	if requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if userID != "" {
		r.AddAttrs(slog.String("user_id", userID))
	}

	return h.next.Handle(ctx, r)
}

func (h *RequestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RequestHandler{next: h.next.WithAttrs(attrs)}
}

func (h *RequestHandler) WithGroup(name string) slog.Handler {
	return &RequestHandler{next: h.next.WithGroup(name)}
}
