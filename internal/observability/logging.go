// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide structured logger. Stores and servers receive it
// through their options and fall back to it when none is given.
var Logger *slog.Logger

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	RequestIDKey LogContextKey = "request_id"
	TraceIDKey   LogContextKey = "trace_id"
	SessionKey   LogContextKey = "session_user"
)

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	if uid, ok := ctx.Value(SessionKey).(string); ok {
		r.AddAttrs(slog.String("session_user", uid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func init() {
	Logger = NewLogger(os.Getenv("APP_ENV"), os.Stdout)
}

// NewLogger builds a context-aware logger: JSON in production, text otherwise.
func NewLogger(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	level := slog.LevelInfo

	switch strings.ToLower(env) {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "test":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(&ctxHandler{handler})
}

// Discard returns a logger that drops every record. Tests use it to keep
// output quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithSessionUser returns a context whose log records carry the active user.
func WithSessionUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, SessionKey, userID)
}

// StoreLogger provides structured logging for store mutations.
type StoreLogger struct {
	store  string
	logger *slog.Logger
}

// NewStoreLogger creates a new StoreLogger for the given store.
func NewStoreLogger(store string, logger *slog.Logger) *StoreLogger {
	if logger == nil {
		logger = Logger
	}
	return &StoreLogger{store: store, logger: logger}
}

// LogMutation logs a successful store mutation and counts it.
func (l *StoreLogger) LogMutation(ctx context.Context, operation string, fields map[string]interface{}) {
	StoreMutations.WithLabelValues(l.store, operation, "ok").Inc()
	attrs := []any{
		slog.String("store", l.store),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.DebugContext(ctx, "store mutation", attrs...)
}

// LogRejected logs a mutation refused by a store rule and counts it.
func (l *StoreLogger) LogRejected(ctx context.Context, operation string, err error) {
	StoreMutations.WithLabelValues(l.store, operation, "rejected").Inc()
	l.logger.DebugContext(ctx, "store mutation rejected",
		slog.String("store", l.store),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogPersistError logs a failure to write local storage.
func (l *StoreLogger) LogPersistError(ctx context.Context, key string, err error) {
	l.logger.ErrorContext(ctx, "local persist failed",
		slog.String("store", l.store),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogLoadFallback logs that persisted state was unreadable and a default was used.
func (l *StoreLogger) LogLoadFallback(ctx context.Context, key string, err error) {
	l.logger.WarnContext(ctx, "persisted state unreadable, using default",
		slog.String("store", l.store),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, logger *slog.Logger, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.DebugContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, logger *slog.Logger, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, logger *slog.Logger, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.ErrorContext(ctx, "async operation failed", attrs...)
}
