// Package middleware provides the request-scoped fiber middleware shared by
// the collaborator server: context propagation, request logging, tracing and
// rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"revayat/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals written by the middleware chain.
const (
	LocalRequestID = "requestid"
	LocalTraceID   = "traceID"
	LocalSpanID    = "spanID"
)

// ContextMiddleware copies the request and trace IDs from fiber locals into
// the request context so that the context-aware logger picks them up.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok && tid != "" {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a middleware that logs every request through logger.
// A nil logger uses observability.Logger.
func StructuredLogger(logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = observability.Logger
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
