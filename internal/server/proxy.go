package server

import (
	"log/slog"

	"revayat/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
)

// proxyRemote forwards /api/remote/<path> to REMOTE_API_BASE_URL/<path> and
// marks every proxied response as uncacheable.
func (s *Server) proxyRemote(c *fiber.Ctx) error {
	base := s.config.RemoteAPIBaseURL
	if base == "" {
		observability.ProxyRequests.WithLabelValues("unconfigured").Inc()
		return jsonError(c, fiber.StatusInternalServerError, "Remote API base URL is not configured.")
	}

	target := base + "/" + c.Params("*")
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		target += "?" + string(q)
	}

	req := c.Request()
	req.Header.Del(fiber.HeaderHost)
	req.Header.Del(fiber.HeaderConnection)
	if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
		req.ResetBody()
	}

	if err := proxy.DoTimeout(c, target, s.config.SyncTimeout()); err != nil {
		observability.ProxyRequests.WithLabelValues("failed").Inc()
		s.logger.ErrorContext(c.UserContext(), "proxy error",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		c.Response().Reset()
		return jsonError(c, fiber.StatusBadGateway, "Failed to reach remote API.")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	observability.ProxyRequests.WithLabelValues("ok").Inc()
	return nil
}
