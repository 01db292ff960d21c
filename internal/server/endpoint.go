package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const corsAllowHeaders = "Content-Type, X-Requested-With, Authorization"

// endpoint returns the handler chain that fronts a collaborator route: CORS
// for the route's methods followed by a method gate.
func (s *Server) endpoint(allowed ...string) []fiber.Handler {
	methods := append(append([]string(nil), allowed...), fiber.MethodOptions)
	return []fiber.Handler{
		corsFallback,
		cors.New(cors.Config{
			AllowOriginsFunc: s.originAllowed,
			AllowMethods:     strings.Join(methods, ","),
			AllowHeaders:     corsAllowHeaders,
		}),
		methodGate(allowed),
	}
}

// corsFallback answers requests without an Origin with a wildcard and never
// allows credentials. cors.New leaves both untouched in that case.
func corsFallback(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowCredentials, "false")
	if c.Get(fiber.HeaderOrigin) == "" {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	}
	return c.Next()
}

// methodGate ends bare OPTIONS requests with 204 and rejects methods not in
// allowed with 405.
func methodGate(allowed []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		for _, m := range allowed {
			if c.Method() == m {
				return c.Next()
			}
		}
		return jsonError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
	}
}

// originAllowed accepts every origin under a wildcard configuration and
// otherwise matches the configured list case-insensitively.
func (s *Server) originAllowed(origin string) bool {
	configured := strings.TrimSpace(s.config.AllowedOrigins)
	if configured == "" || configured == "*" {
		return true
	}
	for _, o := range strings.Split(configured, ",") {
		if strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}
