// Package server is the remote collaborator: it stores one flat JSON document
// per collection, relays inline image uploads to disk and reverse proxies
// /api/remote/* to a configured upstream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"revayat/internal/config"
	"revayat/internal/middleware"
	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	docs           storage.KeyValue
	redis          *redis.Client
	logger         *slog.Logger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	uploads        *uploadRelay
}

// NewServer creates a server on already-initialized dependencies. docs holds
// the collection documents; redis is optional and only backs rate limiting.
func NewServer(cfg *config.Config, docs storage.KeyValue, redisClient *redis.Client) *Server {
	return &Server{
		config:         cfg,
		docs:           docs,
		redis:          redisClient,
		logger:         observability.Logger,
		promMiddleware: middleware.InitMetrics("revayat-collaborator"),
		uploads:        newUploadRelay(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes()),
	}
}

// App builds the fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	// base64 inflates uploads by a third; leave room for the JSON envelope.
	app := fiber.New(fiber.Config{
		AppName:               "revayat collaborator",
		DisableStartupMessage: true,
		BodyLimit:             int(s.config.MaxUploadBytes())*2 + 64*1024,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded images are embedded by pages on other origins.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger(s.logger))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "revayat collaborator",
	}))

	for _, doc := range documents {
		app.All(doc.readPath, append(s.endpoint(fiber.MethodGet), s.readDocument(doc))...)
		app.All(doc.storePath, append(s.endpoint(fiber.MethodPost), s.storeDocument(doc))...)
	}

	app.All(uploadPath, append(s.endpoint(fiber.MethodPost),
		middleware.RateLimit(s.redis, 30, time.Minute, "upload_image"),
		s.uploads.handle,
	)...)
	app.Static("/uploads", s.uploads.dir, fiber.Static{
		MaxAge: 86400,
	})

	app.All("/api/remote/*", s.proxyRemote)
}

// Listen serves on the configured port until Shutdown.
func (s *Server) Listen() error {
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the document store and Redis when they are network backed.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storageStatus := "healthy"
	if p, ok := s.docs.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			storageStatus = "unhealthy"
			s.logger.WarnContext(ctx, "storage ping failed", slog.String("error", err.Error()))
		}
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if storageStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"storage": storageStatus,
			"redis":   redisStatus,
		},
		"time": time.Now(),
	})
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return models.RespondWithError(c, status, errors.New(message))
}
