// ABOUTME: Local HTTP JSON API over the vault for the browser extension and dashboard
// ABOUTME: Fiber app with recovery, request ids, CORS, request logging, and error-to-status mapping

package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/storage"
)

// Options configure the HTTP server.
type Options struct {
	// AllowedOrigins is a comma-separated CORS list. Empty allows any origin.
	AllowedOrigins string
	Logger         *log.Logger
}

// Server serves the vault over HTTP.
type Server struct {
	app     *fiber.App
	capture *capture.Service
	store   *storage.Store
	logger  *log.Logger
}

// New builds the fiber app and registers every route.
func New(svc *capture.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		capture: svc,
		store:   svc.Store(),
		logger:  logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "xvault",
		BodyLimit:             config.MaxRequestBody,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.setupMiddleware(opts.AllowedOrigins)
	s.setupRoutes()
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupMiddleware(origins string) {
	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	corsCfg := cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		MaxAge:       86400,
	}
	if allowed := originSet(origins); len(allowed) > 0 {
		// Extension origins (chrome-extension://, moz-extension://) are not
		// accepted by the static AllowOrigins list.
		corsCfg.AllowOriginsFunc = func(origin string) bool {
			return allowed[origin]
		}
	} else {
		corsCfg.AllowOrigins = "*"
	}
	s.app.Use(cors.New(corsCfg))

	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
			"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
		)
		return err
	})
}

func originSet(origins string) map[string]bool {
	set := make(map[string]bool)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	return set
}

// handleError maps errors to JSON bodies: fiber errors keep their code,
// validation problems are 400, an unreachable store is 503, and everything
// else is a 500.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, storage.ErrImportValidation),
		errors.Is(err, storage.ErrInvalidRecord),
		errors.Is(err, capture.ErrInvalidPost):
		code = fiber.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, storage.ErrStoreUnavailable):
		code = fiber.StatusServiceUnavailable
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
