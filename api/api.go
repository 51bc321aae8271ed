package api

import (
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the gateway HTTP server.
type Server struct {
	config Config
	deps   Deps
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new gateway server. Collaborators are injected so
// tests can swap in stubs for the provider, store, and publisher.
func NewServer(config Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           config.ReadTimeout,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
		app:    app,
	}

	app.Use(s.requestID)
	app.Use(s.countRequests)

	app.Get("/health", s.handleHealth)
	app.Get("/readiness", s.handleReadiness)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	v1 := app.Group("/v1")
	v1.Get("/models", s.admission(ClassModels), s.handleListModels)
	v1.Post("/auth/signup", s.admission(ClassAuth), s.handleSignup)
	v1.Post("/auth/login", s.admission(ClassAuth), s.handleLogin)
	v1.Post("/chat", s.requireAuth, s.admission(ClassChat), s.handleChat)
	v1.Post("/chat/stream", s.requireAuth, s.admission(ClassChat), s.handleChatStream)

	return s
}

// Run starts the gateway server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting gateway server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the gateway server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting gateway server",
		zap.String("listen", listener.Addr().String()),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the gateway server, waiting at most the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown() error {
	if s.config.ShutdownTimeout > 0 {
		return s.app.ShutdownWithTimeout(s.config.ShutdownTimeout)
	}
	return s.app.Shutdown()
}
