package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerDrive/internal/app/service"
	inthttp "github.com/sifan077/PowerDrive/internal/http/handler"
	"github.com/sifan077/PowerDrive/internal/http/middleware"
	infraPrometheus "github.com/sifan077/PowerDrive/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger        *zap.Logger
	Postgres      *pgxpool.Pool
	Redis         *redis.Client
	Shares        service.ShareService
	Tokens        middleware.TokenVerifier
	Events        inthttp.EventPublisher
	Metrics       *infraPrometheus.ShareMetrics
	PublicBaseURL string
	CORSOrigins   []string
	RateLimit     middleware.RateLimitConfig
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "PowerDrive",
		DisableStartupMessage: true,
		// base64 payloads of larger uploads exceed the 4MB default
		BodyLimit: 64 * 1024 * 1024,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS(s.deps.CORSOrigins...))
}

func (s *Server) registerRoutes() {
	var rateLimit fiber.Handler
	if s.deps.Redis != nil {
		rateLimit = middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger)
	}

	accessHandler := inthttp.NewShareAccessHandler(inthttp.ShareAccessDeps{
		Logger:      s.deps.Logger,
		Shares:      s.deps.Shares,
		RateLimit:   rateLimit,
		Events:      s.deps.Events,
		Metrics:     s.deps.Metrics,
		ReadyChecks: s.readyChecks(),
	})
	accessHandler.Register(s.app)

	apiHandler := inthttp.NewShareAPIHandler(inthttp.ShareAPIDeps{
		Logger:        s.deps.Logger,
		Shares:        s.deps.Shares,
		Auth:          middleware.RequireAuth(s.deps.Tokens, s.deps.Logger),
		PublicBaseURL: s.deps.PublicBaseURL,
		Events:        s.deps.Events,
		Metrics:       s.deps.Metrics,
	})
	apiHandler.Register(s.app)
}

func (s *Server) readyChecks() map[string]inthttp.HealthCheck {
	checks := make(map[string]inthttp.HealthCheck)
	if s.deps.Postgres != nil {
		checks["postgres"] = s.deps.Postgres.Ping
	}
	if s.deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.deps.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
