// Package web serves the MockMate HTTP API and the websocket bridge
// that runs live practice calls for browser clients. It exposes token
// minting, interview generation, interview and feedback retrieval, and
// a monitor stream of live session events.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/patrickmn/go-cache"

	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/hub"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/store"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// TokenMinter mints session tokens for the token endpoint.
// *vapi.TokenIssuer satisfies it.
type TokenMinter interface {
	Issue(userID string) (string, error)
	TTL() time.Duration
}

// EngineFactory builds a fresh call engine for each websocket session.
type EngineFactory func() (vapi.Engine, error)

// Config configures the API server.
type Config struct {
	Store     store.Store
	Questions interview.QuestionGenerator
	Feedback  interview.FeedbackCreator

	// Minter signs session tokens. When nil, or when minting fails,
	// PublicKey is served instead.
	Minter    TokenMinter
	PublicKey string

	// Engines supplies call engines for the websocket bridge. When nil
	// the bridge refuses connections.
	Engines EngineFactory

	AppName        string
	Version        string
	CORSOrigins    string
	RequestLogging bool
	Logger         *slog.Logger
}

// Server is the MockMate API server.
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	store     store.Store
	questions interview.QuestionGenerator
	feedback  interview.FeedbackCreator

	minter    TokenMinter
	publicKey string
	engines   EngineFactory

	validate   *validator.Validate
	tokenCache *cache.Cache

	monitor   *hub.Hub
	hubCancel context.CancelFunc

	appName string
	version string
}

// NewServer wires the routes and starts the monitor hub. The returned
// server is ready for Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web: store is required")
	}
	if cfg.Questions == nil {
		return nil, errors.New("web: question generator is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("web: feedback creator is required")
	}

	appName := cfg.AppName
	if appName == "" {
		appName = "mockmate"
	}
	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.Component("web")
	}

	tokenTTL := vapi.DefaultTokenTTL
	if cfg.Minter != nil && cfg.Minter.TTL() > 0 {
		tokenTTL = cfg.Minter.TTL()
	}

	s := &Server{
		logger:    lg,
		store:     cfg.Store,
		questions: cfg.Questions,
		feedback:  cfg.Feedback,
		minter:    cfg.Minter,
		publicKey: cfg.PublicKey,
		engines:   cfg.Engines,
		validate:  validator.New(),
		// Cached tokens are served for half their lifetime so a client
		// never receives one about to expire.
		tokenCache: cache.New(tokenTTL/2, 10*time.Minute),
		monitor:    hub.New("sessions"),
		appName:    appName,
		version:    cfg.Version,
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go s.monitor.Run(hubCtx)

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.RequestLogging {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/vapi/token", s.handleToken)
	api.Post("/vapi/generate", s.handleGenerate)
	// Register before the :id route so "latest" is not read as an ID.
	api.Get("/interviews/latest", s.handleLatestInterviews)
	api.Get("/interviews/:id", s.handleGetInterview)
	api.Get("/interviews", s.handleListInterviews)
	api.Post("/feedback", s.handleCreateFeedback)
	api.Get("/feedback", s.handleGetFeedback)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(s.handleSessionWS))
	app.Get("/ws/monitor", websocket.New(s.handleMonitorWS))

	s.app = app
	return s, nil
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the monitor hub and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hubCancel()
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
