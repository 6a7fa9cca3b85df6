package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/richfit/myibot/internal/config"
	"github.com/richfit/myibot/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// Stores are the optional backing stores handed to the routes.
type Stores struct {
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Badger *badger.DB
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, stores Stores, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	if err := routes.Setup(app, routes.Deps{
		Cfg:    cfg,
		DB:     stores.DB,
		Cache:  stores.Cache,
		Badger: stores.Badger,
		Logger: logger,
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
