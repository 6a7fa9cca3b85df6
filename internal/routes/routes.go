package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/auth"
	"github.com/richfit/myibot/internal/balance"
	"github.com/richfit/myibot/internal/config"
	"github.com/richfit/myibot/internal/flow"
	"github.com/richfit/myibot/internal/middleware"
	"github.com/richfit/myibot/internal/notification"
	"github.com/richfit/myibot/internal/payments"
	"github.com/richfit/myibot/internal/session"
	"github.com/richfit/myibot/internal/twiml"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Badger *badger.DB
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	sessionRepo, err := sessionRepository(d)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app)

	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Services
	var accountRepo account.Repository
	var transferRepo payments.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		transferRepo = payments.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		transferRepo = payments.NewMemoryRepository()
	}
	notifier := notification.NewLoggerNotifier(d.Logger)
	sessions := session.NewStore(sessionRepo, d.Logger)

	machine := flow.New(flow.Config{
		DemoPIN:             d.Cfg.DemoPIN,
		RecipientCodeLength: d.Cfg.RecipientCodeLength,
	}, flow.Deps{
		Sessions: sessions,
		Gate:     auth.NewGate(sessions),
		Accounts: account.NewService(accountRepo),
		Balances: balance.NewStatic(d.Cfg.DemoBalanceCents),
		Payments: payments.NewService(transferRepo, notifier),
		Notifier: notifier,
		Logger:   d.Logger,
	})
	if d.Cfg.DemoPIN != "" {
		d.Logger.Warn("demo pin bypass enabled", slog.String("env", d.Cfg.AppEnv))
	}

	// Voice webhooks
	webhookMW := []fiber.Handler{middleware.TwilioSignature(d.Cfg.TwilioAuthToken, d.Cfg.BaseURL, d.Logger)}
	if d.Cache != nil {
		webhookMW = append(webhookMW, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterIVRRoutes(app, NewIVRHandler(machine, twiml.NewRenderer(d.Cfg.BaseURL), d.Logger), webhookMW...)

	return nil
}

func sessionRepository(d Deps) (session.Repository, error) {
	switch d.Cfg.SessionBackend {
	case config.SessionBackendRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis session backend requires a redis client")
		}
		return session.NewRedisRepository(d.Cache, d.Cfg.SessionTTL), nil
	case config.SessionBackendBadger:
		if d.Badger == nil {
			return nil, fmt.Errorf("badger session backend requires an open database")
		}
		return session.NewBadgerRepository(d.Badger, d.Cfg.SessionTTL), nil
	case config.SessionBackendMemory, "":
		return session.NewMemoryRepository(d.Cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", d.Cfg.SessionBackend)
	}
}
