package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		badgerStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		} else {
			dbStatus = "disabled"
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		} else {
			redisStatus = "disabled"
		}
		if d.Badger != nil {
			if d.Badger.IsClosed() {
				badgerStatus = "closed"
			}
		} else {
			badgerStatus = "disabled"
		}
		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) || !healthy(badgerStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "badger": badgerStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// RegisterMetricsRoute exposes the Prometheus registry.
func RegisterMetricsRoute(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func healthy(status string) bool {
	return status == "ok" || status == "disabled"
}
