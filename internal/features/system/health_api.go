package system

import (
	"context"

	"go-automation/internal/common/api"
	"go-automation/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type HealthApi struct {
	controller *HealthController
}

// NewHealthApi reports on Redis only when a client is configured.
func NewHealthApi(mongodb *database.MongodbDB, rdb *redis.Client) api.Route {
	checks := map[string]Pinger{
		"mongodb": func(ctx context.Context) error { return mongodb.Client.Ping(ctx, nil) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return &HealthApi{controller: NewHealthController(checks)}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", h.controller.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
