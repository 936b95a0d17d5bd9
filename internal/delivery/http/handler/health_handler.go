package handler

import (
	"context"
	"time"

	"event-scout/internal/database"
	"event-scout/internal/infrastructure/cache"
	"event-scout/internal/pkg/response"
	"event-scout/internal/service"

	"github.com/gofiber/fiber/v3"
)

type HealthHandler struct {
	db    database.DB
	redis *cache.Redis
	svc   *service.ScrapeService
}

func NewHealthHandler(db database.DB, redis *cache.Redis, svc *service.ScrapeService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, svc: svc}
}

func (h *HealthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HandleHealth)
	app.Get("/health/deep", h.HandleDeepHealth)
}

func (h *HealthHandler) HandleHealth(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

// HandleDeepHealth pings the store and runs each adapter's one-request
// connectivity probe. Degraded dependencies report 200 with detail; only a
// dead store is a 503.
func (h *HealthHandler) HandleDeepHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	out := fiber.Map{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			out["database"] = err.Error()
			healthy = false
		} else {
			out["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			out["redis"] = "unavailable (bypassed)"
		} else {
			out["redis"] = "ok"
		}
	}

	if h.svc != nil {
		adapters := fiber.Map{}
		for kind, err := range h.svc.Probe(ctx) {
			if err != nil {
				adapters[kind] = err.Error()
			} else {
				adapters[kind] = "ok"
			}
		}
		out["adapters"] = adapters
	}

	if !healthy {
		return response.Error(c, fiber.StatusServiceUnavailable, "degraded", out)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}
