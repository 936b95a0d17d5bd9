package handler

import (
	"errors"
	"time"

	"event-scout/internal/delivery/http/dto"
	"event-scout/internal/delivery/http/middleware"
	"event-scout/internal/infrastructure/cache"
	"event-scout/internal/pkg/response"
	"event-scout/internal/service"

	"github.com/gofiber/fiber/v3"
)

const statusSnapshotKey = "scrape:status:last"

type ScrapeHandler struct {
	svc       *service.ScrapeService
	snapshots *cache.Redis
}

func NewScrapeHandler(svc *service.ScrapeService, snapshots *cache.Redis) *ScrapeHandler {
	return &ScrapeHandler{svc: svc, snapshots: snapshots}
}

func (h *ScrapeHandler) RegisterRoutes(r fiber.Router) {
	r.Post("/trigger", h.HandleTrigger)
	r.Post("/stop", h.HandleStop)
	r.Get("/status", h.HandleStatus)
	r.Get("/sources", h.HandleSources)
}

func (h *ScrapeHandler) HandleTrigger(c fiber.Ctx) error {
	job, err := h.svc.Trigger()
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			return middleware.NewAppError(fiber.StatusConflict, "scrape job already running", nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusAccepted, "scrape job started", dto.JobFromDomain(*job))
}

func (h *ScrapeHandler) HandleStop(c fiber.Ctx) error {
	if err := h.svc.Stop(); err != nil {
		if errors.Is(err, service.ErrNoActiveJob) {
			return middleware.NewAppError(fiber.StatusNotFound, "no active scrape job", nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, "cancellation requested", nil)
}

func (h *ScrapeHandler) HandleStatus(c fiber.Ctx) error {
	report := h.svc.Status()
	out := dto.StatusFromDomain(report)

	// Best effort: keep the latest snapshot readable by external dashboards
	// even when this instance is busy.
	if h.snapshots != nil {
		_ = h.snapshots.SetJSON(c.Context(), statusSnapshotKey, out, time.Hour)
	}

	return response.Success(c, fiber.StatusOK, "success", out)
}

func (h *ScrapeHandler) HandleSources(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, "success", h.svc.Sources())
}
