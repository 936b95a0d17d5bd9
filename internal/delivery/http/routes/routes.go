package routes

import (
	"log"

	"event-scout/internal/database"
	"event-scout/internal/delivery/http/handler"
	"event-scout/internal/infrastructure/cache"
	"event-scout/internal/service"
	"event-scout/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Deps struct {
	DB     database.DB
	Redis  *cache.Redis
	Scrape *service.ScrapeService
	Hub    *ws.Hub
	Logger *log.Logger
}

func Register(app *fiber.App, d Deps) {
	if app == nil {
		return
	}

	health := handler.NewHealthHandler(d.DB, d.Redis, d.Scrape)
	health.RegisterRoutes(app)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	scrape := handler.NewScrapeHandler(d.Scrape, d.Redis)
	scrape.RegisterRoutes(v1.Group("/scrape"))

	wsHandler := ws.NewHandler(d.Hub, d.Logger)
	app.Get("/ws", wsHandler.HandleScrapeWS)
}
