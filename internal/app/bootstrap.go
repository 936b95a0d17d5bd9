package app

import (
	"fmt"
	"strings"

	"event-scout/internal/delivery/http/middleware"
	"event-scout/internal/delivery/http/routes"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// Bootstrap builds the HTTP app over an initialized container, starts the
// notification hub and, when enabled, the cron scheduler.
func Bootstrap(c *Container) (*App, func() error, error) {
	if c == nil {
		return nil, nil, fmt.Errorf("nil container")
	}

	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
	})

	errMw := middleware.NewErrorMiddleware()
	f.Use(errMw.Middleware())

	accessMw := middleware.NewAccessLogMiddleware(c.Logger)
	f.Use(accessMw.Middleware())

	routes.Register(f, routes.Deps{
		DB:     c.DB,
		Redis:  c.Redis,
		Scrape: c.Scrape,
		Hub:    c.Hub,
		Logger: c.Logger,
	})

	go c.Hub.Run()

	if c.Scheduler != nil {
		if err := c.Scheduler.Start(); err != nil {
			return nil, nil, err
		}
	}

	app := &App{Fiber: f, Container: c}
	cleanup := func() error { return c.Close() }
	return app, cleanup, nil
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
