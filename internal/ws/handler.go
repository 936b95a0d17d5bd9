package ws

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to the scrape status feed. Fiber v3 does
// not expose the raw net/http plumbing gorilla needs, so the upgrade runs
// through the adaptor middleware.
type Handler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, logger *log.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) HandleScrapeWS(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}
	return adaptor.HTTPHandlerFunc(h.upgrade)(c)
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("WS upgrade error | error=%v", err)
		}
		return
	}

	client := NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
