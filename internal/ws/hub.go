package ws

import (
	"log"
	"sync/atomic"
)

// Hub fans scrape job updates out to connected status watchers. The client
// map is owned by the Run goroutine, so no lock guards it; ClientCount reads
// a counter maintained alongside the map.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	count  atomic.Int64
	last   []byte
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) add(client *Client) {
	if client == nil {
		return
	}
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))

	// A watcher that connects mid-run should not wait for the next progress
	// tick to learn the job state.
	if h.last != nil {
		select {
		case client.send <- h.last:
		default:
		}
	}
	if h.logger != nil {
		h.logger.Printf("WS connected | total_clients=%d", len(h.clients))
	}
}

func (h *Hub) remove(client *Client) {
	if client == nil {
		return
	}
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
	if h.logger != nil {
		h.logger.Printf("WS disconnected | total_clients=%d", len(h.clients))
	}
}

func (h *Hub) fanOut(message []byte) {
	h.last = message
	var stale []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			stale = append(stale, client)
		}
	}
	// Removing inside the range above would close send channels while
	// still iterating; collect first.
	for _, client := range stale {
		h.remove(client)
	}
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	h.unregister <- client
}

func (h *Hub) Broadcast(message []byte) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		if h.logger != nil {
			h.logger.Printf("WS broadcast dropped | reason=buffer_full")
		}
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	return int(h.count.Load())
}
