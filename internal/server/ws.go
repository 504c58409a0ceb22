package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"wizline/internal/domain"
	"wizline/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHub streams committed events to websocket clients. A client may pass
// ?project_id= to receive a single project's events.
type WSHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
	bus     *events.Bus
	logger  *log.Logger
	ready   chan struct{}
}

func NewWSHub(bus *events.Bus, logger *log.Logger) *WSHub {
	if logger == nil {
		logger = log.Default()
	}
	return &WSHub{
		clients: make(map[*websocket.Conn]string),
		bus:     bus,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Run subscribes to the bus and broadcasts until ctx is done.
func (h *WSHub) Run(ctx context.Context) {
	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)
	close(h.ready)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(evt)
		}
	}
}

func (h *WSHub) broadcast(evt domain.Event) {
	data, err := json.Marshal(eventResponse(evt))
	if err != nil {
		h.logger.Printf("ws: marshal event %d: %v", evt.ID, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, project := range h.clients {
		if project != "" && project != evt.ProjectID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *WSHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *WSHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWebSocket upgrades HTTP connections to WebSocket.
func (h *WSHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = r.URL.Query().Get("project_id")
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Inbound messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
