package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
)

// Hub broadcasts discovery events to connected websocket clients. It
// implements ports.Notifier; delivery is best-effort and a dead client is
// dropped on first write failure.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	logger     *logrus.Logger
	mu         sync.Mutex
}

// NewHub creates a websocket hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Start begins the hub's event loop.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.WithField("clients", total).Info("Websocket client connected")
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.WithField("clients", total).Info("Websocket client disconnected")
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.logger.WithError(err).Warn("Dropping websocket client")
						client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// RegisterClient adds a websocket connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	h.register <- conn
}

// UnregisterClient removes a websocket connection from the hub.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.unregister <- conn
}

// Notify broadcasts the event to every connected client. It never blocks the
// pipeline: if the broadcast buffer is full the event is dropped and logged.
func (h *Hub) Notify(ctx context.Context, ownerID string, event domain.DiscoveryEvent) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":         "discovery_complete",
		"owner_id":     ownerID,
		"job_id":       event.JobID,
		"category":     event.Category,
		"result_count": event.ResultCount,
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.WithField("job_id", event.JobID).Warn("Websocket broadcast buffer full, dropping event")
	}
	return nil
}
