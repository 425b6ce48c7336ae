// Package push mirrors dock state to auxiliary surfaces (widgets, watch
// apps) over WebSocket, standing in for the silent push channel of the
// production deployment. Surfaces receive a full sync on connect and
// incremental dock updates as refreshes land.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dockwatch.cycleshare.org/internal/models"
)

// DockUpdate is the wire message for a single dock change.
type DockUpdate struct {
	Type      string      `json:"type"`
	Data      models.Dock `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// FullSync is the wire message carrying the complete dock snapshot.
type FullSync struct {
	Type      string        `json:"type"`
	Docks     []models.Dock `json:"docks"`
	Timestamp int64         `json:"timestamp"`
}

// Hub fans dock messages out to every connected surface.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	broadcast chan []byte
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// Client is one connected surface.
type Client struct {
	ID   string
	Conn *websocket.Conn
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		broadcast: make(chan []byte, 16),
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run delivers broadcast messages to every client until ctx is cancelled.
// A client whose write fails is dropped; surfaces reconnect and receive a
// fresh full sync.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn("Dropping surface client", "client_id", id, "error", err)
					client.Conn.Close()
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Conn.Close()
		delete(h.clients, id)
	}
}

// ServeWS upgrades the request and registers the surface. The full dock
// snapshot provided by the caller is sent immediately so a widget can
// render without waiting for the next refresh.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, snapshot []models.Dock) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade surface connection", "error", err)
		return
	}

	client := &Client{ID: uuid.NewString(), Conn: conn}

	sync, err := json.Marshal(FullSync{
		Type:      "full_sync",
		Docks:     snapshot,
		Timestamp: time.Now().Unix(),
	})
	if err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, sync); err != nil {
			conn.Close()
			return
		}
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Surface connected", "client_id", client.ID, "clients", count)

	go h.readPump(client)
}

// readPump discards inbound frames and unregisters the client when the
// connection dies. Surfaces are read-only consumers.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[client.ID]; ok {
			delete(h.clients, client.ID)
			client.Conn.Close()
		}
		count := len(h.clients)
		h.mu.Unlock()
		h.logger.Info("Surface disconnected", "client_id", client.ID, "clients", count)
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastDockUpdate queues a single-dock change for delivery.
func (h *Hub) BroadcastDockUpdate(dock models.Dock) {
	message, err := json.Marshal(DockUpdate{
		Type:      "dock_updated",
		Data:      dock,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal dock update", "error", err)
		return
	}
	h.send(message)
}

// BroadcastFullSync queues the complete snapshot for delivery.
func (h *Hub) BroadcastFullSync(docks []models.Dock) {
	message, err := json.Marshal(FullSync{
		Type:      "full_sync",
		Docks:     docks,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal full sync", "error", err)
		return
	}
	h.send(message)
}

// send drops the message when the broadcast buffer is full rather than
// blocking a refresh; the next full sync makes surfaces whole.
func (h *Hub) send(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast buffer full, dropping message")
	}
}

// ClientCount returns the number of connected surfaces.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
