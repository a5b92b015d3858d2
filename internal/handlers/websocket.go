package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler pushes job progress events to connected dashboards.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	eventService     interfaces.EventService
	serverInstanceID string // Clients use this to detect server restarts
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		serverInstanceID: uuid.New().String(),
	}
}

// SubscribeToEvents forwards all job events to connected clients.
func (h *WebSocketHandler) SubscribeToEvents() {
	forward := func(ctx context.Context, event interfaces.Event) error {
		h.Broadcast(event)
		return nil
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventJobStarted,
		interfaces.EventJobProgress,
		interfaces.EventJobCompleted,
		interfaces.EventJobFailed,
	} {
		h.eventService.Subscribe(eventType, forward)
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Int("clients", count).
		Msg("WebSocket client connected")

	// Greet the client with the instance ID so it can detect restarts
	h.writeToClient(conn, map[string]interface{}{
		"type":               "hello",
		"server_instance_id": h.serverInstanceID,
		"timestamp":          time.Now(),
	})

	// Read loop exists only to detect disconnects
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends an event to every connected client.
func (h *WebSocketHandler) Broadcast(event interfaces.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.writeToClient(conn, event)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writeToClient serializes writes per connection; gorilla connections do
// not allow concurrent writers.
func (h *WebSocketHandler) writeToClient(conn *websocket.Conn, payload interface{}) {
	h.mu.RLock()
	mutex, exists := h.clientMutex[conn]
	h.mu.RUnlock()
	if !exists {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
		go h.removeClient(conn)
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, exists := h.clients[conn]; !exists {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info().
		Int("clients", count).
		Msg("WebSocket client disconnected")
}
