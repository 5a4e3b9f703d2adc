// Package hub manages the websocket page sessions that drive server-side
// navigation
package hub

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yshengliao/casedesk/observability"
)

// Message is the envelope exchanged with the browser shell.
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Client to server message types.
const (
	TypeInit     = "init"
	TypeNavigate = "navigate"
	TypePopState = "popstate"
	TypeLogin    = "login"
	TypeLogout   = "logout"
	TypePing     = "ping"
)

// Server to client message types.
const (
	TypeWelcome = "welcome"
	TypeHistory = "history"
	TypeMount   = "mount"
	TypeAuth    = "auth"
	TypePong    = "pong"
	TypeError   = "error"
	TypeClose   = "close"
)

// clientRequest represents a request to get client information
type clientRequest struct {
	response chan int
}

// Hub tracks connected page sessions. All registry mutations happen on the
// Run goroutine.
type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	clientCount  chan clientRequest
	logger       *zap.Logger
	metrics      *observability.Collector
	closeGrace   time.Duration
	shutdown     chan struct{}
	shutdownDone chan struct{}
	stopOnce     sync.Once
}

// NewHub creates a new hub. metrics may be nil.
func NewHub(logger *zap.Logger, metrics *observability.Collector) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		clientCount:  make(chan clientRequest),
		logger:       logger,
		metrics:      metrics,
		closeGrace:   500 * time.Millisecond,
		shutdown:     make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	defer close(h.shutdownDone)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.clientCount:
			req.response <- len(h.clients)

		case <-h.shutdown:
			h.logger.Info("Closing all page sessions", zap.Int("count", len(h.clients)))

			closeMsg := &Message{
				Type: TypeClose,
				Data: map[string]any{
					"code":   1001, // Going Away
					"reason": "Server is shutting down",
				},
			}
			for client := range h.clients {
				if !client.Send(closeMsg) {
					h.logger.Warn("Failed to queue close message", zap.String("client_id", client.ID))
				}
			}

			// Give writers a moment to flush the close frames.
			if len(h.clients) > 0 {
				time.Sleep(h.closeGrace)
			}

			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
				h.metrics.SessionClosed()
			}

			h.logger.Info("Hub shutdown complete")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.metrics.SessionOpened()

	h.logger.Info("Page session connected", zap.String("client_id", client.ID))

	welcome := &Message{
		Type: TypeWelcome,
		Data: map[string]any{"client_id": client.ID},
	}
	if !client.Send(welcome) {
		h.logger.Warn("Failed to send welcome message", zap.String("client_id", client.ID))
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		h.metrics.SessionClosed()

		h.logger.Info("Page session disconnected", zap.String("client_id", client.ID))
	}
}

// RegisterClient adds client to the hub. It returns false once the hub is
// shutting down.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.shutdown:
		return false
	}
}

// removeClient safely removes a client
func (h *Hub) removeClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.shutdown:
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	req := clientRequest{
		response: make(chan int),
	}

	select {
	case h.clientCount <- req:
		return <-req.response
	case <-h.shutdown:
		return 0
	}
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.logger.Info("Hub shutdown initiated")
	h.stop()
	<-h.shutdownDone
}

// ShutdownWithTimeout gracefully shuts down the hub with a timeout
func (h *Hub) ShutdownWithTimeout(timeout time.Duration) error {
	h.logger.Info("Hub shutdown initiated", zap.Duration("timeout", timeout))
	h.stop()

	select {
	case <-h.shutdownDone:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("hub shutdown timed out after %v", timeout)
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}
