package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yshengliao/casedesk/auth"
	"github.com/yshengliao/casedesk/nav"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
	sendBuffer            = 64
)

// SessionOptions configures the router each page session builds.
type SessionOptions struct {
	Table       *nav.Table
	Tokens      *auth.JWTService
	Observer    nav.Observer
	PublicPaths []string
	LoginPath   string

	// NavigationRate limits navigate and popstate events per session.
	// Zero means unlimited.
	NavigationRate  rate.Limit
	NavigationBurst int

	MaxMessageSize int64
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.NavigationRate <= 0 {
		o.NavigationRate = rate.Inf
	}
	if o.NavigationBurst <= 0 {
		o.NavigationBurst = 1
	}
	return o
}

// Client is one browser tab. It owns the tab's auth session and router;
// every inbound message is handled on the ReadPump goroutine.
type Client struct {
	ID string

	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger
	opts   SessionOptions

	sendMu sync.Mutex
	send   chan *Message
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	session *auth.Session
	history *socketHistory
	mount   *socketMount
	router  *nav.Router
	limiter *rate.Limiter
}

// NewClient creates a page session over conn.
func NewClient(hub *Hub, conn *websocket.Conn, opts SessionOptions, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		ID:      uuid.New().String(),
		hub:     hub,
		conn:    conn,
		opts:    opts,
		send:    make(chan *Message, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		session: auth.NewSession(opts.Tokens),
		limiter: rate.NewLimiter(opts.NavigationRate, opts.NavigationBurst),
	}
	c.logger = logger.With(zap.String("client_id", c.ID))
	c.history = &socketHistory{client: c, location: "/"}
	c.mount = &socketMount{client: c}
	return c
}

// ReadPump reads and handles messages until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			return
		}
		c.handle(&message)
	}
}

// WritePump writes queued messages and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
				return
			}

			if message.Type == TypeClose {
				code := websocket.CloseGoingAway
				reason := "Server shutting down"
				switch v := message.Data["code"].(type) {
				case int:
					code = v
				case float64:
					code = int(v)
				}
				if v, ok := message.Data["reason"].(string); ok {
					reason = v
				}
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("WebSocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a message without blocking. It reports false when the
// buffer is full or the session is closed.
func (c *Client) Send(message *Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		c.hub.metrics.SessionMessage("out", message.Type)
		return true
	default:
		return false
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) handle(msg *Message) {
	c.hub.metrics.SessionMessage("in", msg.Type)

	switch msg.Type {
	case TypePing:
		c.Send(&Message{
			Type: TypePong,
			Data: map[string]any{"timestamp": time.Now().Unix()},
		})

	case TypeInit:
		c.handleInit(msg)

	case TypeNavigate:
		if c.ready() && c.allow(msg.Type) {
			c.router.Navigate(c.ctx, stringField(msg, "path"))
		}

	case TypePopState:
		if c.ready() && c.allow(msg.Type) {
			c.history.pop(nav.Normalize(stringField(msg, "path")))
		}

	case TypeLogin:
		if _, err := c.session.Login(stringField(msg, "token")); err != nil {
			c.logger.Info("Login rejected", zap.Error(err))
			c.fail("invalid token")
		}
		c.sendAuth()

	case TypeLogout:
		c.session.Logout()
		c.sendAuth()

	default:
		c.fail(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// handleInit applies the optional token before the first resolution so the
// initial page reflects it.
func (c *Client) handleInit(msg *Message) {
	if c.router != nil {
		c.fail("session already initialized")
		return
	}
	if token := stringField(msg, "token"); token != "" {
		if _, err := c.session.Login(token); err != nil {
			c.logger.Info("Init token rejected", zap.Error(err))
			c.fail("invalid token")
		}
	}
	c.history.set(nav.Normalize(stringField(msg, "path")))
	c.sendAuth()

	opts := []nav.Option{nav.WithLogger(c.logger)}
	if len(c.opts.PublicPaths) > 0 {
		opts = append(opts, nav.WithPublicPaths(c.opts.PublicPaths...))
	}
	if c.opts.LoginPath != "" {
		opts = append(opts, nav.WithLoginPath(c.opts.LoginPath))
	}
	if c.opts.Observer != nil {
		opts = append(opts, nav.WithObserver(c.opts.Observer))
	}
	c.router = nav.New(c.opts.Table, c.session, c.history, c.mount, opts...)
	c.router.Init(c.ctx)
}

func (c *Client) ready() bool {
	if c.router == nil {
		c.fail("session not initialized")
		return false
	}
	return true
}

func (c *Client) allow(msgType string) bool {
	if c.limiter.Allow() {
		return true
	}
	c.logger.Warn("Navigation event dropped", zap.String("type", msgType))
	c.fail("rate limited")
	return false
}

func (c *Client) sendAuth() {
	state := c.session.State()
	data := map[string]any{"authenticated": state.Token != ""}
	if state.User != nil {
		data["username"] = state.User.Username
	}
	if state.Role != "" {
		data["role"] = state.Role
	}
	c.Send(&Message{Type: TypeAuth, Data: data})
}

func (c *Client) fail(message string) {
	c.Send(&Message{Type: TypeError, Data: map[string]any{"message": message}})
}

func stringField(msg *Message, key string) string {
	s, _ := msg.Data[key].(string)
	return s
}
