package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mossy-p/call-signaling/internal/middleware"
	"github.com/mossy-p/call-signaling/internal/models"
	"github.com/mossy-p/call-signaling/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Hub is the part of the signaling core the socket layer talks to
type Hub interface {
	Connect(p signaling.Peer) bool
	Deliver(connID string, msg models.Message) bool
	Disconnect(connID string) bool
}

// WSOptions holds the per-socket limits
type WSOptions struct {
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	ReadLimit    int64
	SendBuffer   int
	MessageRate  float64
	MessageBurst int
}

// DefaultWSOptions mirrors the keepalive timings the server always used
func DefaultWSOptions() WSOptions {
	return WSOptions{
		PingPeriod:   54 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		ReadLimit:    64 * 1024,
		SendBuffer:   256,
		MessageRate:  50,
		MessageBurst: 100,
	}
}

// Client represents a WebSocket client connection
type Client struct {
	id        string
	identity  string
	userAgent string
	conn      *websocket.Conn
	send      chan []byte
	limiter   *rate.Limiter
	opts      WSOptions

	mu     sync.Mutex
	closed bool
}

func (c *Client) ID() string        { return c.id }
func (c *Client) Identity() string  { return c.identity }
func (c *Client) UserAgent() string { return c.userAgent }

// Send queues msg for the write pump. It never blocks.
func (c *Client) Send(msg models.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("conn", c.id).Msg("failed to marshal message")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.conn.Close()
}

// HandleSignaling upgrades the request and attaches the socket to the hub
func HandleSignaling(hub Hub, opts WSOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := &Client{
			id:        uuid.New().String(),
			identity:  c.GetString(middleware.ContextUserID),
			userAgent: c.Request.UserAgent(),
			conn:      conn,
			send:      make(chan []byte, opts.SendBuffer),
			opts:      opts,
		}
		if opts.MessageRate > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst)
		}

		if !hub.Connect(client) {
			log.Warn().Str("conn", client.id).Msg("hub is shutting down, refusing socket")
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(opts.WriteWait))
			conn.Close()
			return
		}

		log.Info().Str("conn", client.id).Str("identity", client.identity).
			Str("remote", c.ClientIP()).Msg("socket connected")

		go client.writePump()
		go client.readPump(hub)
	}
}

func (c *Client) readPump(hub Hub) {
	defer func() {
		hub.Disconnect(c.id)
		c.close()
		log.Info().Str("conn", c.id).Msg("socket closed")
	}()

	if c.opts.ReadLimit > 0 {
		c.conn.SetReadLimit(c.opts.ReadLimit)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket error")
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Send(models.Message{
				Type:  models.EventError,
				Code:  models.CodeRateLimited,
				Error: "Too many messages",
			})
			continue
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			log.Debug().Err(err).Str("conn", c.id).Msg("failed to parse message")
			c.Send(models.Message{
				Type:  models.EventError,
				Code:  models.CodeInvalidPayload,
				Error: "Malformed message",
			})
			continue
		}

		if !hub.Deliver(c.id, msg) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
