package realtime

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// client is a single websocket connection. A user may hold several.
type client struct {
	actor     domain.Actor
	conn      *websocket.Conn
	send      chan []byte
	resources map[int64]bool // empty means every resource
}

func (c *client) wants(resourceID int64) bool {
	if resourceID == 0 || len(c.resources) == 0 {
		return true
	}
	return c.resources[resourceID]
}

func (c *client) seesPrivate(ownerID int64) bool {
	return c.actor.CanAccess(ownerID)
}

// Hub fans events out to connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With().Str("component", "realtime").Logger(),
		now:     time.Now,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(n)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers evt to every interested client without blocking. Slow
// clients miss events rather than stall the publisher.
func (h *Hub) Publish(evt Event) {
	full, err := json.Marshal(wireEvent{Type: evt.Type, ResourceID: evt.ResourceID, Data: evt.Data, SentAt: h.now().UTC()})
	if err != nil {
		h.logger.Error().Err(err).Str("type", evt.Type).Msg("marshal event")
		return
	}
	public := full
	if evt.Public != nil {
		public, err = json.Marshal(wireEvent{Type: evt.Type, ResourceID: evt.ResourceID, Data: evt.Public, SentAt: h.now().UTC()})
		if err != nil {
			h.logger.Error().Err(err).Str("type", evt.Type).Msg("marshal event")
			return
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(evt.ResourceID) {
			continue
		}
		msg := public
		if c.seesPrivate(evt.OwnerID) {
			msg = full
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Int64("user_id", c.actor.UserID).Str("type", evt.Type).Msg("client too slow, event dropped")
		}
	}
}

// Serve registers conn and runs its read and write loops. It blocks until the
// client disconnects.
func (h *Hub) Serve(conn *websocket.Conn, actor domain.Actor) {
	c := &client{
		actor:     actor,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		resources: make(map[int64]bool),
	}
	h.register(c)
	h.logger.Debug().Int64("user_id", actor.UserID).Msg("client connected")

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.SetWSClients(0)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Debug().Int64("user_id", c.actor.UserID).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Int64("user_id", c.actor.UserID).Msg("websocket read")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(c, ackMessage{Type: "error", Error: "invalid json"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.ResourceID <= 0 {
				h.reply(c, ackMessage{Type: "error", Error: "resource_id is required"})
				continue
			}
			h.mu.Lock()
			c.resources[msg.ResourceID] = true
			h.mu.Unlock()
			h.reply(c, ackMessage{Type: "subscribed", ResourceID: msg.ResourceID, Resources: h.subscriptions(c)})
		case "unsubscribe":
			h.mu.Lock()
			if msg.ResourceID > 0 {
				delete(c.resources, msg.ResourceID)
			} else {
				c.resources = make(map[int64]bool)
			}
			h.mu.Unlock()
			h.reply(c, ackMessage{Type: "unsubscribed", ResourceID: msg.ResourceID, Resources: h.subscriptions(c)})
		case "ping":
			h.reply(c, ackMessage{Type: "pong"})
		default:
			h.reply(c, ackMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

func (h *Hub) subscriptions(c *client) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int64, 0, len(c.resources))
	for id := range c.resources {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Hub) reply(c *client, msg ackMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
