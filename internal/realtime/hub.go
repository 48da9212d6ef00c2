// Package realtime streams completed registrations to connected admin
// dashboards over WebSocket, bridged across instances by Redis pub/sub.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/pkg/queue"
)

// EventRegistration is the event name for a completed registration.
const EventRegistration = "registration"

// Publisher publishes feed events for cross-instance broadcast.
type Publisher interface {
	PublishFeedEvent(event string, payload []byte) error
}

// Subscriber subscribes to the feed channel and invokes handler for
// incoming events. Returns a cancel function.
type Subscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains the set of connected admin clients and fans events out
// to them. There is a single feed; no rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	sub     func() // cancel Redis subscription
	pub     Publisher
	logger  *zap.Logger
}

// NewHub creates a hub. pub and sub may be nil when Redis is not
// configured; the hub then broadcasts locally only.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{clients: make(map[string]*Client), pub: pub, logger: logger}
	if sub != nil {
		cancel, err := sub.SubscribeFeed(func(event string, payload []byte) {
			h.broadcastLocal(event, payload)
		})
		if err != nil {
			logger.Warn("feed subscription failed, local broadcast only", zap.Error(err))
		} else {
			h.sub = cancel
		}
	}
	return h
}

// PublishRegistration fans one completed registration out to the feed.
// With Redis configured the event round-trips through pub/sub so every
// instance's clients see it; otherwise it goes straight to local clients.
func (h *Hub) PublishRegistration(payload queue.NotificationPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal feed event", zap.Error(err))
		return
	}
	if h.pub != nil && h.sub != nil {
		if err := h.pub.PublishFeedEvent(EventRegistration, data); err != nil {
			h.logger.Warn("publish feed event failed, broadcasting locally", zap.Error(err))
			h.broadcastLocal(EventRegistration, data)
		}
		return
	}
	h.broadcastLocal(EventRegistration, data)
}

func (h *Hub) broadcastLocal(event string, payload []byte) {
	msg := WSMessage{Event: event, Data: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop the event rather than block the feed.
			h.logger.Debug("feed client send buffer full", zap.String("client_id", c.ID))
		}
	}
}

// Register adds a client to the feed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.Int("clients", n))
}

// Unregister removes a client from the feed.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed client left", zap.String("client_id", c.ID), zap.Int("clients", n))
}

// Close cancels the Redis subscription.
func (h *Hub) Close() {
	if h.sub != nil {
		h.sub()
	}
}
