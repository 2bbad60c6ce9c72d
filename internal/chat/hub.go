// Package chat streams conversation messages to connected agents over
// WebSocket. Subscribers are partitioned by client tenant so a broadcast
// never crosses tenant boundaries.
package chat

import (
	"encoding/json"

	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
)

type envelope struct {
	clientID uint
	data     []byte
}

// Hub routes messages to the websocket subscribers of each client tenant.
type Hub struct {
	subscribers map[uint]map[*Subscriber]bool

	broadcast  chan envelope
	register   chan *Subscriber
	unregister chan *Subscriber

	logger *zap.Logger
}

// NewHub creates a Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uint]map[*Subscriber]bool),
		broadcast:   make(chan envelope, 64),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		logger:      logger,
	}
}

// Run processes registrations and broadcasts. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			if h.subscribers[sub.clientID] == nil {
				h.subscribers[sub.clientID] = make(map[*Subscriber]bool)
			}
			h.subscribers[sub.clientID][sub] = true
			prometheus.ChatConnectionsGauge.Inc()
			h.logger.Debug("Chat subscriber connected",
				zap.Uint("client_id", sub.clientID),
				zap.Int("subscribers", len(h.subscribers[sub.clientID])))

		case sub := <-h.unregister:
			if subs, ok := h.subscribers[sub.clientID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.send)
					prometheus.ChatConnectionsGauge.Dec()
					if len(subs) == 0 {
						delete(h.subscribers, sub.clientID)
					}
				}
			}

		case msg := <-h.broadcast:
			for sub := range h.subscribers[msg.clientID] {
				select {
				case sub.send <- msg.data:
				default:
					// Slow consumer: drop the connection rather than block
					// the hub.
					close(sub.send)
					delete(h.subscribers[msg.clientID], sub)
					prometheus.ChatConnectionsGauge.Dec()
				}
			}
		}
	}
}

// Broadcast sends a message to every subscriber of the client tenant.
func (h *Hub) Broadcast(clientID uint, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal chat broadcast", zap.Error(err))
		return
	}
	h.broadcast <- envelope{clientID: clientID, data: data}
}
