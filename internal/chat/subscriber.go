package chat

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Subscriber is one websocket connection listening to a client tenant's
// conversation stream.
type Subscriber struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	clientID uint
	userID   uint
	logger   *zap.Logger
}

// NewSubscriber attaches a websocket connection to the hub.
func NewSubscriber(hub *Hub, conn *websocket.Conn, clientID, userID uint, logger *zap.Logger) *Subscriber {
	sub := &Subscriber{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		clientID: clientID,
		userID:   userID,
		logger:   logger,
	}
	hub.register <- sub
	return sub
}

// ReadPump drains inbound frames to keep the connection's control
// handlers running. Inbound chat messages go through the REST API, so
// payloads are ignored.
func (s *Subscriber) ReadPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("Chat websocket closed unexpectedly",
					zap.Uint("user_id", s.userID),
					zap.Error(err))
			}
			return
		}
	}
}

// WritePump writes queued messages to the socket and keeps it alive with
// pings.
func (s *Subscriber) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
