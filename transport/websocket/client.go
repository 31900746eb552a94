package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// client is one live connection. Only writePump writes to conn.
type client struct {
	logger *slog.Logger
	conn   *websocket.Conn
	send   chan []byte

	mu            sync.Mutex
	participantID string
	closed        bool
}

func newClient(logger *slog.Logger, conn *websocket.Conn) *client {
	return &client{
		logger: logger,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

func (that *client) ParticipantID() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.participantID
}

func (that *client) setParticipant(participantID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.participantID = participantID
}

// write - queues a response; a client that cannot keep up loses the message.
func (that *client) write(response Response) {
	data, err := json.Marshal(response)
	if err != nil {
		that.logger.Error("failed to marshal response", "action", response.Action, "error", err)
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	select {
	case that.send <- data:
	default:
		that.logger.Warn("send buffer is full, dropping message", "action", response.Action)
	}
}

func (that *client) reply(action string, payload any) {
	that.write(Response{Action: action, Payload: payload})
}

func (that *client) fail(action, reason string, err error) {
	that.write(Response{Action: action, Error: err.Error(), Reason: reason})
}

// close - stops writePump; safe to call more than once.
func (that *client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				that.logger.Warn("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
