package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type roomService interface {
	CreateRoom(ctx context.Context, creatorID string, useOpening bool) (*entity.RoomSnapshot, error)
	JoinRoom(ctx context.Context, roomID, participantID string) (*entity.RoomSnapshot, error)
	RoomOf(participantID string) (*usecase.Room, bool)
	Snapshot(ctx context.Context, roomID string) (*entity.RoomSnapshot, error)
	Disconnected(ctx context.Context, participantID string)
	Reconnected(ctx context.Context, participantID string) (*entity.RoomSnapshot, error)
}

type queueService interface {
	Enqueue(ctx context.Context, participantID string, mode entity.Mode, useOpening bool) (*usecase.QueueStatus, error)
	Dequeue(participantID string, mode entity.Mode)
	Leave(participantID string)
}

type playerService interface {
	GetOrCreatePlayer(ctx context.Context, playerID string) (*entity.Player, error)
}

type handlerFunc func(ctx context.Context, c *client, action string, payload *Payload) error

type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	rooms   roomService
	queue   queueService
	players playerService

	handlers map[string]handlerFunc

	mu      sync.RWMutex
	clients map[string]*client
}

func New(logger *slog.Logger) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}

	server.handlers = map[string]handlerFunc{
		"connect":        server.handleConnect,
		"ping":           server.handlePing,
		"queue:join":     server.handleQueueJoin,
		"queue:leave":    server.handleQueueLeave,
		"room:create":    server.handleRoomCreate,
		"room:join":      server.handleRoomJoin,
		"room:state":     server.handleRoomState,
		"opening:place":  server.handleOpeningPlace,
		"opening:choice": server.handleOpeningChoice,
		"game:move":      server.handleGameMove,
		"series:forfeit": server.handleSeriesForfeit,
		"series:abandon": server.handleSeriesForfeit,
	}

	return server
}

// Bind - attaches the use cases. The server is created first because it is their notifier.
func (that *Server) Bind(rooms roomService, queue queueService, players playerService) {
	that.rooms = rooms
	that.queue = queue
	that.players = players
}

// Notify - pushes a room or queue event to the participant's live connection, if any.
func (that *Server) Notify(participantID string, event entity.Event) {
	that.mu.RLock()
	c, ok := that.clients[participantID]
	that.mu.RUnlock()

	if !ok {
		return
	}

	c.write(Response{Action: event.Type, RoomID: event.RoomID, Payload: event.Payload})
}

func (that *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Get("/ws", that.ServeWS)

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeWS - upgrades the connection and serves it until the client goes away.
func (that *Server) ServeWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(that.logger, conn)
	go c.writePump()

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	that.readPump(context.WithoutCancel(req.Context()), c)
}

// readPump - processes messages from the client.
func (that *Server) readPump(ctx context.Context, c *client) {
	log := that.logger.With("method", "readPump")

	defer that.handleDisconnect(ctx, c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}

			return
		}

		that.dispatch(ctx, c, data)
	}
}

func (that *Server) dispatch(ctx context.Context, c *client, data []byte) {
	log := that.logger.With("method", "dispatch")

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		c.fail("", reasonBadRequest, fmt.Errorf("failed to unmarshal message: %w", err))
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		c.fail(message.Action, reasonUnknown, fmt.Errorf("unknown action %q", message.Action))
		return
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			c.fail(message.Action, reasonBadRequest, fmt.Errorf("failed to unmarshal payload: %w", err))
			return
		}
	}

	if message.Action != "connect" && c.ParticipantID() == "" {
		c.fail(message.Action, reasonNotConnected, errNotConnected)
		return
	}

	if err := handler(ctx, c, message.Action, &payload); err != nil {
		reason := errorReason(err)
		if reason == reasonInternal {
			log.Error("error processing message", "action", message.Action, "error", err)
		}

		c.fail(message.Action, reason, err)
	}
}

func (that *Server) register(participantID string, c *client) {
	that.mu.Lock()
	previous, ok := that.clients[participantID]
	that.clients[participantID] = c
	that.mu.Unlock()

	c.setParticipant(participantID)

	if ok && previous != c {
		previous.close()
	}
}

// handleDisconnect - a connection that was replaced by a newer one leaves the participant alone.
func (that *Server) handleDisconnect(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleDisconnect")

	c.close()

	participantID := c.ParticipantID()
	if participantID == "" {
		return
	}

	that.mu.Lock()
	current, ok := that.clients[participantID]
	if !ok || current != c {
		that.mu.Unlock()
		return
	}
	delete(that.clients, participantID)
	that.mu.Unlock()

	log.Info("player disconnected", "participant_id", participantID)

	that.queue.Leave(participantID)
	that.rooms.Disconnected(ctx, participantID)
}
