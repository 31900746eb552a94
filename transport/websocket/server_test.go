package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

type staticPlayers struct{}

func (staticPlayers) GetOrCreatePlayer(_ context.Context, playerID string) (*entity.Player, error) {
	return &entity.Player{ID: playerID, Rating: 1000}, nil
}

type received struct {
	Action  string          `json:"action"`
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Reason  string          `json:"reason"`
}

func newTestServer(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := New(logger)

	manager := usecase.NewRoomManager(logger, usecase.Settings{
		BoardSize:          entity.DefaultBoardSize,
		WinLength:          entity.DefaultWinLength,
		GracePeriod:        50 * time.Millisecond,
		Retention:          time.Hour,
		PersistenceRetries: 1,
		RetryInterval:      time.Millisecond,
	}, nil, nil, server)
	queue := usecase.NewQueue(logger, manager, nil, server)
	server.Bind(manager, queue, staticPlayers{})

	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		httpServer.Close()
		manager.Shutdown()
	})

	return "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: raw}))
}

// readUntil - skips pushed events until a message with the action arrives.
func readUntil(t *testing.T, conn *websocket.Conn, action string) received {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var message received
		require.NoError(t, conn.ReadJSON(&message))

		if message.Action == action {
			return message
		}
	}
}

func connect(t *testing.T, url, playerID string) *websocket.Conn {
	t.Helper()

	conn := dial(t, url)
	send(t, conn, "connect", Payload{PlayerID: playerID})

	message := readUntil(t, conn, "connect")
	require.Empty(t, message.Error)

	var payload ConnectPayload
	require.NoError(t, json.Unmarshal(message.Payload, &payload))
	require.Equal(t, playerID, payload.Player.ID)

	return conn
}

func TestServer_Match(t *testing.T) {
	// Given: two connected players
	url := newTestServer(t)
	alice := connect(t, url, "alice")
	bob := connect(t, url, "bob")

	// When: both join the casual queue
	send(t, alice, "queue:join", Payload{Mode: "casual"})
	waiting := readUntil(t, alice, entity.EventQueueWaiting)
	require.Empty(t, waiting.Error)

	send(t, bob, "queue:join", Payload{Mode: "casual"})

	// Then: both are told about the room
	found := readUntil(t, bob, entity.EventMatchFound)
	readUntil(t, alice, entity.EventMatchFound)

	var snapshot entity.RoomSnapshot
	require.NoError(t, json.Unmarshal(found.Payload, &snapshot))

	conns := map[string]*websocket.Conn{"alice": alice, "bob": bob}

	var first, second string
	for _, participant := range snapshot.Participants {
		if participant.Mark == entity.MarkFirst {
			first = participant.ID
		} else {
			second = participant.ID
		}
	}

	// When: the first side moves without naming its mark
	send(t, conns[first], "game:move", Payload{Position: &entity.Position{X: 7, Y: 7}})

	// Then: both see the move
	for _, conn := range conns {
		message := readUntil(t, conn, entity.EventMoveMade)

		var payload entity.MovePayload
		require.NoError(t, json.Unmarshal(message.Payload, &payload))
		require.Equal(t, entity.Position{X: 7, Y: 7}, payload.Move.Position)
		require.Equal(t, uint64(1), payload.Move.Sequence)
	}

	// When: the second side plays the same cell
	send(t, conns[second], "game:move", Payload{Position: &entity.Position{X: 7, Y: 7}, Mark: "second"})

	// Then: only the sender gets the error
	rejected := readUntil(t, conns[second], "game:move")
	require.Equal(t, "occupied", rejected.Reason)

	// When: the second side drops
	require.NoError(t, conns[second].Close())

	// Then: the first side is told and wins once the grace period is over
	readUntil(t, conns[first], entity.EventOpponentLeft)
	over := readUntil(t, conns[first], entity.EventGameOver)

	var result entity.GameOverPayload
	require.NoError(t, json.Unmarshal(over.Payload, &result))
	require.Equal(t, first, result.WinnerID)
	require.Equal(t, entity.FinishReasonDisconnect, result.Reason)
}

func TestServer_Errors(t *testing.T) {
	url := newTestServer(t)

	t.Run("Actions before connect are refused", func(t *testing.T) {
		conn := dial(t, url)
		send(t, conn, "queue:join", Payload{Mode: "casual"})

		message := readUntil(t, conn, "queue:join")
		require.Equal(t, reasonNotConnected, message.Reason)
	})

	t.Run("Unknown action", func(t *testing.T) {
		conn := connect(t, url, "carol")
		send(t, conn, "game:undo", Payload{})

		message := readUntil(t, conn, "game:undo")
		require.Equal(t, reasonUnknown, message.Reason)
	})

	t.Run("Move without a room", func(t *testing.T) {
		conn := connect(t, url, "dave")
		send(t, conn, "game:move", Payload{Position: &entity.Position{X: 1, Y: 1}})

		message := readUntil(t, conn, "game:move")
		require.Equal(t, "room_not_found", message.Reason)
	})

	t.Run("Unknown mode", func(t *testing.T) {
		conn := connect(t, url, "erin")
		send(t, conn, "queue:join", Payload{Mode: "blitz"})

		message := readUntil(t, conn, "queue:join")
		require.Equal(t, "unknown_mode", message.Reason)
	})
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err    error
		reason string
	}{
		{fmt.Errorf("failed to make move: %w: %s", apperror.ErrForbiddenMove, gomoku.ReasonDoubleThree), "forbidden_move"},
		{fmt.Errorf("failed to make move: %w", apperror.ErrOccupied), "occupied"},
		{apperror.ErrNotYourTurn, "not_your_turn"},
		{fmt.Errorf("failed to record series result: %w", apperror.ErrPersistenceUnavailable), "persistence_unavailable"},
		{apperror.ErrRoomFrozen, "room_frozen"},
		{errMissingPosition, reasonBadRequest},
		{io.ErrUnexpectedEOF, reasonInternal},
	}

	for _, test := range tests {
		t.Run(test.reason, func(t *testing.T) {
			require.Equal(t, test.reason, errorReason(test.err))
		})
	}
}
