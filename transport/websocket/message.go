package websocket

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

// Message is a client request: an action name and its payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload carries every field a request may need; each action reads its own.
type Payload struct {
	PlayerID string           `json:"player_id,omitempty"`
	RoomID   string           `json:"room_id,omitempty"`
	Mode     string           `json:"mode,omitempty"`
	Opening  bool             `json:"opening,omitempty"`
	Position *entity.Position `json:"position,omitempty"`
	Mark     string           `json:"mark,omitempty"`
	Choice   string           `json:"choice,omitempty"`
}

// Response is written back to the client, both for answers and for pushed events.
type Response struct {
	Action  string `json:"action"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type ConnectPayload struct {
	Player *entity.Player       `json:"player"`
	Room   *entity.RoomSnapshot `json:"room,omitempty"`
}

const (
	reasonBadRequest   = "bad_request"
	reasonNotConnected = "not_connected"
	reasonUnknown      = "unknown_action"
	reasonInternal     = "internal"
)

var errorReasons = []struct {
	err    error
	reason string
}{
	{apperror.ErrOccupied, "occupied"},
	{apperror.ErrOutOfBounds, "out_of_bounds"},
	{apperror.ErrForbiddenMove, "forbidden_move"},
	{apperror.ErrNotYourTurn, "not_your_turn"},
	{apperror.ErrInvalidPhase, "invalid_phase"},
	{apperror.ErrInvalidChoice, "invalid_choice"},
	{apperror.ErrDuplicateResult, "duplicate_result"},
	{apperror.ErrPersistenceUnavailable, "persistence_unavailable"},
	{apperror.ErrSeriesOutOfSync, "persistence_unavailable"},
	{apperror.ErrRoomNotFound, "room_not_found"},
	{apperror.ErrRoomFrozen, "room_frozen"},
	{apperror.ErrRoomFull, "room_full"},
	{apperror.ErrRoomClosed, "room_closed"},
	{apperror.ErrGameFinished, "game_finished"},
	{apperror.ErrAlreadyQueued, "already_queued"},
	{apperror.ErrAlreadyInRoom, "already_in_room"},
	{apperror.ErrNotParticipant, "not_participant"},
	{apperror.ErrUnknownMode, "unknown_mode"},
	{entity.ErrUnknownMark, reasonBadRequest},
	{errMissingPosition, reasonBadRequest},
}

// errorReason maps a domain error to the code sent to the client.
func errorReason(err error) string {
	for _, candidate := range errorReasons {
		if errors.Is(err, candidate.err) {
			return candidate.reason
		}
	}

	return reasonInternal
}
