package apperror

import "errors"

// board and rules
var (
	ErrOccupied      = errors.New("cell is already occupied")
	ErrOutOfBounds   = errors.New("position is out of bounds")
	ErrForbiddenMove = errors.New("forbidden move")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrInvalidPhase  = errors.New("action is not allowed in this phase")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrGameFinished  = errors.New("game is already finished")
	ErrWinLength     = errors.New("unsupported win length")
)

// series and persistence
var (
	ErrDuplicateResult        = errors.New("result already recorded")
	ErrPersistenceUnavailable = errors.New("persistence service unavailable")
	ErrSeriesComplete         = errors.New("series is already complete")
	ErrSeriesNotFound         = errors.New("series not found")
	ErrMatchNotFound          = errors.New("match not found")
	ErrNotParticipant         = errors.New("not a participant")
	ErrSeriesOutOfSync        = errors.New("stored series does not match the room")
)

// rooms and queue
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room already has two participants")
	ErrRoomFrozen        = errors.New("room is frozen until the result is resolved")
	ErrRoomClosed        = errors.New("room is closed")
	ErrAlreadyQueued     = errors.New("participant is already queued")
	ErrAlreadyInRoom     = errors.New("participant is already in a room")
	ErrParticipantOnline = errors.New("participant is connected")
	ErrUnknownMode       = errors.New("unknown queue mode")
)
