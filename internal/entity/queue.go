package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

// Mode separates the queue: casual rooms play one game, ranked rooms play a series.
type Mode string

const (
	ModeCasual Mode = "casual"
	ModeRanked Mode = "ranked"
)

var Modes = []Mode{ModeCasual, ModeRanked}

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeCasual, "":
		return ModeCasual, nil
	case ModeRanked:
		return ModeRanked, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownMode, value)
	}
}

type QueueEntry struct {
	ParticipantID    string    `json:"participant_id"`
	Mode             Mode      `json:"mode"`
	OpeningRequested bool      `json:"opening_requested"`
	JoinedAt         time.Time `json:"joined_at"`
}
