package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

const (
	SeriesMaxGames   = 3
	SeriesWinsNeeded = 2
)

type SeriesStatus string

const (
	SeriesInProgress SeriesStatus = "in_progress"
	SeriesComplete   SeriesStatus = "complete"
)

// Series is a best-of-three between two participants. Side is the mark a participant holds
// in the current game; sides swap after every recorded game.
type Series struct {
	ID                string       `json:"id"`
	ParticipantA      string       `json:"participant_a"`
	ParticipantB      string       `json:"participant_b"`
	SideOfA           Mark         `json:"side_of_a"`
	SideOfB           Mark         `json:"side_of_b"`
	GamesPlayed       int          `json:"games_played"`
	WinsA             int          `json:"wins_a"`
	WinsB             int          `json:"wins_b"`
	Status            SeriesStatus `json:"status"`
	CurrentGameNumber int          `json:"current_game_number"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// SeriesResult is what the persistence service answers after recording a result.
type SeriesResult struct {
	Series        *Series        `json:"series"`
	NextGameReady bool           `json:"next_game_ready"`
	RatingChanges map[string]int `json:"rating_changes,omitempty"`
}

func NewSeries(id, participantA, participantB string, sideOfA Mark, now time.Time) *Series {
	return &Series{
		ID:                id,
		ParticipantA:      participantA,
		ParticipantB:      participantB,
		SideOfA:           sideOfA,
		SideOfB:           sideOfA.Opposite(),
		Status:            SeriesInProgress,
		CurrentGameNumber: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (that *Series) IsComplete() bool {
	return that.Status == SeriesComplete
}

func (that *Series) HasParticipant(participantID string) bool {
	return participantID == that.ParticipantA || participantID == that.ParticipantB
}

func (that *Series) Opponent(participantID string) string {
	if participantID == that.ParticipantA {
		return that.ParticipantB
	}

	return that.ParticipantA
}

// SideOf returns the mark the participant holds in the current game.
func (that *Series) SideOf(participantID string) Mark {
	switch participantID {
	case that.ParticipantA:
		return that.SideOfA
	case that.ParticipantB:
		return that.SideOfB
	default:
		return MarkNone
	}
}

// ParticipantWithSide returns who holds mark in the current game.
func (that *Series) ParticipantWithSide(mark Mark) string {
	if that.SideOfA == mark {
		return that.ParticipantA
	}

	return that.ParticipantB
}

// Winner is the participant with two wins, empty while undecided or when closed without a winner.
func (that *Series) Winner() string {
	switch {
	case that.WinsA >= SeriesWinsNeeded:
		return that.ParticipantA
	case that.WinsB >= SeriesWinsNeeded:
		return that.ParticipantB
	default:
		return ""
	}
}

// RecordGameResult records game gameNumber. An empty winnerID is a draw.
func (that *Series) RecordGameResult(gameNumber int, winnerID string, now time.Time) (bool, error) {
	if gameNumber < that.CurrentGameNumber || (that.IsComplete() && gameNumber <= that.GamesPlayed) {
		return false, fmt.Errorf("%w: game %d of series %s", apperror.ErrDuplicateResult, gameNumber, that.ID)
	}

	if that.IsComplete() {
		return false, fmt.Errorf("%w: %s", apperror.ErrSeriesComplete, that.ID)
	}

	if gameNumber != that.CurrentGameNumber {
		return false, fmt.Errorf("%w: expected game %d, got %d", apperror.ErrInvalidPhase, that.CurrentGameNumber, gameNumber)
	}

	if winnerID != "" && !that.HasParticipant(winnerID) {
		return false, fmt.Errorf("%w: %s in series %s", apperror.ErrNotParticipant, winnerID, that.ID)
	}

	that.applyGame(winnerID)
	that.UpdatedAt = now

	return !that.IsComplete(), nil
}

// Forfeit scores the current game and every remaining one against the forfeiting participant.
// The series is always complete afterwards.
func (that *Series) Forfeit(participantID string, now time.Time) error {
	if that.IsComplete() {
		return fmt.Errorf("%w: %s", apperror.ErrSeriesComplete, that.ID)
	}

	if !that.HasParticipant(participantID) {
		return fmt.Errorf("%w: %s in series %s", apperror.ErrNotParticipant, participantID, that.ID)
	}

	winnerID := that.Opponent(participantID)
	for !that.IsComplete() {
		that.applyGame(winnerID)
	}

	that.UpdatedAt = now

	return nil
}

// Abandon closes the series without a winner: the current game counts as a draw.
func (that *Series) Abandon(now time.Time) error {
	if that.IsComplete() {
		return fmt.Errorf("%w: %s", apperror.ErrSeriesComplete, that.ID)
	}

	that.GamesPlayed++
	that.Status = SeriesComplete
	that.UpdatedAt = now

	return nil
}

func (that *Series) Clone() *Series {
	clone := *that
	return &clone
}

func (that *Series) applyGame(winnerID string) {
	switch winnerID {
	case that.ParticipantA:
		that.WinsA++
	case that.ParticipantB:
		that.WinsB++
	}

	that.GamesPlayed++

	if that.WinsA >= SeriesWinsNeeded || that.WinsB >= SeriesWinsNeeded || that.GamesPlayed >= SeriesMaxGames {
		that.Status = SeriesComplete
		return
	}

	that.SideOfA, that.SideOfB = that.SideOfB, that.SideOfA
	that.CurrentGameNumber++
}
