package entity

import "time"

// Move is one committed stone of a room. Moves are never modified once recorded.
type Move struct {
	Position  Position  `json:"position"`
	Mark      Mark      `json:"mark"`
	AuthorID  string    `json:"author_id"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

// WinResult is the winning run through the last move, ordered from one end to the other.
type WinResult struct {
	Mark Mark       `json:"mark"`
	Line []Position `json:"line"`
}

// MatchRecord is sent once per finished game to the match archive.
type MatchRecord struct {
	ID           string          `json:"id"`
	RoomID       string          `json:"room_id"`
	SeriesID     string          `json:"series_id,omitempty"`
	GameNumber   int             `json:"game_number"`
	Participants [2]string       `json:"participants"`
	Moves        []Move          `json:"moves"`
	FinalBoard   *Board          `json:"final_board"`
	OpeningLog   []OpeningAction `json:"opening_log,omitempty"`
	WinnerID     string          `json:"winner_id,omitempty"`
	Duration     time.Duration   `json:"duration"`
	FinishedAt   time.Time       `json:"finished_at"`
	FinishReason string          `json:"finish_reason"`
}

const (
	FinishReasonFive       = "five"
	FinishReasonBoardFull  = "board_full"
	FinishReasonForfeit    = "forfeit"
	FinishReasonDisconnect = "disconnect"
	FinishReasonBothGone   = "both_gone"
)
