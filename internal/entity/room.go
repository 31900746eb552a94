package entity

import "time"

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
	RoomFrozen   RoomStatus = "frozen"
	RoomClosed   RoomStatus = "closed"
)

type Participant struct {
	ID        string `json:"id"`
	Mark      Mark   `json:"mark"`
	Connected bool   `json:"connected"`
}

// RoomSnapshot is the full state of a room as sent to clients and the REST API.
type RoomSnapshot struct {
	ID           string        `json:"id"`
	Mode         Mode          `json:"mode"`
	Status       RoomStatus    `json:"status"`
	Participants []Participant `json:"participants"`
	Board        *Board        `json:"board"`
	Moves        []Move        `json:"moves"`
	Turn         Mark          `json:"turn,omitempty"`
	Opening      *OpeningState `json:"opening,omitempty"`
	Series       *Series       `json:"series,omitempty"`
	GameNumber   int           `json:"game_number"`
	Sequence     uint64        `json:"sequence"`
	Win          *WinResult    `json:"win,omitempty"`
	WinnerID     string        `json:"winner_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (that *RoomSnapshot) Participant(id string) (Participant, bool) {
	for _, participant := range that.Participants {
		if participant.ID == id {
			return participant, true
		}
	}

	return Participant{}, false
}
