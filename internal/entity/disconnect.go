package entity

import "time"

// DisconnectRecord tracks the participant that left a live room while the grace countdown runs.
type DisconnectRecord struct {
	RoomID                 string    `json:"room_id"`
	SeriesID               string    `json:"series_id,omitempty"`
	DepartedParticipantID  string    `json:"departed_participant_id"`
	RemainingParticipantID string    `json:"remaining_participant_id"`
	DepartedAt             time.Time `json:"departed_at"`
	GraceDeadline          time.Time `json:"grace_deadline"`
}
