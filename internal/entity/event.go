package entity

// Event types pushed to participants.
const (
	EventQueueWaiting    = "queue_waiting"
	EventMatchFound      = "match_found"
	EventQueueError      = "queue_error"
	EventRoomState       = "room_state"
	EventStonePlaced     = "stone_placed"
	EventChoiceMade      = "choice_made"
	EventOpeningComplete = "opening_complete"
	EventMoveMade        = "move_made"
	EventGameOver        = "game_over"
	EventNextGame        = "next_game"
	EventSeriesUpdated   = "series_updated"
	EventSeriesForfeited = "series_forfeited"
	EventSeriesComplete  = "series_complete"
	EventOpponentLeft    = "opponent_disconnected"
	EventGameResumed     = "game_resumed"
	EventResolutionError = "resolution_error"
	EventRoomFrozen      = "room_frozen"
	EventRoomClosed      = "room_closed"
)

// Event is a server-initiated message. Payload is encoded as JSON by the transport.
type Event struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type MovePayload struct {
	Move     Move       `json:"move"`
	Win      *WinResult `json:"win,omitempty"`
	WinnerID string     `json:"winner_id,omitempty"`
}

type OpeningPayload struct {
	Opening *OpeningState `json:"opening"`
}

type GameOverPayload struct {
	GameNumber    int            `json:"game_number"`
	WinnerID      string         `json:"winner_id,omitempty"`
	Reason        string         `json:"reason"`
	Win           *WinResult     `json:"win,omitempty"`
	Series        *Series        `json:"series,omitempty"`
	RatingChanges map[string]int `json:"rating_changes,omitempty"`
}

type QueuePayload struct {
	Mode     Mode `json:"mode"`
	Position int  `json:"position"`
}

type ErrorPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
