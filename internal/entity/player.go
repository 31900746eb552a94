package entity

import "time"

// Player is a registered participant identity with its series rating.
type Player struct {
	ID         string    `json:"id"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
