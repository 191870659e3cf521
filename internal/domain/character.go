package domain

import (
	"time"

	"github.com/google/uuid"
)

// Character is the simulated hero a player's real-world goals are mapped onto.
// Combat stats and sheet arithmetic live outside this service; we only need
// an identity to scope narrative state to.
type Character struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Archetype string    `json:"archetype,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
