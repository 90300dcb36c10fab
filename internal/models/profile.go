package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a registered user. The coin balance is deliberately not a
// field here: it is always derived from the ledger.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}
