package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry kinds. The column is plain TEXT so new kinds need no migration.
const (
	LedgerKindTheoremReach = "theoremreach_survey"
	LedgerKindSurveyReward = "survey_reward"
	LedgerKindWithdrawal   = "withdrawal"
)

// LedgerEntry is one append-only row of the coin ledger. Credits are
// positive, debits negative. Entries are never updated or deleted;
// corrections are written as new offsetting entries. A non-nil ExternalRef
// is unique across the whole table, which is what makes externally-sourced
// credits idempotent.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	ExternalRef *string   `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
