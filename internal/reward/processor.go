package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/opinioncoins/backend/internal/ledger"
	"github.com/opinioncoins/backend/internal/models"
)

// CoinsPerUnitRevenue is the fixed conversion rate from provider revenue to
// coins.
const CoinsPerUnitRevenue = 100

// StatusCompleted is the provider status value that earns a credit. Anything
// else (incomplete, abandoned, screened out) acknowledges with zero coins.
const StatusCompleted = "completed"

const storageTimeout = 5 * time.Second

var (
	// ErrNotConfigured means the provider secret is missing; every delivery
	// fails with a server error until it is provisioned.
	ErrNotConfigured = errors.New("provider secret not configured")
	// ErrMalformedPayload covers missing or unparseable notification fields.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnauthenticated means the signature did not verify.
	ErrUnauthenticated = errors.New("invalid hash")
	// ErrStorageFailure is a transient ledger failure; the sender's retry
	// policy is expected to redeliver.
	ErrStorageFailure = errors.New("storage failure")
)

// Notification is a provider callback normalized out of whatever transport
// encoding it arrived in. Revenue stays a string: the signature covers the
// provider's exact decimal text.
type Notification struct {
	UserID        string
	TransactionID string
	Revenue       string
	Status        string
	Hash          string
}

// Outcome is the terminal result of processing one delivery.
type Outcome struct {
	Coins     int64
	Duplicate bool
}

// LedgerStore is the slice of the ledger the processor needs.
type LedgerStore interface {
	FindByExternalRef(ctx context.Context, ref string) (*models.LedgerEntry, error)
	Credit(ctx context.Context, e *models.LedgerEntry) error
}

// Processor turns verified provider callbacks into ledger credits, exactly
// once per transaction_id. All duplicate coordination lives in the ledger's
// unique constraint; the processor holds no cross-request state.
type Processor struct {
	ledger LedgerStore
	secret string
	log    *slog.Logger
}

func NewProcessor(store LedgerStore, secret string, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{ledger: store, secret: secret, log: log}
}

// CoinsFromRevenue converts provider revenue to coins. Deterministic: a
// replay of the same revenue always yields the same amount.
func CoinsFromRevenue(revenue float64) int64 {
	return int64(math.Round(revenue * CoinsPerUnitRevenue))
}

// Process runs one notification through the delivery state machine:
// validate presence, verify the signature, short-circuit non-completed
// statuses, then commit the credit behind the idempotency guard.
func (p *Processor) Process(ctx context.Context, n Notification) (Outcome, error) {
	if p.secret == "" {
		return Outcome{}, ErrNotConfigured
	}

	if err := n.validate(); err != nil {
		return Outcome{}, err
	}

	if !VerifySignature(n.UserID, n.TransactionID, n.Revenue, p.secret, n.Hash) {
		p.log.Warn("callback signature mismatch",
			"user_id", n.UserID, "transaction_id", n.TransactionID)
		return Outcome{}, ErrUnauthenticated
	}

	if n.Status != StatusCompleted {
		p.log.Info("survey not completed, skipping",
			"transaction_id", n.TransactionID, "status", n.Status)
		return Outcome{Coins: 0}, nil
	}

	userID, err := uuid.Parse(n.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: bad user_id", ErrMalformedPayload)
	}
	revenue, err := strconv.ParseFloat(n.Revenue, 64)
	if err != nil || revenue < 0 {
		return Outcome{}, fmt.Errorf("%w: bad revenue", ErrMalformedPayload)
	}
	coins := CoinsFromRevenue(revenue)

	// Pre-check is an optimization only; the unique constraint is the
	// actual guard against concurrent duplicate deliveries.
	if existing, err := p.findExisting(ctx, n.TransactionID); err != nil {
		return Outcome{}, err
	} else if existing != nil {
		return Outcome{Coins: existing.Amount, Duplicate: true}, nil
	}

	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      coins,
		Kind:        models.LedgerKindTheoremReach,
		ExternalRef: &n.TransactionID,
	}
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	err = p.ledger.Credit(sctx, entry)
	cancel()
	if err == nil {
		return Outcome{Coins: coins}, nil
	}

	// Insert failed: either we lost a race with an identical delivery, or
	// storage is unhealthy. Re-run the duplicate check once to tell them
	// apart; a found row is the idempotent no-op outcome.
	existing, ferr := p.findExisting(ctx, n.TransactionID)
	if ferr == nil && existing != nil {
		return Outcome{Coins: existing.Amount, Duplicate: true}, nil
	}
	if errors.Is(err, ledger.ErrDuplicateRef) {
		// Constraint fired but the row is not readable; storage is in a bad
		// state and the sender should retry.
		return Outcome{}, fmt.Errorf("%w: duplicate ref not readable", ErrStorageFailure)
	}
	return Outcome{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func (p *Processor) findExisting(ctx context.Context, ref string) (*models.LedgerEntry, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	existing, err := p.ledger.FindByExternalRef(sctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return existing, nil
}

func (n Notification) validate() error {
	for _, f := range []struct{ name, value string }{
		{"user_id", n.UserID},
		{"transaction_id", n.TransactionID},
		{"revenue", n.Revenue},
		{"hash", n.Hash},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformedPayload, f.name)
		}
	}
	return nil
}
