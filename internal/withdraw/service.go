package withdraw

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinioncoins/backend/internal/ledger"
	"github.com/opinioncoins/backend/internal/models"
	"github.com/opinioncoins/backend/internal/payout"
)

// MinWithdrawBalance is the smallest balance that unlocks withdrawals.
const MinWithdrawBalance = 500

var (
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrBelowMinimum        = fmt.Errorf("balance below the %d coin withdrawal minimum", MinWithdrawBalance)
	ErrInsufficientBalance = errors.New("withdrawal amount exceeds balance")
	ErrRequestNotFound     = errors.New("withdraw request not found")
)

// RequestStore is the repository surface the service needs.
type RequestStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	InsertTx(ctx context.Context, tx pgx.Tx, req *models.WithdrawRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Ledger is the slice of the coin ledger the service needs.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Credit(ctx context.Context, e *models.LedgerEntry) error
}

// InsertPayoutTxFunc enqueues a payout job within the given transaction.
// Provided by main using river.Client.InsertTx.
type InsertPayoutTxFunc func(ctx context.Context, tx pgx.Tx, args payout.ProcessPayoutArgs) error

type Service interface {
	Create(ctx context.Context, req *models.WithdrawRequest) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawRequest, error)
	Settle(ctx context.Context, requestID uuid.UUID) error
}

type service struct {
	repo         RequestStore
	ledger       Ledger
	insertPayout InsertPayoutTxFunc
}

// NewService creates a withdraw service. insertPayout is typically a closure
// over river.Client.InsertTx.
func NewService(repo RequestStore, ledger Ledger, insertPayout InsertPayoutTxFunc) Service {
	return &service{repo: repo, ledger: ledger, insertPayout: insertPayout}
}

var _ Service = (*service)(nil)

// Create validates the user's balance, records the pending request, and
// enqueues settlement in the same transaction so a request can never exist
// without its payout job.
func (s *service) Create(ctx context.Context, req *models.WithdrawRequest) error {
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	balance, err := s.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return err
	}
	if balance < MinWithdrawBalance {
		return ErrBelowMinimum
	}
	if req.Amount > balance {
		return ErrInsufficientBalance
	}

	req.ID = uuid.New()
	req.Status = models.WithdrawStatusPending

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.InsertTx(ctx, tx, req); err != nil {
		return err
	}
	if err := s.insertPayout(ctx, tx, payout.ProcessPayoutArgs{RequestID: req.ID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawRequest, error) {
	return s.repo.ListByUser(ctx, userID)
}

// debitRef ties the ledger debit to its withdraw request, so a retried
// payout job cannot debit twice.
func debitRef(requestID uuid.UUID) string {
	return "withdraw:" + requestID.String()
}

// Settle finalizes a pending request: re-check the balance projection, append
// the withdrawal debit, and flip the status. Safe to run more than once.
func (s *service) Settle(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.Status != models.WithdrawStatusPending {
		return nil
	}

	balance, err := s.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return err
	}
	if balance < req.Amount {
		// Balance moved under the minimum between request and settlement.
		return s.repo.UpdateStatus(ctx, req.ID, models.WithdrawStatusRejected)
	}

	ref := debitRef(req.ID)
	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Amount:      -req.Amount,
		Kind:        models.LedgerKindWithdrawal,
		ExternalRef: &ref,
	}
	if err := s.ledger.Credit(ctx, entry); err != nil && !errors.Is(err, ledger.ErrDuplicateRef) {
		return err
	}
	return s.repo.UpdateStatus(ctx, req.ID, models.WithdrawStatusApproved)
}
