package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinioncoins/backend/internal/models"
)

type Service interface {
	Credit(ctx context.Context, e *models.LedgerEntry) error
	CreditTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	FindByExternalRef(ctx context.Context, ref string) (*models.LedgerEntry, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	TotalEarned(ctx context.Context, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
	ListRewards(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) Credit(ctx context.Context, e *models.LedgerEntry) error {
	return s.repo.Insert(ctx, e)
}

func (s *service) CreditTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return s.repo.InsertTx(ctx, tx, e)
}

func (s *service) FindByExternalRef(ctx context.Context, ref string) (*models.LedgerEntry, error) {
	return s.repo.FindByExternalRef(ctx, ref)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *service) TotalEarned(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.TotalEarned(ctx, userID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListRewards returns only survey-reward entries, from both producers.
func (s *service) ListRewards(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	return s.repo.ListByUserAndKinds(ctx, userID, []string{models.LedgerKindTheoremReach, models.LedgerKindSurveyReward})
}

// ErrDuplicateRef is returned when an insert collides with an existing
// external_ref. Callers interpret it as "already processed".
var ErrDuplicateRef = errDuplicateRef
