package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opinioncoins/backend/internal/ledger"
	"github.com/opinioncoins/backend/internal/models"
)

// ErrSurveyNotFound is returned for unknown or inactive surveys.
var ErrSurveyNotFound = errors.New("survey not found")

// ErrAlreadyResponded means the user already completed this survey; the
// prior reward stands and no second credit is written.
var ErrAlreadyResponded = errAlreadyResponded

// SurveyStore is the repository surface the service needs.
type SurveyStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	ListActive(ctx context.Context) ([]*models.Survey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	InsertResponseTx(ctx context.Context, tx pgx.Tx, resp *models.SurveyResponse) error
}

// Ledger is the slice of the coin ledger the service needs.
type Ledger interface {
	CreditTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	FindByExternalRef(ctx context.Context, ref string) (*models.LedgerEntry, error)
}

type Service interface {
	ListActive(ctx context.Context) ([]*models.Survey, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	SubmitResponse(ctx context.Context, userID, surveyID uuid.UUID, answers json.RawMessage) (coinsAwarded int64, err error)
}

type service struct {
	repo   SurveyStore
	ledger Ledger
}

func NewService(repo SurveyStore, ledger Ledger) Service {
	return &service{repo: repo, ledger: ledger}
}

var _ Service = (*service)(nil)

func (s *service) ListActive(ctx context.Context) ([]*models.Survey, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	survey, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey == nil || !survey.IsActive {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// rewardRef correlates an in-app reward to its survey+user pair. Its
// uniqueness in the ledger is what prevents double credit on resubmission.
func rewardRef(surveyID, userID uuid.UUID) string {
	return fmt.Sprintf("survey:%s:%s", surveyID, userID)
}

// SubmitResponse records the user's answers and credits the survey's coin
// reward in one transaction. The response row and the ledger entry each
// carry a uniqueness guarantee, so a resubmission (or a race between two
// identical submissions) cannot award twice.
func (s *service) SubmitResponse(ctx context.Context, userID, surveyID uuid.UUID, answers json.RawMessage) (int64, error) {
	survey, err := s.Get(ctx, surveyID)
	if err != nil {
		return 0, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	resp := &models.SurveyResponse{
		ID:       uuid.New(),
		SurveyID: surveyID,
		UserID:   userID,
		Answers:  answers,
	}
	if err := s.repo.InsertResponseTx(ctx, tx, resp); err != nil {
		if errors.Is(err, errAlreadyResponded) {
			return 0, ErrAlreadyResponded
		}
		return 0, err
	}

	ref := rewardRef(surveyID, userID)
	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      survey.CoinReward,
		Kind:        models.LedgerKindSurveyReward,
		ExternalRef: &ref,
	}
	if err := s.ledger.CreditTx(ctx, tx, entry); err != nil {
		if errors.Is(err, ledger.ErrDuplicateRef) {
			return 0, ErrAlreadyResponded
		}
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return survey.CoinReward, nil
}
