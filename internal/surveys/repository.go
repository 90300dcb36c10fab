package surveys

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinioncoins/backend/internal/models"
)

var errAlreadyResponded = errors.New("survey already responded")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Survey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, questions, coin_reward, is_active, created_at
		FROM surveys WHERE is_active ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Survey
	for rows.Next() {
		var s models.Survey
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Questions, &s.CoinReward, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	var s models.Survey
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, questions, coin_reward, is_active, created_at
		FROM surveys WHERE id = $1
	`, id)
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Questions, &s.CoinReward, &s.IsActive, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// InsertResponseTx inserts a response inside the given transaction. A second
// response by the same user to the same survey hits the (survey_id, user_id)
// unique constraint and is reported as errAlreadyResponded.
func (r *Repository) InsertResponseTx(ctx context.Context, tx pgx.Tx, resp *models.SurveyResponse) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO survey_responses (id, survey_id, user_id, answers)
		VALUES ($1, $2, $3, $4)
		RETURNING completed_at
	`, resp.ID, resp.SurveyID, resp.UserID, resp.Answers).Scan(&resp.CompletedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errAlreadyResponded
	}
	return err
}

func (r *Repository) CountResponsesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM survey_responses WHERE user_id = $1
	`, userID).Scan(&n)
	return n, err
}
