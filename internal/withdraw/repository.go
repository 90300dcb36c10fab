package withdraw

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinioncoins/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, req *models.WithdrawRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdraw_requests
			(id, user_id, amount, bank_name, account_number, country, country_code, currency, phone_number, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, req.ID, req.UserID, req.Amount, req.BankName, req.AccountNumber,
		req.Country, req.CountryCode, req.Currency, req.PhoneNumber, req.Status).Scan(&req.CreatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawRequest, error) {
	var req models.WithdrawRequest
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, amount, bank_name, account_number, country, country_code, currency, phone_number, status, created_at
		FROM withdraw_requests WHERE id = $1
	`, id)
	err := row.Scan(&req.ID, &req.UserID, &req.Amount, &req.BankName, &req.AccountNumber,
		&req.Country, &req.CountryCode, &req.Currency, &req.PhoneNumber, &req.Status, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, bank_name, account_number, country, country_code, currency, phone_number, status, created_at
		FROM withdraw_requests WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.WithdrawRequest
	for rows.Next() {
		var req models.WithdrawRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.Amount, &req.BankName, &req.AccountNumber,
			&req.Country, &req.CountryCode, &req.Currency, &req.PhoneNumber, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &req)
	}
	return list, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE withdraw_requests SET status = $1 WHERE id = $2
	`, status, id)
	return err
}
