package auth

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

// Create inserts a new profile and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string) (*models.Profile, error) {
	p := &models.Profile{ID: uuid.New(), Email: email, FullName: fullName}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, email, passwordHash, fullName)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail returns the profile and password hash for login. Returns nil
// if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Profile, string, error) {
	var p models.Profile
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, password_hash, created_at
		FROM profiles WHERE email = $1
	`, email)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &passwordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &p, passwordHash, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, created_at
		FROM profiles WHERE id = $1
	`, id)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
