package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinioncoins/backend/internal/models"
)

var errDuplicateRef = errors.New("duplicate external ref")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertEntrySQL = `
	INSERT INTO ledger_entries (id, user_id, amount, kind, external_ref)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
`

// Insert appends a ledger entry. A unique-constraint hit on external_ref is
// reported as errDuplicateRef so callers can treat it as the already-processed
// outcome rather than a failure.
func (r *Repository) Insert(ctx context.Context, e *models.LedgerEntry) error {
	err := r.pool.QueryRow(ctx, insertEntrySQL, e.ID, e.UserID, e.Amount, e.Kind, e.ExternalRef).Scan(&e.CreatedAt)
	return mapDuplicate(err)
}

// InsertTx appends a ledger entry inside the given transaction.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	err := tx.QueryRow(ctx, insertEntrySQL, e.ID, e.UserID, e.Amount, e.Kind, e.ExternalRef).Scan(&e.CreatedAt)
	return mapDuplicate(err)
}

// FindByExternalRef returns the entry carrying ref, or nil if none exists.
func (r *Repository) FindByExternalRef(ctx context.Context, ref string) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, amount, kind, external_ref, created_at
		FROM ledger_entries WHERE external_ref = $1
	`, ref)
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.ExternalRef, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Balance is the user's coin balance: the sum over their ledger rows. It is
// never stored, only projected.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1
	`, userID).Scan(&balance)
	return balance, err
}

// TotalEarned sums the user's credit entries only.
func (r *Repository) TotalEarned(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1 AND amount > 0
	`, userID).Scan(&total)
	return total, err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	return r.list(ctx, `
		SELECT id, user_id, amount, kind, external_ref, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

func (r *Repository) ListByUserAndKinds(ctx context.Context, userID uuid.UUID, kinds []string) ([]*models.LedgerEntry, error) {
	return r.list(ctx, `
		SELECT id, user_id, amount, kind, external_ref, created_at
		FROM ledger_entries WHERE user_id = $1 AND kind = ANY($2) ORDER BY created_at DESC
	`, userID, kinds)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.ExternalRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errDuplicateRef
	}
	return err
}
