package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresImportRepository implements ImportRepository on Postgres.
type PostgresImportRepository struct {
	db DB
}

// NewPostgresImportRepository creates a new Postgres-backed repository.
func NewPostgresImportRepository(db DB) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

// FindMatching checks for an existing transaction with the same owner,
// description and amount on the same calendar day.
func (r *PostgresImportRepository) FindMatching(ctx context.Context, ownerID uuid.UUID, description string, amount decimal.Decimal, dayStart time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM transactions
			WHERE user_id = $1
			  AND description = $2
			  AND amount = $3
			  AND date >= $4
			  AND date < $5
		)
	`

	dayEnd := dayStart.Add(24 * time.Hour)

	var exists bool
	if err := r.db.QueryRow(ctx, query, ownerID, description, amount, dayStart, dayEnd).Scan(&exists); err != nil {
		return false, fmt.Errorf("duplicate lookup: %w", err)
	}
	return exists, nil
}

// Save inserts one transaction row.
func (r *PostgresImportRepository) Save(ctx context.Context, ownerID uuid.UUID, entry Entry) error {
	query := `
		INSERT INTO transactions (user_id, date, description, category, type, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		ownerID,
		entry.Date,
		entry.Description,
		entry.Category,
		entry.Type,
		entry.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
