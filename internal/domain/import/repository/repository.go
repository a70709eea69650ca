// Package repository persists imported transactions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is a normalized transaction ready for persistence. It is only ever
// produced by the entry normalizer, so all fields are valid: Date is a real
// calendar date, Amount is positive and Type is income or expense.
type Entry struct {
	Date        time.Time
	Description string
	Category    string
	Type        string
	Amount      decimal.Decimal
}

// ImportRepository is the storage surface the idempotent inserter needs:
// a duplicate lookup scoped by owner and calendar day, and a save.
type ImportRepository interface {
	// FindMatching reports whether the owner already has a transaction with
	// the same description and amount dated within [dayStart, dayStart+24h).
	FindMatching(ctx context.Context, ownerID uuid.UUID, description string, amount decimal.Decimal, dayStart time.Time) (bool, error)

	// Save persists one entry for the owner.
	Save(ctx context.Context, ownerID uuid.UUID, entry Entry) error
}
