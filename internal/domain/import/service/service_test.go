package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendtrack/spendtrack/internal/domain/import/extractor"
	"github.com/spendtrack/spendtrack/internal/domain/import/parser"
	"github.com/spendtrack/spendtrack/internal/domain/import/repository"
)

// fakeRepo is an in-memory ImportRepository with the same day-window
// duplicate semantics as the Postgres implementation.
type fakeRepo struct {
	saved    []repository.Entry
	saveErrs map[string]error // description -> error to return from Save
	findErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saveErrs: map[string]error{}}
}

func (f *fakeRepo) FindMatching(_ context.Context, _ uuid.UUID, description string, amount decimal.Decimal, dayStart time.Time) (bool, error) {
	if f.findErr != nil {
		return false, f.findErr
	}
	dayEnd := dayStart.Add(24 * time.Hour)
	for _, e := range f.saved {
		if e.Description == description && e.Amount.Equal(amount) &&
			!e.Date.Before(dayStart) && e.Date.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Save(_ context.Context, _ uuid.UUID, entry repository.Entry) error {
	if err := f.saveErrs[entry.Description]; err != nil {
		return err
	}
	f.saved = append(f.saved, entry)
	return nil
}

// fakeExtractor returns canned extraction output.
type fakeExtractor struct {
	result extractor.Result
	err    error
}

func (f *fakeExtractor) Extract(context.Context, string, string) (extractor.Result, error) {
	return f.result, f.err
}

func newTestService(repo repository.ImportRepository, ext Extractor) *ImportService {
	return NewImportService(repo, ext, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestImportFileFromText(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{
		Text: `2024-01-05 Grocery Shopping Food expense 450
2024-01-06 Salary Work income 5000`,
	}})

	result, err := svc.ImportFile(context.Background(), uuid.New(), "statement.pdf", ".pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRead)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, repo.saved, 2)
	assert.Equal(t, "Grocery Shopping", repo.saved[0].Description)
	assert.Equal(t, "income", repo.saved[1].Type)
	assert.True(t, repo.saved[1].Amount.Equal(decimal.NewFromInt(5000)))
}

func TestImportFileFromRows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{
		Rows: []parser.Row{
			{"Date": "2024-01-05", "Description": "Rent", "Category": "Housing", "Type": "expense", "Amount": "1200"},
		},
	}})

	result, err := svc.ImportFile(context.Background(), uuid.New(), "statement.xlsx", ".xlsx")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Rent", repo.saved[0].Description)
	assert.Equal(t, "Housing", repo.saved[0].Category)
}

func TestImportFileExtractionError(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeExtractor{err: fmt.Errorf("boom")})

	_, err := svc.ImportFile(context.Background(), uuid.New(), "statement.pdf", ".pdf")
	assert.Error(t, err)
}

func TestImportFileDuplicatesSkipped(t *testing.T) {
	repo := newFakeRepo()
	text := "2024-01-05 Grocery Shopping Food expense 450"
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{Text: text}})
	ownerID := uuid.New()

	first, err := svc.ImportFile(context.Background(), ownerID, "a.pdf", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	// Importing the same statement again inserts nothing.
	second, err := svc.ImportFile(context.Background(), ownerID, "a.pdf", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Skipped)
	require.Len(t, second.SkippedEntries, 1)
	assert.Equal(t, ReasonDuplicate, second.SkippedEntries[0].Reason)
	assert.Len(t, repo.saved, 1)
}

func TestImportFileDuplicateWithinBatch(t *testing.T) {
	repo := newFakeRepo()
	text := `2024-01-05 Coffee Food expense 45
2024-01-05 Coffee Food expense 45`
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{Text: text}})

	result, err := svc.ImportFile(context.Background(), uuid.New(), "a.pdf", ".pdf")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportFileSaveFailureContinues(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErrs["Failing Entry"] = fmt.Errorf("disk full")
	text := `2024-01-05 Failing Entry Misc expense 10
2024-01-06 Working Entry Misc expense 20`
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{Text: text}})

	result, err := svc.ImportFile(context.Background(), uuid.New(), "a.pdf", ".pdf")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.SkippedEntries, 1)
	assert.Equal(t, ReasonSaveFailed, result.SkippedEntries[0].Reason)
	assert.Equal(t, "Failing Entry", result.SkippedEntries[0].Entry.Description)
}

func TestImportFileLookupFailureContinues(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = fmt.Errorf("connection lost")
	svc := newTestService(repo, &fakeExtractor{result: extractor.Result{
		Text: "2024-01-05 Groceries Food expense 450",
	}})

	result, err := svc.ImportFile(context.Background(), uuid.New(), "a.pdf", ".pdf")

	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, ReasonSaveFailed, result.SkippedEntries[0].Reason)
}

func TestNormalizeRowsDefaults(t *testing.T) {
	rows := []parser.Row{
		{"date": "2024-01-05", "amount": "450"},
	}

	entries := normalizeRows(rows)

	require.Len(t, entries, 1)
	assert.Equal(t, "N/A", entries[0].Description)
	assert.Equal(t, "Other", entries[0].Category)
	assert.Equal(t, "expense", entries[0].Type)
}

func TestNormalizeRowsKeyAliases(t *testing.T) {
	rows := []parser.Row{
		{"Date": "2024-01-05", "Desc": "Short Key", "Cat": "Misc", "Type": "inc", "Amount": "100"},
	}

	entries := normalizeRows(rows)

	require.Len(t, entries, 1)
	assert.Equal(t, "Short Key", entries[0].Description)
	assert.Equal(t, "Misc", entries[0].Category)
	assert.Equal(t, "income", entries[0].Type)
}

func TestNormalizeRowsDropsBadRows(t *testing.T) {
	rows := []parser.Row{
		{"date": "not a date", "description": "Bad Date", "amount": "100"},
		{"date": "2024-01-05", "description": "Zero Amount", "amount": "0"},
		{"date": "2024-01-05", "description": "Negative Amount", "amount": "-50"},
		{"date": "2024-01-05", "description": "No Amount"},
		{"date": "2024-01-05", "description": "Good", "amount": "50"},
	}

	entries := normalizeRows(rows)

	require.Len(t, entries, 1)
	assert.Equal(t, "Good", entries[0].Description)
}

func TestNormalizeRowsUnknownTypeDefaultsToExpense(t *testing.T) {
	rows := []parser.Row{
		{"date": "2024-01-05", "description": "Transfer", "type": "transfer", "amount": "100"},
	}

	entries := normalizeRows(rows)

	require.Len(t, entries, 1)
	assert.Equal(t, "expense", entries[0].Type)
}
