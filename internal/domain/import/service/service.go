// Package service orchestrates the statement import pipeline:
// extract, parse, normalize, insert.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spendtrack/spendtrack/internal/domain/import/extractor"
	"github.com/spendtrack/spendtrack/internal/domain/import/normalizer"
	"github.com/spendtrack/spendtrack/internal/domain/import/parser"
	"github.com/spendtrack/spendtrack/internal/domain/import/repository"
	"github.com/spendtrack/spendtrack/pkg/metrics"
)

// Defaults applied when a source row is missing optional fields.
const (
	defaultDescription = "N/A"
	defaultCategory    = "Other"
)

// SkipReason explains why an entry was not inserted.
type SkipReason string

const (
	ReasonDuplicate  SkipReason = "Duplicate"
	ReasonSaveFailed SkipReason = "Save failed"
)

// SkippedEntry pairs a normalized entry with the reason it was skipped.
type SkippedEntry struct {
	Entry  repository.Entry
	Reason SkipReason
}

// ImportResult summarizes one import call. It is built per request and
// never persisted.
type ImportResult struct {
	TotalRead      int
	Inserted       int
	Skipped        int
	SkippedEntries []SkippedEntry
}

// Extractor is the extraction surface the service consumes.
type Extractor interface {
	Extract(ctx context.Context, path, ext string) (extractor.Result, error)
}

// ImportService runs the import pipeline for uploaded statement files.
type ImportService struct {
	repo      repository.ImportRepository
	extractor Extractor
	logger    *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(repo repository.ImportRepository, ext Extractor, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:      repo,
		extractor: ext,
		logger:    logger,
	}
}

// ImportFile runs the full pipeline for the file at path, owned by ownerID.
// ext must be a lowercase extension including the leading dot.
func (s *ImportService) ImportFile(ctx context.Context, ownerID uuid.UUID, path, ext string) (*ImportResult, error) {
	start := time.Now()

	extracted, err := s.extractor.Extract(ctx, path, ext)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	rows := extracted.Rows
	if !extracted.HasRows() {
		rows = parser.ParseLines(extracted.Text)
	}

	entries := normalizeRows(rows)
	result := s.insertEntries(ctx, ownerID, entries)

	metrics.ImportsTotal.WithLabelValues("ok").Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("import complete",
		slog.String("owner_id", ownerID.String()),
		slog.Int("total_read", result.TotalRead),
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}

// normalizeRows maps raw rows onto the canonical entry schema and filters
// out rows without a parseable date or a positive amount. Output order
// preserves input order.
func normalizeRows(rows []parser.Row) []repository.Entry {
	entries := make([]repository.Entry, 0, len(rows))

	for _, row := range rows {
		cleaned := make(map[string]string, len(row))
		for key, value := range row {
			cleaned[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}

		date, err := normalizer.ParseFlexibleDate(cleaned["date"])
		if err != nil {
			continue
		}

		amount := normalizer.ExtractAmount(cleaned["amount"])
		if amount.Sign() <= 0 {
			continue
		}

		// Unrecognized or blank type tokens default to expense rather than
		// being rejected; most bank exports never label the type at all.
		entryType := normalizer.CanonicalType(cleaned["type"])
		if !normalizer.ValidType(entryType) {
			entryType = normalizer.TypeExpense
		}

		entries = append(entries, repository.Entry{
			Date:        date,
			Description: coalesce(cleaned["desc"], cleaned["description"], defaultDescription),
			Category:    coalesce(cleaned["cat"], cleaned["category"], defaultCategory),
			Type:        entryType,
			Amount:      amount,
		})
	}

	return entries
}

// insertEntries persists entries one at a time in order. Sequential
// processing is required for correctness, not speed: an entry inserted
// earlier in the batch must be visible to the duplicate check of later
// entries in the same call.
func (s *ImportService) insertEntries(ctx context.Context, ownerID uuid.UUID, entries []repository.Entry) *ImportResult {
	result := &ImportResult{TotalRead: len(entries)}

	skip := func(entry repository.Entry, reason SkipReason, outcome string) {
		result.Skipped++
		result.SkippedEntries = append(result.SkippedEntries, SkippedEntry{Entry: entry, Reason: reason})
		metrics.EntriesTotal.WithLabelValues(outcome).Inc()
	}

	for _, entry := range entries {
		dayStart := time.Date(entry.Date.Year(), entry.Date.Month(), entry.Date.Day(), 0, 0, 0, 0, time.UTC)

		exists, err := s.repo.FindMatching(ctx, ownerID, entry.Description, entry.Amount, dayStart)
		if err != nil {
			// A failed lookup counts as a failed save. The entry is skipped
			// and the batch keeps going.
			s.logger.Warn("duplicate lookup failed",
				slog.String("description", entry.Description),
				slog.Any("error", err),
			)
			skip(entry, ReasonSaveFailed, "save_failed")
			continue
		}

		if exists {
			skip(entry, ReasonDuplicate, "duplicate")
			continue
		}

		if err := s.repo.Save(ctx, ownerID, entry); err != nil {
			s.logger.Warn("failed to save entry",
				slog.String("description", entry.Description),
				slog.Any("error", err),
			)
			skip(entry, ReasonSaveFailed, "save_failed")
			continue
		}

		result.Inserted++
		metrics.EntriesTotal.WithLabelValues("inserted").Inc()
	}

	return result
}

// coalesce returns the first non-empty value.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
