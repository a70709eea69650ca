// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	uploadDir string
	retention time.Duration
	schedule  string
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler. It removes spooled upload
// files and OCR bitmaps older than retention from uploadDir on the given
// cron schedule.
func NewScheduler(uploadDir string, retention time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	// Standard 5-field cron format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		uploadDir: uploadDir,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.cleanStaleUploads)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the cleanup (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.cleanStaleUploads()
}

// cleanStaleUploads removes upload leftovers older than the retention
// window. Uploads and OCR bitmaps are deleted at the end of each request,
// so anything still here belonged to a crashed or interrupted import.
func (s *Scheduler) cleanStaleUploads() {
	cutoff := time.Now().Add(-s.retention)

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read upload dir", slog.Any("error", err))
		}
		return
	}

	removed := 0
	failed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove stale upload",
				slog.String("path", path),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		removed++
	}

	if removed > 0 || failed > 0 {
		s.logger.Info("stale upload cleanup completed",
			slog.Int("removed", removed),
			slog.Int("failed", failed),
		)
	}
}
