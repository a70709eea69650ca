package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	importhandler "github.com/spendtrack/spendtrack/internal/domain/import/handler"
	importrepo "github.com/spendtrack/spendtrack/internal/domain/import/repository"
	importservice "github.com/spendtrack/spendtrack/internal/domain/import/service"

	"github.com/spendtrack/spendtrack/internal/domain/import/extractor"
	"github.com/spendtrack/spendtrack/pkg/config"
	"github.com/spendtrack/spendtrack/pkg/cron"
	"github.com/spendtrack/spendtrack/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	ImportRepo importrepo.ImportRepository

	// Services
	Extractor     *extractor.Extractor
	ImportService *importservice.ImportService
	Scheduler     *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	if err := os.MkdirAll(d.Config.Upload.Dir, 0o755); err != nil {
		d.Logger.Warn("failed to create upload dir", slog.Any("error", err))
	}

	d.Extractor = extractor.New(extractor.Config{
		Tesseract:  d.Config.OCR.Tesseract,
		Pdftoppm:   d.Config.OCR.Pdftoppm,
		Language:   d.Config.OCR.Language,
		DPI:        d.Config.OCR.DPI,
		PageWidth:  d.Config.OCR.PageWidth,
		PageHeight: d.Config.OCR.PageHeight,
		TempDir:    d.Config.Upload.Dir,
	}, d.Logger)

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.Extractor, d.Logger)

	d.Scheduler = cron.NewScheduler(
		d.Config.Upload.Dir,
		time.Duration(d.Config.Upload.RetentionHours)*time.Hour,
		d.Config.Upload.CleanupSchedule,
		d.Logger,
	)

	d.Logger.Info("services initialized")
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Upload.Dir, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
