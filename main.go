package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicetel/freescout-nps/internal/api"
	"github.com/voicetel/freescout-nps/internal/config"
	"github.com/voicetel/freescout-nps/internal/events"
	"github.com/voicetel/freescout-nps/internal/freescout"
	"github.com/voicetel/freescout-nps/internal/logging"
	"github.com/voicetel/freescout-nps/internal/mailer"
	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/notify"
	"github.com/voicetel/freescout-nps/internal/responses"
	"github.com/voicetel/freescout-nps/internal/settings"
	"github.com/voicetel/freescout-nps/internal/storage"
	"github.com/voicetel/freescout-nps/internal/survey"
)

// Version information - these will be set at build time via ldflags
var (
	Version   = "dev"     // Version number
	GitCommit = "unknown" // Git commit hash
	BuildDate = "unknown" // Build date
)

func main() {
	cfg := config.ParseFlags()

	if cfg.ShowVersion {
		printVersion()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.Verbose, nil)
	logger.SetAsDefault()

	if cfg.Verbose {
		logger.Info("Starting FreeScout NPS",
			"version", Version,
			"git_commit", GitCommit,
			"serve", cfg.Serve,
			"dry_run", cfg.DryRun,
		)
	}

	if cfg.CheckConnections {
		if err := checkConnections(cfg, logger); err != nil {
			logger.LogError("Connection check failed", err)
			os.Exit(1)
		}
		fmt.Println("All connections successful!")
		os.Exit(0)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.LogError("Failed to open SQLite", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.InitSchema(db); err != nil {
		logger.LogError("Failed to initialize database schema", err)
		os.Exit(1)
	}

	settingsSvc := settings.NewService(storage.NewSQLiteSettings(db))

	if cfg.InitDB {
		// Activation: schema is in place, seed default settings.
		if err := settingsSvc.EnsureSaved(); err != nil {
			logger.LogError("Failed to seed default settings", err)
			os.Exit(1)
		}
		fmt.Println("Database initialized successfully!")
		os.Exit(0)
	}

	if cfg.Cleanup {
		if err := performCleanup(db, cfg, logger); err != nil {
			logger.LogError("Failed to perform cleanup", err)
			os.Exit(1)
		}
		fmt.Println("Cleanup completed successfully!")
		os.Exit(0)
	}

	if cfg.StatsOnly {
		if err := printStats(db); err != nil {
			logger.LogError("Failed to print stats", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Optional collaborators.
	var transport survey.Transport
	if cfg.Email.GatewayURL != "" {
		transport = mailer.NewClient(mailer.Config{
			GatewayURL:    cfg.Email.GatewayURL,
			Timeout:       cfg.Email.Timeout,
			RetryAttempts: cfg.Email.RetryAttempts,
		})
	}

	var resolver survey.ContactResolver
	if cfg.FreeScout.DSN != "" {
		fs, err := freescout.Connect(cfg.FreeScout.DSN, cfg.FreeScout.Timeout)
		if err != nil {
			logger.LogError("Failed to connect to FreeScout", err)
			os.Exit(1)
		}
		defer fs.Close()
		resolver = fs
	}

	broadcaster := notify.NewClient(cfg.BroadcastURL, cfg.BroadcastTimeout)

	responsesSvc := responses.NewService(storage.NewSQLiteResponses(db))
	queue := survey.NewQueue(survey.Options{
		Settings:    settingsSvc,
		Responses:   responsesSvc,
		Surveys:     storage.NewSQLiteSurveys(db),
		Transport:   transport,
		Broadcaster: broadcaster,
		Resolver:    resolver,
		BaseURL:     cfg.BaseURL,
		DryRun:      cfg.DryRun,
		Logger:      logger,
	})
	adapter := events.NewAdapter(settingsSvc, queue, logger)

	if cfg.Serve {
		if err := runServer(cfg, settingsSvc, responsesSvc, queue, adapter, broadcaster, logger); err != nil {
			logger.LogError("Server failed", err)
			os.Exit(1)
		}
		return
	}

	// Default mode: one sweep and exit, for external cron.
	start := time.Now()
	processed := adapter.SweepTick()
	stats := sweepStats(processed, time.Since(start))

	if cfg.Stats || cfg.Verbose {
		printRunStats(stats, logger)
	}
}

func runServer(
	cfg *config.Config,
	settingsSvc *settings.Service,
	responsesSvc *responses.Service,
	queue *survey.Queue,
	adapter *events.Adapter,
	broadcaster *notify.Client,
	logger *logging.Logger,
) error {
	handler := api.NewHandler(api.Deps{
		Settings:  settingsSvc,
		Responses: responsesSvc,
		Queue:     queue,
		Adapter:   adapter,
		Token:     cfg.AdminToken,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				start := time.Now()
				processed := adapter.SweepTick()
				stats := sweepStats(processed, time.Since(start))
				logger.LogSweepStats(stats.Checked, stats.Sent, stats.Skipped, stats.Failed, stats.Duration.String())
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	// Deactivation: let the platform know the survey system went away.
	broadcaster.Broadcast("admin", "nps.deactivated", map[string]interface{}{
		"timestamp": models.Timestamp(time.Now()),
	})

	return err
}

func sweepStats(processed []models.PendingSurvey, duration time.Duration) *models.SweepStats {
	stats := &models.SweepStats{
		Checked:  len(processed),
		Duration: duration,
	}
	for _, sv := range processed {
		switch sv.Status {
		case models.StatusSent:
			stats.Sent++
		case models.StatusSkipped:
			stats.Skipped++
		case models.StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

func printVersion() {
	fmt.Printf("FreeScout NPS\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Date: %s\n", BuildDate)
}

func checkConnections(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Checking connections...")

	if cfg.FreeScout.DSN != "" {
		logger.Info("Testing FreeScout database connection...")
		fs, err := freescout.Connect(cfg.FreeScout.DSN, cfg.FreeScout.Timeout)
		if err != nil {
			return fmt.Errorf("FreeScout connection failed: %w", err)
		}
		fs.Close()
		logger.Info("FreeScout database connection successful")
	}

	if cfg.Email.GatewayURL != "" {
		logger.Info("Testing email gateway...")
		if err := mailer.TestGateway(cfg.Email.GatewayURL); err != nil {
			return fmt.Errorf("email gateway test failed: %w", err)
		}
		logger.Info("Email gateway test successful")
	}

	return nil
}

func performCleanup(db *storage.DB, cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting database cleanup",
		"retention_days", cfg.RetentionDays,
		"auto_vacuum", cfg.AutoVacuum,
	)

	if err := storage.CleanupOldSurveys(db, cfg.RetentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old surveys: %w", err)
	}

	if cfg.AutoVacuum {
		if err := storage.Vacuum(db); err != nil {
			return fmt.Errorf("failed to vacuum database: %w", err)
		}
	}

	return nil
}

func printStats(db *storage.DB) error {
	stats, err := storage.CollectStats(db)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Printf("\n=== FreeScout NPS Statistics ===\n\n")
	fmt.Printf("Total Surveys: %d\n\n", stats.TotalSurveys)

	fmt.Printf("By Status:\n")
	for status, count := range stats.ByStatus {
		fmt.Printf("  %s: %d\n", status, count)
	}
	fmt.Println()

	fmt.Printf("Sent in Last 24 Hours: %d\n", stats.SentLast24h)
	fmt.Printf("Current Pending Backlog: %d\n\n", stats.PendingBacklog)

	fmt.Printf("Total Responses: %d\n", stats.TotalResponses)
	fmt.Printf("Responses in Last 30 Days: %d\n", stats.ResponsesLast30)
	if stats.ResponsesLast30 > 0 {
		fmt.Printf("Average Score (30 days): %.1f\n", stats.AverageScore)
	}

	return nil
}

func printRunStats(stats *models.SweepStats, logger *logging.Logger) {
	logger.LogSweepStats(stats.Checked, stats.Sent, stats.Skipped, stats.Failed, stats.Duration.String())

	fmt.Printf("\n=== Sweep Statistics ===\n")
	fmt.Printf("Surveys processed: %d\n", stats.Checked)
	fmt.Printf("Sent: %d\n", stats.Sent)
	fmt.Printf("Skipped (throttled): %d\n", stats.Skipped)
	fmt.Printf("Failed: %d\n", stats.Failed)
	fmt.Printf("Duration: %s\n", stats.Duration)
}
