package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/grid"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/sheets"
	"tally/internal/sheets/excel"
	gsheet "tally/internal/sheets/google"
	mem "tally/internal/sheets/memory"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New("tally-worker", slog.LevelInfo)
	applog.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var (
		loader sheets.GridLoader
		writer sheets.ReportWriter
	)

	switch cfg.SheetBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		loader, writer = cli, cli
		logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	case "excel":
		wb := excel.Open(cfg.WorkbookPath)
		loader, writer = wb, wb
		logger.Info("Initialized Excel backend", "workbook", cfg.WorkbookPath)
	default:
		store := mem.New()
		store.SetSheet(cfg.SheetName, grid.Grid{
			{"日期", "客户", "进款", "净额", "费率", "USDT入款", "返款MYR", "USDT出款", "总数"},
		})
		loader, writer = store, store
		logger.Info("Initialized memory backend", "sheet", cfg.SheetName)
	}

	svc := services.NewRebuildService(loader, writer, repo, services.RebuildConfig{
		SheetName:   cfg.SheetName,
		WindowStart: cfg.StartDay(),
		Location:    cfg.Location(),
		Overrides:   cfg.Overrides(),
		ClearRows:   cfg.ClearRows,
		ClearCols:   cfg.ClearCols,
		ScanDepth:   cfg.ScanDepth,
	})

	rebuildWorker := worker.NewRebuildWorker(svc, cfg.RebuildInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One rebuild at startup so a restart never waits a full interval with a
	// stale summary.
	if err := rebuildWorker.StartupRebuild(ctx); err != nil {
		logger.Error("Startup rebuild failed", "error", err)
		// Keep going; the schedule and AMQP triggers retry on their own.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rebuildWorker.RunSchedule(ctx)
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeRebuildRequests(ctx, rebuildWorker.HandleRebuildRequest)
		})
	} else {
		logger.Info("AMQP disabled, running on schedule only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
