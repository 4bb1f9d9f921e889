package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/grid"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/sheets"
	"tally/internal/sheets/excel"
	gsheet "tally/internal/sheets/google"
	mem "tally/internal/sheets/memory"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New("tally", slog.LevelInfo)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

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
		// The memory backend exists for local development; seed an empty
		// transaction sheet so a rebuild has something to find.
		store := mem.New()
		store.SetSheet(cfg.SheetName, grid.Grid{
			{"日期", "客户", "进款", "净额", "费率", "USDT入款", "返款MYR", "USDT出款", "总数"},
		})
		loader, writer = store, store
		logger.Info("Initialized memory backend", "sheet", cfg.SheetName)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher apphttp.RebuildPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, async rebuilds disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
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

	srv := apphttp.NewServer(":"+cfg.Port, svc, publisher, repo)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "backend", cfg.SheetBackend, "sheet", cfg.SheetName)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
