package main

import (
	"context"
	"errors"
	"time"

	"cashcount/internal/amqp"
	"cashcount/internal/cli"
	"cashcount/internal/config"
	applog "cashcount/internal/log"
	gsheet "cashcount/internal/sheets/google"
	"cashcount/internal/storage"
	"cashcount/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting cashcount-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// export log that keeps redelivered events from duplicating rows
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err, "path", cfg.SQLiteDBPath)
	}
	defer repo.Close()

	exporter, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets exporter", err)
	}
	logger.Info("Google Sheets exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer consumer.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	w := worker.NewExportWorker(exporter, repo)
	if err := w.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		_ = consumer.Close()
		_ = repo.Close()
		cli.Fatal(logger, "Message consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
