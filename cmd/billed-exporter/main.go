package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"billed/internal/amqp"
	"billed/internal/config"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/sheets"
	"billed/internal/sheets/google"
	"billed/internal/sheets/memory"
	"billed/internal/store"
	"billed/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentExporter)
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// The exporter reads the session store for the API token, sharing
	// the database with the UI process.
	sessions, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		logger.Error("failed to open session store", log.FieldError, err, "path", cfg.SessionDBPath)
		os.Exit(1)
	}
	defer sessions.Close()

	client := store.New(cfg.APIBaseURL, sessions, cfg.RequestTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		archive sheets.BillWriter
		reader  sheets.ArchiveReader
	)
	if cfg.GoogleSpreadsheetID != "" {
		gclient, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		archive, reader = gclient, gclient
		logger.Info("Google Sheets archive initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mem := memory.New()
		archive, reader = mem, mem
		logger.Info("Google Sheets disabled, archiving in memory")
	}

	exporter := worker.NewExporter(client.Bills(), archive, reader, logger)

	// Catch up on anything missed while the exporter was down.
	if err := exporter.Sweep(ctx); err != nil {
		logger.Error("startup sweep failed", log.FieldError, err)
	}

	group, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		group.Go(func() error {
			return amqpClient.ConsumeBillCreated(ctx, func(msg *amqp.BillCreatedMessage) error {
				return exporter.HandleBillCreated(ctx, msg)
			})
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sweeps")
	}

	group.Go(func() error {
		return exporter.RunPeriodic(ctx, cfg.ExportInterval)
	})

	logger.Info("billed-exporter started",
		log.FieldOperation, log.OpStartup,
		"interval", cfg.ExportInterval.String())

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exporter stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("exporter stopped gracefully")
}
