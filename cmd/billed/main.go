package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billed/internal/amqp"
	"billed/internal/backend"
	"billed/internal/bills"
	"billed/internal/config"
	apphttp "billed/internal/http"
	"billed/internal/log"
	"billed/internal/newbill"
	"billed/internal/session"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	sessions, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		logger.Error("failed to open session store", log.FieldError, err, "path", cfg.SessionDBPath)
		os.Exit(1)
	}
	defer sessions.Close()

	backendCfg, err := backend.FromAppConfig(cfg, sessions)
	if err != nil {
		logger.Error("invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("failed to create backend", log.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("backend cleanup failed", log.FieldError, err)
			}
		}()
	}
	billStore, auth := result.Backend.Store, result.Backend.Auth

	// Optional bill.created events
	var events apphttp.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	}

	onNavigate := func(path string) {
		logger.Debug("navigation", log.FieldPath, path)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions: sessions,
		Auth:     auth,
		Bills:    bills.NewService(billStore, logger),
		NewBill:  newbill.NewPipeline(billStore, sessions, onNavigate, logger),
		Events:   events,
		Logger:   logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received",
			log.FieldOperation, log.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting billed server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
