package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release ledger backend", log.FieldError, err)
		}
	}()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	logger.Info("AMQP client connected",
		"exchange", cfg.AMQPExchange,
		log.FieldQueue, cfg.AMQPRequestQueue,
		"result_queue", cfg.AMQPResultQueue)

	reportWorker := worker.NewReportWorker(app.Reports, amqpClient, logger)
	if err := reportWorker.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("message consumption failed: %w", err)
	}

	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
	return nil
}
