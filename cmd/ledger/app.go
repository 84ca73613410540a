package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
)

var logLevel = flag.String("log-level", "", "Log level, overrides LOG_LEVEL (debug, info, warn, error)")

// setup loads the environment and builds the logger. Logs go to stderr so
// stdout carries only the JSON report.
func setup() (*config.Config, *log.Logger, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger, err := cli.SetupLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp runs fn against a freshly opened report service.
func withApp(ctx context.Context, fn func(*cli.App) (any, error)) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := fn(app)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
