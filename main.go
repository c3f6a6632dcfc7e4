// main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/config"
	"pacsguard/dataloader/ingest"
	"pacsguard/dataloader/storage"
	"pacsguard/dataloader/synthetic"
)

const (
	envLogLevel         = "LOG_LEVEL"
	defaultAnomalyLimit = 20
	usage               = "Usage: dataloader <ingest|process|init-db|show|anomalies|generate-synthetic-data> [options]"
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	// Create the logger instance at the very beginning. The level is raised
	// or lowered once the environment is loaded.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if len(os.Args) < 2 {
		logger.Error(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx := appcontext.WithLogger(context.Background(), logger)
	config.LoadDotEnv(ctx, logger)
	level.Set(appcontext.ParseLevel(os.Getenv(envLogLevel)))

	cfg := config.LoadConfig(ctx, logger)

	if err := run(ctx, cfg, command, args, os.Stdout); err != nil {
		logger.Error("Application terminated with an error", "error", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}

// run executes one command. Only connection establishment is bounded, so a
// long save always runs to completion.
func run(ctx context.Context, cfg *config.Config, command string, args []string, out io.Writer) error {
	logger := appcontext.LoggerFromContext(ctx)
	logger.Info("Begin running data loading", "command", command)

	if command == "generate-synthetic-data" {
		return synthetic.RunGenerateSyntheticData(ctx, args, cfg)
	}

	gateway, err := storage.NewGateway(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to create database gateway: %w", err)
	}
	defer gateway.Close()

	sink := ingest.NewSink(ingest.SinkDependencies{Config: cfg, Store: gateway})

	switch command {
	case "ingest":
		return sink.Ingest(ctx)
	case "process":
		return runProcess(ctx, sink, args, out)
	case "init-db":
		if err = sink.PrepareStore(ctx); err != nil {
			return err
		}
		logger.InfoContext(ctx, "Database initialised", "driver", gateway.Driver())
		return nil
	case "show":
		return runShow(ctx, gateway, args, out)
	case "anomalies":
		return runAnomalies(ctx, gateway, args, out)
	default:
		return fmt.Errorf("%w: %s\n%s", errUnknownCommand, command, usage)
	}
}

func runProcess(ctx context.Context, sink *ingest.Sink, args []string, out io.Writer) error {
	processFlagSet := flag.NewFlagSet("process", flag.ContinueOnError)
	file := processFlagSet.String("file", "", "PACS XML document to process")
	save := processFlagSet.Bool("save", false, "Persist the scored transactions")
	if err := processFlagSet.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if *file == "" {
		return errors.New("process requires -file")
	}

	outcome, err := sink.ProcessFile(ctx, *file, *save)
	if err != nil {
		return err
	}

	return writeJSON(out, outcome.Report)
}

func runShow(ctx context.Context, gateway *storage.Gateway, args []string, out io.Writer) error {
	showFlagSet := flag.NewFlagSet("show", flag.ContinueOnError)
	id := showFlagSet.String("id", "", "Transaction id to look up")
	if err := showFlagSet.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if *id == "" {
		return errors.New("show requires -id")
	}

	tx, err := gateway.FindTransaction(ctx, *id)
	if err != nil {
		return fmt.Errorf("failed to look up transaction %s: %w", *id, err)
	}
	if tx == nil {
		return fmt.Errorf("transaction %s not found", *id)
	}

	return writeJSON(out, tx)
}

func runAnomalies(ctx context.Context, gateway *storage.Gateway, args []string, out io.Writer) error {
	anomaliesFlagSet := flag.NewFlagSet("anomalies", flag.ContinueOnError)
	limit := anomaliesFlagSet.Int("limit", defaultAnomalyLimit, "Maximum number of anomalies to list")
	if err := anomaliesFlagSet.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	rows, err := gateway.ListAnomalies(ctx, *limit)
	if err != nil {
		return fmt.Errorf("failed to list anomalies: %w", err)
	}

	return writeJSON(out, rows)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
