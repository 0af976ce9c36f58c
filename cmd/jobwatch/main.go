package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/observability/otelx"
	"github.com/bakkerme/jobwatch/internal/runner/factory"
)

func main() {
	configPath := flag.String("config", "", "path to jobwatch document (default $JOBWATCH_CONFIG or jobwatch.yaml)")
	envFile := flag.String("env-file", getenv("JOBWATCH_ENV_FILE", ".env"), "dotenv file loaded before reading the environment")
	runOnce := flag.Bool("run-once", false, "run once and exit even when a cron trigger is configured")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}
	env := config.LoadEnv()
	if *configPath == "" {
		*configPath = env.ConfigPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(env.LogLevel)}))
	slog.SetDefault(logger)

	doc, err := config.LoadDocument(*configPath)
	if err != nil {
		log.Fatalf("failed to load document: %v", err)
	}
	if err := config.RequireCredentials(doc, env); err != nil {
		log.Fatalf("invalid environment: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to initialize otel: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			logger.Warn("otel shutdown failed", "error", err)
		}
	}()

	f := factory.NewFromEnvConfig(logger, env)
	r, store, err := f.Build(doc)
	if err != nil {
		log.Fatalf("failed to build runner: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close history store", "error", err)
		}
	}()

	trigger := f.NewTrigger(doc.Trigger)
	if *runOnce || env.RunOnce || trigger == nil {
		run, err := r.RunOnce(ctx)
		if err != nil {
			logger.Error("run interrupted", "error", err)
			return
		}
		if run.Failed() > 0 {
			logger.Warn("run finished with failures", "status", run.Status, "failed", run.Failed())
		}
		return
	}

	done, err := r.Start(ctx, trigger)
	if err != nil {
		logger.Error("failed to start runner", "error", err)
		return
	}
	logger.Info("waiting for trigger", "trigger", trigger.Name(), "schedule", doc.Trigger.Cron.Schedule)

	<-ctx.Done()
	logger.Info("shutting down")
	<-done
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
