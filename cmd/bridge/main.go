package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/esports-bridge/internal/bridge"
	"github.com/rickgao/esports-bridge/internal/config"
	"github.com/rickgao/esports-bridge/internal/database"
	"github.com/rickgao/esports-bridge/internal/inplay"
	"github.com/rickgao/esports-bridge/internal/model"
	"github.com/rickgao/esports-bridge/internal/ops"
	"github.com/rickgao/esports-bridge/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and environment only when empty)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("bridge exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("bridge stopped")
}

func run(cfg *config.BridgeConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scenarios map[string]model.Scenario
	if cfg.InPlay.ScenarioFile != "" {
		loaded, err := inplay.LoadScenarios(cfg.InPlay.ScenarioFile)
		if err != nil {
			return fmt.Errorf("load scenarios: %w", err)
		}
		scenarios = loaded
		logger.Info("scenarios loaded", "file", cfg.InPlay.ScenarioFile, "count", len(loaded))
	}

	opts := bridge.Options{
		Config:    cfg,
		Scenarios: scenarios,
		Logger:    logger,
	}

	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		opts.DB = pool
		logger.Info("journal database connected")
	}

	b, err := bridge.New(opts)
	if err != nil {
		return err
	}

	src := b.Sources()
	if opts.DB != nil {
		if pinger, ok := opts.DB.(ops.Pinger); ok {
			src.Database = pinger
		}
	}
	opsServer := ops.NewServer(
		fmt.Sprintf(":%d", cfg.Ops.Port),
		cfg.Instance.ID,
		version.Version,
		cfg.Ops.MetricsPath,
		src,
		logger.With("component", "ops"),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return opsServer.Run(gctx) })
	g.Go(func() error { return b.Run(gctx) })
	return g.Wait()
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
