package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/styleglow/analyzer/internal/analysis"
	"github.com/styleglow/analyzer/internal/config"
	"github.com/styleglow/analyzer/internal/ratelimit"
	"github.com/styleglow/analyzer/internal/state/sqlite"
	"github.com/styleglow/analyzer/internal/tokens"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "glowctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "config file path")
		promptText = flag.String("prompt", "", "optional prompt override")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: glowctl [flags] <image-file>")
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	limiter := ratelimit.New(store, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	clientOpts := []analysis.ClientOption{}
	if cfg.AI.BaseURL != "" {
		clientOpts = append(clientOpts, analysis.WithBaseURL(cfg.AI.BaseURL))
	}
	client := analysis.NewClient(cfg.AI.APIKey, clientOpts...)

	orch := analysis.New(limiter, client, store,
		analysis.WithLogger(logger),
		analysis.WithTokenEstimator(tokens.NewEstimator()),
		analysis.WithModels(cfg.AI.PrimaryModel, cfg.AI.FallbackModel),
		analysis.WithAttemptTimeout(cfg.AI.AttemptTimeout),
		analysis.WithCompression(cfg.Compress.MaxWidth, cfg.Compress.MaxHeight, cfg.Compress.Quality),
	)

	notify := func(n analysis.Notification) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	}

	result, err := orch.Analyze(context.Background(), &analysis.Request{
		Image:  image,
		Prompt: *promptText,
	}, notify)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
