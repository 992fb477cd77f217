// Command recommend analyzes one image file and prints its metadata and the
// recommended conversion settings without touching the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/config"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/policy"
	logpkg "github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	sigpkg "github.com/DevHassanMehdi/ImageUpLift/internal/signal"
	openaiVision "github.com/DevHassanMehdi/ImageUpLift/internal/transport/openai"
	analyzeuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analyze"
	classifyuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/classify"
)

type output struct {
	Metadata       metadata.ImageMetadata `json:"metadata"`
	Recommendation policy.Recommendation  `json:"recommendation"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "recommend:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "path of the image to analyze")
	env := fs.String("config", "", "config environment to load (default: built-in defaults)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return errors.New("--input is required")
	}

	cfg, err := loadConfig(*env)
	if err != nil {
		return err
	}

	logEnv := *env
	if logEnv == "" {
		logEnv = "test"
	}
	logger, err := logpkg.NewLogger(logEnv, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(filepath.Clean(*input))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	extractor, err := sigpkg.NewExtractor(cfg.Signals.Backend)
	if err != nil {
		return err
	}
	analyzer := analyzeuc.New(extractor, newClassifier(cfg.Classifier, logger), nil).
		WithMaxPixels(cfg.Signals.MaxPixels)

	ctx = logpkg.WithLogger(ctx, logger)
	a, err := analyzer.Analyze(ctx, filepath.Base(*input), data)
	if err != nil {
		return err
	}
	rec, err := policy.Recommend(a.Metadata)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{Metadata: a.Metadata, Recommendation: rec})
}

func loadConfig(env string) (config.Config, error) {
	if env != "" {
		return config.Load(env)
	}
	var cfg config.Config
	cfg.ApplyDefaults()
	return cfg, nil
}

// newClassifier skips the cache and budget decorators: a one-shot run has
// nothing to share them with.
func newClassifier(cfg config.ClassifierConfig, logger *zap.Logger) classification.Classifier {
	if cfg.Provider != "openai" {
		return classifyuc.Heuristic{}
	}
	return openaiVision.NewClassifier(&openaiVision.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		MaxSide:  cfg.MaxSide,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:   logger,
	})
}
