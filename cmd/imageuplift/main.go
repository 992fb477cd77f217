package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/config"
	dbRedis "github.com/DevHassanMehdi/ImageUpLift/internal/db/redis"
	"github.com/DevHassanMehdi/ImageUpLift/internal/db/sqldb"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	logpkg "github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	"github.com/DevHassanMehdi/ImageUpLift/internal/metrics"
	budgetrepo "github.com/DevHassanMehdi/ImageUpLift/internal/repository/budget"
	"github.com/DevHassanMehdi/ImageUpLift/internal/repository/classcache"
	conversionrepo "github.com/DevHassanMehdi/ImageUpLift/internal/repository/conversions"
	imagerepo "github.com/DevHassanMehdi/ImageUpLift/internal/repository/images"
	recommendationrepo "github.com/DevHassanMehdi/ImageUpLift/internal/repository/recommendations"
	statsrepo "github.com/DevHassanMehdi/ImageUpLift/internal/repository/stats"
	sigpkg "github.com/DevHassanMehdi/ImageUpLift/internal/signal"
	chiTransport "github.com/DevHassanMehdi/ImageUpLift/internal/transport/chi"
	openaiVision "github.com/DevHassanMehdi/ImageUpLift/internal/transport/openai"
	"github.com/DevHassanMehdi/ImageUpLift/internal/transport/pipeline"
	analyticsuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analytics"
	analyzeuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analyze"
	classifyuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/classify"
	convertuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/convert"
	galleryuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/gallery"
	healthuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/health"
	recommenduc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/recommend"
	usageuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/usage"
	"github.com/DevHassanMehdi/ImageUpLift/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ImageUpLift API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("classifier", cfg.Classifier.Provider),
		zap.Bool("cache", cfg.Cache.Enabled()),
	)

	metrics.Register()
	ctx := context.Background()

	database, err := sqldb.Open(ctx, sqldb.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()
	logger.Info("Connected to database", zap.String("dialect", string(database.Dialect())))

	// The cache is optional: without it classifications are not memoized and
	// budget counters live in memory only.
	var cache *dbRedis.Store
	if cfg.Cache.Enabled() {
		cache, err = dbRedis.Open(ctx, dbRedis.Config{
			Addrs:        cfg.Cache.Addrs,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			ReadyTimeout: time.Duration(cfg.Cache.ReadinessTimeout) * time.Second,
		})
		if err != nil {
			logger.Fatal("Cache unavailable", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	classifier, budget := buildClassifier(ctx, cfg.Classifier, cfg.Cache, cache, logger)

	extractor, err := sigpkg.NewExtractor(cfg.Signals.Backend)
	if err != nil {
		logger.Fatal("Failed to create signal extractor", zap.Error(err))
	}

	images := imagerepo.New(database)
	recs := recommendationrepo.New(database)
	runs := conversionrepo.New(database)

	analyzer := analyzeuc.New(extractor, classifier, metrics.SignalExtractionDuration).
		WithMaxPixels(cfg.Signals.MaxPixels)
	recommendSvc := recommenduc.New(analyzer, images, recs, metrics.RecommendationsTotal)
	converters := buildConverters(cfg.Pipeline)
	convertSvc := convertuc.New(images, recs, runs,
		convertuc.Metrics{Total: metrics.ConversionsTotal, Duration: metrics.ConversionDuration},
		converters...,
	).WithMaxPixels(cfg.Signals.MaxPixels)
	gallerySvc := galleryuc.New(runs)
	analyticsSvc := analyticsuc.New(statsrepo.New(database))

	// Pass nil interface (not typed nil pointer!) when the heuristic runs unbudgeted.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader, cfg.Classifier.Provider)

	// Pass a nil interface, not a typed nil pointer, when the cache is off.
	var cachePinger healthuc.Pinger
	if cache != nil {
		cachePinger = cache
	}
	healthOpts := []healthuc.Option{
		healthuc.WithCache(cachePinger),
		healthuc.WithClassifier(classifier),
	}
	for _, c := range converters {
		if hc, ok := c.(healthuc.Checker); ok {
			healthOpts = append(healthOpts, healthuc.WithPipeline(string(c.Mode()), hc))
		}
	}
	healthSvc := healthuc.New(database, healthOpts...)

	server := chiTransport.NewServer(chiTransport.Services{
		Recommend: recommendSvc,
		Convert:   convertSvc,
		Gallery:   gallerySvc,
		Analytics: analyticsSvc,
		Usage:     usageSvc,
		Health:    healthSvc,
	}, cfg.HTTP.MaxUploadMB<<20, logger)

	handler := server.Router(chiTransport.RouterOptions{
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		APIKeys:           cfg.Auth.APIKeys,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildClassifier assembles the decorator chain: provider -> cache -> instrumented.
// The heuristic classifier is local and free, so it skips the cache and budget.
func buildClassifier(
	ctx context.Context,
	cfg config.ClassifierConfig,
	cacheCfg config.CacheConfig,
	cache *dbRedis.Store,
	logger *zap.Logger,
) (*classifyuc.Instrumented, *classifyuc.CallBudget) {
	breaker := classifyuc.BreakerConfig{
		MaxFailures:      cfg.Breaker.MaxFailures,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}

	if cfg.Provider != "openai" {
		return classifyuc.NewInstrumented(classifyuc.Heuristic{}, cfg.Provider, breaker, nil, logger), nil
	}

	base := openaiVision.NewClassifier(&openaiVision.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		MaxSide:  cfg.MaxSide,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:   logger,
	})

	var inner classification.Classifier = base
	if cache != nil {
		inner = classcache.New(base, base.Name(), cache,
			time.Duration(cacheCfg.TTLSec)*time.Second, metrics.ClassificationCacheTotal, logger)
	}

	// A single CallBudget is shared by the classifier chain and the usage report.
	action := classifyuc.BudgetActionWarn
	if cfg.Budget.Action == string(classifyuc.BudgetActionReject) {
		action = classifyuc.BudgetActionReject
	}
	budget := classifyuc.NewCallBudget(cfg.Provider, cfg.Budget.DailyLimit, cfg.Budget.MonthlyLimit, action, logger)
	if cache != nil {
		budget.WithStore(ctx, budgetrepo.New(cache, 48*time.Hour, 62*24*time.Hour))
	}

	logger.Info("Classifier created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Bool("cached", cache != nil),
		zap.Int64("daily_limit", cfg.Budget.DailyLimit),
		zap.Int64("monthly_limit", cfg.Budget.MonthlyLimit),
	)
	return classifyuc.NewInstrumented(inner, cfg.Provider, breaker, budget, logger), budget
}

// buildConverters wires the three external tools behind one process runner.
func buildConverters(cfg config.PipelineConfig) []convertuc.Converter {
	runner := pipeline.ExecRunner{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}
	gpuID := -1
	if cfg.GPUID != nil {
		gpuID = *cfg.GPUID
	}
	return []convertuc.Converter{
		pipeline.NewVectorizer(cfg.VtracerBin, cfg.WorkDir, runner),
		pipeline.NewOutliner(cfg.PotraceBin, cfg.WorkDir, runner),
		pipeline.NewEnhancer(pipeline.EnhancerConfig{
			Bin:      cfg.RealESRGANBin,
			WorkDir:  cfg.WorkDir,
			ModelDir: cfg.ModelDir,
			GPUID:    gpuID,
			GPU:      cfg.GPU,
		}, runner),
	}
}
