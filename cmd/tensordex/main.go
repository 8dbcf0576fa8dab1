package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tensordex/internal/config"
	"github.com/kailas-cloud/tensordex/internal/db"
	dbRedis "github.com/kailas-cloud/tensordex/internal/db/redis"
	"github.com/kailas-cloud/tensordex/internal/domain"
	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	logpkg "github.com/kailas-cloud/tensordex/internal/logger"
	"github.com/kailas-cloud/tensordex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/tensordex/internal/repository/budget"
	documentrepo "github.com/kailas-cloud/tensordex/internal/repository/document"
	"github.com/kailas-cloud/tensordex/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/tensordex/internal/repository/index"
	searchrepo "github.com/kailas-cloud/tensordex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/tensordex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/tensordex/internal/transport/openai"
	documentuc "github.com/kailas-cloud/tensordex/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/tensordex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tensordex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/tensordex/internal/usecase/index"
	searchuc "github.com/kailas-cloud/tensordex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/tensordex/internal/usecase/usage"
	"github.com/kailas-cloud/tensordex/internal/version"
)

func main() {
	// .env is optional, real env vars win
	_ = godotenv.Load()

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

	logger.Info("Starting tensordex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Build embedder chain — composition root
	// Take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	provCfg := cfg.Embedding.Providers[provName]

	// Single BudgetTracker shared across all embedders and usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	docEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.DocumentInstruction,
		store, cfg.Storage.KeyPrefix, budgetChecker, logger,
	)
	queryEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.QueryInstruction,
		store, cfg.Storage.KeyPrefix, budgetChecker, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Create repositories sharing one key scheme
	keys := indexrepo.NewKeys(cfg.Storage.KeyPrefix)
	idxRepo := indexrepo.New(store, keys)
	docRepo := documentrepo.New(store, keys)
	searchRepo := searchrepo.New(store, keys)

	// Create use case services
	idxSvc := indexuc.New(idxRepo, docRepo, indexDefaults(cfg, vecCfg))
	docSvc := documentuc.New(docRepo, idxRepo, batchEmbedder(docEmbedder)).
		WithMaxBatch(cfg.Index.MaxBatchSize)
	searchSvc := searchuc.New(searchRepo, idxRepo, docRepo, queryEmbedder)

	// Usage service — reads from shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(docEmbedder))

	server := chiTransport.NewServer(idxSvc, docSvc, searchSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// indexDefaults assembles the settings applied to newly created indexes.
func indexDefaults(cfg config.Config, vecCfg config.VectorizerConfig) domidx.Settings {
	defaults := domidx.DefaultSettings()
	defaults.Model.Name = vecCfg.Model
	defaults.Model.Dimensions = vecCfg.Dimensions

	if cfg.Index.DistanceMetric != "" {
		defaults.DistanceMetric = domidx.DistanceMetric(cfg.Index.DistanceMetric)
	}
	if cfg.Index.NormalizeEmbeddings {
		defaults.NormalizeEmbeddings = true
	}
	if cfg.Index.HNSWM > 0 {
		defaults.Hnsw.M = cfg.Index.HNSWM
	}
	if cfg.Index.HNSWEFConstruct > 0 {
		defaults.Hnsw.EfConstruction = cfg.Index.HNSWEFConstruct
	}
	if cfg.Index.SplitLength > 0 {
		defaults.TextPreprocessing.SplitLength = cfg.Index.SplitLength
	}
	if cfg.Index.SplitOverlap > 0 {
		defaults.TextPreprocessing.SplitOverlap = cfg.Index.SplitOverlap
	}
	if cfg.Index.SplitMethod != "" {
		defaults.TextPreprocessing.SplitMethod = domidx.SplitMethod(cfg.Index.SplitMethod)
	}
	if cfg.Index.FilterStringMaxLength > 0 {
		defaults.FilterStringMaxLength = cfg.Index.FilterStringMaxLength
	}
	return defaults
}

// batchEmbedder exposes the batch side of an embedder, falling back to
// per-text calls for chains without native batch support.
func batchEmbedder(e domain.Embedder) documentuc.Embedder {
	if be, ok := e.(documentuc.Embedder); ok {
		return be
	}
	return &batchFallbackEmbedder{inner: e}
}

type batchFallbackEmbedder struct {
	inner domain.Embedder
}

func (b *batchFallbackEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, b.inner, texts)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	keyPrefix string,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, keyPrefix, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, provName, vecCfg.Model, budget, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
