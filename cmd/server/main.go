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

	importapp "github.com/fincore/backend/internal/application/importing"
	reconcileapp "github.com/fincore/backend/internal/application/reconciliation"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/infrastructure/cache"
	"github.com/fincore/backend/internal/infrastructure/config"
	"github.com/fincore/backend/internal/infrastructure/logger"
	"github.com/fincore/backend/internal/infrastructure/notification"
	"github.com/fincore/backend/internal/infrastructure/persistence"
	"github.com/fincore/backend/internal/infrastructure/source"
	"github.com/fincore/backend/internal/interfaces/http/handler"
	"github.com/fincore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	fingerprints := buildFingerprintStore(cfg, log)

	jobRepo := persistence.NewGormImportJobRepository(db.DB)
	txnRepo := persistence.NewGormTransactionRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	linkRepo := persistence.NewGormReconciliationLinkRepository(db.DB)
	predictionRepo := persistence.NewGormPredictionRepository(db.DB)

	salesSource := source.NewHTTPSource(source.Config{
		BaseURL: cfg.Source.BaseURL,
		APIKey:  cfg.Source.APIKey,
		Timeout: cfg.Source.Timeout,
	}, log)

	importService := importapp.NewImportService(
		jobRepo, txnRepo, saleRepo, predictionRepo,
		salesSource, fingerprints,
		notification.NewLoggerSink(log),
		importapp.Config{
			BatchSize:      cfg.Import.BatchSize,
			Concurrency:    cfg.Import.Concurrency,
			RetryCount:     cfg.Import.RetryCount,
			RetryDelay:     cfg.Import.RetryDelay,
			PageSize:       cfg.Import.PageSize,
			FingerprintTTL: cfg.Import.FingerprintTTL,
			DedupEnabled:   cfg.Import.DedupEnabled,
		},
		log,
	)

	reconcileService, err := reconcileapp.NewReconcileService(
		txnRepo, saleRepo, linkRepo,
		reconcileapp.Config{
			AutoThreshold:    cfg.Reconciliation.AutoThreshold,
			AmountTolerance:  cfg.Reconciliation.AmountTolerance,
			MaxGroupSize:     cfg.Reconciliation.MaxGroupSize,
			BootstrapMinimum: cfg.Reconciliation.BootstrapMinimum,
		},
		log,
	)
	if err != nil {
		log.Fatal("Failed to build reconcile service", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NewRouter(engine).
		Register(handler.NewImportJobHandler(importService)).
		Register(handler.NewReconcileHandler(reconcileService, cfg.Reconciliation.WindowDays)).
		Setup()

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Server listening", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// buildFingerprintStore prefers Redis when enabled, falling back to the
// in-process store. Dedup still holds either way; the database constraint is
// authoritative.
func buildFingerprintStore(cfg *config.Config, log *zap.Logger) shared.FingerprintStore {
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisFingerprintStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis unavailable, using in-memory fingerprint store", zap.Error(err))
			return cache.NewInMemoryFingerprintStore()
		}
		log.Info("Using Redis fingerprint store")
		return store
	}
	return cache.NewInMemoryFingerprintStore()
}
