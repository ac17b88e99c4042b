// cmd/worker-manager/main.go
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

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"cif-onboarding/internal/api"
	awsclient "cif-onboarding/internal/common/aws"
	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/camunda"
	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/database"
	apperrors "cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/observability"
	"cif-onboarding/internal/completion"

	icp "cif-onboarding/internal/workers/data-access/index-client-profile"
	gd "cif-onboarding/internal/workers/documents/generate-document"
	ndr "cif-onboarding/internal/workers/documents/notify-documents-ready"
	scd "cif-onboarding/internal/workers/documents/sync-client-documents"
	edc "cif-onboarding/internal/workers/onboarding/evaluate-document-completion"
	ffd "cif-onboarding/internal/workers/onboarding/flatten-form-data"
	vfd "cif-onboarding/internal/workers/onboarding/validate-form-data"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return apperrors.NewDatabaseConnectionFailedError(err)
		}
		if err := pg.Ping(ctx); err != nil {
			return apperrors.NewDatabaseConnectionFailedError(err)
		}
		return nil
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return apperrors.NewElasticsearchConnectionFailedError(err)
		}
		if err := esClient.Ping(ctx); err != nil {
			return apperrors.NewElasticsearchConnectionFailedError(err)
		}
		return nil
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if err := esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.ClientIndex, database.ClientProfileMapping); err != nil {
		zapLog.Fatal("elasticsearch index failed", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return apperrors.NewCacheUnavailableError(err)
		}
		if err := rdb.Ping(ctx); err != nil {
			return apperrors.NewCacheUnavailableError(err)
		}
		return nil
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Backend API ---
	backendClient := backend.NewClient(cfg.Backend, log,
		backend.WithTokenStore(backend.NewRedisTokenStore(rdb.Client, cfg.Backend.TokenKey)),
		backend.WithTracer(otel.Tracer(cfg.Observability.ServiceName)),
	)
	if cfg.Backend.Email != "" {
		err = retryWithBackoff(func() error {
			return backendClient.EnsureSession(ctx, cfg.Backend.Email, cfg.Backend.Password)
		}, 5, 2*time.Second, zapLog, "Backend login")
		if err != nil {
			zapLog.Fatal("backend login failed after retries", zap.Error(err))
		}
		zapLog.Info("Backend session ready", zap.String("baseUrl", backendClient.BaseURL()))
	} else {
		zapLog.Warn("backend.email is empty, relying on a stored session")
	}

	// --- Completion registry ---
	registry := completion.DefaultRegistry()
	if cfg.Completion.RegistryPath != "" {
		registry, err = completion.LoadRegistry(cfg.Completion.RegistryPath)
		if err != nil {
			zapLog.Fatal("document registry load failed", zap.Error(err), zap.String("path", cfg.Completion.RegistryPath))
		}
	}
	calc := completion.NewCalculator(registry)

	// --- AWS notifications ---
	var (
		emailSender ndr.EmailSender
		smsSender   ndr.SMSSender
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			emailSender = awsclient.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
		}
		if cfg.Notifications.SMS.Enabled {
			smsSender = awsclient.NewSNSClient(awsCfg)
		}
	}

	// --- Workers ---
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		return fallback
	}

	handlers := map[string]camunda.JobHandler{
		vfd.TaskType: vfd.NewHandler(&vfd.Config{
			Timeout:       timeout(vfd.TaskType, vfd.LoadConfig().Timeout),
			FailOnInvalid: true,
		}, log),
		ffd.TaskType: ffd.NewHandler(&ffd.Config{
			Timeout: timeout(ffd.TaskType, ffd.LoadConfig().Timeout),
		}, log),
		edc.TaskType: edc.NewHandler(&edc.Config{
			Timeout:  timeout(edc.TaskType, edc.LoadConfig().Timeout),
			CacheTTL: time.Duration(cfg.Completion.CacheTTL) * time.Second,
		}, backendClient, rdb.Client, calc, log),
		gd.TaskType: gd.NewHandler(&gd.Config{
			Timeout: timeout(gd.TaskType, gd.LoadConfig().Timeout),
		}, backendClient, pg.GetDB(), rdb.Client, calc, log),
		scd.TaskType: scd.NewHandler(&scd.Config{
			Timeout: timeout(scd.TaskType, scd.LoadConfig().Timeout),
		}, backendClient, pg.GetDB(), registry, log),
		ndr.TaskType: ndr.NewHandler(&ndr.Config{
			EmailEnabled:         cfg.Notifications.Email.Enabled,
			SMSEnabled:           cfg.Notifications.SMS.Enabled,
			SMSPriorityThreshold: cfg.Notifications.SMS.PriorityThreshold,
			Timeout:              timeout(ndr.TaskType, ndr.LoadConfig().Timeout),
		}, backendClient, emailSender, smsSender, calc, log),
		icp.TaskType: icp.NewHandler(&icp.Config{
			Index:   cfg.Database.Elasticsearch.ClientIndex,
			Timeout: timeout(icp.TaskType, icp.LoadConfig().Timeout),
		}, backendClient, esClient, calc, log),
	}

	var workers []*camunda.CamundaWorker
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		w := camunda.NewWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log)
		w.Start()
		workers = append(workers, w)
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Operational HTTP API ---
	srv := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: api.NewRouter(api.Deps{
			Calculator: calc,
			Logger:     log,
			Checks: []api.Check{
				{Name: "postgres", Ping: pg.Ping},
				{Name: "redis", Ping: rdb.Ping},
				{Name: "zeebe", Ping: zeebe.HealthCheck},
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("Worker manager stopped")
}
