package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"blobquota/internal/cache"
	"blobquota/internal/config"
	"blobquota/internal/database"
	"blobquota/internal/handler"
	"blobquota/internal/health"
	"blobquota/internal/logger"
	"blobquota/internal/metrics"
	"blobquota/internal/repository"
	"blobquota/internal/service"
	"blobquota/internal/service/s3"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	appConfig, err := config.NewConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(appConfig.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(appConfig, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server exited properly")
}

func run(appConfig *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, appConfig.Database, 5, 5*time.Second, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(appConfig.Database, "migrations", log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db.DB, "blobquota"))
	m := metrics.New(registry)

	quotas, err := newQuotaProvider(ctx, appConfig, db, m, log)
	if err != nil {
		return err
	}

	usage, err := newUsageProvider(appConfig, repository.NewBlobRepository(db))
	if err != nil {
		return err
	}

	quotaService := service.NewStorageQuotaService(quotas, usage, m, log)
	quotaHandler := handler.NewStorageQuotaHandler(quotaService, repository.NewWorkspaceRepository(db), log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: handler.NewRouter(quotaHandler, registry, log),
	}

	grpcServer := grpc.NewServer()
	checker := health.NewChecker(db, log)
	checker.Register(grpcServer)
	go checker.Run(ctx, 15*time.Second)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Infof("starting gRPC server on port %s", appConfig.Server.GRPCPort)
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		log.Infof("starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server failed")
	}
	log.Info("shutting down servers...")

	checker.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server forced to shutdown")
	}
	grpcServer.GracefulStop()

	return nil
}

func newQuotaProvider(ctx context.Context, appConfig *config.Config, db *sqlx.DB, m *metrics.Metrics, log *logrus.Logger) (service.QuotaProvider, error) {
	fallback, err := appConfig.Quota.DefaultStorageBytes()
	if err != nil {
		return nil, err
	}

	features, err := repository.NewFeatureRepository(db)
	if err != nil {
		return nil, err
	}

	var provider service.QuotaProvider = service.NewEntitlementQuotaProvider(
		repository.NewEntitlementRepository(db),
		features,
		service.DefaultTier{
			Feature:       appConfig.Quota.DefaultFeature,
			Version:       appConfig.Quota.DefaultFeatureVersion,
			FallbackBytes: fallback,
		},
	)

	if appConfig.Redis.URL == "" {
		log.Info("redis not configured, quota cache disabled")
		return provider, nil
	}

	client, err := cache.NewRedisClient(ctx, appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.DB)
	if err != nil {
		return nil, err
	}

	return service.NewCachedQuotaProvider(provider, cache.NewQuotaCache(client, appConfig.Quota.CacheTTL), m, log), nil
}

func newUsageProvider(appConfig *config.Config, blobs *repository.BlobRepository) (service.UsageProvider, error) {
	if appConfig.Quota.UsageSource != config.UsageSourceS3 {
		return service.NewBlobUsageProvider(blobs), nil
	}

	s3Config, err := s3.NewConfig(appConfig.Quota.S3ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return service.NewObjectStoreUsageProvider(s3Client), nil
}
