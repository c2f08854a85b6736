package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaktiabhiyan/taskforce/internal"
	"github.com/shaktiabhiyan/taskforce/internal/chatbot"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/handler"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/middleware"
	"github.com/shaktiabhiyan/taskforce/internal/repository"
	"github.com/shaktiabhiyan/taskforce/internal/service"
	"github.com/shaktiabhiyan/taskforce/internal/session"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit/mock"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit/shakti"
	"github.com/shaktiabhiyan/taskforce/internal/wizard"
)

// Chatbot evidence limits.
const (
	chatbotMaxFiles       = 10
	chatbotMaxConcurrency = 4
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// ==========================================================================
	// Storage
	// ==========================================================================

	photos, videos, err := newBuckets(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// ==========================================================================
	// Services
	// ==========================================================================

	uploads := service.NewUploadService(
		photos,
		videos,
		service.NewImagingCompressor(domain.CompressQuality),
		service.UploadConfig{
			MaxImageBytes: cfg.MaxImageBytes(),
			MaxVideoBytes: cfg.MaxVideoBytes(),
		},
		logger,
	)
	complaints := service.NewComplaintService(repo, uploads, logger)
	lawyers := service.NewLawyerService(repo, logger)

	// ==========================================================================
	// Chatbot
	// ==========================================================================

	auditClient, closeAudit, err := newVoterAuditClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("voter audit client initialization failed: %w", err)
	}
	defer closeAudit()

	var evidence chatbot.Uploader
	if cfg.CloudinaryCloudName != "" {
		evidence, err = storage.NewCloudinaryUploader(storage.CloudinaryConfig{
			CloudName:    cfg.CloudinaryCloudName,
			UploadPreset: cfg.CloudinaryUploadPreset,
		}, logger)
		if err != nil {
			return fmt.Errorf("cloudinary initialization failed: %w", err)
		}
	} else {
		logger.Warn("Cloudinary not configured, chatbot evidence is stored in the photos bucket")
		evidence = storage.NewBucketUploader(photos, "evidence")
	}

	regions, err := chatbot.DefaultDirectory()
	if err != nil {
		return fmt.Errorf("region directory: %w", err)
	}
	flow := chatbot.NewFlow(auditClient, evidence, regions, chatbot.Config{
		MaxFileBytes:   cfg.MaxImageBytes(),
		MaxFiles:       chatbotMaxFiles,
		MaxConcurrency: chatbotMaxConcurrency,
	}, logger)

	// ==========================================================================
	// Sessions and middleware
	// ==========================================================================

	isSecure := cfg.IsProduction()
	sessionCfg := session.Config{TTL: cfg.SessionTTL, Secure: isSecure}

	complaintSessions := handler.NewWizardSessions(wizard.NewComplaintForm(wizard.Limits{
		MaxImageBytes:  cfg.MaxImageBytes(),
		MaxVideoBytes:  cfg.MaxVideoBytes(),
		CompressImages: true,
	}, func() time.Time { return time.Now().In(location) }), sessionCfg)
	lawyerSessions := handler.NewWizardSessions(wizard.NewLawyerForm(), sessionCfg)
	chatbotSessions := handler.NewChatbotSessions(sessionCfg)

	go complaintSessions.RunCleanup(ctx, session.DefaultCleanupInterval)
	go lawyerSessions.RunCleanup(ctx, session.DefaultCleanupInterval)
	go chatbotSessions.RunCleanup(ctx, session.DefaultCleanupInterval)

	rateLimits := middleware.NewIntakeRateLimiter(logger)
	go rateLimits.Run(ctx)

	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, isSecure)
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("Metrics credentials not configured", "metrics_exposed", !isSecure)
	}

	// ==========================================================================
	// Handlers
	// ==========================================================================

	// A request carries one photo and one video at most.
	maxUpload := cfg.MaxImageBytes() + cfg.MaxVideoBytes()

	complaintHandler := handler.NewComplaintHandler(complaintSessions, complaints, maxUpload, logger)
	lawyerHandler := handler.NewLawyerHandler(lawyerSessions, lawyers, logger)
	chatbotHandler := handler.NewChatbotHandler(
		flow,
		chatbotSessions,
		chatbot.NewCertificate(),
		cfg.MaxImageBytes()*chatbotMaxFiles,
		location,
		logger,
	)
	pagesHandler := handler.NewPagesHandler(db, repo, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Locally stored media
	if cfg.StorageProvider == storage.ProviderLocal {
		handler.NewMediaHandler(map[string]storage.Storage{
			storage.BucketPhotos: photos,
			storage.BucketVideos: videos,
		}, logger).RegisterRoutes(mux)
	}

	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	pagesHandler.RegisterRoutes(mux, metricsAuth.Handler)
	complaintHandler.RegisterRoutes(mux, rateLimits.LimitSubmit)
	lawyerHandler.RegisterRoutes(mux, rateLimits.LimitSubmit)
	chatbotHandler.RegisterRoutes(mux, rateLimits.LimitChatbot)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	stack := middleware.Stack(
		metrics.Middleware,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		middleware.CORS(cfg.AllowedOrigins),
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down server", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Stop background sweepers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// newBuckets opens the photo and video buckets.
func newBuckets(cfg *internal.Config, logger *slog.Logger) (photos, videos storage.Storage, err error) {
	if cfg.StorageProvider == storage.ProviderLocal {
		open := func(bucket string) (storage.Storage, error) {
			return storage.NewLocalStorage(storage.LocalConfig{
				BasePath: filepath.Join(cfg.LocalStoragePath, bucket),
				BaseURL:  strings.TrimSuffix(cfg.LocalStorageURL, "/") + "/" + bucket,
			}, logger)
		}
		if photos, err = open(storage.BucketPhotos); err != nil {
			return nil, nil, err
		}
		if videos, err = open(storage.BucketVideos); err != nil {
			return nil, nil, err
		}
		return photos, videos, nil
	}

	open := func(bucket string) (storage.Storage, error) {
		return storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          bucket,
			PublicURL:       cfg.BucketPublicURL(bucket),
			PathStyle:       true,
		}, logger)
	}
	if photos, err = open(cfg.S3PhotosBucket); err != nil {
		return nil, nil, err
	}
	if videos, err = open(cfg.S3VideosBucket); err != nil {
		return nil, nil, err
	}
	return photos, videos, nil
}

// newVoterAuditClient returns the configured voter-audit client and a
// function releasing its connections.
func newVoterAuditClient(cfg *internal.Config, logger *slog.Logger) (voteraudit.Client, func(), error) {
	if cfg.VoterAuditProvider == internal.VoterAuditMock {
		logger.Warn("Using mock voter audit API")
		return mock.New(logger), func() {}, nil
	}

	client, err := shakti.New(voteraudit.Config{
		BaseURL:        cfg.VoterAuditAPIURL,
		MaxRetries:     cfg.VoterAuditMaxRetries,
		RetryBaseDelay: cfg.VoterAuditRetryBaseDelay,
		RequestTimeout: cfg.VoterAuditRequestTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, client.CloseIdleConnections, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
