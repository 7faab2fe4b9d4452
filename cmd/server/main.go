package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thorsby/docketwatch/internal"
	"github.com/thorsby/docketwatch/internal/billing"
	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/courtdata/courtlistener"
	"github.com/thorsby/docketwatch/internal/courtdata/mock"
	"github.com/thorsby/docketwatch/internal/email"
	"github.com/thorsby/docketwatch/internal/handler"
	"github.com/thorsby/docketwatch/internal/invite"
	"github.com/thorsby/docketwatch/internal/jobs"
	"github.com/thorsby/docketwatch/internal/metrics"
	"github.com/thorsby/docketwatch/internal/middleware"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/service"
	"github.com/thorsby/docketwatch/internal/statement"
	"github.com/thorsby/docketwatch/internal/storage"
	"github.com/thorsby/docketwatch/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// ==========================================================================
	// External dependencies: blob storage, court archive, billing, email
	// ==========================================================================

	var blobs storage.Storage
	switch cfg.StorageProvider {
	case "r2":
		blobs, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		}, logger)
	default:
		blobs, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	var archive courtdata.Service
	switch cfg.CourtProvider {
	case "courtlistener":
		archive, err = courtlistener.New(courtlistener.Config{
			BaseURL:        cfg.CourtAPIBaseURL,
			StorageBaseURL: cfg.CourtStorageBaseURL,
			ClientConfig: courtdata.Config{
				MaxRetries:     cfg.CourtMaxRetries,
				RetryBaseDelay: cfg.CourtRetryBaseDelay,
				RequestTimeout: cfg.CourtRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("court archive client initialization failed: %w", err)
		}
	default:
		archive = mock.New(logger)
		logger.Warn("Using mock court archive; set COURT_PROVIDER=courtlistener for live data")
	}

	var billingService billing.Service
	prices := billing.PriceConfig{
		StarterMonthlyPriceID:      cfg.StripeStarterMonthlyPriceID,
		StarterYearlyPriceID:       cfg.StripeStarterYearlyPriceID,
		ProfessionalMonthlyPriceID: cfg.StripeProfessionalMonthlyPriceID,
		ProfessionalYearlyPriceID:  cfg.StripeProfessionalYearlyPriceID,
	}
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, prices)
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing not configured; billing endpoints are disabled")
	}

	alerts, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	ledgerService := service.NewLedgerService(archive, logger)
	quotaService := service.NewQuotaService(repo, logger)
	userService := service.NewUserService(repo, ledgerService, logger)
	searchService := service.NewSearchService(archive, logger)
	acquisitionService := service.NewAcquisitionService(repo, archive, blobs, logger)
	purchaseService := service.NewPurchaseService(repo, archive, blobs, ledgerService, service.PurchaseConfig{
		PollInterval: cfg.PurchasePollInterval,
		MaxPolls:     30,
	}, logger)
	enqueuer := worker.NewEnqueuer(repo)
	monitorService := service.NewMonitorService(repo, archive, quotaService, enqueuer, alerts, service.MonitorConfig{
		UpdateInterval: cfg.MonitorUpdateInterval,
	}, logger)
	statementService := service.NewStatementService(repo, ledgerService, statement.NewPDFGenerator(), logger)

	inviteValidator := invite.New(cfg.InviteCodesEnabled, cfg.ValidInviteCodes)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		bgWorker, err = worker.New(db, repo, worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPollInterval,
			JobTimeout:   cfg.WorkerJobTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewAutoDownloadHandler(
			userService, searchService, acquisitionService, quotaService, logger,
		))
		bgWorker.Start(ctx)
		logger.Info("Background worker started", "concurrency", cfg.WorkerConcurrency)
	}

	// Re-attach polling to purchases left pending by an earlier process
	if err := purchaseService.ResumePending(ctx); err != nil {
		return fmt.Errorf("resuming pending purchases failed: %w", err)
	}

	// Hourly sweep of expired session rows. Auth already rejects expired
	// tokens; the sweep just keeps the table from growing without bound.
	sessionSweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := userService.DeleteExpiredSessions(ctx); err != nil {
					logger.Error("Expired session sweep failed", "error", err)
				}
			case <-sessionSweepStop:
				return
			}
		}
	}()

	// ==========================================================================
	// Middleware
	// ==========================================================================

	authMw := middleware.NewAuthMiddleware(userService, logger)
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	isSecure := cfg.Env != "development"
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(userService, inviteValidator, authLimiter, logger)
	authHandler.RegisterRoutes(mux, authLimiter.LimitLogin, authLimiter.LimitRegister)

	accountHandler := handler.NewAccountHandler(userService, quotaService, statementService, logger)
	accountHandler.RegisterRoutes(mux, requireUser)

	searchHandler := handler.NewSearchHandler(searchService, logger)
	searchHandler.RegisterRoutes(mux, requireUser)

	documentHandler := handler.NewDocumentHandler(acquisitionService, logger)
	documentHandler.RegisterRoutes(mux, requireUser)

	purchaseHandler := handler.NewPurchaseHandler(purchaseService, logger)
	purchaseHandler.RegisterRoutes(mux, requireUser)

	monitorHandler := handler.NewMonitorHandler(monitorService, logger)
	monitorHandler.RegisterRoutes(mux, requireUser)

	ledgerHandler := handler.NewLedgerHandler(ledgerService, logger)
	ledgerHandler.RegisterRoutes(mux, requireUser)

	billingHandler := handler.NewBillingHandler(billingService, userService, cfg.BaseURL, prices, logger)
	billingHandler.RegisterRoutes(mux, requireUser)

	webhookHandler := handler.NewWebhookHandler(billingService, userService, logger)
	webhookHandler.RegisterRoutes(mux)

	// Global middleware: metrics outermost so it times the whole stack
	root := middleware.Stack(
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "court_provider", cfg.CourtProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Stop background machinery after the HTTP surface is drained:
	// the update poller first, then purchase settlement, then the
	// job worker.
	close(sessionSweepStop)
	monitorService.Close()
	purchaseService.Close()
	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
