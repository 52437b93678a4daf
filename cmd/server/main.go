package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/proforma/internal"
	"github.com/DukeRupert/proforma/internal/csrf"
	"github.com/DukeRupert/proforma/internal/email"
	"github.com/DukeRupert/proforma/internal/handler"
	"github.com/DukeRupert/proforma/internal/metrics"
	"github.com/DukeRupert/proforma/internal/middleware"
	"github.com/DukeRupert/proforma/internal/report"
	"github.com/DukeRupert/proforma/internal/service"
	"github.com/DukeRupert/proforma/internal/session"
	"github.com/DukeRupert/proforma/internal/storage"
	"github.com/DukeRupert/proforma/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// sweepInterval is how often expired sessions and rate limit entries are
// evicted.
const sweepInterval = 5 * time.Minute

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	isDev := cfg.IsDevelopment()
	isSecure := !isDev

	// ==========================================================================
	// Storage and branding
	// ==========================================================================

	store, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{BasePath: cfg.LocalStoragePath},
		storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Region:          cfg.R2Region,
			Endpoint:        cfg.R2Endpoint,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	brandingService := service.NewBrandingService(store, service.NewImagingProcessor(), logger)

	// ==========================================================================
	// Delivery
	// ==========================================================================

	relay := newRelay(cfg, logger)
	if !relay.Configured() {
		logger.Warn("Mail relay has no credentials; sending is disabled", "provider", cfg.MailProvider)
	}

	composer, err := email.NewComposer()
	if err != nil {
		return fmt.Errorf("email templates failed to load: %w", err)
	}

	business := service.Business{
		Name:         cfg.BusinessName,
		Headquarters: cfg.BusinessHeadquarters,
		Showroom:     cfg.BusinessShowroom,
		Address:      cfg.BusinessAddress,
		Phone:        cfg.BusinessPhone,
		Email:        cfg.BusinessEmail,
	}

	quoteService := service.NewQuoteService(
		[]report.Generator{report.NewPDFGenerator(cfg.PDFFontPath), report.NewXLSXGenerator()},
		relay,
		composer,
		brandingService,
		business,
		logger,
	)

	// ==========================================================================
	// Sessions and auth
	// ==========================================================================

	passwordHash := cfg.AuthPasswordHash
	if passwordHash == "" {
		passwordHash, err = service.HashPassword(cfg.AuthPassword)
		if err != nil {
			return fmt.Errorf("hashing AUTH_PASSWORD failed: %w", err)
		}
		logger.Warn("AUTH_PASSWORD is set in plain text; prefer AUTH_PASSWORD_HASH")
	}

	sessions := session.NewStore(cfg.SessionTTL, logger)
	sessions.OnChange = func(count int) {
		metrics.ActiveWorkspaces.Set(float64(count))
	}
	go sessions.Run(ctx, sweepInterval)

	authService := service.NewAuthService(service.Credential{
		Username:     cfg.AuthUsername,
		PasswordHash: passwordHash,
	}, sessions, logger)

	limiters := middleware.NewLimiters(logger)
	go limiters.Run(ctx)

	// ==========================================================================
	// Templates and handlers
	// ==========================================================================

	var templateFS fs.FS = web.Templates()
	if isDev {
		templateFS = os.DirFS("web/templates")
	}
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:     templateFS,
		Logger: logger,
		IsDev:  isDev,
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	authMw := middleware.NewAuthMiddleware(authService, logger, isSecure)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if !metricsAuth.Enabled() {
		logger.Warn("METRICS_USERNAME/METRICS_PASSWORD not set; /metrics is unprotected")
	}

	authHandler := handler.NewAuthHandler(authService, limiters, renderer, cfg.BusinessName, cfg.SessionTTL, logger, isSecure)
	quoteHandler := handler.NewQuoteHandler(quoteService, brandingService, renderer, business, relay.Configured(), logger)
	brandingHandler := handler.NewBrandingHandler(brandingService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	requireSession := middleware.Stack(authMw.WithSession, authMw.RequireSession)

	authHandler.RegisterRoutes(mux, authMw.WithSession, limiters.LimitLogin)
	quoteHandler.RegisterRoutes(mux, requireSession, limiters.LimitDelivery)
	brandingHandler.RegisterRoutes(mux, requireSession)

	// Uploads are the largest form bodies the CSRF check has to read.
	protector := csrf.NewProtector(isSecure, service.LogoMaxUploadBytes+(1<<20), logger)

	root := middleware.Stack(
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		protector.Protect,
		metrics.Middleware, // innermost so it sees the pattern the mux matched
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newRelay picks the mail relay named by MAIL_PROVIDER.
func newRelay(cfg *internal.Config, logger *slog.Logger) email.Relay {
	if cfg.MailProvider == "sendgrid" {
		from := cfg.SMTPFrom
		if from == "" {
			from = cfg.BusinessEmail
		}
		return email.NewSendGridRelay(email.SendGridConfig{
			APIKey:   cfg.SendGridAPIKey,
			From:     from,
			FromName: cfg.SMTPFromName,
		}, "", cfg.SMTPTimeout, logger)
	}
	return email.NewSMTPRelay(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		Timeout:  cfg.SMTPTimeout,
	}, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
