package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/background"
	"github.com/securedbank/sentinel/internal/config"
	"github.com/securedbank/sentinel/internal/database"
	"github.com/securedbank/sentinel/internal/handlers"
	middlewareCustom "github.com/securedbank/sentinel/internal/middleware"
	"github.com/securedbank/sentinel/internal/notify"
	"github.com/securedbank/sentinel/internal/repositories"
	"github.com/securedbank/sentinel/internal/routes"
	"github.com/securedbank/sentinel/internal/security"
	"github.com/securedbank/sentinel/internal/services"
	"github.com/securedbank/sentinel/pkg/crypto"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	securityEventRepo := repositories.NewSecurityEventRepository(db)

	// Cipher for TOTP secrets at rest
	cipher, err := crypto.NewCipher(cfg.Security.EncryptionSecret)
	if err != nil {
		logger.Error("failed to initialize cipher", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)

	// Security primitives: throttle, CSRF store, sessions, token cache
	securityConfig := security.ServicesConfig{
		MaxAttempts:   cfg.Security.MaxLoginAttempts,
		LockoutWindow: cfg.Security.LockoutWindow,
		CSRFTokenTTL:  cfg.Security.CSRFTokenTTL,
		Session: security.SessionConfig{
			MaxAge:      cfg.Security.SessionMaxAge,
			IdleTimeout: cfg.Security.SessionIdleTimeout,
			RenewWindow: cfg.Security.SessionRenewWindow,
		},
	}

	var sec *security.Services
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessionStore := security.NewRedisSessionStore(redisClient, securityConfig.Session, logger)
		sec = security.NewServicesWithSessions(securityConfig, sessionStore)
		logger.Info("sessions backed by redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		sec = security.NewServices(securityConfig)
		logger.Info("sessions kept in memory")
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Alert stream for the dashboard
	hub := notify.NewHub(tokenManager, sec, cfg.Server.AllowedOrigins, logger)

	// Email delivery: SES in production, log-only otherwise
	var emailService services.EmailSender
	if cfg.Email.Enabled {
		sesService, err := services.NewAWSSESEmailService(cfg.Email.Region, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = sesService
	} else {
		emailService = services.NewLogEmailService(logger)
	}

	// Initialize services
	authService := services.NewAuthService(
		userRepo,
		loginAttemptRepo,
		securityEventRepo,
		tokenManager,
		totpManager,
		sec,
		cipher,
		emailService,
		hub,
		logger,
		auditLogger,
		cfg.Security.AttemptRetention,
		cfg.Email.BaseURL,
	)
	securityService := services.NewSecurityService(userRepo, loginAttemptRepo, securityEventRepo, sec, logger)
	mfaService := services.NewMFAService(userRepo, securityEventRepo, totpManager, cipher, hub, logger, auditLogger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	}
	authHandler := handlers.NewAuthHandler(authService, sec.CSRF, ipConfig, cookieConfig)
	securityHandler := handlers.NewSecurityHandler(securityService)
	mfaHandler := handlers.NewMFAHandler(mfaService, ipConfig)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(
		sec,
		loginAttemptRepo,
		logger,
		cfg.Security.CleanupInterval,
		cfg.Security.AttemptRetention,
	)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, securityHandler, mfaHandler, hub, tokenManager, sec, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
