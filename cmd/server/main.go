package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"authservice/docs"
	"authservice/internal/auth"
	"authservice/internal/cache"
	"authservice/internal/config"
	"authservice/internal/db"
	"authservice/internal/handler"
	"authservice/internal/logger"
	"authservice/internal/metrics"
	"authservice/internal/middleware"
	"authservice/internal/ratelimit"
	"authservice/internal/repository"
	"authservice/internal/router"
	"authservice/internal/service"
)

// @title Auth Service API
// @version 1.0
// @description Credential and identity-provider sign-in with JWT sessions, role-based access and rate limiting.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := logger.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		log.Error("init sentry", slog.String("error", err.Error()))
	}

	err := run(cfg, log)
	if err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		logger.CaptureError(err)
	}
	// os.Exit skips deferred calls, so flush before it.
	logger.FlushSentry()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the service and serves until an interrupt or a listener failure.
func run(cfg *config.Config, log *slog.Logger) error {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("database migrate: %w", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		// The limiter fails open, so a missing Redis only disables throttling.
		log.Warn("redis unreachable, rate limiting disabled until it recovers", slog.String("error", err.Error()))
	}
	cancelPing()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	providerRepo := repository.NewAuthProviderRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiration, cfg.JWTRefreshExpiration)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	providers := auth.NewProviders(cfg.PublicURL, cfg.GoogleClientID, cfg.GitHubClientID)

	// Initialize services
	authService := service.NewAuthService(userRepo, providerRepo, jwtService, hasher, collector)
	userService := service.NewUserService(userRepo, hasher)

	if cfg.AdminEmail != "" {
		admin, err := userService.EnsureAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("admin account ready", slog.String("id", admin.ID.String()))
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(
		e,
		cfg,
		middleware.NewGate(jwtService, userService),
		ratelimit.NewLimiter(cacheClient, collector),
		reg,
		router.Handlers{
			Auth:  handler.NewAuthHandler(authService),
			OAuth: handler.NewOAuthHandler(authService, providers),
			User:  handler.NewUserHandler(userService),
		},
	)

	log.Info("swagger documentation available", slog.String("url", cfg.PublicURL+"/swagger/index.html"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", slog.String("addr", addr), slog.String("env", cfg.Environment))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server start: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
