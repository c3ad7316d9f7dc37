// Package main is the entrypoint for the TaskGuard server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/cache"
	"github.com/taskguard/taskguard/internal/config"
	"github.com/taskguard/taskguard/internal/handler"
	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/middleware"
	"github.com/taskguard/taskguard/internal/repository"
	"github.com/taskguard/taskguard/internal/server"
	"github.com/taskguard/taskguard/internal/service"
	"github.com/taskguard/taskguard/internal/session"
	"github.com/taskguard/taskguard/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL)))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("configuration loaded", slog.Any("config", cfg))

	// Schema
	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", config.RedactURL(cfg.DatabaseURL)),
			)
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", config.RedactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("connect database: %w", err)
	}
	logger.Info("connected to database")

	// Initialize cache. Redis is optional.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			repo.Close()
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", config.RedactURL(cfg.RedisURL)),
			)
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to Redis")
	}

	// Credentials and tokens
	hasher, err := auth.NewHasher(auth.HasherConfig{
		Algorithm:      auth.HashAlgorithm(cfg.PasswordHashAlgo),
		BcryptCost:     cfg.BcryptCost,
		Argon2Time:     cfg.Argon2Time,
		Argon2MemoryKB: cfg.Argon2MemoryKB,
		Argon2Threads:  cfg.Argon2Threads,
	})
	if err != nil {
		return closeAll(fmt.Errorf("password hasher: %w", err), repo, cacheClient)
	}
	logger.Info("password hasher ready", slog.String("algorithm", string(hasher.Algorithm())))

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return closeAll(fmt.Errorf("token service: %w", err), repo, cacheClient)
	}
	sessions, err := session.NewManager(session.Config{
		Secret:     []byte(cfg.SessionSecret),
		CookieName: cfg.SessionCookieName,
		MaxAge:     cfg.SessionMaxAge,
		Secure:     cfg.IsProduction(),
	})
	if err != nil {
		return closeAll(fmt.Errorf("session manager: %w", err), repo, cacheClient)
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return closeAll(fmt.Errorf("templates: %w", err), repo, cacheClient)
	}

	// Initialize services
	var (
		recorder       metrics.Recorder = metrics.NewNoop()
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsHandler = prom.Handler()
	}
	authService := service.NewAuthService(repo, hasher, tokens, recorder)
	taskService := service.NewTaskService(repo, recorder)

	// Health checks. Keep the cache checker a nil interface without Redis.
	var cacheChecker handler.HealthChecker
	if cacheClient != nil {
		cacheChecker = cacheClient
	}

	r := handler.NewRouter(handler.RouterDeps{
		Logger:             logger,
		Auth:               authService,
		Tasks:              taskService,
		Sessions:           sessions,
		Renderer:           renderer,
		Health:             handler.NewHealthHandler(repo, cacheChecker, logger),
		Metrics:            metricsHandler,
		Recorder:           recorder,
		LoginLimiter:       loginLimiter(cfg, cacheClient, logger),
		LoginRatePerMinute: cfg.LoginRateLimitPerMinute,
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	// Create and run server
	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
	)

	return srv.Run()
}

// loginLimiter picks the throttle backend. It returns a nil interface when
// throttling is disabled.
func loginLimiter(cfg *config.Config, cacheClient *cache.Cache, logger *slog.Logger) middleware.LoginLimiter {
	if !cfg.LoginRateLimitEnabled {
		return nil
	}

	limit := cache.Limit{
		PerMinute: cfg.LoginRateLimitPerMinute,
		Burst:     cfg.LoginRateLimitBurst,
	}
	if cacheClient != nil {
		logger.Info("login rate limit enabled", slog.String("backend", "redis"))
		return cache.NewRedisLimiter(cacheClient, limit)
	}

	logger.Info("login rate limit enabled", slog.String("backend", "local"))
	return cache.NewLocalLimiter(limit)
}

func closeAll(err error, repo *repository.Repository, cacheClient *cache.Cache) error {
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
	repo.Close()
	return err
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := config.RedactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
