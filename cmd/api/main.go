package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"veinwise/internal/config"
	"veinwise/internal/db"
	apihttp "veinwise/internal/http"
	"veinwise/internal/metrics"
	"veinwise/internal/repository"
	"veinwise/internal/service"
	"veinwise/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics := metrics.NewAuthMetrics(registry)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		cancel()
	}

	loginLimiter := service.NewLoginLimiter(cfg.LoginAttemptWindow, cfg.LoginMaxAttempts)
	if redisClient != nil {
		loginLimiter = service.NewRedisLoginLimiter(redisClient, cfg.LoginAttemptWindow, cfg.LoginMaxAttempts)
	}

	var revoker service.TokenRevoker
	switch cfg.TokenRevocation {
	case config.RevocationMemory:
		revoker = service.NewMemoryTokenRevoker()
	case config.RevocationRedis:
		revoker = service.NewRedisTokenRevoker(redisClient)
	}
	jwtSvc := service.NewJWTServiceWithRevoker(cfg.JWTSecret, revoker)
	logger.Info("token revocation", zap.String("mode", cfg.TokenRevocation))

	sessions, err := session.NewStore(cfg.SessionSecret, session.Options{
		Secure:    cfg.IsProduction(),
		OnExpired: authMetrics.ObserveSessionExpired,
	}, logger)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}
	if !cfg.AuthCookieSecure {
		logger.Warn("auth cookie is not marked Secure; set AUTH_COOKIE_SECURE=true behind TLS")
	}

	userRepo := repository.NewPgUserRepository(pool)
	authSvc := service.NewAuthService(logger, userRepo, jwtSvc, sessions, loginLimiter, authMetrics, cfg.AuthCookieSecure)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}
	router := apihttp.NewRouter(logger, authSvc, authMetrics, metricsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if strings.EqualFold(cfg.AppEnv, "development") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
