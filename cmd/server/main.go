package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/PowerDrive/config"
	appmodel "github.com/sifan077/PowerDrive/internal/app/model"
	apprepository "github.com/sifan077/PowerDrive/internal/app/repository"
	appserver "github.com/sifan077/PowerDrive/internal/app/server"
	appservice "github.com/sifan077/PowerDrive/internal/app/service"
	"github.com/sifan077/PowerDrive/internal/http/middleware"
	httpUtil "github.com/sifan077/PowerDrive/internal/http/util"
	"github.com/sifan077/PowerDrive/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerDrive/internal/infra/nats"
	infraPostgres "github.com/sifan077/PowerDrive/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/PowerDrive/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerDrive/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCfg := logger.FromEnv("powerdrive")
	isDev := logCfg.Development()
	log := logger.MustInit(logCfg)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("http_addr", cfg.Server.Addr),
		zap.String("public_base_url", cfg.Server.PublicBaseURL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.File{},
		&appmodel.ShareLink{},
		&appmodel.ShareEvent{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully")

	metrics := infraPrometheus.NewShareMetrics(prometheus.DefaultRegisterer)
	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewShareLinkRepository(gormDB)
	fileRepo := apprepository.NewFileRepository(gormDB)
	eventRepo := apprepository.NewShareEventRepository(gormDB)

	consumer := appservice.NewShareEventConsumer(js, log, eventRepo)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start share event consumer", zap.Error(err))
	}

	tokenFilter := appservice.NewTokenFilter(0, 0)
	warmed, err := tokenFilter.Warm(ctx, linkRepo)
	if err != nil {
		log.Fatal("Failed to warm share token filter", zap.Error(err))
	}
	log.Info("Share token filter warmed", zap.Int("tokens", warmed))

	shares := appservice.NewShareService(linkRepo, fileRepo, appservice.WithTokenFilter(tokenFilter))

	rateLimit := middleware.DefaultRateLimitConfig()
	rateLimit.MaxRequests = cfg.Server.RateLimit.MaxRequests
	rateLimit.Window = cfg.Server.RateLimit.Window

	server := appserver.New(appserver.Dependencies{
		Logger:        log,
		Postgres:      pool,
		Redis:         redisClient,
		Shares:        shares,
		Tokens:        httpUtil.NewAccessTokenSigner([]byte(cfg.Server.JWTSecret), cfg.Server.TokenTTL),
		Events:        appservice.NewShareEventPublisher(js),
		Metrics:       metrics,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		CORSOrigins:   cfg.Server.CORSOrigins,
		RateLimit:     rateLimit,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down HTTP server cleanly", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))
	if err := server.Listen(cfg.Server.Addr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
