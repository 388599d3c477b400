package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"cuecards_backend/internal/app/di"
	"cuecards_backend/internal/app/router"
	"cuecards_backend/internal/config"
	authhandler "cuecards_backend/internal/feature/auth/transport/handler"
	"cuecards_backend/internal/platform/db"
	"cuecards_backend/internal/platform/http/handler"
	"cuecards_backend/internal/platform/logger"
	infraredis "cuecards_backend/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	checks := map[string]handler.Check{"database": sqlDB.PingContext}

	// Redis
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		rdb, err = infraredis.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("failed to close Redis client", "error", err)
			}
		}()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("REDIS_HOST is not set; revocations and codes are stored in the database")
	}

	m, err := di.NewMailer(ctx, cfg.Mail, log)
	if err != nil {
		return err
	}
	auth := di.NewAuth(cfg, gdb, rdb, m, log)

	engine := router.NewRouter(router.Params{
		Auth:          authhandler.NewAuthHandler(auth.Usecase, log),
		Health:        handler.NewHealthHandler(checks, 2*time.Second, log),
		Authenticator: auth.Usecase,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTP.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return auth.Sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
