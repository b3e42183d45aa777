// Package main runs the clip tagging HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cliptag/backend/config"
	"github.com/cliptag/backend/internal/server"
	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/internal/video"
	"github.com/cliptag/backend/internal/worker"
	"github.com/cliptag/backend/pkg/queue"
	"github.com/cliptag/backend/pkg/redis"
	"github.com/cliptag/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := newLogger("info")
		bootstrap.Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx := context.Background()
	store, closeStore, err := sessions.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer closeStore()

	var s3Client *storage.S3
	if cfg.AWS.Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	var objects storage.ObjectReader
	if s3Client != nil {
		objects = s3Client
	}
	source, err := video.NewSource(cfg.Video.SourceURL, cfg.Video.Referer, objects, nil)
	if err != nil {
		logger.Fatal("video source", zap.Error(err))
	}
	if !cfg.Video.Configured() {
		logger.Warn("VIDEO_SOURCE_URL not set; /api/video will answer 503")
	} else {
		logger.Info("video relay configured", zap.String("source", source.Redacted()))
	}

	deps := server.Deps{Config: cfg, Store: store, VideoSource: source, Logger: logger}

	// Background worker (CSV export to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Redis.Enabled() && s3Client != nil {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("async export disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			jobQueue := queue.NewQueue(rdb.Client, logger)
			deps.Jobs = jobQueue
			deps.Presigner = s3Client
			go worker.NewExportProcessor(store, s3Client, jobQueue, logger).Run(workerCtx)
			logger.Info("export worker started")
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.NewRouter(deps),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
