// Package main runs cliptag-worker, which turns queued export jobs into CSV files on S3.
// It can run alongside the server's in-process worker; both consume the same queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cliptag/backend/config"
	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/internal/worker"
	"github.com/cliptag/backend/pkg/queue"
	"github.com/cliptag/backend/pkg/redis"
	"github.com/cliptag/backend/pkg/storage"
)

// drainTimeout bounds how long an in-flight export may keep running after a signal.
const drainTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger("info").Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.Log.Level).Named("export-worker")
	defer logger.Sync()

	if !cfg.Redis.Enabled() || !cfg.AWS.Enabled() {
		logger.Fatal("exports need both REDIS_ADDR and AWS_REGION",
			zap.Bool("redis", cfg.Redis.Enabled()), zap.Bool("aws", cfg.AWS.Enabled()))
	}

	ctx := context.Background()
	store, closeStore, err := sessions.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("open event store", zap.Error(err))
	}
	defer closeStore()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ExportsBucket:        cfg.AWS.ExportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3 client", zap.Error(err))
	}

	processor := worker.NewExportProcessor(store, s3Client, queue.NewQueue(rdb.Client, logger), logger)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(runCtx)
	}()
	logger.Info("waiting for export jobs",
		zap.String("queue", queue.QueueExports), zap.String("bucket", cfg.AWS.ExportsBucket))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		logger.Warn("export still running at shutdown", zap.Duration("waited", drainTimeout))
	}
	logger.Info("worker stopped")
}

func newLogger(level string) *zap.Logger {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := zc.Build()
	return logger
}
