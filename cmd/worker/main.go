// Package main runs the background worker that drains queued recording
// pipeline jobs: fetch audio from S3, transcribe, analyze, persist.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/analysis"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/realtime"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/internal/worker"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		AudioBucket:          cfg.AWS.AudioBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	// Events publish through Redis only; clients are connected to the API
	// server, not here.
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, nil)

	ai := llm.NewOpenAI(cfg.OpenAI, logger)
	transcriber := transcription.NewAdapter(ai, cfg.OpenAI.Language, logger)
	analyzer := analysis.NewEngine(ai, logger)
	meetingStore := meetings.NewStore(meetings.NewRedisRepository(rdb, logger), ai, logger)
	pipe := pipeline.New(transcriber, analyzer, meetingStore, hub, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewPipelineProcessor(pipe, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
