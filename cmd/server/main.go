// Package main runs the meeting assistant HTTP server: capture and upload
// endpoints, the recording pipeline, meeting history, chat, quizzes, and
// the WebSocket progress stream. Graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/analysis"
	"github.com/meetscribe/backend/internal/capture"
	"github.com/meetscribe/backend/internal/chat"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/quiz"
	"github.com/meetscribe/backend/internal/realtime"
	"github.com/meetscribe/backend/internal/session"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/response"
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

	// Redis backs the meeting store, the job queue, and the progress
	// channel. Without it everything runs in-process and in-memory.
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory storage", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AudioBucket:          cfg.AWS.AudioBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	var redisPubSub *realtime.RedisPubSub
	var jobQueue *queue.Queue
	var meetingRepo meetings.Repository
	if rdb != nil {
		redisPubSub = realtime.NewRedisPubSub(rdb.Client, logger)
		jobQueue = queue.NewQueue(rdb.Client, logger)
		meetingRepo = meetings.NewRedisRepository(rdb, logger)
	} else {
		meetingRepo = meetings.NewMemoryRepository()
	}

	var hub *realtime.Hub
	var sub realtime.RedisSubscriber
	if redisPubSub != nil {
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
		sub = redisPubSub
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// One OpenAI client serves chat completions and transcription.
	ai := llm.NewOpenAI(cfg.OpenAI, logger)

	transcriber := transcription.NewAdapter(ai, cfg.OpenAI.Language, logger)
	analyzer := analysis.NewEngine(ai, logger)
	meetingStore := meetings.NewStore(meetingRepo, ai, logger)
	pipe := pipeline.New(transcriber, analyzer, meetingStore, hub, logger)

	recorder := capture.NewRecorder(cfg.Recording, logger)
	if err := recorder.CheckFFmpeg(); err != nil {
		logger.Warn("server-side recording disabled", zap.Error(err))
		recorder = nil
	}

	manager := session.NewManager(pipe, meetingStore, recorder, logger)

	sessionHandler := session.NewHandler(manager, s3Client, jobQueue, sub, logger)
	meetingHandler := meetings.NewHandler(meetingStore, logger)
	chatHandler := chat.NewHandler(chat.NewService(ai, logger), manager, logger)
	quizHandler := quiz.NewHandler(quiz.NewEngine(ai, logger), quiz.NewStore(), meetingStore, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Sessions and the recording pipeline
	router.POST("/sessions", sessionHandler.Create)
	router.GET("/sessions/:id", sessionHandler.Get)
	router.DELETE("/sessions/:id", sessionHandler.Remove)
	router.POST("/sessions/:id/recording/start", sessionHandler.StartRecording)
	router.POST("/sessions/:id/recording/stop", sessionHandler.StopRecording)
	router.POST("/sessions/:id/recording/cancel", sessionHandler.CancelRecording)
	router.POST("/sessions/:id/upload", sessionHandler.Upload)
	router.POST("/sessions/:id/uploads/presign", sessionHandler.PresignUpload)
	router.POST("/sessions/:id/process", sessionHandler.Process)
	router.POST("/sessions/:id/meetings/close", sessionHandler.CloseMeeting)
	router.POST("/sessions/:id/meetings/:meetingID/load", sessionHandler.LoadMeeting)
	router.DELETE("/sessions/:id/meetings/:meetingID", sessionHandler.DeleteMeeting)

	// Chat about the session's open meeting
	router.POST("/sessions/:id/chat", chatHandler.Ask)
	router.GET("/sessions/:id/chat", chatHandler.Messages)
	router.DELETE("/sessions/:id/chat", chatHandler.Clear)

	// Meeting history
	router.GET("/meetings", meetingHandler.List)
	router.GET("/meetings/:id", meetingHandler.Get)
	router.DELETE("/meetings/:id", meetingHandler.Delete)
	router.GET("/meetings/:id/transcript", meetingHandler.Transcript)
	router.GET("/meetings/:id/export", meetingHandler.Export)

	// Quizzes
	router.POST("/meetings/:id/quiz", quizHandler.Generate)
	router.GET("/quizzes/:id", quizHandler.Get)
	router.POST("/quizzes/:id/answers", quizHandler.Answer)
	router.DELETE("/quizzes/:id", quizHandler.Delete)
	router.GET("/quizzes/:id/export", quizHandler.Export)

	// WebSocket progress stream (session_id in query)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
