// Package main runs the Telegram registration bot together with the
// admin HTTP API and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atelier-events/bookingbot/config"
	"github.com/atelier-events/bookingbot/internal/admin"
	"github.com/atelier-events/bookingbot/internal/capacity"
	"github.com/atelier-events/bookingbot/internal/flow"
	"github.com/atelier-events/bookingbot/internal/gateway"
	"github.com/atelier-events/bookingbot/internal/middleware"
	"github.com/atelier-events/bookingbot/internal/notify"
	"github.com/atelier-events/bookingbot/internal/realtime"
	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/schedule"
	"github.com/atelier-events/bookingbot/internal/session"
	"github.com/atelier-events/bookingbot/internal/telegram"
	"github.com/atelier-events/bookingbot/internal/worker"
	"github.com/atelier-events/bookingbot/pkg/database"
	"github.com/atelier-events/bookingbot/pkg/queue"
	"github.com/atelier-events/bookingbot/pkg/redis"
	"github.com/atelier-events/bookingbot/pkg/response"
	"github.com/atelier-events/bookingbot/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ProofsBucket:         cfg.AWS.ProofsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	catalog, err := schedule.Parse(cfg.Booking.Offerings)
	if err != nil {
		logger.Fatal("parse offerings", zap.Error(err))
	}

	sessionTTL := time.Duration(cfg.Booking.SessionTTLMinutes) * time.Minute
	var store session.Store
	if cfg.Booking.SessionBackend == "redis" && rdb != nil {
		store = session.NewRedisStore(rdb.Client, sessionTTL)
		logger.Info("session store: redis", zap.Duration("ttl", sessionTTL))
	} else {
		memStore := session.NewMemoryStore(sessionTTL)
		defer memStore.Close()
		store = memStore
		logger.Info("session store: memory", zap.Duration("ttl", sessionTTL))
	}

	tracker := capacity.NewPostgresTracker(pool, cfg.Booking.SlotCapacity)
	repo := registration.NewRepository(pool)

	// The bot is built before the machine because it doubles as the
	// gateway's file fetcher.
	tgBot, err := telegram.New(cfg.Telegram.BotToken, nil, logger)
	if err != nil {
		logger.Fatal("telegram", zap.Error(err))
	}

	gw := gateway.New(repo, s3Client, tgBot, logger)

	tokens := admin.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jwtValidate := func(token string) (string, error) {
		return tokens.Validate(token)
	}

	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	defer hub.Close()

	sender := notify.NewTelegramSender(tgBot.API(), cfg.Telegram.OperatorChatID, logger)
	var jobQueue *queue.Queue
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}
	notifier := notify.NewService(jobQueue, sender, hub, logger)

	machine := flow.NewMachine(store, tracker, catalog, gw, notifier,
		cfg.Booking.PersistFailure == "retain", logger)
	tgBot.SetMachine(machine)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if jobQueue != nil {
		processor := worker.NewNotificationProcessor(sender, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("notification worker started")
	}

	adminHandler := admin.NewHandler(repo, tracker, catalog, s3Client, tokens,
		cfg.Admin.PasswordHash, cfg.Booking.SlotCapacity, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Admin.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.POST("/admin/login", adminHandler.Login)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	authed := router.Group("/admin")
	authed.Use(middleware.JWT(jwtValidate), middleware.RequireRole(admin.RoleOperator))
	{
		authed.GET("/registrations", adminHandler.List)
		authed.GET("/registrations/:id/proof", adminHandler.ProofURL)
		authed.GET("/slots", adminHandler.Slots)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Admin.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Admin.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Admin.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info("admin api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("admin api", zap.Error(err))
		}
	}()

	botCtx, cancelBot := context.WithCancel(ctx)
	go tgBot.Run(botCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancelBot()
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin api shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
