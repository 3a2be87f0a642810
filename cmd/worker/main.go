package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/config"
	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/queue"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := database.Connect(cfg); err != nil {
		zlog.Fatalw("database connection failed", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	queueClient := queue.NewClient(cfg.RedisAddr)
	defer queueClient.Close()

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	engine := authz.NewEngine(projectRepo)

	notificationService := services.NewNotificationService(notificationRepo, queueClient, redisClient, zlog)
	projectService := services.NewProjectService(engine, projectRepo, userRepo, notificationService, zlog)
	taskService := services.NewTaskService(engine, taskRepo, projectRepo, notificationService, queueClient, cfg.StrictTaskTransitions, zlog)

	mailer := queue.NewConsoleMailer(cfg.EmailFrom, zlog)
	sms := queue.NewSMSSender(cfg.SMSProvider, zlog)

	handlers := queue.NewHandlers(
		notificationRepo,
		userRepo,
		taskRepo,
		taskService,
		projectService,
		notificationService,
		mailer,
		sms,
		zlog,
	)

	srv, err := queue.NewServer(cfg.RedisAddr, cfg.WorkerConcurrency, handlers, zlog)
	if err != nil {
		zlog.Fatalw("worker setup failed", "error", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zlog.Infow("worker shutting down")
		srv.Shutdown()
	}()

	zlog.Infow("worker starting", "concurrency", cfg.WorkerConcurrency)
	if err := srv.Run(); err != nil {
		zlog.Fatalw("worker failed", "error", err)
	}
}
