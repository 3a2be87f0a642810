package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Server runs the background workers plus the scheduler that feeds them
// their periodic tasks.
type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.SugaredLogger
}

// NewServer creates the worker server and registers every handler and
// periodic schedule
func NewServer(redisAddr string, concurrency int, handlers *Handlers, logger *zap.SugaredLogger) (*Server, error) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Errorw("task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, handlers.HandleEmailDelivery)
	mux.HandleFunc(TypeSMSDelivery, handlers.HandleSMSDelivery)
	mux.HandleFunc(TypePushDelivery, handlers.HandlePushDelivery)
	mux.HandleFunc(TypeEmailBatch, handlers.HandleEmailBatch)
	mux.HandleFunc(TypeProgressRecompute, handlers.HandleProgressRecompute)
	mux.HandleFunc(TypeProgressSweep, handlers.HandleProgressSweep)
	mux.HandleFunc(TypeInvitationSweep, handlers.HandleInvitationSweep)
	mux.HandleFunc(TypeDailyDigest, handlers.HandleDailyDigest)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	schedules := map[string]string{
		TypeEmailBatch:      "@every 5m",
		TypeProgressSweep:   "@every 15m",
		TypeInvitationSweep: "@every 1h",
		TypeDailyDigest:     "0 8 * * *",
	}
	for taskType, spec := range schedules {
		if _, err := scheduler.Register(spec, asynq.NewTask(taskType, nil)); err != nil {
			return nil, fmt.Errorf("failed to register schedule for %s: %w", taskType, err)
		}
	}

	return &Server{
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
	}, nil
}

// Run starts the scheduler and blocks serving tasks until shutdown
func (s *Server) Run() error {
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return s.server.Run(s.mux)
}

// Shutdown stops the scheduler and drains the workers
func (s *Server) Shutdown() {
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
