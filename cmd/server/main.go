package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/synergysphere/api/internal/auth"
	"github.com/synergysphere/api/internal/authz"
	"github.com/synergysphere/api/internal/config"
	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/handlers"
	"github.com/synergysphere/api/internal/logger"
	"github.com/synergysphere/api/internal/middleware"
	"github.com/synergysphere/api/internal/queue"
	"github.com/synergysphere/api/internal/repository"
	"github.com/synergysphere/api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		zlog.Fatalw("database connection failed", "error", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		zlog.Fatalw("migrations failed", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	queueClient := queue.NewClient(cfg.RedisAddr)
	defer queueClient.Close()

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	denylist := auth.NewRedisDenylist(redisClient)
	engine := authz.NewEngine(projectRepo)

	notificationService := services.NewNotificationService(notificationRepo, queueClient, redisClient, zlog)
	authService := services.NewAuthService(userRepo, tokens, denylist)
	projectService := services.NewProjectService(engine, projectRepo, userRepo, notificationService, zlog)
	taskService := services.NewTaskService(engine, taskRepo, projectRepo, notificationService, queueClient, cfg.StrictTaskTransitions, zlog)
	discussionService := services.NewDiscussionService(engine, discussionRepo, notificationService, zlog)
	userService := services.NewUserService(userRepo, projectRepo, taskRepo, discussionRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	discussionHandler := handlers.NewDiscussionHandler(discussionService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(userService)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// User routes; auth issuance is public, the rest requires a token
		users := api.Group("/users")
		{
			users.POST("/register", authHandler.Register)
			users.POST("/login", authHandler.Login)
			users.POST("/token/refresh", authHandler.Refresh)
			users.POST("/logout", middleware.RequireAuth(tokens), authHandler.Logout)
			users.GET("/profile", middleware.RequireAuth(tokens), authHandler.GetProfile)
			users.PATCH("/profile", middleware.RequireAuth(tokens), authHandler.UpdateProfile)
			users.POST("/password/change", middleware.RequireAuth(tokens), authHandler.ChangePassword)
		}

		// Project routes
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth(tokens))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
			projects.PATCH("/:id", middleware.RequireProjectAccess(), projectHandler.UpdateProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(), projectHandler.DeleteProject)
			projects.GET("/:id/members", middleware.RequireProjectAccess(), projectHandler.ListMembers)
			projects.POST("/:id/add_member", middleware.RequireProjectAccess(), projectHandler.AddMember)
			projects.DELETE("/:id/members/:user_id", middleware.RequireProjectAccess(), projectHandler.RemoveMember)
			projects.PATCH("/:id/members/:user_id", middleware.RequireProjectAccess(), projectHandler.ChangeMemberRole)
			projects.POST("/:id/invitations", middleware.RequireProjectAccess(), projectHandler.Invite)
			projects.GET("/:id/invitations", middleware.RequireProjectAccess(), projectHandler.ListInvitations)
		}

		// Invitation answers are token-addressed, not project-scoped
		invitations := api.Group("/invitations")
		invitations.Use(middleware.RequireAuth(tokens))
		{
			invitations.POST("/:token/accept", projectHandler.AcceptInvitation)
			invitations.POST("/:token/decline", projectHandler.DeclineInvitation)
		}

		// Task routes
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(tokens))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.PATCH("/:id/update_status", middleware.RequireTaskAccess(), taskHandler.UpdateStatus)
			tasks.POST("/:id/dependencies", middleware.RequireTaskAccess(), taskHandler.AddDependency)
			tasks.DELETE("/:id/dependencies/:depends_on_id", middleware.RequireTaskAccess(), taskHandler.RemoveDependency)
			tasks.GET("/:id/activities", middleware.RequireTaskAccess(), taskHandler.ListActivities)
		}

		// Discussion routes
		discussions := api.Group("/discussions")
		discussions.Use(middleware.RequireAuth(tokens))
		{
			discussions.GET("", discussionHandler.ListDiscussions)
			discussions.POST("", discussionHandler.CreateDiscussion)
			discussions.GET("/:id", discussionHandler.GetDiscussion)
			discussions.PATCH("/:id", discussionHandler.UpdateDiscussion)
			discussions.DELETE("/:id", discussionHandler.DeleteDiscussion)
			discussions.POST("/:id/join", discussionHandler.Join)
			discussions.POST("/:id/leave", discussionHandler.Leave)
			discussions.GET("/:id/messages", discussionHandler.ListReplies)
			discussions.POST("/:id/messages", discussionHandler.CreateReply)
			discussions.POST("/:id/vote", discussionHandler.Vote)
			discussions.DELETE("/:id/vote", discussionHandler.Unvote)
			discussions.GET("/:id/votes", discussionHandler.VoteCounts)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth(tokens))
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/mark_read", notificationHandler.MarkRead)
			notifications.POST("/mark_all_read", notificationHandler.MarkAllRead)
			notifications.GET("/unread_count", notificationHandler.UnreadCount)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth(tokens), middleware.RequireAdmin())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.PATCH("/users/:id", adminHandler.SetRole)
			admin.DELETE("/users/:id", adminHandler.Deactivate)
			admin.POST("/users/:id/promote", adminHandler.Promote)
			admin.POST("/users/:id/demote", adminHandler.Demote)
			admin.POST("/users/:id/activate", adminHandler.Activate)
			admin.POST("/users/:id/deactivate", adminHandler.Deactivate)
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		zlog.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Infow("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Errorw("shutdown failed", "error", err)
	}
}
