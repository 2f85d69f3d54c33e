// Package main runs the campus LMS HTTP server with the live classroom
// WebSocket push and graceful shutdown.
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

	"github.com/campus-lms/backend/config"
	"github.com/campus-lms/backend/internal/activity"
	"github.com/campus-lms/backend/internal/admin"
	"github.com/campus-lms/backend/internal/auth"
	"github.com/campus-lms/backend/internal/classroom"
	"github.com/campus-lms/backend/internal/cloud"
	"github.com/campus-lms/backend/internal/dashboard"
	"github.com/campus-lms/backend/internal/lessons"
	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/internal/realtime"
	"github.com/campus-lms/backend/internal/tasks"
	"github.com/campus-lms/backend/internal/worker"
	"github.com/campus-lms/backend/pkg/database"
	"github.com/campus-lms/backend/pkg/queue"
	"github.com/campus-lms/backend/pkg/redis"
	"github.com/campus-lms/backend/pkg/response"
	"github.com/campus-lms/backend/pkg/storage"
	"github.com/campus-lms/backend/pkg/utils"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		CloudBucket:     cfg.Storage.CloudBucket,
		PublicBucket:    cfg.Storage.PublicBucket,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	engine := classroom.NewEngine(classroom.NewRedisStore(rdb.Client))

	// Auth and profiles
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	seedAdmin(ctx, authRepo, cfg.Bootstrap, logger)

	// Lessons and the live classroom
	lessonRepo := lessons.NewRepository(pool)
	lessonHandler := lessons.NewHandler(lessonRepo, engine, jobQueue, hub, logger,
		cfg.Attendance.WindowSeconds,
		time.Duration(cfg.Attendance.TokenWindowSeconds)*time.Second)

	// Tasks
	taskRepo := tasks.NewRepository(pool)
	taskHandler := tasks.NewHandler(taskRepo, lessonRepo, jobQueue, logger)

	// Activity feed
	activityRepo := activity.NewRepository(pool)
	activityHandler := activity.NewHandler(activityRepo, logger)
	activityProcessor := worker.NewActivityProcessor(activityRepo, jobQueue, logger)

	// Admin
	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo, logger)

	// Cloud drive
	shareRepo := cloud.NewRepository(pool)
	cloudHandler := cloud.NewHandler(s3Client, shareRepo, logger)

	// Dashboard
	dashboardRepo := dashboard.NewRepository(pool)
	dashboardHandler := dashboard.NewHandler(dashboardRepo, activityRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	router.POST("/login", authHandler.Login)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService.Principal))
	{
		// Profile
		api.GET("/personal-info", authHandler.Profile)
		api.PUT("/personal-info", authHandler.UpdateProfile)
		api.PUT("/password", authHandler.ChangePassword)

		// Dashboard and feed
		api.GET("/dashboard", dashboardHandler.Get)
		api.GET("/activities", activityHandler.Feed)

		// Lessons
		api.GET("/lessons", lessonHandler.List)
		api.GET("/lessons/:id", lessonHandler.Get)
		api.PUT("/lessons/:id/notice", middleware.RequireRole("teacher"), lessonHandler.UpdateNotice)
		api.PUT("/lessons/:id/courseware", middleware.RequireRole("teacher"), lessonHandler.UpdateCourseware)
		api.GET("/lessons/:id/records", lessonHandler.ListRecords)
		api.GET("/lessons/:id/records/:recordID", lessonHandler.GetRecord)

		// Live classroom
		api.GET("/lessons/:id/classroom", lessonHandler.Classroom)
		api.PUT("/lessons/:id/classroom/classbegin", middleware.RequireRole("teacher"), lessonHandler.ClassBegin)
		api.PUT("/lessons/:id/classroom/classend", middleware.RequireRole("teacher"), lessonHandler.ClassEnd)
		api.PUT("/lessons/:id/classroom/attendance", middleware.RequireRole("student"), lessonHandler.Attendance)
		api.GET("/lessons/:id/classroom/roll", middleware.RequireRole("teacher"), lessonHandler.RollCall)

		// Tasks
		api.GET("/tasks", middleware.RequireRole("student"), taskHandler.ListMine)
		api.GET("/lessons/:id/tasks", taskHandler.ListForLesson)
		api.POST("/lessons/:id/tasks", middleware.RequireRole("teacher"), taskHandler.Create)
		api.PUT("/tasks/:id", middleware.RequireRole("teacher"), taskHandler.Update)
		api.DELETE("/tasks/:id", middleware.RequireRole("teacher"), taskHandler.Delete)
		api.GET("/tasks/:id/statuses", middleware.RequireRole("teacher"), taskHandler.Statuses)
		api.PUT("/tasks/:id/submit", middleware.RequireRole("student"), taskHandler.Submit)
		api.PUT("/tasks/:id/statuses/:studentID", middleware.RequireRole("teacher"), taskHandler.Grade)

		// Cloud drive
		api.GET("/cloud", cloudHandler.List)
		api.POST("/cloud/upload", cloudHandler.Upload)
		api.GET("/cloud/download", cloudHandler.Download)
		api.POST("/cloud/mkdir", cloudHandler.MakeDir)
		api.DELETE("/cloud", cloudHandler.Delete)
		api.PUT("/cloud/move", cloudHandler.Move)
		api.PUT("/cloud/copy", cloudHandler.Copy)
		api.PUT("/cloud/rename", cloudHandler.Rename)
		api.POST("/cloud/share", cloudHandler.Share)
		api.GET("/cloud/share/:key", cloudHandler.GetShare)
		api.POST("/cloud/share/:key/save", cloudHandler.ReceiveShare)
		api.POST("/cloud/homework", middleware.RequireRole("student"), cloudHandler.UploadHomework)
		api.POST("/cloud/courseware", middleware.RequireRole("teacher"), cloudHandler.UploadCourseware)

		// Administration
		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.RequireRole("admin"))
		{
			adminGroup.GET("/majors", adminHandler.ListMajors)
			adminGroup.POST("/majors", adminHandler.CreateMajor)
			adminGroup.PUT("/majors/:id", adminHandler.UpdateMajor)
			adminGroup.DELETE("/majors/:id", adminHandler.DeleteMajor)

			adminGroup.GET("/classes", adminHandler.ListClasses)
			adminGroup.POST("/classes", adminHandler.CreateClass)
			adminGroup.PUT("/classes/:id", adminHandler.UpdateClass)
			adminGroup.DELETE("/classes/:id", adminHandler.DeleteClass)

			adminGroup.GET("/teachers", adminHandler.ListUsers(models.RoleTeacher))
			adminGroup.POST("/teachers", adminHandler.CreateUser(models.RoleTeacher))
			adminGroup.PUT("/teachers/:id", adminHandler.UpdateUser)
			adminGroup.DELETE("/teachers/:id", adminHandler.DeleteUser)
			adminGroup.PUT("/teachers/:id/password", adminHandler.ResetPassword)

			adminGroup.GET("/students", adminHandler.ListUsers(models.RoleStudent))
			adminGroup.POST("/students", adminHandler.CreateUser(models.RoleStudent))
			adminGroup.PUT("/students/:id", adminHandler.UpdateUser)
			adminGroup.DELETE("/students/:id", adminHandler.DeleteUser)
			adminGroup.PUT("/students/:id/password", adminHandler.ResetPassword)

			adminGroup.GET("/lessons", adminHandler.ListLessons)
			adminGroup.POST("/lessons", adminHandler.CreateLesson)
			adminGroup.PUT("/lessons/:id", adminHandler.UpdateLesson)
			adminGroup.DELETE("/lessons/:id", adminHandler.DeleteLesson)
			adminGroup.GET("/lessons/:id/classes", adminHandler.LessonClasses)
			adminGroup.PUT("/lessons/:id/classes", adminHandler.AssignClasses)

			adminGroup.GET("/semester", adminHandler.GetSemester)
			adminGroup.PUT("/semester", adminHandler.SetSemester)
		}
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.Principal))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process activity worker; cmd/worker runs the same loop standalone.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go activityProcessor.Run(workerCtx)

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

// seedAdmin creates the first admin account when none exists.
func seedAdmin(ctx context.Context, repo *auth.Repository, cfg config.BootstrapConfig, logger *zap.Logger) {
	if cfg.AdminID == "" || cfg.AdminPassword == "" {
		return
	}
	_, err := repo.GetByID(ctx, cfg.AdminID)
	if err == nil {
		return
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		logger.Warn("admin lookup failed", zap.Error(err))
		return
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		logger.Warn("admin seed failed", zap.Error(err))
		return
	}
	account := &models.User{ID: cfg.AdminID, Name: "Administrator", Role: models.RoleAdmin, Password: hash}
	if err := repo.Create(ctx, account); err != nil {
		logger.Warn("admin seed failed", zap.Error(err))
		return
	}
	logger.Info("admin account seeded", zap.String("id", cfg.AdminID))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
