package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-attendance-api/api/swagger"
	"github.com/noah-isme/student-attendance-api/internal/handler"
	"github.com/noah-isme/student-attendance-api/internal/repository"
	"github.com/noah-isme/student-attendance-api/internal/router"
	"github.com/noah-isme/student-attendance-api/internal/service"
	"github.com/noah-isme/student-attendance-api/pkg/cache"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	"github.com/noah-isme/student-attendance-api/pkg/database"
	"github.com/noah-isme/student-attendance-api/pkg/logger"
)

// @title Student Attendance API
// @version 1.0.0
// @description Student roster, daily attendance ledger and attendance reports
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	cal, err := calendar.New(cfg.Attendance.Timezone)
	if err != nil {
		logr.Fatal("invalid attendance timezone", zap.String("timezone", cfg.Attendance.Timezone), zap.Error(err))
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DashboardTTL, logr, redisClient != nil)

	validate := service.NewValidator()
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr, cfg.Students.RemovalMode)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, cal, service.AttendanceServiceConfig{
		MarkPolicy: cfg.Attendance.MarkPolicy,
		EditWindow: cfg.Attendance.EditWindow,
	}, cacheSvc, metricsSvc, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, studentRepo, cal, metricsSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, attendanceRepo, cal, cacheSvc, cfg.Cache.DashboardTTL, metricsSvc, logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		StaticToken:       cfg.Auth.StaticToken,
		JWTSecret:         cfg.Auth.JWTSecret,
		TokenExpiry:       cfg.Auth.JWTExpiration,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
	})

	r := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metricsSvc,
		Auth:           authSvc,
		Students:       handler.NewStudentHandler(studentSvc),
		Attendance:     handler.NewAttendanceHandler(attendanceSvc, reportSvc),
		Dashboard:      handler.NewDashboardHandler(dashboardSvc),
		Login:          handler.NewAuthHandler(authSvc),
		Status:         handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("mark_policy", attendanceSvc.Policy()),
			zap.String("timezone", cal.Location().String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
