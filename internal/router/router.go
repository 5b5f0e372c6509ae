// Package router assembles the gin engine and the route table.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/handler"
	"github.com/noah-isme/student-attendance-api/internal/middleware"
	"github.com/noah-isme/student-attendance-api/internal/service"
	"github.com/noah-isme/student-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-attendance-api/pkg/middleware/requestid"
)

// Options carries everything the route table needs.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           *service.AuthService

	Students   *handler.StudentHandler
	Attendance *handler.AttendanceHandler
	Dashboard  *handler.DashboardHandler
	Login      *handler.AuthHandler
	Status     *handler.MetricsHandler
}

// New builds the engine. Every API route except login sits behind Auth.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/health", "/ready", "/metrics"))

	r.GET("/", opts.Status.Root)
	r.GET("/health", opts.Status.Health)
	r.GET("/ready", opts.Status.Ready)
	r.GET("/metrics", opts.Status.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.POST("/auth/login", opts.Login.Login)

	secured := api.Group("")
	secured.Use(middleware.Auth(opts.Auth))

	students := secured.Group("/students")
	students.POST("", opts.Students.Create)
	students.GET("", opts.Students.List)
	students.GET("/:id", opts.Students.Get)
	students.PUT("/:id", opts.Students.Update)
	students.DELETE("/:id", opts.Students.Delete)

	attendance := secured.Group("/attendance")
	attendance.POST("/mark", opts.Attendance.Mark)
	attendance.PUT("/edit", opts.Attendance.Edit)
	attendance.GET("/daily", opts.Attendance.Daily)
	attendance.GET("/monthly", opts.Attendance.Monthly)
	attendance.GET("/monthly/export", opts.Attendance.Export)

	secured.GET("/dashboard/stats", opts.Dashboard.Stats)

	return r
}
