package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-absensi-api/api/swagger"
	"github.com/noah-isme/sma-absensi-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-absensi-api/internal/middleware"
	"github.com/noah-isme/sma-absensi-api/internal/models"
	"github.com/noah-isme/sma-absensi-api/internal/repository"
	"github.com/noah-isme/sma-absensi-api/internal/service"
	"github.com/noah-isme/sma-absensi-api/pkg/cache"
	"github.com/noah-isme/sma-absensi-api/pkg/config"
	"github.com/noah-isme/sma-absensi-api/pkg/database"
	"github.com/noah-isme/sma-absensi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-absensi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-absensi-api/pkg/middleware/requestid"
)

// @title SMA Absensi API
// @version 0.1.0
// @description Timetable, session attendance and attendance reporting
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and change notifications disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Attendance.Location()

	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SummaryTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	notifier := service.NewScheduleChangeNotifier(cacheRepo, cacheSvc, metrics, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, notifier, validate, logr)
	sessionSvc := service.NewSessionService(scheduleRepo, attendanceRepo, service.SessionServiceConfig{
		Clock:      service.SystemClock,
		Location:   loc,
		TodayLimit: cfg.Attendance.TodayLimit,
	}, metrics, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, scheduleRepo, studentRepo, cacheSvc, metrics, validate, logr, service.AttendanceServiceConfig{
		Clock:         service.SystemClock,
		Location:      loc,
		NoteMaxLength: cfg.Attendance.NoteMaxLength,
	})
	reportSvc := service.NewReportService(scheduleRepo, attendanceRepo, studentRepo, cacheSvc, metrics, nil, nil, cfg.Cache.SummaryTTL, logr)
	tokens := service.NewTokenValidator(cfg.JWT.Secret)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction && cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.JWT(tokens))

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	schedules := api.Group("/schedules")
	schedules.POST("/batch", adminOnly, scheduleHandler.CreateBatch)
	schedules.GET("/weekly", staff, scheduleHandler.Weekly)
	schedules.GET("/:id", staff, scheduleHandler.Get)

	sessions := api.Group("/sessions", staff)
	sessions.GET("/today", sessionHandler.Today)
	sessions.GET("/:slotId", sessionHandler.Detail)
	sessions.GET("/:slotId/attendance", sessionHandler.Attendance)
	sessions.PUT("/:slotId/attendance", sessionHandler.Capture)
	sessions.POST("/:slotId/complete", sessionHandler.Complete)

	classes := api.Group("/classes/:id/attendance", staff)
	classes.GET("/summary", reportHandler.Summary)
	classes.GET("/history", reportHandler.History)
	classes.GET("/export", reportHandler.Export)
	api.GET("/attendance/:id", staff, reportHandler.Record)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "tz", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
