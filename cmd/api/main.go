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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/rollcall-ledger/api/swagger"
	"github.com/noah-isme/rollcall-ledger/internal/handler"
	"github.com/noah-isme/rollcall-ledger/internal/middleware"
	"github.com/noah-isme/rollcall-ledger/internal/repository"
	"github.com/noah-isme/rollcall-ledger/internal/service"
	"github.com/noah-isme/rollcall-ledger/pkg/cache"
	"github.com/noah-isme/rollcall-ledger/pkg/config"
	"github.com/noah-isme/rollcall-ledger/pkg/database"
	"github.com/noah-isme/rollcall-ledger/pkg/lock"
	"github.com/noah-isme/rollcall-ledger/pkg/logger"
	corsmiddleware "github.com/noah-isme/rollcall-ledger/pkg/middleware/cors"
	"github.com/noah-isme/rollcall-ledger/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/rollcall-ledger/pkg/middleware/requestid"
)

// @title Rollcall Ledger API
// @version 1.0.0
// @description Student roster and daily attendance ledger
// @BasePath /api/v1
// @schemes http

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	metricsSvc := service.NewMetricsService()
	readiness := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}

	locker := lock.Chain{lock.NewLocal()}
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		locker = append(locker, lock.NewRedis(client, lock.RedisConfig{
			Prefix: "rollcall:lock:",
			TTL:    cfg.Attendance.LockTTL,
			Logger: logr,
		}))
		readiness["redis"] = redisCheck(client)
		logr.Info("distributed attendance lock enabled", zap.String("addr", client.Options().Addr))
	}

	validate := validator.New()
	studentRepo := repository.NewStudentRepository(db, metricsSvc)
	attendanceRepo := repository.NewAttendanceRepository(db, metricsSvc)

	ledger := service.NewAttendanceLedger(attendanceRepo, service.LedgerOptions{
		Strategy: cfg.Attendance.Strategy,
		Timeout:  cfg.Attendance.MarkTimeout,
		LockWait: cfg.Attendance.LockWait,
		Locker:   locker,
		Metrics:  metricsSvc,
		Logger:   logr,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(studentRepo, attendanceRepo, ledger, validate, logr, metricsSvc, cfg.Attendance.Location())

	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)
	checkInLimiter := ratelimit.NewTokenBucket(0, cfg.CheckIn.RateLimitPerMin)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)

	students := api.Group("/students")
	students.GET("", studentHandler.List)
	students.GET("/summary", studentHandler.Summary)
	students.GET("/:id", studentHandler.Get)
	students.POST("", studentHandler.Create)
	students.PUT("/:id", studentHandler.Update)
	students.DELETE("/:id", studentHandler.Delete)

	attendance := api.Group("/attendance")
	attendance.GET("", attendanceHandler.Day)
	attendance.POST("/mark", attendanceHandler.Mark)
	attendance.POST("/checkin", checkInLimiter.Middleware(), attendanceHandler.CheckIn)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "strategy", cfg.Attendance.Strategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case sig := <-quit:
		logr.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server forced shutdown", zap.Error(err))
	}
	logr.Info("server exited")
	return nil
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		if !cache.Healthy(ctx, client) {
			return errors.New("redis ping failed")
		}
		return nil
	}
}
