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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/internlens/internlens-api/api/swagger"
	"github.com/internlens/internlens-api/internal/handler"
	"github.com/internlens/internlens-api/internal/middleware"
	"github.com/internlens/internlens-api/internal/models"
	"github.com/internlens/internlens-api/internal/repository"
	"github.com/internlens/internlens-api/internal/service"
	"github.com/internlens/internlens-api/pkg/cache"
	"github.com/internlens/internlens-api/pkg/config"
	"github.com/internlens/internlens-api/pkg/database"
	"github.com/internlens/internlens-api/pkg/jobs"
	"github.com/internlens/internlens-api/pkg/logger"
	corsmiddleware "github.com/internlens/internlens-api/pkg/middleware/cors"
	reqidmiddleware "github.com/internlens/internlens-api/pkg/middleware/requestid"
)

// @title InternLens API
// @version 1.0.0
// @description Internship review platform API
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting degrade", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	reportRepo := repository.NewReportRepository(db)
	requestRepo := repository.NewCompanyRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	cacheClient := redisClient
	if !cfg.Cache.Enabled {
		cacheClient = nil
	}
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	notificationSvc := service.NewNotificationService(notificationRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	})

	statsSvc := service.NewStatsService(companyRepo, cacheRepo, logr)
	companySvc := service.NewCompanyService(companyRepo, cacheRepo, auditRepo, validate, logr, cfg.Cache.CompanyTTL)
	reviewSvc := service.NewReviewService(reviewRepo, companyRepo, statsSvc, notificationSvc, auditRepo, validate, logr)
	voteSvc := service.NewVoteService(voteRepo, reviewRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, reviewRepo, reviewSvc, notificationSvc, auditRepo, validate, logr)
	requestSvc := service.NewCompanyRequestService(requestRepo, companySvc, notificationSvc, auditRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, statsSvc, auditRepo, validate, logr)
	rateLimitSvc := service.NewRateLimitService(redisClient, logr, cfg.RateLimit)
	exportSvc := service.NewExportService(reviewRepo, companyRepo, logr, cfg.Exports.MaxRows)

	authHandler := handler.NewAuthHandler(authSvc)
	companyHandler := handler.NewCompanyHandler(companySvc, reviewSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc, voteSvc, reportSvc)
	moderationHandler := handler.NewModerationHandler(reviewSvc, reportSvc, metricsSvc)
	requestHandler := handler.NewCompanyRequestHandler(requestSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	userHandler := handler.NewUserHandler(userSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	api.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	api.GET("/me/reviews", middleware.JWT(authSvc), reviewHandler.MyReviews)

	api.GET("/companies", companyHandler.List)
	api.POST("/companies", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), companyHandler.Create)
	api.GET("/companies/:slug", companyHandler.GetBySlug)
	api.PATCH("/companies/:slug", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), companyHandler.Update)

	reviews := api.Group("/reviews")
	{
		reviews.GET("", middleware.OptionalJWT(authSvc), reviewHandler.List)
		reviews.GET("/:id", middleware.OptionalJWT(authSvc), reviewHandler.Get)
		reviews.POST("", middleware.JWT(authSvc),
			middleware.RateLimit(rateLimitSvc, metricsSvc, "reviews"), reviewHandler.Submit)
		reviews.PATCH("/:id", middleware.JWT(authSvc), reviewHandler.Update)
		reviews.DELETE("/:id", middleware.JWT(authSvc), reviewHandler.Remove)
		reviews.POST("/:id/vote", middleware.JWT(authSvc), reviewHandler.Vote)
		reviews.DELETE("/:id/vote", middleware.JWT(authSvc), reviewHandler.RetractVote)
		reviews.POST("/:id/report", middleware.JWT(authSvc),
			middleware.RateLimit(rateLimitSvc, metricsSvc, "reports"), reviewHandler.Report)
	}

	api.POST("/company-requests", middleware.OptionalJWT(authSvc),
		middleware.RateLimit(rateLimitSvc, metricsSvc, "company-requests"), requestHandler.Submit)
	api.PATCH("/company-requests/:id", middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin), requestHandler.Decide)

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.PATCH("", notificationHandler.MarkRead)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/reviews", moderationHandler.Queue)
		admin.POST("/reviews/:id/approve", moderationHandler.Approve)
		admin.POST("/reviews/:id/reject", moderationHandler.Reject)
		admin.POST("/reviews/:id/needs-edit", moderationHandler.FlagNeedsEdit)
		admin.POST("/reviews/:id/remove", moderationHandler.Remove)
		admin.DELETE("/reviews/:id", moderationHandler.Delete)

		admin.GET("/reports", moderationHandler.Reports)
		admin.POST("/reports/:id/action", moderationHandler.ActionReport)
		admin.POST("/reports/:id/dismiss", moderationHandler.DismissReport)

		admin.GET("/company-requests", requestHandler.List)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/:id", userHandler.Get)
		admin.PATCH("/users/:id", userHandler.UpdateRole)
		admin.DELETE("/users/:id", userHandler.Delete)

		admin.GET("/metrics", metricsHandler.Snapshot)

		if cfg.Exports.Enabled {
			admin.GET("/exports/reviews", exportHandler.ApprovedReviews)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
