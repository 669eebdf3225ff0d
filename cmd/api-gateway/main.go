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
	"go.uber.org/zap"

	_ "github.com/seedlinghq/seedling-api/api/swagger"
	"github.com/seedlinghq/seedling-api/internal/handler"
	"github.com/seedlinghq/seedling-api/internal/middleware"
	"github.com/seedlinghq/seedling-api/internal/models"
	"github.com/seedlinghq/seedling-api/internal/repository"
	"github.com/seedlinghq/seedling-api/internal/service"
	"github.com/seedlinghq/seedling-api/pkg/cache"
	"github.com/seedlinghq/seedling-api/pkg/config"
	"github.com/seedlinghq/seedling-api/pkg/database"
	"github.com/seedlinghq/seedling-api/pkg/jobs"
	"github.com/seedlinghq/seedling-api/pkg/logger"
	corsmiddleware "github.com/seedlinghq/seedling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/seedlinghq/seedling-api/pkg/middleware/requestid"
	"github.com/seedlinghq/seedling-api/pkg/storage"
)

// @title Seedling API
// @version 1.0.0
// @description Child development center management API
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "seedling-api",
		Audience:           []string{"seedling"},
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	childSvc := service.NewChildService(childRepo, userRepo, validate, logr)
	skillSvc := service.NewSkillService(skillRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, skillRepo, userRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, childRepo, userRepo, cacheRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, childRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, childRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, childRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Submissions:   submissionRepo,
		Assignments:   assignmentRepo,
		Children:      childRepo,
		Attendance:    attendanceRepo,
		Announcements: announcementRepo,
		Schedules:     scheduleRepo,
		Cache:         cacheRepo,
		Logger:        logr,
		Config: service.DashboardConfig{
			CacheTTL:        cfg.Dashboard.CacheTTL,
			RefreshInterval: cfg.Dashboard.RefreshInterval,
		},
	})

	attachmentStore, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Fatal("failed to init attachment storage", zap.Error(err))
	}
	attachmentSvc := service.NewAttachmentService(service.AttachmentServiceParams{
		Store:        attachmentStore,
		Signer:       storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL),
		BaseURL:      cfg.PublicBaseURL,
		MaxFileSize:  cfg.Attachments.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
		Logger:       logr,
	})

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init report storage", zap.Error(err))
		}
		reportSvc = service.NewReportService(service.ReportServiceParams{
			Reports:     reportRepo,
			Attendance:  attendanceRepo,
			Submissions: submissionRepo,
			Children:    childRepo,
			Store:       store,
			Signer:      storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
			QueueConfig: jobs.QueueConfig{
				Workers:    cfg.Reports.WorkerConcurrency,
				MaxRetries: cfg.Reports.WorkerRetries,
				Logger:     logr,
			},
			BaseURL:   cfg.PublicBaseURL,
			Metrics:   metricsSvc,
			Validator: validate,
			Logger:    logr,
		})
		reportSvc.Start(ctx)
		defer reportSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	childHandler := handler.NewChildHandler(childSvc)
	skillHandler := handler.NewSkillHandler(skillSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, submissionSvc, metricsSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.PUT("/password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.GET("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
		users.PUT("/:id/password", middleware.RequireRoles(models.RoleAdmin), userHandler.ResetPassword)
	}

	children := protected.Group("/children")
	{
		children.GET("", childHandler.List)
		children.GET("/:id", childHandler.Get)
		children.POST("", middleware.RequireRoles(models.RoleAdmin), childHandler.Create)
		children.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), childHandler.Update)
		children.GET("/:id/submissions", assignmentHandler.ListByStudent)
	}

	groups := protected.Group("/groups")
	{
		groups.GET("", childHandler.ListGroups)
		groups.POST("", middleware.RequireRoles(models.RoleAdmin), childHandler.CreateGroup)
	}

	skills := protected.Group("/skills")
	{
		skills.GET("", skillHandler.List)
		skills.GET("/:id", skillHandler.Get)
		skills.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), skillHandler.Create)
		skills.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), skillHandler.Update)
		skills.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), skillHandler.Delete)
		skills.GET("/:id/lessons", skillHandler.ListLessons)
		skills.POST("/:id/lessons", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), skillHandler.CreateLesson)
	}

	lessons := protected.Group("/lessons", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		lessons.PUT("/:lessonId", skillHandler.UpdateLesson)
		lessons.DELETE("/:lessonId", skillHandler.DeleteLesson)
	}

	assignments := protected.Group("/assignments")
	{
		assignments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.Create)
		assignments.GET("/skill/:skillId", assignmentHandler.ListBySkill)
		assignments.GET("/:id", assignmentHandler.Get)
		assignments.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.Update)
		assignments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.Delete)

		assignments.POST("/submit", middleware.RequireRoles(models.RoleAdmin, models.RoleParent), assignmentHandler.Submit)
		assignments.GET("/:id/submissions", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.ListSubmissions)
		assignments.PUT("/submissions/:id/grade", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), assignmentHandler.Grade)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), attendanceHandler.Mark)
		attendance.GET("", attendanceHandler.List)
		attendance.GET("/:childId/summary", attendanceHandler.Summary)
	}

	schedules := protected.Group("/schedules")
	{
		schedules.GET("", scheduleHandler.List)
		schedules.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), scheduleHandler.Create)
		schedules.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), scheduleHandler.Update)
		schedules.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), scheduleHandler.Delete)
	}

	announcements := protected.Group("/announcements")
	{
		announcements.GET("", announcementHandler.List)
		announcements.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Create)
		announcements.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Update)
		announcements.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Delete)
	}

	protected.POST("/attachments", attachmentHandler.Upload)
	// Download authenticates via the signed token alone.
	api.GET("/attachments/download", attachmentHandler.Download)

	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/admin", middleware.RequireRoles(models.RoleAdmin), dashboardHandler.Admin)
		dashboard.GET("/teacher", middleware.RequireRoles(models.RoleTeacher), dashboardHandler.Teacher)
		dashboard.GET("/parent", middleware.RequireRoles(models.RoleParent), dashboardHandler.Parent)
		dashboard.GET("/watch", dashboardHandler.Watch)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		reports := protected.Group("/reports")
		{
			reports.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), reportHandler.Create)
			reports.GET("", reportHandler.List)
			reports.GET("/:id", reportHandler.Get)
		}
		// Download authenticates via the signed token alone.
		api.GET("/reports/download", reportHandler.Download)
	}

	protected.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
