package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/carehero-care/portal-api/api/swagger"
	"github.com/carehero-care/portal-api/internal/handler"
	"github.com/carehero-care/portal-api/internal/middleware"
	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/repository"
	"github.com/carehero-care/portal-api/internal/service"
	"github.com/carehero-care/portal-api/pkg/cache"
	"github.com/carehero-care/portal-api/pkg/config"
	"github.com/carehero-care/portal-api/pkg/database"
	"github.com/carehero-care/portal-api/pkg/jobs"
	"github.com/carehero-care/portal-api/pkg/logger"
	corsmiddleware "github.com/carehero-care/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/carehero-care/portal-api/pkg/middleware/requestid"
	"github.com/carehero-care/portal-api/pkg/storage"
)

// @title CareHero Portal API
// @version 1.0.0
// @description Marketing site intake forms and back-office portal for the CareHero home care agency
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	// Repositories.
	leadRepo := repository.NewLeadRepository(db)
	pipelineRepo := repository.NewPipelineRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, logr)
	roleSvc := service.NewRoleService(userRepo, logr)
	authSvc := service.NewAuthService(userRepo, roleSvc, auditSvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "carehero-portal",
	})
	leadSvc := service.NewLeadService(leadRepo, auditSvc, nil, logr, cfg.Leads.EnforceTransitions)
	pipelineSvc := service.NewPipelineService(pipelineRepo, leadRepo, auditSvc, nil, logr)
	referralSvc := service.NewReferralService(referralRepo, leadRepo, uploadStore, cacheRepo, auditSvc, nil, logr, service.ReferralConfig{
		Attachment: service.AttachmentConfig{
			PublicBaseURL: cfg.Uploads.PublicBaseURL,
			MaxFileSize:   cfg.Uploads.MaxFileSizeBytes,
			AllowedMIMEs:  cfg.Uploads.AllowedMIMEs,
			OrphanTTL:     cfg.Uploads.OrphanTTL,
		},
		ReportCacheTTL: cfg.Reports.CacheTTL,
	})
	taskSvc := service.NewTaskService(taskRepo, leadRepo, auditSvc, nil, logr)
	intakeSvc := service.NewIntakeService(submissionRepo, leadRepo, nil, logr)
	userSvc := service.NewUserService(userRepo, auditSvc, nil, logr)
	exportSvc := service.NewExportService(exportRepo, leadRepo, referralRepo, taskRepo, referralSvc, exportStore, exportSigner, nil, logr, service.ExportServiceConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	})

	// Export worker queue. The handler needs the service and the service
	// needs the queue to enqueue, so the queue is attached after both exist.
	exportQueue := jobs.NewQueue("exports", exportSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportSvc.SetQueue(exportQueue)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportQueue.Start(rootCtx)
	defer exportQueue.Stop()

	startJanitors(rootCtx, cfg, referralSvc, exportSvc, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, roleSvc, userSvc)
	leadHandler := handler.NewLeadHandler(leadSvc, pipelineSvc)
	referralHandler := handler.NewReferralHandler(referralSvc, metricsSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	intakeHandler := handler.NewIntakeHandler(intakeSvc)
	exportHandler := handler.NewExportHandler(exportSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
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

	r.Static("/uploads", cfg.Uploads.StorageDir)

	api := r.Group(cfg.APIPrefix)

	public := api.Group("/public")
	{
		public.POST("/contact", intakeHandler.SubmitContact)
		public.POST("/job-applications", intakeHandler.SubmitJobApplication)
		public.POST("/referrals", intakeHandler.SubmitReferral)
		public.POST("/get-started", intakeHandler.GetStarted)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		session := auth.Group("")
		session.Use(middleware.JWT(authSvc))
		session.POST("/logout", authHandler.Logout)
		session.PUT("/password", authHandler.ChangePassword)
		session.GET("/me", authHandler.Me)
	}

	portal := api.Group("")
	portal.Use(middleware.JWT(authSvc))

	view := middleware.RequireCapability(roleSvc, models.CapViewPortal)
	modify := middleware.RequireCapability(roleSvc, models.CapModifyData)
	remove := middleware.RequireCapability(roleSvc, models.CapDeleteRecords)
	manageUsers := middleware.RequireCapability(roleSvc, models.CapManageUsers)
	exportData := middleware.RequireCapability(roleSvc, models.CapExportData)
	viewAudit := middleware.RequireCapability(roleSvc, models.CapViewAuditLog)

	leads := portal.Group("/leads")
	{
		leads.GET("", view, leadHandler.List)
		leads.GET("/statuses", view, leadHandler.Statuses)
		leads.GET("/:id", view, leadHandler.Get)
		leads.POST("", modify, leadHandler.Create)
		leads.PUT("/:id", modify, leadHandler.Update)
		leads.DELETE("/:id", remove, leadHandler.Delete)
		leads.POST("/bulk/status", modify, leadHandler.BulkUpdateStatus)
		leads.POST("/bulk/delete", remove, leadHandler.BulkDelete)
		leads.GET("/:id/pipeline", view, leadHandler.GetPipeline)
		leads.PUT("/:id/pipeline", modify, leadHandler.UpsertPipeline)
		leads.GET("/export", exportData, exportHandler.CSVFor(models.ExportLeads))
	}

	referrals := portal.Group("/referrals")
	{
		referrals.GET("", view, referralHandler.List)
		referrals.GET("/reports/weekly", view, referralHandler.WeeklyReport)
		referrals.GET("/:id", view, referralHandler.Get)
		referrals.POST("", modify, referralHandler.Create)
		referrals.PUT("/:id", modify, referralHandler.Update)
		referrals.DELETE("/:id", remove, referralHandler.Delete)
		referrals.POST("/:id/screenshot", modify, referralHandler.AttachScreenshot)
		referrals.GET("/export", exportData, exportHandler.CSVFor(models.ExportReferrals))
	}

	tasks := portal.Group("/tasks")
	{
		tasks.GET("", view, taskHandler.List)
		tasks.GET("/:id", view, taskHandler.Get)
		tasks.POST("", modify, taskHandler.Create)
		tasks.PUT("/:id", modify, taskHandler.Update)
		tasks.POST("/:id/complete", modify, taskHandler.Complete)
		tasks.DELETE("/:id", remove, taskHandler.Delete)
		tasks.GET("/export", exportData, exportHandler.CSVFor(models.ExportTasks))
	}

	intake := portal.Group("/intake")
	{
		intake.GET("/contacts", view, intakeHandler.ListContacts)
		intake.GET("/job-applications", view, intakeHandler.ListJobApplications)
	}

	exports := portal.Group("/exports")
	{
		exports.GET("/csv/:type", exportData, exportHandler.DownloadCSV)
		exports.POST("", exportData, exportHandler.Enqueue)
		exports.GET("/:id", exportData, exportHandler.Status)
	}
	// Download links are pre-authorized by the signed token itself.
	api.GET("/exports/download/:token", exportHandler.Download)

	users := portal.Group("/users")
	{
		users.GET("", manageUsers, userHandler.List)
		users.GET("/:id", manageUsers, userHandler.Get)
		users.POST("", manageUsers, userHandler.Create)
		users.PUT("/:id", manageUsers, userHandler.Update)
		users.PUT("/:id/role", manageUsers, userHandler.AssignRole)
		users.DELETE("/:id/role", manageUsers, userHandler.RevokeRole)
	}

	portal.GET("/audit-logs", viewAudit, auditHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// startJanitors runs the periodic upload orphan sweep and export file cleanup.
func startJanitors(ctx context.Context, cfg *config.Config, referrals *service.ReferralService, exports *service.ExportService, logr *zap.Logger) {
	go func() {
		ticker := time.NewTicker(cfg.Uploads.OrphanSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := referrals.SweepOrphanedUploads(ctx); err != nil {
					logr.Sugar().Warnw("upload orphan sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := exports.CleanupExpired(ctx); err != nil {
					logr.Sugar().Warnw("export cleanup failed", "error", err)
				}
			}
		}
	}()
}
