package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/schoolfees-api/docs" // Swagger docs
	"github.com/sjperalta/schoolfees-api/internal/config"
	"github.com/sjperalta/schoolfees-api/internal/database"
	"github.com/sjperalta/schoolfees-api/internal/gateway"
	"github.com/sjperalta/schoolfees-api/internal/handlers"
	"github.com/sjperalta/schoolfees-api/internal/jobs"
	"github.com/sjperalta/schoolfees-api/internal/middleware"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/internal/services"
	"github.com/sjperalta/schoolfees-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title School Fees API
// @version 1.0
// @description REST API for school fee plans, quotes and online fee payments

// @host localhost:8081
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.PaymentInitURL == "" {
		logger.Warn("Online payments disabled: PAYMENT_INIT_URL not set")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database migrated")
	}

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	initiator := gateway.NewClient(cfg.PaymentInitURL, cfg.PaymentInitAPIKey, 20*time.Second)

	svcs := services.NewServices(repos, worker, initiator, cfg, db)

	scheduleJobs(worker, svcs)

	h := handlers.NewHandlers(svcs, cfg.PaymentCallbackSecret)

	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if err := database.Close(db); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		// Public
		v1.GET("/health", h.Health.Index)
		v1.POST("/payments/callback", h.Payment.Callback)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.AuthJWTSecret))
		{
			// Proprietors manage the fees and read the books of their schools
			proprietor := protected.Group("")
			proprietor.Use(middleware.RequireRole(models.RoleProprietor))
			{
				proprietor.POST("/fees", h.Fee.Create)
				proprietor.PUT("/fees/:fee_id", h.Fee.Update)
				proprietor.DELETE("/fees/:fee_id", h.Fee.Delete)

				proprietor.GET("/payments", h.Payment.Index)

				proprietor.GET("/reports/fees/:fee_id/collection.xlsx", h.Report.FeeCollectionXLSX)
				proprietor.GET("/reports/fees/:fee_id/collection.csv", h.Report.FeeCollectionCSV)
				proprietor.GET("/reports/fees/:fee_id/summary", h.Report.CollectionSummary)
				proprietor.GET("/reports/schools/:school_id/trend", h.Report.CollectionTrend)

				proprietor.GET("/audits", h.Audit.Index)
				proprietor.GET("/jobs/status", h.Job.Status)
			}

			// Fee definitions are readable by staff
			staff := protected.Group("")
			staff.Use(middleware.RequireRole(models.RoleProprietor, models.RoleTeacher))
			{
				staff.GET("/fees", h.Fee.Index)
				staff.GET("/fees/:fee_id", h.Fee.Show)
			}

			// Guardians act for their own students, proprietors for any student of their school
			payers := protected.Group("")
			payers.Use(middleware.RequireRole(models.RoleGuardian, models.RoleProprietor))
			{
				payers.GET("/students/:student_id", h.Student.Show)
				payers.GET("/students/:student_id/fees", h.Plan.Overview)
				payers.GET("/students/:student_id/fees/:fee_id/quote", h.Plan.Quote)
				payers.GET("/students/:student_id/payments", h.Payment.StudentPayments)
				payers.GET("/reports/students/:student_id/statement.pdf", h.Report.StudentStatementPDF)

				payers.POST("/payments/initiate", h.Payment.Initiate)
				payers.GET("/payments/:payment_id", h.Payment.Show)
			}

			protected.GET("/me/students", middleware.RequireRole(models.RoleGuardian), h.Student.Mine)

			// Notifications (users can manage their own notifications)
			// Static route first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.MarkAsRead)
				notifications.GET("/:notification_id", h.Notification.Show)
				notifications.DELETE("/:notification_id", h.Notification.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Fail checkouts the guardian abandoned
	worker.ScheduleEveryImmediate("expire_stale_payments", 1*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Expiring stale pending payments...")
		_, err := svcs.Payment.ExpireStalePending(ctx)
		return err
	})

	logger.Info("Scheduled recurring jobs")
}
