package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/logging"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/services"
	"github.com/mrlokans/library/internal/tasks"
	"github.com/mrlokans/library/internal/thumbnails"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, log logrus.FieldLogger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.WithField("timeout", timeout).Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so in-flight requests can
	// still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}

	log.Info("server exiting")
}

func Run(cfg *config.Config, version string) {
	log := logging.NewLogger(cfg.Log.Level, logging.FormatFor(cfg.Env, cfg.Log.Format))
	log.WithFields(logrus.Fields{"version": version, "env": cfg.Env}).Info("starting library service")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger.Warn)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("error closing database")
		}
	}()

	auditService := audit.NewService(db.Repositories(context.Background()).Audit, log.WithField("component", "audit"))

	resolver := metadata.NewResolver(
		cfg.Metadata.Timeout,
		log.WithField("component", "metadata"),
		metadata.NewGoogleBooksClient(cfg.Metadata.GoogleBooksURL),
		metadata.NewOpenLibraryClient(cfg.Metadata.OpenLibraryURL),
	)
	enricher := metadata.NewEnricher(resolver, db.Repositories(context.Background()).Books, log.WithField("component", "enricher"))

	userService := services.NewUserService(db, auditService, log)
	eligibilityService := services.NewEligibilityService(db, nil)
	loanService := services.NewLoanService(services.LoanServiceConfig{
		Store:       db,
		Audit:       auditService,
		Log:         log,
		DefaultDays: cfg.Loans.DefaultDays,
	})

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		taskCfg.Workers = cfg.Tasks.Workers
		taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		taskCfg.AuditRetentionDays = cfg.Audit.RetentionDays

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Error("error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher, log),
			tasks.NewEnrichAllBooksQueue(enricher, log),
			tasks.NewOverdueScanQueue(loanService, log),
			tasks.NewCleanupAuditEventsQueue(auditService, log),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	bookCfg := services.BookServiceConfig{
		Store:    db,
		Resolver: resolver,
		Audit:    auditService,
		Log:      log,
	}
	if taskClient != nil {
		bookCfg.Queue = taskClient
	}
	bookService := services.NewBookService(bookCfg)

	// A nil *tasks.Client must not leak into the interface.
	var scanQueue scheduler.ScanEnqueuer
	if taskClient != nil {
		scanQueue = taskClient
	}
	overdueScheduler := scheduler.NewOverdueScanScheduler(scheduler.Config{
		Enabled:              cfg.OverdueScan.Enabled,
		Schedule:             cfg.OverdueScan.Schedule,
		AuditCleanupSchedule: cfg.Audit.CleanupSchedule,
	}, loanService, scanQueue, log)
	if taskClient != nil {
		overdueScheduler.WithAuditCleanup(taskClient)
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	if err := overdueScheduler.Start(schedCtx); err != nil {
		log.WithError(err).Fatal("failed to start overdue scan scheduler")
	}

	var authMiddleware *auth.Middleware
	switch cfg.Auth.Mode {
	case config.AuthModeNone:
		log.Warn("authentication mode: none (no authentication required)")
	default:
		if !auth.NewCredentials(cfg.Auth).Configured() {
			log.Fatal("AUTH_MODE=basic requires BASIC_USER and BASIC_PASS or BASIC_PASS_HASH")
		}
		log.Info("authentication mode: basic")
		authMiddleware = auth.NewMiddleware(cfg.Auth)
	}

	var thumbnailCache http_controllers.ThumbnailCache
	if cfg.Metadata.Thumbnails {
		cache, err := thumbnails.NewCache(cfg.Metadata.ThumbnailDir, cfg.Metadata.Timeout, log.WithField("component", "thumbnails"))
		if err != nil {
			log.WithError(err).Warn("thumbnail cache disabled")
		} else {
			if cfg.Metadata.ThumbnailPrivateHosts {
				log.Warn("thumbnail downloads may reach private networks")
				cache.AllowPrivateHosts()
			}
			thumbnailCache = cache
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Users:              userService,
		Eligibility:        eligibilityService,
		Books:              bookService,
		Loans:              loanService,
		Enricher:           enricher,
		Thumbnails:         thumbnailCache,
		Audit:              auditService,
		Database:           db,
		Version:            version,
		AuthMiddleware:     authMiddleware,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Logger:             log,
	}
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		schedCancel()
		overdueScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Wait()
	}

	Serve(router, cfg, log, onShutdown)
}
