package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/noah-isme/medrotation-api/api/swagger"
	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/handler"
	"github.com/noah-isme/medrotation-api/internal/repository"
	"github.com/noah-isme/medrotation-api/internal/server"
	"github.com/noah-isme/medrotation-api/internal/service"
	"github.com/noah-isme/medrotation-api/migrations"
	"github.com/noah-isme/medrotation-api/pkg/cache"
	"github.com/noah-isme/medrotation-api/pkg/config"
	"github.com/noah-isme/medrotation-api/pkg/database"
	"github.com/noah-isme/medrotation-api/pkg/jobs"
	"github.com/noah-isme/medrotation-api/pkg/logger"
	"github.com/noah-isme/medrotation-api/pkg/ratelimit"
	"github.com/noah-isme/medrotation-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    cfg.Sentry.SampleRate > 0,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			logr.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.NewMigrator(db.DB, migrations.FS, ".", logr).Up(ctx); err != nil {
			return err
		}
	}

	health := database.NewHealthMonitor(db, cfg.Database.HealthInterval, logr)
	health.Start(ctx)
	defer health.Stop()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	perms := authz.DefaultTable()
	if cfg.Permissions.File != "" {
		if perms, err = authz.LoadTable(cfg.Permissions.File); err != nil {
			return err
		}
	}

	app, err := buildApplication(cfg, db, redisClient, perms, logr)
	if err != nil {
		return err
	}

	if app.exportQueue != nil {
		app.exportQueue.Start(ctx)
		defer app.exportQueue.Stop()
		app.exports.RecoverPendingJobs(ctx)
		app.exports.StartCleanup(ctx)
	}

	router := server.NewRouter(server.RouterDependencies{
		Config:       cfg,
		Logger:       logr,
		Identity:     app.auth,
		Permissions:  perms,
		Limiter:      app.limiter,
		Audit:        app.audit,
		Observer:     app.metrics,
		Programs:     handler.NewProgramHandler(app.programs),
		Applications: handler.NewApplicationHandler(app.applications),
		Favorites:    handler.NewFavoriteHandler(app.favorites),
		Reviews:      handler.NewReviewHandler(app.reviews),
		Waitlist:     handler.NewWaitlistHandler(app.waitlist),
		Specialties:  handler.NewSpecialtyHandler(app.specialties),
		Inquiries:    handler.NewInquiryHandler(app.inquiries),
		CMS:          handler.NewCMSHandler(app.cms),
		Auth:         handler.NewAuthHandler(app.auth),
		Users:        handler.NewUserHandler(app.users),
		Dashboard:    handler.NewDashboardHandler(app.dashboard),
		Exports:      handler.NewExportHandler(app.exports),
		Metrics:      handler.NewMetricsHandler(app.metrics, health),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

type application struct {
	metrics      *service.MetricsService
	audit        *repository.AuditRepository
	limiter      ratelimit.Limiter
	auth         *service.AuthService
	programs     *service.ProgramService
	applications *service.ApplicationService
	favorites    *service.FavoriteService
	reviews      *service.ReviewService
	waitlist     *service.WaitlistService
	specialties  *service.SpecialtyService
	inquiries    *service.InquiryService
	cms          *service.CMSService
	users        *service.UserService
	dashboard    *service.DashboardService
	exports      *service.ExportService
	exportQueue  *jobs.Queue
}

func buildApplication(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, perms *authz.Table, logr *zap.Logger) (*application, error) {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	programRepo := repository.NewProgramRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	specialtyRepo := repository.NewSpecialtyRepository(db)
	newsletterRepo := repository.NewNewsletterRepository(db)
	contactRepo := repository.NewContactRepository(db)
	cmsRepo := repository.NewCMSRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheRepo service.CacheRepository
	limiter := ratelimit.Limiter(ratelimit.NewMemoryLimiter())
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "medrotation:", logr)
		limiter = ratelimit.NewRedisLimiter(redisClient, "medrotation:ratelimit:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	app := &application{
		metrics: metrics,
		audit:   auditRepo,
		limiter: limiter,
		auth: service.NewAuthService(userRepo, perms, logr, service.AuthConfig{
			Secret:   cfg.Identity.Secret,
			Issuer:   cfg.Identity.Issuer,
			Audience: cfg.Identity.Audience,
			Leeway:   cfg.Identity.Leeway,
		}),
		programs:     service.NewProgramService(programRepo, auditRepo, cacheSvc, perms, validate, logr),
		applications: service.NewApplicationService(applicationRepo, programRepo, auditRepo, cacheSvc, perms, metrics, validate, logr),
		favorites:    service.NewFavoriteService(favoriteRepo, programRepo, logr),
		reviews:      service.NewReviewService(reviewRepo, programRepo, auditRepo, perms, validate, logr),
		waitlist:     service.NewWaitlistService(waitlistRepo, programRepo, perms, validate, logr),
		specialties:  service.NewSpecialtyService(specialtyRepo, cacheSvc, perms, validate, logr),
		inquiries:    service.NewInquiryService(newsletterRepo, contactRepo, perms, validate, logr),
		cms:          service.NewCMSService(cmsRepo, perms, validate, logr),
		users:        service.NewUserService(userRepo, auditRepo, perms, validate, logr),
		dashboard: service.NewDashboardService(service.DashboardServiceParams{
			Applications: applicationRepo,
			Favorites:    favoriteRepo,
			Waitlist:     waitlistRepo,
			Programs:     programRepo,
			Users:        userRepo,
			Reviews:      reviewRepo,
			Newsletter:   newsletterRepo,
			Contact:      contactRepo,
			Metrics:      metrics,
			Cache:        cacheSvc,
			Permissions:  perms,
			Logger:       logr,
		}),
	}

	app.exports = service.NewExportService(exportRepo, applicationRepo, files, signer, perms, metrics, validate, logr, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})
	if cfg.Exports.Enabled {
		worker := service.NewExportWorker(exportRepo, app.exports, metrics, cfg.Exports.WorkerRetries, logr)
		app.exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		app.exports.SetQueue(app.exportQueue)
	}

	return app, nil
}
