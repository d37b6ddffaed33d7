// Command idcenter runs the identity-center administration API: bulk
// assignment execution, declarative templates, backup/restore, retention
// enforcement, and export/import, all fronted by a gin HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/identitycore/idcenter/api"
	"github.com/identitycore/idcenter/internal/backup"
	"github.com/identitycore/idcenter/internal/cache"
	"github.com/identitycore/idcenter/internal/collector"
	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/internal/executor"
	"github.com/identitycore/idcenter/internal/exportimport"
	"github.com/identitycore/idcenter/internal/metrics"
	"github.com/identitycore/idcenter/internal/resolver"
	"github.com/identitycore/idcenter/internal/restore"
	"github.com/identitycore/idcenter/internal/retention"
	"github.com/identitycore/idcenter/internal/template"
	"github.com/identitycore/idcenter/pkg/config"
	"github.com/identitycore/idcenter/pkg/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: invalid: %v", err)
	}

	log.Printf("starting idcenter on port %s (db=%s)", cfg.Port, maskDSN(cfg.DatabaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The catalogue is a queryable index over backup metadata; its absence
	// degrades List/GetBackupMetadata to storage-derived scans rather than
	// failing startup, the same non-fatal posture the donor used for its
	// own Postgres pool.
	var catalogue backup.CatalogueStore
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("WARNING: failed to connect to PostgreSQL, continuing without a metadata catalogue: %v", err)
	} else if pingErr := dbPool.Ping(ctx); pingErr != nil {
		log.Printf("WARNING: PostgreSQL ping failed, continuing without a metadata catalogue: %v", pingErr)
		dbPool = nil
	} else {
		catalogue = backup.NewPgCatalogueStore(dbPool)
	}

	redisCache, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("cache: failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	directoryClient := directory.NewSimulatedClient()

	storage, err := backup.NewLocalStorage(cfg.BackupStoragePath)
	if err != nil {
		log.Fatalf("backup: failed to open storage: %v", err)
	}
	backupService := backup.NewService(storage, catalogue)
	backupCollector := collector.New(directoryClient)
	restoreEngine := restore.New(directoryClient, backupService)
	retentionManager := retention.NewManager(backupService, retention.DefaultStorageLimit())
	exportImportManager := exportimport.New(backupService)

	templateStore, err := template.NewStore(cfg.BackupStoragePath + "/templates")
	if err != nil {
		log.Fatalf("template: failed to open template store: %v", err)
	}
	templateValidator := template.NewValidator(directoryClient)
	batchExecutor := executor.New(directoryClient)
	templateExecutor := template.NewExecutor(templateValidator, batchExecutor)

	resolverFactory := func() *resolver.Resolver {
		return resolver.NewWithSecondaryCache(directoryClient, redisCache, cfg.OrphanedCacheTTL)
	}

	defaultPolicy := models.RetentionPolicy{
		KeepDaily:   cfg.DefaultRetentionDays,
		KeepWeekly:  4,
		KeepMonthly: 12,
		KeepYearly:  3,
		AutoCleanup: true,
	}

	handler := api.NewHandler(
		directoryClient,
		batchExecutor,
		resolverFactory,
		backupCollector,
		backupService,
		restoreEngine,
		retentionManager,
		exportImportManager,
		templateStore,
		templateValidator,
		templateExecutor,
		cfg.InstanceArn,
		defaultPolicy,
		api.WithPool(dbPool),
	)

	if len(cfg.AllowedOrigins) > 0 && cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.RetentionSweepSchedule, func() {
		runRetentionSweep(ctx, retentionManager, defaultPolicy)
	})
	if err != nil {
		log.Fatalf("retention: invalid sweep schedule %q: %v", cfg.RetentionSweepSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: graceful shutdown failed: %v", err)
	}
	if dbPool != nil {
		dbPool.Close()
	}
	log.Println("shutdown complete")
}

// runRetentionSweep enforces the default retention policy against the
// backup catalogue on the configured cron schedule, logging rather than
// failing the process on error since this runs detached from any request.
func runRetentionSweep(ctx context.Context, mgr *retention.Manager, policy models.RetentionPolicy) {
	result, err := mgr.EnforceRetentionPolicy(ctx, policy, false)
	if err != nil {
		log.Printf("retention: sweep failed: %v", err)
		return
	}
	log.Printf("retention: sweep complete, deleted=%d freed_bytes=%d", len(result.DeletedBackups), result.FreedBytes)
}

// maskDSN redacts the password component of a connection string before it
// reaches logs.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return fmt.Sprintf("%s:%s%s", u.Hostname(), u.Port(), u.Path)
}
