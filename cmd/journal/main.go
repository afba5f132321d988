package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wheeljournal/internal/cache"
	"wheeljournal/internal/config"
	cronrunner "wheeljournal/internal/cron"
	"wheeljournal/internal/db"
	"wheeljournal/internal/handler"
	"wheeljournal/internal/importer"
	"wheeljournal/internal/indicator"
	"wheeljournal/internal/lifecycle"
	"wheeljournal/internal/logger"
	gormrepository "wheeljournal/internal/repository/gorm"
	"wheeljournal/internal/rollchain"
	"wheeljournal/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("WJ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var snapCache *cache.SnapshotCache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLS,
		})
		if err != nil {
			logger.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			snapCache = cache.NewSnapshotCache(rdb, cfg.Redis.TTL)
			defer rdb.Close()
		}
	}

	store := gormrepository.New(dbConn.Gorm)
	snapshotParams := snapshotParamsFromConfig(cfg.Screening)

	engine := lifecycle.NewEngine(store, logger)
	resolver := rollchain.NewResolver(store)
	cycleSvc := service.NewCycleService(store, logger)
	positionSvc := service.NewPositionService(engine, resolver, cycleSvc, logger)
	screeningSvc := service.NewScreeningService(store, snapCache, snapshotParams, cfg.Screening.MaxHistoryBars, logger)
	replaySvc := service.NewReplayService(store, snapshotParams, cfg.Screening.MaxHistoryBars, logger)
	summarySvc := service.NewSummaryService(store, logger)
	importSvc := importer.NewService(store, snapCache, cfg.Importer.MaxRowErrors, logger)
	maintenanceSvc := service.NewMaintenanceService(store, engine, cycleSvc, screeningSvc, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	(&handler.HealthHandler{DB: dbConn.Gorm}).Register(router)
	(&handler.DepotHandler{Repo: store, Summary: summarySvc}).Register(router)
	(&handler.SecurityHandler{Repo: store}).Register(router)
	(&handler.PositionHandler{Repo: store, Positions: positionSvc}).Register(router)
	(&handler.CycleHandler{Repo: store, Cycles: cycleSvc}).Register(router)
	(&handler.DividendHandler{Repo: store, Cycles: cycleSvc}).Register(router)
	(&handler.ScreeningHandler{Repo: store, Screening: screeningSvc}).Register(router)
	(&handler.ImportHandler{Repo: store, Importer: importSvc}).Register(router)
	(&handler.ReplayHandler{Repo: store, Replay: replaySvc}).Register(router)
	(&handler.NoteHandler{Repo: store}).Register(router)
	(&handler.SettingsHandler{Repo: store}).Register(router)

	runner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		registerJobs(runner, cfg.Cron, maintenanceSvc, cycleSvc, logger)
		runner.Start()
		defer runner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func registerJobs(runner *cronrunner.Runner, cfg config.CronConfig, maintenance *service.MaintenanceService, cycles *service.CycleService, logger *zap.Logger) {
	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{"expiration_sweep", cfg.ExpirationSweep, func(ctx context.Context) error {
			_, err := maintenance.ExpirationSweep(ctx, time.Now().UTC())
			return err
		}},
		{"cycle_refresh", cfg.CycleRefresh, func(ctx context.Context) error {
			_, err := cycles.RefreshActive(ctx)
			return err
		}},
		{"snapshot_recompute", cfg.SnapshotRecompute, func(ctx context.Context) error {
			return maintenance.WarmSnapshots(ctx)
		}},
	}
	for _, j := range jobs {
		if _, err := runner.Add(j.name, j.spec, j.fn); err != nil {
			logger.Warn("cron register failed", zap.String("job", j.name), zap.Error(err))
		}
	}
}

func snapshotParamsFromConfig(cfg config.ScreeningConfig) indicator.SnapshotParams {
	params := indicator.DefaultSnapshotParams()
	if cfg.RSIPeriod > 0 {
		params.RSIPeriod = cfg.RSIPeriod
	}
	if cfg.BBPeriod > 0 {
		params.BBPeriod = cfg.BBPeriod
	}
	if cfg.BBStdDev > 0 {
		params.BBStdDev = cfg.BBStdDev
	}
	if cfg.MACDFast > 0 {
		params.MACDFast = cfg.MACDFast
	}
	if cfg.MACDSlow > 0 {
		params.MACDSlow = cfg.MACDSlow
	}
	if cfg.MACDSignal > 0 {
		params.MACDSignal = cfg.MACDSignal
	}
	if cfg.VolumeSMAPeriod > 0 {
		params.VolumeSMAPeriod = cfg.VolumeSMAPeriod
	}
	if len(cfg.SMAPeriods) > 0 {
		params.SMAPeriods = cfg.SMAPeriods
	}
	if len(cfg.EMAPeriods) > 0 {
		params.EMAPeriods = cfg.EMAPeriods
	}
	return params
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
