package main // Entry point package

import (
	"context"
	"errors"
	"log" // used before the structured logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/razherana/s5-web-4-carte/internal/config"
	"github.com/razherana/s5-web-4-carte/internal/connectivity"
	"github.com/razherana/s5-web-4-carte/internal/database"
	"github.com/razherana/s5-web-4-carte/internal/events"
	"github.com/razherana/s5-web-4-carte/internal/handler"
	"github.com/razherana/s5-web-4-carte/internal/ledger"
	"github.com/razherana/s5-web-4-carte/internal/lock"
	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/metrics"
	"github.com/razherana/s5-web-4-carte/internal/mirror"
	"github.com/razherana/s5-web-4-carte/internal/queue"
	"github.com/razherana/s5-web-4-carte/internal/reconcile"
	"github.com/razherana/s5-web-4-carte/internal/repository"
	"github.com/razherana/s5-web-4-carte/internal/router"
	"github.com/razherana/s5-web-4-carte/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside development

	cfg := config.Load() // Load environment config
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort,
		Name: cfg.DBName, MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		lg.Fatal("connect database", "error", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		lg.Fatal("migrate database", "error", err)
	}
	store := repository.NewRecordStore(db)

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		lg.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	mc := openMirror(ctx, config.LoadMirrorConfig(), rdb, lg)
	defer mc.Close()

	syncCfg := config.LoadSyncConfig()
	var probe connectivity.Prober = connectivity.NewTCPProbe(syncCfg.ProbeAddr, syncCfg.ProbeTimeout, syncCfg.ProbeCacheTTL)
	if syncCfg.ForceOffline {
		lg.Warn("connectivity forced offline, mutations stay pending until a sweep")
		probe = connectivity.NewStatic(false)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifier service.Notifier = service.NewLogNotifier(lg)
	if cfg.RabbitMQURL != "" {
		notifier = service.NewRabbitNotifier(cfg.RabbitMQURL, lg)
		go func() {
			if err := queue.StartStatusConsumer(ctx, cfg.RabbitMQURL, cfg.LogDir, lg); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("status consumer stopped", "error", err)
			}
		}()
	}

	opts := reconcile.Options{
		CallTimeout: syncCfg.CallTimeout,
		Workers:     syncCfg.Workers,
		Metrics:     metrics.New("reports_sync", reg),
		Hub:         events.NewHub(),
		Notifier:    notifier,
	}
	if rdb != nil {
		opts.Lock = lock.NewRedisSweepLock(rdb, syncCfg.LockKey, syncCfg.LockTTL, lg)
	}
	hub := opts.Hub
	rec := reconcile.New(store, mc, probe, lg, opts)
	led := ledger.New(store, lg)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover(), echomw.RequestID())
	router.RegisterRoutes(e, store, probe, reg)
	router.RegisterReports(e, router.ReportDeps{
		Handler:   handler.NewReportHandler(rec, led, store, hub, lg),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       lg,
	})

	if syncCfg.Interval > 0 {
		go sweepEvery(ctx, rec, syncCfg.Interval, lg)
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", "error", err)
	}
}

// openMirror builds the configured remote document store.  Any failure
// falls back to the in-memory mirror so that the service still starts.
func openMirror(ctx context.Context, mc config.MirrorConfig, rdb *redis.Client, lg *logger.Logger) mirror.Client {
	switch mc.Driver {
	case config.MirrorFirestore:
		var opts []option.ClientOption
		if mc.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(mc.CredentialsFile))
		}
		fs, err := mirror.NewFirestore(ctx, mc.ProjectID, mc.Collection, opts...)
		if err == nil {
			lg.Info("mirror ready", "driver", mc.Driver, "project", mc.ProjectID, "collection", mc.Collection)
			return fs
		}
		lg.Error("firestore mirror unavailable, using memory", "error", err)
	case config.MirrorRedis:
		if rdb != nil {
			lg.Info("mirror ready", "driver", mc.Driver, "prefix", mc.RedisPrefix)
			return mirror.NewRedis(rdb, mc.RedisPrefix)
		}
		lg.Error("redis mirror unavailable, using memory")
	}
	lg.Warn("using in-memory mirror, remote state is lost on restart")
	return mirror.NewMemory()
}

// sweepEvery pushes pending records on a fixed interval.  Offline ticks
// are skipped quietly.
func sweepEvery(ctx context.Context, rec *reconcile.Reconciler, every time.Duration, lg *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := rec.SyncPending(ctx)
			switch {
			case errors.Is(err, reconcile.ErrNoConnectivity):
				lg.Debug("periodic sweep skipped, offline")
			case errors.Is(err, reconcile.ErrSweepInProgress):
				lg.Debug("periodic sweep skipped, another sweep is running")
			case err != nil:
				lg.Error("periodic sweep failed", "error", err)
			case len(res.Errors) > 0:
				lg.Warn("periodic sweep left records pending", "errors", len(res.Errors))
			}
		}
	}
}
