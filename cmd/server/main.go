package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/mailmetrics/internal/cache"
	"github.com/AngelCh415/mailmetrics/internal/config"
	"github.com/AngelCh415/mailmetrics/internal/httpx"
	"github.com/AngelCh415/mailmetrics/internal/ingest"
	"github.com/AngelCh415/mailmetrics/internal/report"
	"github.com/AngelCh415/mailmetrics/internal/store"
	"github.com/AngelCh415/mailmetrics/internal/utils"
)

type options struct {
	Config string `long:"config" description:"YAML file with engine thresholds (overrides ENGINE_CONFIG)"`
	Port   string `long:"port" description:"Listen port (overrides PORT)"`
}

func main() {
	var opts options
	if _, err := goflags.NewParser(&opts, goflags.Default).Parse(); err != nil {
		var ferr *goflags.Error
		if errors.As(err, &ferr) && ferr.Type == goflags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg := config.FromEnv()
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.Config != "" {
		cfg.EnginePath = opts.Config
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	eng, err := config.LoadEngine(cfg.EnginePath)
	if err != nil {
		logger.Error("engine config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	m := utils.NewMetrics()
	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	st := store.NewMemoryStore()

	deps := httpx.Deps{
		Log:         logger,
		Reports:     report.NewService(st, eng, m),
		Loader:      ingest.NewLoader(cl, st, logger, cfg, m),
		Exporter:    ingest.NewExporter(cl, cfg),
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		rc := cache.NewRedis(rdb, cfg.CacheTTL)
		deps.Memo = cache.NewMemo(rc, logger, m)
		deps.Ready = rc.Ping
		logger.Info("report cache enabled", slog.String("redis", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
