package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	apphttp "github.com/amakane-hakari/ttlmap/internal/api/http"
	"github.com/amakane-hakari/ttlmap/internal/api/resp"
	"github.com/amakane-hakari/ttlmap/internal/badge"
	"github.com/amakane-hakari/ttlmap/internal/config"
	"github.com/amakane-hakari/ttlmap/internal/expiremap"
	ilog "github.com/amakane-hakari/ttlmap/internal/log"
	"github.com/amakane-hakari/ttlmap/internal/metrics"
)

func main() {
	logger := ilog.New()
	if err := run(logger); err != nil {
		logger.Error("server.exit", "err", err)
		os.Exit(1)
	}
}

func run(logger ilog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	kv, err := expiremap.New[string, string](
		expiremap.WithName("kv"),
		expiremap.WithTTL(cfg.KVTTL),
		expiremap.WithSweepInterval(cfg.KVSweepInterval),
		expiremap.WithKeepAliveOnGet(cfg.KVKeepAliveOnGet),
		expiremap.WithLogger(logger),
		expiremap.WithMetrics(metrics.NewProm(reg, cfg.MetricsNamespace, "kv")),
	)
	if err != nil {
		return err
	}
	defer kv.Destroy()

	var defs []badge.Definition
	if cfg.PublicHost != "" {
		defs = append(defs, badge.ObservatoryDefinition(cfg.PublicHost, cfg.ObservatoryURL, &http.Client{}))
	}
	badges, err := badge.NewService(defs,
		badge.WithTTL(cfg.BadgeTTL),
		badge.WithSweepInterval(cfg.BadgeSweepInterval),
		badge.WithFetchTimeout(cfg.FetchTimeout),
		badge.WithLogger(logger),
		badge.WithMetrics(metrics.NewProm(reg, cfg.MetricsNamespace, "badge")),
	)
	if err != nil {
		return err
	}
	defer badges.Close()

	router := apphttp.NewRouter(apphttp.Deps{
		KV:       kv,
		Badges:   badges,
		Gatherer: reg,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http.listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var rs *resp.Server
	if cfg.RESPAddr != "" {
		rs = resp.NewServer(cfg.RESPAddr, kv, logger)
		go func() {
			if err := rs.ListenAndServe(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("server.shutdown.signal")
	case runErr = <-errCh:
		logger.Error("server.error", "err", runErr)
	}

	apphttp.SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown.error", "err", err)
	}
	if rs != nil {
		if err := rs.Close(); err != nil {
			logger.Error("resp.shutdown.error", "err", err)
		}
	}
	logger.Info("server.stopped")
	return runErr
}
