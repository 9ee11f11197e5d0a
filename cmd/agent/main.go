package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quartzstack/quartzstack/internal/config"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to configuration file")
	diagAddr := flag.String("diag-addr", ":9090", "diagnostics listen address (prometheus metrics)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("quartz-agent starting", "config", *configPath)

	mgr := config.NewManager(*configPath)
	cfg, err := mgr.Load(false)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"metric_sets", len(cfg.MetricSets),
		"resource_type_sets", len(cfg.ResourceTypeSets),
		"managed_servers", len(cfg.ManagedServers),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot-reload: collectors re-fetch snapshots from the manager, so a
	// successful reload is visible to them on their next fetch.
	go func() {
		if err := mgr.Watch(ctx, func(updated *config.Configuration) {
			slog.Info("config hot-reloaded", "managed_servers", len(updated.ManagedServers))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *diagAddr, Handler: mux}
	go func() {
		slog.Info("diagnostics listening", "addr", *diagAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("diagnostics server failed", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("diagnostics shutdown", "err", err)
	}
	slog.Info("quartz-agent shutting down")
}
