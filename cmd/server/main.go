package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/gamebrain/shoplens/internal/apiserver"
	"github.com/gamebrain/shoplens/internal/config"
	"github.com/gamebrain/shoplens/internal/metrics"
	"github.com/gamebrain/shoplens/internal/store"
	"github.com/gamebrain/shoplens/internal/table"
	"github.com/gamebrain/shoplens/pkg/insight"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "/etc/shoplens/config.yaml", "Path to config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		slog.Warn("config load failed, falling back to defaults/env", "path", configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if verr := config.ValidateDetailed(cfg); verr != nil {
		slog.Error("invalid configuration", "errors", verr.Error())
		os.Exit(1)
	}

	slog.Info("starting shoplens",
		"csvPath", cfg.Data.CSVPath,
		"dbPath", cfg.Data.DatabasePath,
		"refreshSchedule", cfg.Data.RefreshSchedule,
	)

	// Open the SQLite snapshot cache (nil-safe: without it the service still
	// runs, it just cannot start when the CSV is unreadable).
	var appDB *store.DB
	if cfg.Data.DatabasePath != "" {
		var dbErr error
		appDB, dbErr = store.Open(store.Config{Path: cfg.Data.DatabasePath})
		if dbErr != nil {
			slog.Warn("snapshot cache open failed, continuing without it", "path", cfg.Data.DatabasePath, "error", dbErr)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writer *store.Writer
	if appDB != nil {
		writer = store.NewWriter(appDB, 16)
		writer.Run(ctx)
	}

	provider := table.NewProvider(nil)
	if snap, fromCSV := initialSnapshot(cfg, appDB); snap != nil {
		provider.Swap(snap)
		publishTableMetrics(snap)
		if writer != nil && fromCSV {
			writer.EnqueueSnapshot(snap)
		}
	}

	var scheduler *cron.Cron
	if cfg.Data.RefreshSchedule != "" {
		scheduler = cron.New()
		_, cronErr := scheduler.AddFunc(cfg.Data.RefreshSchedule, func() {
			refresh(cfg, provider, writer)
		})
		if cronErr != nil {
			slog.Error("invalid refresh schedule", "schedule", cfg.Data.RefreshSchedule, "error", cronErr)
			os.Exit(1)
		}
		scheduler.Start()
	}

	gate := insight.NewGate(insight.Config{
		Enabled: cfg.Insight.Enabled,
		Model:   cfg.Insight.Model,
		Timeout: cfg.Insight.Timeout,
	})

	srv := apiserver.NewServer(cfg, provider, gate)
	go func() {
		slog.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
			cancel()
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	slog.Info("shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	cancel()
	if writer != nil {
		writer.Drain()
	}
	if appDB != nil {
		appDB.Close()
	}
}

// initialSnapshot picks the startup data source. The SQLite cache wins when
// it was built from the same CSV at its current mtime (no point re-parsing an
// unchanged export) or when the CSV is missing or unreadable. Returns nil
// when neither source is available; the handlers then answer 503 until a
// scheduled refresh succeeds. The second return reports a fresh CSV parse,
// which is the only case worth writing back to the cache.
func initialSnapshot(cfg *config.Config, appDB *store.DB) (*table.Snapshot, bool) {
	var cached *table.Snapshot
	if appDB != nil {
		var cacheErr error
		cached, cacheErr = appDB.LoadSnapshot()
		if cacheErr != nil {
			slog.Debug("snapshot cache unavailable", "error", cacheErr)
		}
	}

	if cached != nil && cached.Source == cfg.Data.CSVPath {
		if fi, err := os.Stat(cfg.Data.CSVPath); err == nil && fi.ModTime().Equal(cached.SourceMtime) {
			slog.Info("table loaded from cache, csv unchanged", "rows", cached.Table.Len(), "loadedAt", cached.LoadedAt)
			return cached, false
		}
	}

	snap, err := table.LoadCSV(cfg.Data.CSVPath)
	if err == nil {
		slog.Info("table loaded from csv", "rows", snap.Table.Len(), "read", snap.RowsRead, "dropped", snap.RowsDropped)
		return snap, true
	}
	slog.Warn("csv load failed", "path", cfg.Data.CSVPath, "error", err)

	if cached == nil {
		return nil, false
	}
	slog.Info("table loaded from cache", "rows", cached.Table.Len(), "source", cached.Source, "loadedAt", cached.LoadedAt)
	return cached, false
}

// refresh reloads the CSV and swaps the snapshot. A failed reload keeps the
// previous snapshot in place.
func refresh(cfg *config.Config, provider *table.Provider, writer *store.Writer) {
	snap, err := table.LoadCSV(cfg.Data.CSVPath)
	if err != nil {
		metrics.TableRefreshTotal.WithLabelValues("error").Inc()
		slog.Error("scheduled refresh failed", "path", cfg.Data.CSVPath, "error", err)
		return
	}
	provider.Swap(snap)
	publishTableMetrics(snap)
	metrics.TableRefreshTotal.WithLabelValues("ok").Inc()
	if writer != nil {
		writer.EnqueueSnapshot(snap)
	}
	slog.Info("table refreshed", "rows", snap.Table.Len(), "read", snap.RowsRead, "dropped", snap.RowsDropped)
}

func publishTableMetrics(snap *table.Snapshot) {
	metrics.TableRows.Set(float64(snap.Table.Len()))
	metrics.TableLoadTimestamp.Set(float64(snap.LoadedAt.Unix()))

	users, valid, err := snap.Table.Strings(table.ColUserID)
	if err != nil {
		return
	}
	seen := make(map[string]struct{}, len(users))
	for i, u := range users {
		if valid[i] {
			seen[u] = struct{}{}
		}
	}
	metrics.TableUsers.Set(float64(len(seen)))
}
