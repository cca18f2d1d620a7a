package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statguard/internal/alerts"
	"statguard/internal/api"
	"statguard/internal/config"
	"statguard/internal/engine"
	"statguard/internal/ingest"
	"statguard/internal/logging"
	"statguard/internal/metrics"
	"statguard/internal/publisher"
	"statguard/internal/render"
	"statguard/internal/source"
	"statguard/internal/storage"
	"statguard/internal/telegram"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	query := flag.String("query", "", "run a single query, write the table image and exit")
	out := flag.String("out", "stats.png", "image path for -query")
	flag.Parse()

	mgr, err := config.NewManager(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	cfg := mgr.Get()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	alertsStore := alerts.NewStore(cfg.Alerts.StoreLimit)
	metricsStore := metrics.NewStore(cfg.Metrics.StoreLimit)

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		return 1
	}
	if store != nil {
		if err := store.Init(context.Background()); err != nil {
			logger.Error("storage schema failed", "err", err)
			return 1
		}
		defer store.Close()
	}

	eng := engine.NewEngine(mgr, source.NewClient(logger), render.NewRenderer(cfg.Render, logger), logger, metricsStore, alertsStore, store)

	pub, err := publisher.FromConfig(cfg.Redis)
	if err != nil {
		logger.Error("redis init failed", "err", err)
		return 1
	}
	if pub != nil {
		eng.SetPublisher(pub)
		defer pub.Close()
	}

	if *query != "" {
		return runOnce(eng, *query, *out, os.Stdout, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api.Start(ctx, mgr, eng, metricsStore, alertsStore, logger, version)
	ingest.StartKafka(ctx, mgr, kafkaHandler(eng), logger)
	if _, err := telegram.Start(ctx, mgr, eng, logger); err != nil {
		logger.Error("telegram init failed", "err", err)
		return 1
	}
	if mgr.Path() != "" {
		go mgr.Watch(5*time.Second, func(c *config.Config) {
			logger.Info("config reloaded", "path", mgr.Path(), "log_level", c.LogLevel)
		}, func(err error) {
			logger.Warn("config reload failed", "err", err)
		}, ctx.Done())
	}

	logger.Info("statguard started", "version", version)
	<-ctx.Done()
	logger.Info("statguard stopping")
	return 0
}

func kafkaHandler(eng *engine.Engine) ingest.Handler {
	return func(ctx context.Context, text string) (ingest.Reply, error) {
		res, err := eng.Process(ctx, text)
		return ingest.Reply{
			Query:  res.Query,
			Rows:   len(res.Rows),
			Lines:  res.Lines,
			Alerts: res.Alerts,
			PNG:    res.Image,
		}, err
	}
}

func runOnce(eng *engine.Engine, text, out string, w io.Writer, logger *slog.Logger) int {
	res, err := eng.Process(context.Background(), text)
	if err != nil {
		if engine.IsAbort(err) {
			fmt.Fprintln(w, "no data found")
			return 2
		}
		logger.Error("query failed", "err", err)
		return 1
	}
	if err := os.WriteFile(out, res.Image, 0o644); err != nil {
		logger.Error("write image failed", "path", out, "err", err)
		return 1
	}
	if res.Empty() {
		fmt.Fprintln(w, "no data found")
	}
	for _, line := range res.Lines {
		fmt.Fprintln(w, line)
	}
	return 0
}
