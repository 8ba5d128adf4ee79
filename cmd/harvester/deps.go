package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"jobmate/harvester-service/internal/config"
	"jobmate/harvester-service/internal/coordination"
	"jobmate/harvester-service/internal/db"
	"jobmate/harvester-service/internal/delivery"
	"jobmate/harvester-service/internal/extract"
	"jobmate/harvester-service/internal/loader"
	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/metrics"
	"jobmate/harvester-service/internal/scraper"
	"jobmate/harvester-service/internal/store"
)

// lockTTL bounds a crashed session's hold on the lock.
const lockTTL = 15 * time.Minute

// deps is the wired object graph. close releases everything it opened.
type deps struct {
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	worker   *scraper.Worker

	closers []func() error
}

func (d *deps) close(log logger.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn("Shutdown step failed", logger.Error(err))
		}
	}
}

// openStore connects and migrates the record store.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*store.Store, error) {
	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	st := store.New(conn)
	if err := st.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Info("Record store ready", logger.String("dialect", string(st.Dialect())))
	return st, nil
}

func buildDeps(ctx context.Context, cfg *config.Config, log logger.Logger) (*deps, error) {
	d := &deps{}
	fail := func(err error) (*deps, error) {
		d.close(log)
		return nil, err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	d.store = st
	d.closers = append(d.closers, st.Close)

	d.registry = prometheus.NewRegistry()
	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = metrics.New(d.registry)

	var locker *coordination.Locker
	if cfg.RedisURL != "" {
		var rdb *redis.Client
		rdb, err = db.NewLockClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, rdb.Close)
		locker = coordination.NewLocker(rdb, coordination.DefaultKey, lockTTL)
		log.Info("Session lock enabled", logger.String("key", coordination.DefaultKey))
	}

	pl, err := loader.New(loader.Config{
		Kind:           cfg.Loader.Kind,
		Headless:       cfg.Loader.Headless,
		RemoteURL:      cfg.Loader.RemoteURL,
		UserAgent:      cfg.Loader.UserAgent,
		PageTimeout:    cfg.Loader.PageTimeout,
		Settle:         cfg.Loader.Settle,
		BlockResources: cfg.Loader.BlockResources,
	}, log.With(logger.String("component", "loader")))
	if err != nil {
		return fail(err)
	}
	d.closers = append(d.closers, pl.Close)

	ctrl := scraper.NewController(scraper.Config{
		JobsURL:     cfg.Crawl.JobsURL(),
		Category:    cfg.Crawl.Category,
		Language:    cfg.Crawl.Language,
		MaxPages:    cfg.Crawl.MaxPages,
		StopOnKnown: cfg.Crawl.StopOnKnown,
		Delay:       cfg.Crawl.Delay,
		JitterMin:   cfg.Crawl.JitterMin,
		JitterMax:   cfg.Crawl.JitterMax,
	}, pl, extract.New(extract.Config{BaseURL: cfg.Crawl.BaseURL}),
		scraper.WithLogger(log.With(logger.String("component", "controller"))))

	disp, err := buildDispatcher(cfg, st, d.metrics, log)
	if err != nil {
		return fail(err)
	}

	d.worker = scraper.NewWorker(ctrl, scraper.WorkerDeps{
		Store:      st,
		Locker:     locker,
		Dispatcher: disp,
		Metrics:    d.metrics,
		Logger:     log.With(logger.String("component", "worker")),
	})
	return d, nil
}

// buildDispatcher returns nil when neither Slack nor export is configured.
func buildDispatcher(cfg *config.Config, st *store.Store, m *metrics.Metrics, log logger.Logger) (*delivery.Dispatcher, error) {
	var (
		n delivery.Notifier
		e delivery.Exporter
	)
	if cfg.SlackWebhookURL != "" {
		sn, err := delivery.NewSlackNotifier(cfg.SlackWebhookURL, nil)
		if err != nil {
			return nil, fmt.Errorf("slack: %w", err)
		}
		n = sn
	}
	if cfg.ExportPath != "" {
		e = delivery.NewXLSXExporter(cfg.ExportPath, nil)
	}
	if n == nil && e == nil {
		log.Info("No delivery target configured, listings are stored only")
		return nil, nil
	}
	log.Info("Delivery configured",
		logger.Bool("slack", n != nil),
		logger.Bool("export", e != nil),
		logger.Int("red_flags", len(cfg.RedFlags)))
	return delivery.NewDispatcher(st, n, e, delivery.DispatcherConfig{
		RedFlags:    cfg.RedFlags,
		MinInterval: cfg.SlackMinInterval,
	}, m, log.With(logger.String("component", "delivery"))), nil
}
