// Package app wires configuration into the running services: the market
// data collector, history and archive stores, metrics and the backtester.
package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/api"
	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/collector"
	"github.com/newthinker/strata/internal/collector/parquet"
	"github.com/newthinker/strata/internal/collector/yahoo"
	"github.com/newthinker/strata/internal/config"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/marketdata"
	"github.com/newthinker/strata/internal/metrics"
	"github.com/newthinker/strata/internal/notifier"
	"github.com/newthinker/strata/internal/notifier/email"
	"github.com/newthinker/strata/internal/notifier/telegram"
	"github.com/newthinker/strata/internal/notifier/webhook"
	"github.com/newthinker/strata/internal/router"
	"github.com/newthinker/strata/internal/storage/archive"
	"github.com/newthinker/strata/internal/storage/history"
	"github.com/newthinker/strata/internal/strategy/factory"
)

// App is the main application container
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	collector  collector.Collector
	market     *marketdata.Service
	metrics    *metrics.Registry
	history    history.Store
	archive    archive.Storage
	notifiers  *notifier.Registry
	router     *router.Router
	backtester *backtest.Backtester
}

// Option overrides a component, mainly for tests
type Option func(*App)

// WithNotifier registers an extra notifier.
func WithNotifier(n notifier.Notifier) Option {
	return func(a *App) { a.notifiers.Register(n) }
}

// WithCollector replaces the configured provider.
func WithCollector(c collector.Collector) Option {
	return func(a *App) { a.collector = c }
}

// New creates a new App instance from a validated config
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		notifiers:  notifier.NewRegistry(),
	}
	a.collectors.Register(yahoo.New(yahoo.WithLogger(logger.Named("yahoo"))))
	a.collectors.Register(parquet.New(cfg.Collector.DataDir))

	for _, opt := range opts {
		opt(a)
	}

	if err := a.registerNotifiers(); err != nil {
		return nil, err
	}

	if a.collector == nil {
		c, ok := a.collectors.Get(cfg.Collector.Provider)
		if !ok {
			return nil, core.Errorf(core.ErrConfigInvalid, "unknown collector %q (have %v)",
				cfg.Collector.Provider, a.collectors.Names())
		}
		if err := c.Init(collector.Config{
			Timeout:    cfg.Collector.Timeout,
			MaxRetries: cfg.Collector.MaxRetries,
			DataDir:    cfg.Collector.DataDir,
		}); err != nil {
			return nil, fmt.Errorf("initializing collector %s: %w", c.Name(), err)
		}
		a.collector = c
	}
	a.market = marketdata.NewService(a.collector, logger.Named("marketdata"))

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	var err error
	a.history, err = history.Open(cfg.Storage.History.Path, cfg.Storage.History.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	if cfg.Storage.Archive.Enabled {
		a.archive, err = archive.Open(cfg.Storage.Archive.Config)
		if err != nil {
			a.history.Close()
			return nil, fmt.Errorf("opening archive: %w", err)
		}
	}

	btOpts := []backtest.Option{
		backtest.WithLogger(logger.Named("backtest")),
		backtest.WithHistory(a.history),
		backtest.WithInitialCapital(cfg.Backtest.InitialCapital),
	}
	if a.metrics != nil {
		btOpts = append(btOpts, backtest.WithMetrics(a.metrics))
	}
	if a.archive != nil {
		btOpts = append(btOpts, backtest.WithArchive(a.archive))
	}
	if a.notifiers.Len() > 0 {
		a.router, err = router.New(cfg.Router, a.notifiers, logger.Named("router"))
		if err != nil {
			a.history.Close()
			return nil, err
		}
		btOpts = append(btOpts, backtest.WithNotifiers(a.router))
	}
	a.backtester = backtest.New(a.market, btOpts...)

	logger.Info("application initialized",
		zap.String("collector", a.collector.Name()),
		zap.Bool("metrics", a.metrics != nil),
		zap.Bool("archive", a.archive != nil),
		zap.Strings("notifiers", a.notifiers.Names()),
		zap.String("history", historyKind(cfg.Storage.History.Path)),
	)
	return a, nil
}

func (a *App) Backtester() *backtest.Backtester { return a.backtester }
func (a *App) Collector() collector.Collector    { return a.collector }
func (a *App) History() history.Store            { return a.history }
func (a *App) Metrics() *metrics.Registry        { return a.metrics }

// Notifiers returns the registry of enabled result notifiers.
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Router returns the notification filter, nil when no notifier is enabled.
func (a *App) Router() *router.Router { return a.router }

// Collectors returns the registry of available providers.
func (a *App) Collectors() *collector.Registry { return a.collectors }

// Server builds the HTTP API over the app's services.
func (a *App) Server() (*api.Server, error) {
	srv := a.cfg.Server
	cfg := api.Config{
		Host:          srv.Host,
		Port:          srv.Port,
		APIKey:        srv.APIKey,
		CORSOrigins:   srv.CORSOrigins,
		JobTTL:        time.Duration(srv.JobTTLHours) * time.Hour,
		MaxJobs:       srv.MaxJobs,
		DefaultPeriod: a.cfg.Backtest.DefaultPeriod,
	}
	if a.metrics != nil {
		cfg.MetricsPath = a.cfg.Metrics.Path
	}
	return api.NewServer(cfg, api.Dependencies{
		Backtester: a.backtester,
		History:    a.history,
		Catalog:    factory.Catalog,
		Metrics:    a.metrics,
	}, a.logger.Named("api"))
}

// Close releases the history store.
func (a *App) Close() error {
	var errs []error
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return errors.Join(errs...)
}

func (a *App) registerNotifiers() error {
	for name, nc := range a.cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
		case "email":
			n = email.New(nc.Host, nc.Port, nc.Username, nc.Password, nc.From, nc.To)
		default:
			return core.Errorf(core.ErrConfigInvalid, "unknown notifier %q", name)
		}
		if err := n.Init(notifier.Config{Type: name}); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := a.notifiers.Register(n); err != nil {
			return err
		}
	}
	return nil
}

func historyKind(path string) string {
	if path == "" {
		return "memory"
	}
	return "sqlite"
}
