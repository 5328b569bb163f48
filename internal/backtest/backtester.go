package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/marketdata"
	"github.com/newthinker/strata/internal/metrics"
	"github.com/newthinker/strata/internal/notifier"
	"github.com/newthinker/strata/internal/storage/archive"
	"github.com/newthinker/strata/internal/strategy"
	"github.com/newthinker/strata/internal/strategy/composite"
	"github.com/newthinker/strata/internal/strategy/factory"
)

// DefaultInitialCapital is used when a request leaves the capital unset.
const DefaultInitialCapital = 10000.0

// Loader provides market data contexts
type Loader interface {
	Load(ctx context.Context, ticker, period string) (*marketdata.Context, error)
}

// Recorder persists finished results
type Recorder interface {
	Save(ctx context.Context, r *Result) error
}

// Notifier announces finished runs
type Notifier interface {
	NotifyAll(ctx context.Context, ev notifier.Event) map[string]error
	NotifyAllBatch(ctx context.Context, evs []notifier.Event) map[string]error
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	loader    Loader
	logger    *zap.Logger
	metrics   *metrics.Registry
	history   Recorder
	archive   archive.Storage
	notifiers Notifier
	capital   float64
	now       func() time.Time
}

// Option configures a Backtester
type Option func(*Backtester)

func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) { b.logger = logger }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(b *Backtester) { b.metrics = m }
}

// WithHistory records a summary of every successful run.
func WithHistory(r Recorder) Option {
	return func(b *Backtester) { b.history = r }
}

// WithArchive stores the full JSON result of every successful run.
func WithArchive(s archive.Storage) Option {
	return func(b *Backtester) { b.archive = s }
}

// WithNotifiers announces every successful run and comparison.
func WithNotifiers(n Notifier) Option {
	return func(b *Backtester) { b.notifiers = n }
}

// WithInitialCapital overrides DefaultInitialCapital.
func WithInitialCapital(c float64) Option {
	return func(b *Backtester) { b.capital = c }
}

// New creates a new Backtester reading prices through loader
func New(loader Loader, opts ...Option) *Backtester {
	b := &Backtester{
		loader:  loader,
		logger:  zap.NewNop(),
		capital: DefaultInitialCapital,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes a backtest. The requested strategies are OR-combined; the
// request mode is validated and echoed back on the result.
func (b *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	started := b.now()
	res, err := b.run(ctx, req)
	b.observe(started, res, err)
	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("ticker", req.Ticker),
			zap.String("period", req.Period),
			zap.Error(err),
		)
		return nil, err
	}

	b.persist(ctx, res)
	return res, nil
}

func (b *Backtester) run(ctx context.Context, req Request) (*Result, error) {
	capital, err := b.initialCapital(req)
	if err != nil {
		return nil, err
	}
	if req.Mode != "" {
		if _, err := composite.ParseMode(req.Mode); err != nil {
			return nil, err
		}
	}
	strat, err := factory.BuildComposite(req.Strategies, composite.ModeAny)
	if err != nil {
		return nil, err
	}

	mctx, err := b.loader.Load(ctx, req.Ticker, req.Period)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := b.Evaluate(mctx, strat, capital)
	if err != nil {
		return nil, err
	}
	res.Period = req.Period
	res.Mode = req.Mode
	if res.Mode == "" {
		res.Mode = string(composite.ModeAny)
	}
	res.Strategies = req.Strategies
	return res, nil
}

// Evaluate runs strat on an already loaded context. Indicators cached in
// mctx are reused across calls.
func (b *Backtester) Evaluate(mctx *marketdata.Context, strat strategy.Strategy, capital float64) (*Result, error) {
	prices := mctx.Prices()
	b.logger.Info("running backtest",
		zap.String("ticker", prices.Symbol()),
		zap.String("strategy", strat.Description()),
		zap.Int("bars", prices.Len()),
	)

	before := mctx.CacheStats()
	signals, err := strat.Signals(mctx)
	if err != nil {
		return nil, err
	}
	after := mctx.CacheStats()
	b.logger.Debug("indicator cache",
		zap.Int("hits", after.Hits-before.Hits),
		zap.Int("misses", after.Misses-before.Misses),
	)
	if b.metrics != nil {
		b.metrics.RecordCache(after.Hits-before.Hits, after.Misses-before.Misses)
		b.metrics.RecordSignals(signals.Buy.Count(), signals.Sell.Count())
	}

	trades, open, err := Simulate(signals, prices)
	if err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []Trade{}
	}

	res := &Result{
		ID:           uuid.NewString(),
		Ticker:       prices.Symbol(),
		Period:       prices.Period(),
		Strategy:     strat.Description(),
		Bars:         prices.Len(),
		Metrics:      CalculateMetrics(trades, capital),
		Trades:       trades,
		Signals:      SignalEvents(signals),
		OpenPosition: open,
		CreatedAt:    b.now().UTC(),
	}
	if prices.Len() > 0 {
		res.StartDate = prices.Bar(0).Time
		res.EndDate = prices.Bar(prices.Len() - 1).Time
	}

	b.logger.Info("backtest complete",
		zap.String("id", res.ID),
		zap.String("ticker", res.Ticker),
		zap.Int("trades", res.Metrics.TotalTrades),
		zap.Float64("total_return", res.Metrics.TotalReturn),
	)
	return res, nil
}

// Compare evaluates each candidate on the same market data and returns the
// results ranked by total return, best first.
func (b *Backtester) Compare(ctx context.Context, ticker, period string, capital float64, candidates []strategy.Config) ([]*Result, error) {
	if len(candidates) == 0 {
		return nil, core.Errorf(core.ErrNoStrategies, "no strategies to compare")
	}
	capital, err := b.initialCapital(Request{InitialCapital: Amount(capital)})
	if err != nil {
		return nil, err
	}

	strats := make([]strategy.Strategy, len(candidates))
	for i, cfg := range candidates {
		s, err := factory.Build(cfg)
		if err != nil {
			return nil, err
		}
		strats[i] = s
	}

	mctx, err := b.loader.Load(ctx, ticker, period)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(strats))
	for i, s := range strats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := b.now()
		res, err := b.Evaluate(mctx, s, capital)
		b.observe(started, res, err)
		if err != nil {
			return nil, err
		}
		res.Period = period
		res.Mode = string(composite.ModeAny)
		res.Strategies = []strategy.Config{candidates[i]}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.TotalReturn > results[j].Metrics.TotalReturn
	})

	if b.notifiers != nil {
		evs := make([]notifier.Event, len(results))
		for i, r := range results {
			evs[i] = r.Event()
		}
		b.logNotifyErrors(b.notifiers.NotifyAllBatch(ctx, evs))
	}
	return results, nil
}

func (b *Backtester) initialCapital(req Request) (float64, error) {
	c := float64(req.InitialCapital)
	switch {
	case c == 0:
		return b.capital, nil
	case c < 0:
		return 0, core.Errorf(core.ErrInvalidConfiguration, "initial_capital must be positive")
	}
	return c, nil
}

func (b *Backtester) observe(started time.Time, res *Result, err error) {
	if b.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordBacktest(status, b.now().Sub(started).Seconds())
	if res != nil {
		b.metrics.RecordTrades(len(res.Trades))
	}
}

// persist writes res to history and archive and sends notifications.
// Failures are logged only.
func (b *Backtester) persist(ctx context.Context, res *Result) {
	if b.history != nil {
		if err := b.history.Save(ctx, res); err != nil {
			b.logger.Error("failed to record backtest", zap.String("id", res.ID), zap.Error(err))
		}
	}
	if b.archive != nil {
		if err := archive.PutJSON(ctx, b.archive, ArchivePath(res), res); err != nil {
			b.logger.Error("failed to archive backtest", zap.String("id", res.ID), zap.Error(err))
		}
	}
	if b.notifiers != nil {
		b.logNotifyErrors(b.notifiers.NotifyAll(ctx, res.Event()))
	}
}

func (b *Backtester) logNotifyErrors(errs map[string]error) {
	for name, err := range errs {
		b.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

// ArchivePath is the archive location of a result.
func ArchivePath(res *Result) string {
	return fmt.Sprintf("backtests/%s/%s.json", res.Ticker, res.ID)
}
