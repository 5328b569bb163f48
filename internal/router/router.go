// Package router filters finished backtests before they reach notifiers.
package router

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/alert"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/notifier"
)

// Config holds router configuration
type Config struct {
	// MinTrades drops results with fewer closed trades.
	MinTrades int `mapstructure:"min_trades"`
	// Cooldown suppresses repeats for the same ticker and strategy.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// Rules, when set, forward only results matching at least one rule.
	Rules []alert.Rule `mapstructure:"rules"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinTrades: 0,
		Cooldown:  0,
	}
}

// Router routes backtest events to notifiers with filtering
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	cooldowns map[string]time.Time // ticker|strategy -> last notification
	now       func() time.Time
	mu        sync.Mutex
}

// New creates a new router. Every rule must parse.
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := range cfg.Rules {
		if err := cfg.Rules[i].Validate(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// NotifyAll filters ev and sends it to every notifier. Filtered events
// return no errors.
func (r *Router) NotifyAll(ctx context.Context, ev notifier.Event) map[string]error {
	ev, ok := r.admit(ev)
	if !ok {
		r.logger.Debug("backtest notification filtered out",
			zap.String("id", ev.ID),
			zap.String("ticker", ev.Ticker),
			zap.String("strategy", ev.Strategy),
		)
		return nil
	}

	// nil registry is allowed
	if r.registry == nil {
		return nil
	}
	errs := r.registry.NotifyAll(ctx, ev)

	r.logger.Info("backtest routed",
		zap.String("id", ev.ID),
		zap.String("ticker", ev.Ticker),
		zap.Int("alerts", len(ev.Alerts)),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errs)),
	)
	return errs
}

// NotifyAllBatch filters each event and sends the survivors as one batch.
func (r *Router) NotifyAllBatch(ctx context.Context, evs []notifier.Event) map[string]error {
	var filtered []notifier.Event
	for _, ev := range evs {
		if ev, ok := r.admit(ev); ok {
			filtered = append(filtered, ev)
		}
	}

	if len(filtered) == 0 || r.registry == nil {
		return nil
	}

	errs := r.registry.NotifyAllBatch(ctx, filtered)

	r.logger.Info("batch routed",
		zap.Int("total", len(evs)),
		zap.Int("filtered", len(filtered)),
		zap.Int("errors", len(errs)),
	)
	return errs
}

// admit applies the filters, records the cooldown and attaches matched
// rule messages.
func (r *Router) admit(ev notifier.Event) (notifier.Event, bool) {
	if ev.Trades < r.cfg.MinTrades {
		return ev, false
	}

	if len(r.cfg.Rules) > 0 {
		ev.Alerts = alert.Matching(r.cfg.Rules, ev.Metrics())
		if len(ev.Alerts) == 0 {
			return ev, false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := cooldownKey(ev)
	now := r.now()
	if last, exists := r.cooldowns[key]; exists && now.Sub(last) < r.cfg.Cooldown {
		return ev, false
	}
	r.cooldowns[key] = now
	return ev, true
}

func cooldownKey(ev notifier.Event) string {
	return ev.Ticker + "|" + ev.Strategy
}

// ClearAllCooldowns removes all cooldowns
func (r *Router) ClearAllCooldowns() {
	r.mu.Lock()
	r.cooldowns = make(map[string]time.Time)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes entries older than the cooldown.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, last := range r.cooldowns {
		if now.Sub(last) >= r.cfg.Cooldown {
			delete(r.cooldowns, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine periodically drops expired cooldowns until ctx is done.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// Stats returns router statistics
func (r *Router) Stats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_trades":       r.cfg.MinTrades,
		"cooldown_seconds": r.cfg.Cooldown.Seconds(),
		"rules":            len(r.cfg.Rules),
	}
}
