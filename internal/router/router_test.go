package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/alert"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/notifier"
)

type captureNotifier struct {
	mu      sync.Mutex
	events  []notifier.Event
	batches [][]notifier.Event
}

func (c *captureNotifier) Name() string                   { return "capture" }
func (c *captureNotifier) Init(cfg notifier.Config) error { return nil }

func (c *captureNotifier) Send(_ context.Context, ev notifier.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureNotifier) SendBatch(_ context.Context, evs []notifier.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, evs)
	return nil
}

func newRouter(t *testing.T, cfg Config) (*Router, *captureNotifier) {
	t.Helper()
	capture := &captureNotifier{}
	reg := notifier.NewRegistry()
	require.NoError(t, reg.Register(capture))
	r, err := New(cfg, reg, nil)
	require.NoError(t, err)
	return r, capture
}

func event(ticker, strategy string, ret float64, trades int) notifier.Event {
	return notifier.Event{Ticker: ticker, Strategy: strategy, TotalReturn: ret, Trades: trades}
}

func TestRouter_PassThrough(t *testing.T) {
	r, capture := newRouter(t, DefaultConfig())

	assert.Empty(t, r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 1)))
	assert.Empty(t, r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 1)))
	assert.Len(t, capture.events, 2, "no cooldown by default")
}

func TestRouter_MinTrades(t *testing.T) {
	r, capture := newRouter(t, Config{MinTrades: 3})

	r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 2))
	r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 3))

	require.Len(t, capture.events, 1)
	assert.Equal(t, 3, capture.events[0].Trades)
}

func TestRouter_Rules(t *testing.T) {
	r, capture := newRouter(t, Config{Rules: []alert.Rule{
		{Name: "winner", Expr: "total_return > 0.1", Message: "strong run"},
	}})

	r.NotifyAll(context.Background(), event("AAPL", "s", 0.05, 1))
	r.NotifyAll(context.Background(), event("MSFT", "s", 0.25, 1))

	require.Len(t, capture.events, 1)
	assert.Equal(t, "MSFT", capture.events[0].Ticker)
	assert.Equal(t, []string{"[INFO] winner: strong run"}, capture.events[0].Alerts)
}

func TestRouter_InvalidRule(t *testing.T) {
	_, err := New(Config{Rules: []alert.Rule{{Name: "bad", Expr: "whatever"}}}, nil, nil)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestRouter_Cooldown(t *testing.T) {
	r, capture := newRouter(t, Config{Cooldown: time.Hour})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 1))
	r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 1))
	r.NotifyAll(context.Background(), event("AAPL", "other", 0.1, 1))
	assert.Len(t, capture.events, 2, "cooldown is per ticker and strategy")

	now = now.Add(2 * time.Hour)
	r.NotifyAll(context.Background(), event("AAPL", "s", 0.1, 1))
	assert.Len(t, capture.events, 3)

	assert.Equal(t, 1, r.CleanupExpiredCooldowns(), "only the stale 'other' entry expires")
	r.ClearAllCooldowns()
	assert.Equal(t, 0, r.Stats()["cooldowns_active"])
}

func TestRouter_Batch(t *testing.T) {
	r, capture := newRouter(t, Config{MinTrades: 1})

	r.NotifyAllBatch(context.Background(), []notifier.Event{
		event("SPY", "a", 0.2, 2),
		event("SPY", "b", 0.0, 0),
		event("SPY", "c", -0.1, 4),
	})
	require.Len(t, capture.batches, 1)
	require.Len(t, capture.batches[0], 2)
	assert.Equal(t, "a", capture.batches[0][0].Strategy)
	assert.Equal(t, "c", capture.batches[0][1].Strategy)

	r.NotifyAllBatch(context.Background(), []notifier.Event{event("SPY", "b", 0, 0)})
	assert.Len(t, capture.batches, 1, "fully filtered batches are not sent")
}

func TestRouter_NilRegistry(t *testing.T) {
	r, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, r.NotifyAll(context.Background(), event("AAPL", "s", 0, 0)))
	assert.Nil(t, r.NotifyAllBatch(context.Background(), []notifier.Event{event("AAPL", "s", 0, 0)}))
}
