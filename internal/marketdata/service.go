package marketdata

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/collector"
	"github.com/newthinker/strata/internal/core"
)

// Service builds market data contexts from a collector.
type Service struct {
	collector collector.Collector
	interval  string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a service fetching daily bars from c.
func NewService(c collector.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		collector: c,
		interval:  "1d",
		logger:    logger,
		now:       time.Now,
	}
}

// Load fetches ticker over period and returns a fresh Context. Fetch
// failures and empty histories are reported as ErrProvider.
func (s *Service) Load(ctx context.Context, ticker, period string) (*Context, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "ticker is required")
	}

	end := s.now().UTC()
	start, err := ParsePeriod(period, end)
	if err != nil {
		return nil, err
	}

	bars, err := s.collector.FetchHistory(ctx, symbol, start, end, s.interval)
	if err != nil {
		s.logger.Warn("market data fetch failed",
			zap.String("collector", s.collector.Name()),
			zap.String("ticker", symbol),
			zap.String("period", period),
			zap.Error(err))
		return nil, core.WrapError(core.ErrProvider, err)
	}
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrProvider, "no data found for ticker %s over %s", symbol, period)
	}

	prices, err := core.NewPriceSeries(symbol, period, bars)
	if err != nil {
		return nil, core.WrapError(core.ErrProvider, err)
	}

	s.logger.Debug("market data loaded",
		zap.String("ticker", symbol),
		zap.String("period", period),
		zap.Int("bars", prices.Len()))

	return NewContext(prices), nil
}
