package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/collector"
	"github.com/newthinker/strata/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// validSymbol matches tickers like AAPL, BRK-B, ^GSPC, EURUSD=X, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9=\-]{1,12}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client     *http.Client
	baseURL    string
	maxRetries int
	logger     *zap.Logger
}

// Option configures a Yahoo collector
type Option func(*Yahoo)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(y *Yahoo) { y.logger = l }
}

// WithBaseURL points the collector at a different chart endpoint
func WithBaseURL(u string) Option {
	return func(y *Yahoo) { y.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) { y.client = c }
}

// New creates a new Yahoo collector
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:     &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		maxRetries: defaultMaxRetries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Init(cfg collector.Config) error {
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries >= 0 {
		y.maxRetries = cfg.MaxRetries
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches historical OHLCV data. Transient failures (network
// errors, 429 and 5xx) are retried with exponential backoff; missing price
// fields become NaN.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d&events=history",
		y.baseURL, y.toYahooSymbol(symbol), y.toYahooInterval(interval), start.Unix(), end.Unix())

	var result chartResponse
	attempt := 0
	op := func() error {
		attempt++
		r, err := y.get(ctx, url)
		if err != nil {
			y.logger.Debug("yahoo fetch failed",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		result = r
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(y.maxRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	return toBars(symbol, interval, result.Chart.Result[0]), nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (y *Yahoo) get(ctx context.Context, url string) (chartResponse, error) {
	var result chartResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (strata)")

	resp, err := y.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return result, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		// Yahoo reports unknown symbols as 404 with a chart error body.
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Chart.Error != nil {
			return result, nil
		}
		return result, backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return result, backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return result, nil
}

func toBars(symbol, interval string, r chartResult) []core.OHLCV {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quotes := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     at(quotes.Open, i),
			High:     at(quotes.High, i),
			Low:      at(quotes.Low, i),
			Close:    at(quotes.Close, i),
			Time:     time.Unix(ts, 0).UTC(),
		}
		if math.IsNaN(bar.Open) && math.IsNaN(bar.High) && math.IsNaN(bar.Low) && math.IsNaN(bar.Close) {
			continue // Skip rows with no prices at all
		}
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			bar.Volume = *quotes.Volume[i]
		}
		data = append(data, bar)
	}
	return data
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

func (y *Yahoo) toYahooInterval(interval string) string {
	switch interval {
	case "1h", "1d", "1wk", "1mo":
		return interval
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
