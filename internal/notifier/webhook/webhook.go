// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/newthinker/strata/internal/notifier"
)

// Webhook posts results as JSON to a URL
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url := cast.ToString(cfg.Params["url"]); url != "" {
		w.url = url
	}
	if headers := cast.ToStringMapString(cfg.Params["headers"]); len(headers) > 0 {
		w.headers = headers
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, ev notifier.Event) error {
	return w.post(ctx, payload{Type: "backtest", Backtest: &ev})
}

func (w *Webhook) SendBatch(ctx context.Context, evs []notifier.Event) error {
	if len(evs) == 0 {
		return nil
	}
	return w.post(ctx, payload{Type: "comparison", Count: len(evs), Backtests: evs})
}

type payload struct {
	Type      string           `json:"type"`
	Backtest  *notifier.Event  `json:"backtest,omitempty"`
	Count     int              `json:"count,omitempty"`
	Backtests []notifier.Event `json:"backtests,omitempty"`
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
