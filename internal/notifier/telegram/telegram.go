package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/newthinker/strata/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token := cast.ToString(cfg.Params["bot_token"]); token != "" {
		t.botToken = token
	}
	// chat ids are numeric in YAML more often than not
	if chatID := cast.ToString(cfg.Params["chat_id"]); chatID != "" {
		t.chatID = chatID
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, ev notifier.Event) error {
	return t.sendMessage(ctx, formatEvent(ev))
}

func (t *Telegram) SendBatch(ctx context.Context, evs []notifier.Event) error {
	if len(evs) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 *%s comparison* (%d strategies)\n\n", evs[0].Ticker, len(evs))
	for i, ev := range evs {
		fmt.Fprintf(&sb, "%d. %s: %+.2f%% (%d trades, Sharpe %.2f)\n",
			i+1, ev.Strategy, ev.TotalReturn*100, ev.Trades, ev.SharpeRatio)
	}

	return t.sendMessage(ctx, sb.String())
}

func formatEvent(ev notifier.Event) string {
	var sb strings.Builder

	emoji := "📈"
	if ev.TotalReturn < 0 {
		emoji = "📉"
	}

	fmt.Fprintf(&sb, "%s *%s* backtest (%s)\n", emoji, ev.Ticker, ev.Period)
	fmt.Fprintf(&sb, "🎯 Strategy: %s\n", ev.Strategy)
	fmt.Fprintf(&sb, "💰 Return: %+.2f%%\n", ev.TotalReturn*100)
	fmt.Fprintf(&sb, "📊 Trades: %d, win rate %.1f%%\n", ev.Trades, ev.WinRate*100)
	fmt.Fprintf(&sb, "⚠️ Max drawdown: %.2f%%\n", ev.MaxDrawdown*100)
	if ev.OpenPosition {
		sb.WriteString("⏳ Position still open\n")
	}
	for _, a := range ev.Alerts {
		fmt.Fprintf(&sb, "🔔 %s\n", a)
	}
	fmt.Fprintf(&sb, "⏰ %s", ev.CompletedAt.Format("2006-01-02 15:04:05"))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
