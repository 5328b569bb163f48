package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/notifier"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func capture(e *Email) *[]sentMail {
	var sent []sentMail
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
	return &sent
}

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Init(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{
		"host": "smtp.example.com",
		"from": "strata@example.com",
		"to":   []any{"a@example.com", "b@example.com"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 587, e.port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, e.to)
	assert.NotNil(t, e.send)

	assert.Error(t, (&Email{}).Init(notifier.Config{Params: map[string]any{"host": "h"}}))
}

func TestEmail_Send(t *testing.T) {
	e := New("smtp.example.com", 2525, "", "", "strata@example.com", []string{"me@example.com"})
	sent := capture(e)

	err := e.Send(context.Background(), notifier.Event{
		ID: "run-1", Ticker: "AAPL", Period: "1y", Strategy: "MACD Cross", TotalReturn: 0.0512, Trades: 2,
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.example.com:2525", m.addr)
	assert.Nil(t, m.auth, "no auth without username")
	assert.Contains(t, m.msg, "Subject: strata backtest: AAPL +5.12%")
	assert.Contains(t, m.msg, "Content-Type: text/plain")
	assert.Contains(t, m.msg, "Strategy: MACD Cross")
}

func TestEmail_SendBatch(t *testing.T) {
	e := New("smtp.example.com", 587, "user", "pass", "strata@example.com", []string{"me@example.com"})
	sent := capture(e)

	require.NoError(t, e.SendBatch(context.Background(), nil))
	assert.Empty(t, *sent)

	err := e.SendBatch(context.Background(), []notifier.Event{
		{Ticker: "SPY", Strategy: "A<B", TotalReturn: 0.1},
		{Ticker: "SPY", Strategy: "C", TotalReturn: -0.02},
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.NotNil(t, m.auth)
	assert.Contains(t, m.msg, "Content-Type: text/html")
	assert.Contains(t, m.msg, "A&lt;B")
	assert.Contains(t, m.msg, "#dc3545")
}

func TestEmail_SendError(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "f@example.com", []string{"t@example.com"})
	e.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	err := e.Send(context.Background(), notifier.Event{})
	assert.ErrorContains(t, err, "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Send(ctx, notifier.Event{}), context.Canceled)
}
