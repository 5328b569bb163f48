// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/spf13/cast"

	"github.com/newthinker/strata/internal/notifier"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host := cast.ToString(cfg.Params["host"]); host != "" {
		e.host = host
	}
	if port := cast.ToInt(cfg.Params["port"]); port > 0 {
		e.port = port
	}
	if username := cast.ToString(cfg.Params["username"]); username != "" {
		e.username = username
	}
	if password := cast.ToString(cfg.Params["password"]); password != "" {
		e.password = password
	}
	if from := cast.ToString(cfg.Params["from"]); from != "" {
		e.from = from
	}
	if to := cast.ToStringSlice(cfg.Params["to"]); len(to) > 0 {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	return nil
}

func (e *Email) Send(ctx context.Context, ev notifier.Event) error {
	subject := fmt.Sprintf("strata backtest: %s %+.2f%%", ev.Ticker, ev.TotalReturn*100)
	return e.sendEmail(ctx, subject, formatText(ev))
}

func (e *Email) SendBatch(ctx context.Context, evs []notifier.Event) error {
	if len(evs) == 0 {
		return nil
	}

	subject := fmt.Sprintf("strata comparison: %s, %d strategies", evs[0].Ticker, len(evs))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	fmt.Fprintf(&sb, "<h2>%s strategy comparison</h2>", html.EscapeString(evs[0].Ticker))
	sb.WriteString("<table border=\"1\" cellpadding=\"4\">")
	sb.WriteString("<tr><th>#</th><th>Strategy</th><th>Return</th><th>Trades</th><th>Win rate</th><th>Max DD</th><th>Sharpe</th></tr>")
	for i, ev := range evs {
		sb.WriteString(formatRowHTML(i+1, ev))
	}
	sb.WriteString("</table></body></html>")

	return e.sendEmail(ctx, subject, sb.String())
}

func formatText(ev notifier.Event) string {
	open := "no"
	if ev.OpenPosition {
		open = "yes"
	}
	return fmt.Sprintf(`
strata backtest %s

Ticker: %s
Period: %s
Strategy: %s
Total return: %.2f%%
Trades: %d
Win rate: %.1f%%
Max drawdown: %.2f%%
Sharpe ratio: %.2f
Open position: %s
Completed: %s
%s`,
		ev.ID,
		ev.Ticker,
		ev.Period,
		ev.Strategy,
		ev.TotalReturn*100,
		ev.Trades,
		ev.WinRate*100,
		ev.MaxDrawdown*100,
		ev.SharpeRatio,
		open,
		ev.CompletedAt.Format("2006-01-02 15:04:05"),
		strings.Join(ev.Alerts, "\n"),
	)
}

func formatRowHTML(rank int, ev notifier.Event) string {
	color := "#28a745" // green for gains
	if ev.TotalReturn < 0 {
		color = "#dc3545"
	}

	return fmt.Sprintf(
		`<tr><td>%d</td><td>%s</td><td style="color: %s;">%+.2f%%</td><td>%d</td><td>%.1f%%</td><td>%.2f%%</td><td>%.2f</td></tr>`,
		rank,
		html.EscapeString(ev.Strategy),
		color,
		ev.TotalReturn*100,
		ev.Trades,
		ev.WinRate*100,
		ev.MaxDrawdown*100,
		ev.SharpeRatio,
	)
}

// sendEmail checks ctx before dialing; net/smtp itself is not cancellable.
func (e *Email) sendEmail(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
