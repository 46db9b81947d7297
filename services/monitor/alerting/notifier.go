// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// maxSurfacedActions bounds how many suggested actions a channel
// renders.
const maxSurfacedActions = 3

// Notifier delivers one alert to one channel.
type Notifier interface {
	Notify(ctx context.Context, alert datatypes.Alert) error
}

// -----------------------------------------------------------------------------
// Console Notifier
// -----------------------------------------------------------------------------

// levelColors maps alert levels to ANSI colors for terminal output.
var levelColors = map[datatypes.AlertLevel]string{
	datatypes.AlertInfo:      "\033[36m", // cyan
	datatypes.AlertWarning:   "\033[33m", // yellow
	datatypes.AlertCritical:  "\033[31m", // red
	datatypes.AlertEmergency: "\033[35m", // magenta
}

const colorReset = "\033[0m"

// ConsoleNotifier prints alerts for an operator terminal.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier writes to out, defaulting to stdout.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) Notify(_ context.Context, alert datatypes.Alert) error {
	color := levelColors[alert.Level]
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] %s%s\n", color, strings.ToUpper(string(alert.Level)), alert.Title, colorReset)
	fmt.Fprintf(&b, "  host=%s metric=%s value=%.1f threshold=%.1f\n",
		alert.Hostname, alert.Metric, alert.CurrentValue, alert.ThresholdValue)
	fmt.Fprintf(&b, "  %s\n", alert.Description)
	for i, action := range alert.SuggestedActions {
		if i == maxSurfacedActions {
			break
		}
		fmt.Fprintf(&b, "  -> %s\n", action)
	}
	_, err := io.WriteString(n.out, b.String())
	return err
}

// -----------------------------------------------------------------------------
// Log Notifier
// -----------------------------------------------------------------------------

// LogNotifier emits alerts as structured log records, the channel of
// record when no external sink is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "alert_log"))}
}

func (n *LogNotifier) Notify(_ context.Context, alert datatypes.Alert) error {
	n.logger.Warn("alert",
		slog.String("id", alert.ID),
		slog.String("level", string(alert.Level)),
		slog.String("metric", string(alert.Metric)),
		slog.String("host", alert.Hostname),
		slog.String("title", alert.Title),
		slog.Float64("value", alert.CurrentValue),
		slog.Float64("threshold", alert.ThresholdValue))
	return nil
}

// -----------------------------------------------------------------------------
// Email Notifier
// -----------------------------------------------------------------------------

// sendMailFunc matches smtp.SendMail; injectable for tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends critical and emergency alerts over SMTP. Lower
// levels are dropped silently to keep inbox noise down.
type EmailNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail sendMailFunc
}

// NewEmailNotifier configures SMTP delivery. host/from/to must be set.
func NewEmailNotifier(host string, port int, user, password, from string, to []string) (*EmailNotifier, error) {
	if host == "" || from == "" || len(to) == 0 {
		return nil, fmt.Errorf("email notifier requires smtp host, sender, and recipients")
	}
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &EmailNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, alert datatypes.Alert) error {
	if alert.Level != datatypes.AlertCritical && alert.Level != datatypes.AlertEmergency {
		return nil
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", n.from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&body, "Subject: [%s] %s on %s\r\n", strings.ToUpper(string(alert.Level)), alert.Title, alert.Hostname)
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&body, "<h2>%s</h2>", alert.Title)
	fmt.Fprintf(&body, "<p>%s</p>", alert.Description)
	fmt.Fprintf(&body, "<p>Host: <b>%s</b><br>Metric: %s<br>Current: %.1f<br>Threshold: %.1f<br>Time: %s</p>",
		alert.Hostname, alert.Metric, alert.CurrentValue, alert.ThresholdValue,
		alert.Timestamp.Format(time.RFC3339))
	if len(alert.SuggestedActions) > 0 {
		body.WriteString("<ul>")
		for i, action := range alert.SuggestedActions {
			if i == maxSurfacedActions {
				break
			}
			fmt.Fprintf(&body, "<li>%s</li>", action)
		}
		body.WriteString("</ul>")
	}

	return n.sendMail(n.addr, n.auth, n.from, n.to, body.Bytes())
}

// -----------------------------------------------------------------------------
// Webhook Notifier
// -----------------------------------------------------------------------------

// WebhookNotifier POSTs the alert as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url must not be empty")
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, alert datatypes.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Multi Notifier
// -----------------------------------------------------------------------------

// MultiNotifier fans an alert out to every channel behind a shared
// rate limiter. One channel failing never blocks the others; the first
// error is returned after all channels ran.
type MultiNotifier struct {
	channels []Notifier
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewMultiNotifier wraps channels with a per-minute delivery budget.
func NewMultiNotifier(channels []Notifier, perMinute, burst int, logger *slog.Logger) *MultiNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &MultiNotifier{
		channels: channels,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

func (n *MultiNotifier) Notify(ctx context.Context, alert datatypes.Alert) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify rate limit: %w", err)
	}

	var firstErr error
	for _, channel := range n.channels {
		if err := channel.Notify(ctx, alert); err != nil {
			notifyFailures.WithLabelValues(fmt.Sprintf("%T", channel)).Inc()
			n.logger.Error("notification channel failed",
				slog.String("channel", fmt.Sprintf("%T", channel)),
				slog.String("alert_id", alert.ID),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	notificationsSent.WithLabelValues(string(alert.Level)).Inc()
	return firstErr
}
