package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertConfig defines where fallback alerts are forwarded.
type AlertConfig struct {
	Webhook  string
	Command  string
	Cooldown time.Duration // minimum gap between forwarded alerts
}

// Notifier forwards alerts to a webhook and/or a shell command. Alerts that
// arrive within the cooldown of the last forwarded one are dropped, so a
// sustained outage produces one notification per cooldown window.
type Notifier struct {
	cfg    AlertConfig
	client *http.Client
	logger *zap.Logger

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
	send func(event alertEvent)
}

type alertEvent struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

// NewNotifier creates a notifier.
func NewNotifier(cfg AlertConfig, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
	n.send = func(ev alertEvent) { go n.notify(ev) }
	return n
}

// Enabled returns true if any alert destination is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.Webhook != "" || n.cfg.Command != ""
}

// Alert implements Alerter. Delivery is asynchronous and failures are only
// logged.
func (n *Notifier) Alert(msg string) {
	if !n.Enabled() {
		return
	}
	now := n.now()

	n.mu.Lock()
	if !n.last.IsZero() && now.Sub(n.last) < n.cfg.Cooldown {
		n.mu.Unlock()
		n.logger.Debug("alert suppressed by cooldown", zap.String("message", msg))
		return
	}
	n.last = now
	n.mu.Unlock()

	n.send(alertEvent{
		ID:      uuid.NewString(),
		Message: msg,
		TS:      now.Format(time.RFC3339),
	})
}

// ValidateWebhookURL checks that the webhook URL uses http/https and does not
// target loopback, private, link-local, or cloud metadata addresses.
func ValidateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("webhook URL has no host")
	}
	if host == "localhost" || host == "metadata.google.internal" {
		return fmt.Errorf("webhook URL host %q is blocked", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}

func (n *Notifier) notify(ev alertEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("alert marshal error", zap.Error(err))
		return
	}

	if n.cfg.Webhook != "" {
		if err := n.postWebhook(data); err != nil {
			n.logger.Warn("alert webhook failed", zap.String("alert_id", ev.ID), zap.Error(err))
		}
	}

	if n.cfg.Command != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, "sh", "-c", n.cfg.Command)
		cmd.Env = append(os.Environ(), "CIRCUITTOP_ALERT="+ev.Message, "CIRCUITTOP_ALERT_JSON="+string(data))
		if err := cmd.Run(); err != nil {
			n.logger.Warn("alert command failed", zap.String("alert_id", ev.ID), zap.Error(err))
		}
	}
}

func (n *Notifier) postWebhook(data []byte) error {
	if err := ValidateWebhookURL(n.cfg.Webhook); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, n.cfg.Webhook, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook answered %s", resp.Status)
	}
	return nil
}
