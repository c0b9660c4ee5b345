package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers stress alerts to a webhook endpoint expecting a
// JSON body of {"title": ..., "text": ...}. Delivery is best effort; a
// failed push is logged and otherwise swallowed so the monitor loop
// never stalls on the notification channel.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewNotifier creates a notifier posting to url, with timeout bounding
// each delivery. A non-positive timeout means 10s. An empty url yields
// a notifier whose Send is a no-op.
func NewNotifier(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "notifier")),
	}
}

// Send posts an alert. Errors are logged, never returned.
func (n *Notifier) Send(ctx context.Context, title, text string) {
	if n.url == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"title": title,
		"text":  text,
	})
	if err != nil {
		n.logger.Error("encode notification", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("build notification request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed", slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification rejected",
			slog.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return
	}
	n.logger.Info("notification sent", slog.String("title", title))
}
