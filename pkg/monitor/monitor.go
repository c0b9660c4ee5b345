package monitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lumenhq/sentinel/pkg/config"
)

// alertTitle is the notification title for every stress alert.
const alertTitle = "Server under stress"

// Monitor polls system metrics on an interval and notifies when
// sustained stress is detected. Intended to run on exactly one process
// per host; see the leader package for the exclusivity guard.
type Monitor struct {
	client   *MetricsClient
	tracker  *Tracker
	notifier *Notifier
	interval time.Duration
	metrics  *Metrics
	logger   *slog.Logger
}

// New assembles a monitor from configuration. The netdata base URL
// comes from the proxy target settings since both talk to the same
// agent. Metrics may be nil.
func New(cfg config.MonitorConfig, netdataBaseURL string, metrics *Metrics, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "monitor"))

	interval := cfg.PollInterval.Std()
	if interval < time.Second {
		interval = time.Second
	}

	return &Monitor{
		client: NewMetricsClient(netdataBaseURL, cfg.FetchTimeout.Std(), logger),
		tracker: NewTracker(Thresholds{
			CPUPercent:     cfg.CPUPercent,
			MemPercent:     cfg.MemPercent,
			LoadMultiplier: cfg.LoadMultiplier,
			SustainFor:     time.Duration(cfg.SustainSeconds) * time.Second,
		}),
		notifier: NewNotifier(cfg.NotifyURL, cfg.FetchTimeout.Std(), logger),
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run polls until ctx is canceled. Fetch failures and notification
// failures never terminate the loop.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitor started",
		slog.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.evaluate(ctx)
		}
	}
}

func (m *Monitor) evaluate(ctx context.Context) {
	sample := Sample{
		CPUPercent: m.client.CPUPercent(ctx),
		MemPercent: m.client.MemPercent(ctx),
		Load1:      m.client.Load1(ctx),
	}
	complete := sample.CPUPercent != nil && sample.MemPercent != nil && sample.Load1 != nil
	m.metrics.recordSample(complete)

	alert, reasons := m.tracker.Observe(sample)
	if !alert {
		return
	}

	m.metrics.recordAlert()
	text := strings.Join(reasons, ", ")
	m.logger.Warn("sustained stress detected", slog.String("reasons", text))
	m.notifier.Send(ctx, alertTitle, text)
}
