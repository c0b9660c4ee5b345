package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// MetricsClient reads instantaneous system metrics from a netdata
// agent's v1 API. Every getter returns a nil pointer when the value
// cannot be determined; a missing sample is not an error, the metric
// just drops out of that evaluation round.
type MetricsClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewMetricsClient creates a client for the agent at baseURL
// (e.g. "http://127.0.0.1:19999"). timeout bounds each fetch.
func NewMetricsClient(baseURL string, timeout time.Duration, logger *slog.Logger) *MetricsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "netdata")),
	}
}

// chartData mirrors the /api/v1/data response shape. Dimension cells
// can be null, hence the pointers.
type chartData struct {
	Labels []string     `json:"labels"`
	Data   [][]*float64 `json:"data"`
}

// agentInfo mirrors the subset of /api/v1/info the memory fallback needs.
type agentInfo struct {
	Memory struct {
		Total float64 `json:"total"`
		Used  float64 `json:"used"`
	} `json:"memory"`
}

// CPUPercent returns total CPU utilization as a percentage, derived as
// 100 minus the idle dimension of system.cpu.
func (c *MetricsClient) CPUPercent(ctx context.Context) *float64 {
	values := c.latestValues(ctx, "system.cpu")
	idle, ok := values["idle"]
	if !ok {
		return nil
	}
	pct := 100.0 - idle
	if pct < 0 {
		pct = 0
	}
	return &pct
}

// MemPercent returns used memory as a percent of used+free from
// system.ram, falling back to the agent info summary when the chart is
// unavailable.
func (c *MetricsClient) MemPercent(ctx context.Context) *float64 {
	values := c.latestValues(ctx, "system.ram")
	if values != nil {
		used, free := values["used"], values["free"]
		if total := used + free; total > 0 {
			pct := used / total * 100.0
			return &pct
		}
	}

	var info agentInfo
	if err := c.fetchJSON(ctx, "/api/v1/info", nil, &info); err != nil {
		return nil
	}
	if info.Memory.Total > 0 {
		pct := info.Memory.Used / info.Memory.Total * 100.0
		return &pct
	}
	return nil
}

// Load1 returns the one-minute load average from system.load.
func (c *MetricsClient) Load1(ctx context.Context) *float64 {
	values := c.latestValues(ctx, "system.load")
	if values == nil {
		return nil
	}
	load1, ok := values["load1"]
	if !ok {
		return nil
	}
	return &load1
}

// latestValues fetches the most recent averaged point of a chart and
// maps dimension labels to values. Returns nil when the chart cannot
// be read or has no rows.
func (c *MetricsClient) latestValues(ctx context.Context, chart string) map[string]float64 {
	params := url.Values{
		"chart":  {chart},
		"format": {"json"},
		"after":  {"-1"},
		"points": {"1"},
		"group":  {"average"},
	}

	var data chartData
	if err := c.fetchJSON(ctx, "/api/v1/data", params, &data); err != nil {
		c.logger.Debug("chart fetch failed",
			slog.String("chart", chart),
			slog.String("error", err.Error()))
		return nil
	}
	if len(data.Labels) == 0 || len(data.Data) == 0 {
		return nil
	}

	row := data.Data[len(data.Data)-1]
	values := make(map[string]float64)
	// Column zero is the timestamp.
	for i := 1; i < len(data.Labels) && i < len(row); i++ {
		if row[i] != nil {
			values[data.Labels[i]] = *row[i]
		}
	}
	return values
}

func (c *MetricsClient) fetchJSON(ctx context.Context, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
