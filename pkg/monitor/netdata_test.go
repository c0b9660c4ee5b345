package monitor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chartServer serves canned /api/v1/data responses per chart name.
func chartServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/data" {
			http.NotFound(w, r)
			return
		}
		body, ok := responses[r.URL.Query().Get("chart")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
}

func TestCPUPercentFromIdle(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"system.cpu": `{"labels":["time","user","system","idle"],"data":[[1748779200,10.0,5.0,82.5]]}`,
	})
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	got := c.CPUPercent(context.Background())
	if got == nil {
		t.Fatal("expected a value")
	}
	if *got != 17.5 {
		t.Errorf("cpu: got %v want 17.5", *got)
	}
}

func TestCPUPercentMissingIdleDimension(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"system.cpu": `{"labels":["time","user"],"data":[[1748779200,10.0]]}`,
	})
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	if got := c.CPUPercent(context.Background()); got != nil {
		t.Errorf("expected nil without idle dimension, got %v", *got)
	}
}

func TestMemPercentFromChart(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"system.ram": `{"labels":["time","free","used","cached"],"data":[[1748779200,2048.0,6144.0,512.0]]}`,
	})
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	got := c.MemPercent(context.Background())
	if got == nil {
		t.Fatal("expected a value")
	}
	if *got != 75.0 {
		t.Errorf("mem: got %v want 75.0", *got)
	}
}

func TestMemPercentFallsBackToInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/data":
			http.Error(w, "chart gone", http.StatusNotFound)
		case "/api/v1/info":
			io.WriteString(w, `{"memory":{"total":8192,"used":4096}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	got := c.MemPercent(context.Background())
	if got == nil {
		t.Fatal("expected fallback value")
	}
	if *got != 50.0 {
		t.Errorf("mem fallback: got %v want 50.0", *got)
	}
}

func TestLoad1(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"system.load": `{"labels":["time","load1","load5","load15"],"data":[[1748779200,3.25,2.0,1.0]]}`,
	})
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	got := c.Load1(context.Background())
	if got == nil {
		t.Fatal("expected a value")
	}
	if *got != 3.25 {
		t.Errorf("load1: got %v want 3.25", *got)
	}
}

func TestNullCellsAreSkipped(t *testing.T) {
	srv := chartServer(t, map[string]string{
		"system.load": `{"labels":["time","load1"],"data":[[1748779200,null]]}`,
	})
	defer srv.Close()

	c := NewMetricsClient(srv.URL, time.Second, discardLogger())
	if got := c.Load1(context.Background()); got != nil {
		t.Errorf("expected nil for null cell, got %v", *got)
	}
}

func TestUnreachableAgentYieldsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewMetricsClient(addr, 500*time.Millisecond, discardLogger())
	ctx := context.Background()
	if c.CPUPercent(ctx) != nil || c.MemPercent(ctx) != nil || c.Load1(ctx) != nil {
		t.Error("expected all metrics nil when the agent is unreachable")
	}
}
