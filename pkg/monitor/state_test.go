package monitor

import (
	"strings"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func newTestTracker(sustain time.Duration) (*Tracker, *time.Time) {
	tr := NewTracker(Thresholds{
		CPUPercent:     85,
		MemPercent:     90,
		LoadMultiplier: 1.5,
		SustainFor:     sustain,
		Cores:          4,
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func hotSample() Sample  { return Sample{CPUPercent: f(95)} }
func coolSample() Sample { return Sample{CPUPercent: f(10), MemPercent: f(20), Load1: f(0.5)} }

func TestTrackerAlertsAfterSustainedHeat(t *testing.T) {
	tr, now := newTestTracker(120 * time.Second)

	// First hot observation only anchors the sustain clock.
	if alert, _ := tr.Observe(hotSample()); alert {
		t.Fatal("alert on first hot sample")
	}

	// Heat below the sustain window must not fire.
	*now = now.Add(60 * time.Second)
	if alert, _ := tr.Observe(hotSample()); alert {
		t.Fatal("alert before sustain window elapsed")
	}

	*now = now.Add(60 * time.Second)
	alert, reasons := tr.Observe(hotSample())
	if !alert {
		t.Fatal("expected alert at sustain boundary")
	}
	if len(reasons) != 1 || !strings.HasPrefix(reasons[0], "CPU 95%") {
		t.Errorf("reasons: %v", reasons)
	}
}

func TestTrackerCoolSampleResetsSustain(t *testing.T) {
	tr, now := newTestTracker(120 * time.Second)

	tr.Observe(hotSample())
	*now = now.Add(100 * time.Second)
	tr.Observe(coolSample())

	// Heat resumes; the earlier 100s must not count.
	*now = now.Add(10 * time.Second)
	tr.Observe(hotSample())
	*now = now.Add(110 * time.Second)
	if alert, _ := tr.Observe(hotSample()); alert {
		t.Fatal("sustain clock not reset by cool sample")
	}
	*now = now.Add(10 * time.Second)
	if alert, _ := tr.Observe(hotSample()); !alert {
		t.Fatal("expected alert after full sustain from reset")
	}
}

func TestTrackerCooldownSuppressesRepeatAlerts(t *testing.T) {
	tr, now := newTestTracker(120 * time.Second)

	tr.Observe(hotSample())
	*now = now.Add(120 * time.Second)
	if alert, _ := tr.Observe(hotSample()); !alert {
		t.Fatal("expected first alert")
	}

	// Continuous heat through the cooldown fires nothing.
	for i := 0; i < 59; i++ {
		*now = now.Add(5 * time.Second)
		if alert, _ := tr.Observe(hotSample()); alert {
			t.Fatalf("alert during cooldown at tick %d", i)
		}
	}

	// After cooldown (300s) the anchor was re-set at alert time, so a
	// further full sustain beyond the cooldown is already satisfied.
	*now = now.Add(10 * time.Second)
	if alert, _ := tr.Observe(hotSample()); !alert {
		t.Fatal("expected re-alert after cooldown under continuous heat")
	}
}

func TestTrackerShortSpikeNeverAlerts(t *testing.T) {
	tr, now := newTestTracker(120 * time.Second)

	for cycle := 0; cycle < 10; cycle++ {
		tr.Observe(hotSample())
		*now = now.Add(60 * time.Second)
		tr.Observe(hotSample())
		*now = now.Add(5 * time.Second)
		if alert, _ := tr.Observe(coolSample()); alert {
			t.Fatal("alert from sub-sustain spike")
		}
		*now = now.Add(30 * time.Second)
	}
}

func TestTrackerThresholdEvaluation(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   []string
	}{
		{"all cool", coolSample(), nil},
		{"cpu at threshold", Sample{CPUPercent: f(85)}, []string{"CPU"}},
		{"mem over", Sample{MemPercent: f(95)}, []string{"MEM"}},
		{"load over cores times mult", Sample{Load1: f(6.0)}, []string{"LOAD1"}},
		{"load under", Sample{Load1: f(5.9)}, nil},
		{"all hot", Sample{CPUPercent: f(99), MemPercent: f(99), Load1: f(9)}, []string{"CPU", "MEM", "LOAD1"}},
		{"nil metrics excluded", Sample{}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, now := newTestTracker(time.Second)
			// Anchor first, then move past the sustain window so any
			// breach fires immediately and exposes its reasons.
			tr.Observe(tc.sample)
			*now = now.Add(2 * time.Second)
			_, reasons := tr.Observe(tc.sample)

			if len(reasons) != len(tc.want) {
				t.Fatalf("reasons: got %v want prefixes %v", reasons, tc.want)
			}
			for i, prefix := range tc.want {
				if !strings.HasPrefix(reasons[i], prefix) {
					t.Errorf("reason %d: got %q want prefix %q", i, reasons[i], prefix)
				}
			}
		})
	}
}
