package monitor

import (
	"fmt"
	"runtime"
	"time"
)

// cooldownPeriod is how long alerting stays suppressed after a
// notification fires.
const cooldownPeriod = 5 * time.Minute

// Sample holds one round of metric readings. A nil field means the
// metric could not be fetched this round and is excluded from
// evaluation.
type Sample struct {
	CPUPercent *float64
	MemPercent *float64
	Load1      *float64
}

// Thresholds are the stress limits a sample is judged against. The
// load threshold is LoadMultiplier times the core count.
type Thresholds struct {
	CPUPercent     float64
	MemPercent     float64
	LoadMultiplier float64
	SustainFor     time.Duration
	Cores          int
}

// Tracker decides when sustained stress warrants a notification.
//
// A sample with any metric at or over its threshold is hot. Heat must
// persist for SustainFor before an alert fires; any cool sample resets
// the clock. After an alert the tracker holds a cooldown during which
// nothing fires, and the sustain anchor is re-set at alert time so
// continuous stress re-alerts one sustain period after each cooldown
// expires rather than immediately.
type Tracker struct {
	thresholds Thresholds

	hotSince      time.Time
	coolDownUntil time.Time

	now func() time.Time
}

// NewTracker creates a tracker. Zero Cores means the local core count.
func NewTracker(t Thresholds) *Tracker {
	if t.Cores <= 0 {
		t.Cores = runtime.NumCPU()
		if t.Cores <= 0 {
			t.Cores = 1
		}
	}
	return &Tracker{thresholds: t, now: time.Now}
}

// Observe feeds one sample in and reports whether to alert now. The
// reasons slice names each breached threshold and is non-empty exactly
// when alert is true.
func (tr *Tracker) Observe(s Sample) (alert bool, reasons []string) {
	th := tr.thresholds

	if s.CPUPercent != nil && *s.CPUPercent >= th.CPUPercent {
		reasons = append(reasons, fmt.Sprintf("CPU %.0f%% >= %.0f%%", *s.CPUPercent, th.CPUPercent))
	}
	if s.MemPercent != nil && *s.MemPercent >= th.MemPercent {
		reasons = append(reasons, fmt.Sprintf("MEM %.0f%% >= %.0f%%", *s.MemPercent, th.MemPercent))
	}
	loadLimit := float64(th.Cores) * th.LoadMultiplier
	if s.Load1 != nil && *s.Load1 >= loadLimit {
		reasons = append(reasons, fmt.Sprintf("LOAD1 %.2f >= %.2f", *s.Load1, loadLimit))
	}

	now := tr.now()

	if len(reasons) == 0 {
		tr.hotSince = time.Time{}
		return false, nil
	}
	if now.Before(tr.coolDownUntil) {
		return false, nil
	}
	if tr.hotSince.IsZero() {
		tr.hotSince = now
		return false, nil
	}
	if now.Sub(tr.hotSince) >= th.SustainFor {
		tr.coolDownUntil = now.Add(cooldownPeriod)
		tr.hotSince = now
		return true, reasons
	}
	return false, nil
}
