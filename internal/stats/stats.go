// Package stats keeps rolling-window latency figures and counters for
// mapping resolution.
package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at time.Time
	d  time.Duration
}

// LatencySnapshot aggregates the samples currently in the window.
// Durations are in microseconds; resolving a chapter rarely takes a
// whole millisecond.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinUs int64   `json:"min_us"`
	MaxUs int64   `json:"max_us"`
	AvgUs float64 `json:"avg_us"`
	P50Us float64 `json:"p50_us"`
	P95Us float64 `json:"p95_us"`
	P99Us float64 `json:"p99_us"`
}

// Latency records durations and drops those older than the window.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewLatency(window time.Duration) *Latency {
	if window <= 0 {
		window = time.Hour
	}
	return &Latency{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

func (l *Latency) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	l.samples = append(l.samples, sample{at: now, d: d})
}

func (l *Latency) Snapshot() LatencySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	if len(l.samples) == 0 {
		return LatencySnapshot{}
	}

	us := make([]int64, len(l.samples))
	var sum int64
	for i, s := range l.samples {
		us[i] = s.d.Microseconds()
		sum += us[i]
	}
	slices.Sort(us)

	return LatencySnapshot{
		Count: len(us),
		MinUs: us[0],
		MaxUs: us[len(us)-1],
		AvgUs: float64(sum) / float64(len(us)),
		P50Us: percentile(us, 50),
		P95Us: percentile(us, 95),
		P99Us: percentile(us, 99),
	}
}

func (l *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	keep := l.samples[:0]
	for _, s := range l.samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	l.samples = keep
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(idx-float64(lower))
}

// Mapping collects resolution counters alongside the latency window.
type Mapping struct {
	Latency *Latency

	mu          sync.Mutex
	resolutions int64
	blocks      int64
	assigned    int64
	vetoed      int64
}

// MappingSnapshot is what the stats endpoint reports.
type MappingSnapshot struct {
	Resolutions int64           `json:"resolutions"`
	Blocks      int64           `json:"blocks"`
	Assigned    int64           `json:"assigned"`
	Vetoed      int64           `json:"vetoed"`
	Latency     LatencySnapshot `json:"latency"`
}

func NewMapping(window time.Duration) *Mapping {
	return &Mapping{Latency: NewLatency(window)}
}

// Observe records one resolution pass.
func (m *Mapping) Observe(d time.Duration, blocks, assigned, vetoed int) {
	m.Latency.Record(d)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions++
	m.blocks += int64(blocks)
	m.assigned += int64(assigned)
	m.vetoed += int64(vetoed)
}

func (m *Mapping) Snapshot() MappingSnapshot {
	m.mu.Lock()
	snap := MappingSnapshot{
		Resolutions: m.resolutions,
		Blocks:      m.blocks,
		Assigned:    m.assigned,
		Vetoed:      m.vetoed,
	}
	m.mu.Unlock()

	snap.Latency = m.Latency.Snapshot()
	return snap
}
