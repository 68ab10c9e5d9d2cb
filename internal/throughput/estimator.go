package throughput

import (
	"SDNGuard/internal/model"
	"sync"
	"time"
)

// CumulativeBytes sums the byte counters of all non-table-miss rules.
func CumulativeBytes(flows []model.FlowSample) uint64 {
	var total uint64
	for _, f := range flows {
		if f.Priority >= 1 {
			total += f.ByteCount
		}
	}
	return total
}

// Estimator derives a byte rate from successive cumulative counters. It keeps
// one previous total and one rate; every reply overwrites both, so the
// reported rate always comes from the latest reply.
type Estimator struct {
	mu       sync.Mutex
	interval time.Duration
	previous uint64
	rate     float64
}

// New creates an estimator for counters sampled every interval.
func New(interval time.Duration) *Estimator {
	return &Estimator{interval: interval}
}

// Observe records a new cumulative total and returns the resulting rate.
// A total below the previous one (rules expired or were deleted) yields zero.
func (e *Estimator) Observe(total uint64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var delta uint64
	if total > e.previous {
		delta = total - e.previous
	}
	e.previous = total
	e.rate = float64(delta) / e.interval.Seconds()
	return e.rate
}

// BytesPerSec returns the rate computed from the latest reply.
func (e *Estimator) BytesPerSec() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}
