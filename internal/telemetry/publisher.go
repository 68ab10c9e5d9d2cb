package telemetry

import (
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"fmt"
	"log"
	"sync"
	"time"
)

// Source supplies the snapshot to publish. *controller.Controller satisfies it.
type Source interface {
	Snapshot() model.Snapshot
}

// Sweeper is implemented by sources with state that expires between cycles.
type Sweeper interface {
	Sweep() int
}

// Publisher writes the current snapshot to every sink on a fixed period.
type Publisher struct {
	source   Source
	sweeper  Sweeper
	writers  []model.SnapshotWriter
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher. sweeper may be nil.
func NewPublisher(source Source, sweeper Sweeper, writers []model.SnapshotWriter, interval string) (*Publisher, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry interval: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("telemetry interval must be a positive duration")
	}
	return &Publisher{
		source:   source,
		sweeper:  sweeper,
		writers:  writers,
		interval: d,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the periodic publishing in the background.
func (p *Publisher) Start() {
	log.Printf("Telemetry publisher started (%d sink(s), interval %s)", len(p.writers), p.interval)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.PublishOnce()
			case <-p.stopChan:
				return
			}
		}
	}()
}

// Stop ends the loop and publishes a last snapshot.
func (p *Publisher) Stop() {
	log.Println("Stopping telemetry publisher...")
	close(p.stopChan)
	p.wg.Wait()
	p.PublishOnce()
}

// PublishOnce writes one snapshot to all sinks and returns the number of
// sinks that failed. A failed sink is retried on the next cycle only.
func (p *Publisher) PublishOnce() int {
	if p.sweeper != nil {
		if n := p.sweeper.Sweep(); n > 0 {
			log.Printf("Block TTL expired for %d source(s)", n)
		}
	}
	snap := p.source.Snapshot()

	failed := 0
	for _, w := range p.writers {
		if err := w.Write(snap); err != nil {
			failed++
			metrics.SnapshotWriteErrors.WithLabelValues(w.Name()).Inc()
			log.Printf("ERROR: failed to write snapshot to %s: %v", w.Name(), err)
		}
	}
	return failed
}
