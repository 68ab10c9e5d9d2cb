package poller

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Switches lists the datapaths to poll. *registry.Registry satisfies it.
type Switches interface {
	Datapaths() []model.DatapathID
}

// Poller periodically asks every connected switch for its flow statistics.
// Replies arrive later as events and are not awaited here.
type Poller struct {
	switches    Switches
	sender      model.Sender
	interval    time.Duration
	sendTimeout time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a poller.
func New(switches Switches, sender model.Sender, cfg config.PollerConfig) (*Poller, error) {
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid poller interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poller interval must be a positive duration")
	}
	sendTimeout, err := time.ParseDuration(cfg.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid poller send_timeout: %w", err)
	}
	return &Poller{
		switches:    switches,
		sender:      sender,
		interval:    interval,
		sendTimeout: sendTimeout,
		stopChan:    make(chan struct{}),
	}, nil
}

// Interval is the polling period. The throughput estimator divides by it.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start runs the polling loop in the background.
func (p *Poller) Start() {
	log.Printf("Stats poller started (interval %s)", p.interval)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Tick()
			case <-p.stopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop. Requests already in flight finish on their own timeout.
func (p *Poller) Stop() {
	log.Println("Stopping stats poller...")
	close(p.stopChan)
	p.wg.Wait()
}

// Tick sends one FlowStatsRequest to every switch, each in its own goroutine,
// and returns without waiting for them.
func (p *Poller) Tick() {
	for _, dpid := range p.switches.Datapaths() {
		go p.request(dpid)
	}
}

// TickAndWait is Tick that returns once every request has been sent or has
// failed. It returns the number of failed requests.
func (p *Poller) TickAndWait() int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for _, dpid := range p.switches.Datapaths() {
		wg.Add(1)
		go func(dpid model.DatapathID) {
			defer wg.Done()
			if err := p.request(dpid); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(dpid)
	}
	wg.Wait()
	return failed
}

func (p *Poller) request(dpid model.DatapathID) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	defer cancel()

	metrics.StatsRequests.Inc()
	if err := p.sender.Send(ctx, dpid, model.FlowStatsRequest()); err != nil {
		metrics.StatsRequestErrors.Inc()
		log.Printf("ERROR: failed to request flow stats from switch %s: %v", dpid, err)
		return err
	}
	return nil
}
