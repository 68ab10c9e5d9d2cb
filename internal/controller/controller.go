// Package controller owns the agent's mutable state and routes switch
// events to the components that act on them.
package controller

import (
	"SDNGuard/internal/classifier"
	"SDNGuard/internal/config"
	"SDNGuard/internal/export"
	"SDNGuard/internal/forwarder"
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/mitigation"
	"SDNGuard/internal/model"
	"SDNGuard/internal/protocol"
	"SDNGuard/internal/registry"
	"SDNGuard/internal/throughput"
	"context"
	"fmt"
	"log"
	"time"
)

// TableMissPriority is the priority of the rule sending unmatched traffic to
// the controller.
const TableMissPriority uint16 = 0

// Deps are the outside collaborators of a controller. Predictor, Exporter
// and Notifier may be nil.
type Deps struct {
	Sender    model.Sender
	Predictor model.Predictor
	Exporter  model.Exporter
	Notifier  model.Notifier
}

// Controller is the single owner of the switch registry, the MAC tables, the
// throughput counters, the blocked set and the alert log.
type Controller struct {
	mode        string
	sender      model.Sender
	sendTimeout time.Duration
	now         func() time.Time

	registry   *registry.Registry
	forwarder  *forwarder.Forwarder
	estimator  *throughput.Estimator
	mitigation *mitigation.Engine
	classifier *classifier.Classifier
	exporter   model.Exporter
}

// New builds a controller from cfg.
func New(cfg *config.Config, deps Deps) (*Controller, error) {
	if deps.Sender == nil {
		return nil, fmt.Errorf("controller needs a sender")
	}
	reg := registry.New()

	fwd, err := forwarder.New(reg, deps.Sender, cfg.Forwarder)
	if err != nil {
		return nil, err
	}
	engine, err := mitigation.New(deps.Sender, deps.Notifier, cfg.Mitigation)
	if err != nil {
		return nil, err
	}
	interval, err := time.ParseDuration(cfg.Poller.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid poller interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poller interval must be a positive duration")
	}
	sendTimeout, err := time.ParseDuration(cfg.Forwarder.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid forwarder send_timeout: %w", err)
	}

	c := &Controller{
		mode:        cfg.Agent.Mode,
		sender:      deps.Sender,
		sendTimeout: sendTimeout,
		now:         time.Now,
		registry:    reg,
		forwarder:   fwd,
		estimator:   throughput.New(interval),
		mitigation:  engine,
	}

	switch cfg.Agent.Mode {
	case config.ModeIDS:
		if deps.Predictor != nil {
			timeout, err := time.ParseDuration(cfg.Predictor.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid predictor timeout: %w", err)
			}
			c.classifier = classifier.New(deps.Predictor, engine, timeout)
		} else {
			log.Println("Warning: no predictor loaded, running without classification")
		}
	case config.ModeCollector:
		c.exporter = deps.Exporter
		if c.exporter == nil {
			log.Println("Warning: collector mode without an exporter, flow samples are discarded")
		}
	default:
		return nil, fmt.Errorf("unknown agent mode: '%s'", cfg.Agent.Mode)
	}
	return c, nil
}

// Degraded reports whether the agent runs in ids mode without a predictor.
func (c *Controller) Degraded() bool {
	return c.mode == config.ModeIDS && c.classifier == nil
}

// Registry returns the switch registry.
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// Mitigation returns the mitigation engine.
func (c *Controller) Mitigation() *mitigation.Engine {
	return c.mitigation
}

// Snapshot implements telemetry.Source.
func (c *Controller) Snapshot() model.Snapshot {
	return model.Snapshot{
		TrafficStats: model.TrafficStats{BytesPerSec: c.estimator.BytesPerSec()},
		Alerts:       c.mitigation.Alerts(),
	}
}

// Sweep implements telemetry.Sweeper.
func (c *Controller) Sweep() int {
	return c.mitigation.Sweep()
}

// Dispatch implements model.Dispatcher. Errors are logged here; the event
// source has no one to return them to.
func (c *Controller) Dispatch(ev model.Event) {
	ctx := context.Background()
	var err error
	switch ev.Kind {
	case model.EventSwitchConnect:
		err = c.HandleConnect(ctx, ev.Datapath)
	case model.EventPacketIn:
		err = c.HandlePacketIn(ctx, ev)
	case model.EventFlowStatsReply:
		c.HandleFlowStats(ctx, ev.Datapath, ev.Flows)
	default:
		log.Printf("Warning: ignoring event of unknown kind %d from switch %s", ev.Kind, ev.Datapath)
	}
	if err != nil {
		log.Printf("ERROR: %s event from switch %s: %v", ev.Kind, ev.Datapath, err)
	}
}

// HandleConnect registers the switch and installs the table-miss rule that
// sends every unmatched frame, unbuffered, to the controller.
func (c *Controller) HandleConnect(ctx context.Context, dpid model.DatapathID) error {
	if c.registry.Add(dpid) {
		log.Printf("Switch %s connected", dpid)
	} else {
		log.Printf("Switch %s reconnected", dpid)
	}
	metrics.Switches.Set(float64(c.registry.Len()))

	miss := model.AddFlow(TableMissPriority, model.Match{},
		[]model.Action{{Port: model.PortController, MaxLen: model.MaxLenNoBuffer}}, 0)

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	if err := c.sender.Send(ctx, dpid, miss); err != nil {
		return fmt.Errorf("failed to install table-miss rule: %w", err)
	}
	metrics.FlowModsSent.WithLabelValues("table_miss").Inc()
	return nil
}

// HandlePacketIn drops frames from blocked sources and hands the rest to
// the forwarder.
func (c *Controller) HandlePacketIn(ctx context.Context, ev model.Event) error {
	frame, err := protocol.ParseFrame(ev.Data)
	if err != nil {
		metrics.PacketIns.WithLabelValues("malformed").Inc()
		return fmt.Errorf("dropping undecodable frame: %w", err)
	}

	if src := frame.SrcIP(); src != "" && c.mitigation.IsBlocked(src) {
		metrics.PacketIns.WithLabelValues("blocked").Inc()
		return nil
	}

	d, err := c.forwarder.HandleFrame(ctx, ev, frame)
	if err != nil {
		metrics.PacketIns.WithLabelValues("error").Inc()
		return err
	}
	if d.OutPort == model.PortFlood {
		metrics.PacketIns.WithLabelValues("flooded").Inc()
	} else {
		metrics.PacketIns.WithLabelValues("forwarded").Inc()
	}
	return nil
}

// HandleFlowStats updates the throughput estimate, then classifies the
// samples (ids mode) or exports them (collector mode).
func (c *Controller) HandleFlowStats(ctx context.Context, dpid model.DatapathID, flows []model.FlowSample) {
	rate := c.estimator.Observe(throughput.CumulativeBytes(flows))
	metrics.Throughput.Set(rate)
	log.Printf("Switch %s: %d flow(s), %.1f B/s", dpid, len(flows), rate)

	if c.classifier != nil {
		res := c.classifier.Classify(ctx, dpid, flows)
		if res.Malicious > 0 {
			log.Printf("Warning: %d malicious flow(s) on switch %s", res.Malicious, dpid)
		}
	}

	if c.exporter != nil {
		records := export.Records(dpid, flows, c.now())
		if len(records) == 0 {
			return
		}
		if err := c.exporter.Export(ctx, records); err != nil {
			log.Printf("ERROR: failed to export training records: %v", err)
			return
		}
		metrics.ExportedRecords.Add(float64(len(records)))
		log.Printf("Exported %d training record(s) from switch %s", len(records), dpid)
	}
}
