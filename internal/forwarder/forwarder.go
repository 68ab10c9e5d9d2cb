package forwarder

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"SDNGuard/internal/protocol"
	"SDNGuard/internal/registry"
	"context"
	"fmt"
	"log"
	"time"
)

// RulePriority is the priority of the per-flow forwarding rules. Flow stats
// at this priority are the ones handed to the classifier.
const RulePriority uint16 = 1

// Forwarder is a learning layer-2 switch: it learns source MACs per port,
// forwards to the learned port or floods, and installs a narrow rule for
// resolved destinations so later frames stay in the switch.
type Forwarder struct {
	registry    *registry.Registry
	sender      model.Sender
	idleTimeout uint16
	sendTimeout time.Duration
}

// New creates a forwarder that records MACs in reg and sends through sender.
func New(reg *registry.Registry, sender model.Sender, cfg config.ForwarderConfig) (*Forwarder, error) {
	idle, err := config.RuleTimeout(cfg.IdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid forwarder idle_timeout: %w", err)
	}
	sendTimeout, err := time.ParseDuration(cfg.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid forwarder send_timeout: %w", err)
	}
	return &Forwarder{
		registry:    reg,
		sender:      sender,
		idleTimeout: idle,
		sendTimeout: sendTimeout,
	}, nil
}

// Decision is the outcome of handling one frame.
type Decision struct {
	OutPort       model.PortNo
	RuleInstalled bool
	Rule          model.Match
}

// HandleFrame learns the source, picks the output port, installs a rule when
// the destination is known and always sends the frame itself back out so the
// first packet of a flow is not lost while the rule is being installed.
func (f *Forwarder) HandleFrame(ctx context.Context, ev model.Event, frame *protocol.Frame) (Decision, error) {
	table := f.registry.Table(ev.Datapath)
	src, dst := frame.EthSrc.String(), frame.EthDst.String()

	table.Learn(src, ev.InPort)

	out, ok := table.Lookup(dst)
	if !ok {
		out = model.PortFlood
	}
	actions := []model.Action{model.Output(out)}
	decision := Decision{OutPort: out}

	if out != model.PortFlood {
		match, ok := ruleMatch(ev.InPort, frame)
		if ok {
			decision.Rule = match
			if err := f.send(ctx, ev.Datapath, model.AddFlow(RulePriority, match, actions, f.idleTimeout)); err != nil {
				log.Printf("ERROR: failed to install forwarding rule on switch %s: %v", ev.Datapath, err)
			} else {
				decision.RuleInstalled = true
				metrics.FlowModsSent.WithLabelValues("forward").Inc()
			}
		}
	}

	if err := f.send(ctx, ev.Datapath, model.PacketOut(ev.BufferID, ev.InPort, actions, ev.Data)); err != nil {
		return decision, fmt.Errorf("failed to send packet out to switch %s: %w", ev.Datapath, err)
	}
	return decision, nil
}

// ruleMatch builds the match for a forwarding rule: the IPv4 address pair for
// IP traffic, the MAC pair otherwise. An IPv4 ethertype with an undecodable
// header gets no rule.
func ruleMatch(inPort model.PortNo, frame *protocol.Frame) (model.Match, bool) {
	if frame.IsIPv4() {
		if frame.IPv4 == nil {
			return model.Match{}, false
		}
		return model.Match{
			InPort:  inPort,
			EthType: model.EthTypeIPv4,
			IPv4Src: frame.IPv4.Src.String(),
			IPv4Dst: frame.IPv4.Dst.String(),
		}, true
	}
	return model.Match{
		InPort: inPort,
		EthSrc: frame.EthSrc.String(),
		EthDst: frame.EthDst.String(),
	}, true
}

func (f *Forwarder) send(ctx context.Context, dpid model.DatapathID, cmd model.Command) error {
	ctx, cancel := context.WithTimeout(ctx, f.sendTimeout)
	defer cancel()
	return f.sender.Send(ctx, dpid, cmd)
}
