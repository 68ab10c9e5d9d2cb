package transport

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// Bridge connects the agent to the switch-control transport over NATS.
// Inbound events arrive on <prefix>.event.<kind>; commands for a switch are
// published on <prefix>.cmd.<datapath>.
type Bridge struct {
	nc     *nats.Conn
	prefix string
	sub    *nats.Subscription
}

// Connect dials the NATS server named in cfg.
func Connect(cfg config.TransportConfig) (*Bridge, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sdnguard"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return NewBridge(nc, cfg.SubjectPrefix), nil
}

// NewBridge wraps an existing NATS connection.
func NewBridge(nc *nats.Conn, prefix string) *Bridge {
	return &Bridge{nc: nc, prefix: prefix}
}

// Conn exposes the underlying connection so other publishers can share it.
func (b *Bridge) Conn() *nats.Conn {
	return b.nc
}

// EventSubject is the subject events of the given kind are published on.
func EventSubject(prefix string, kind model.EventKind) string {
	return prefix + ".event." + kind.String()
}

// CommandSubject is the subject commands for dpid are published on.
func CommandSubject(prefix string, dpid model.DatapathID) string {
	return prefix + ".cmd." + dpid.String()
}

// Send implements model.Sender by publishing the encoded command.
func (b *Bridge) Send(ctx context.Context, dpid model.DatapathID, cmd model.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.nc == nil || b.nc.IsClosed() {
		return model.ErrNotConnected
	}
	data, err := EncodeCommand(dpid, cmd)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(CommandSubject(b.prefix, dpid), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", cmd.Kind, err)
	}
	return nil
}

// Start subscribes to all event subjects and hands decoded events to d.
// NATS delivers the messages of one subscription sequentially.
func (b *Bridge) Start(d model.Dispatcher) error {
	subject := b.prefix + ".event.*"
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data)
		if err != nil {
			log.Printf("Error decoding event on '%s': %v", msg.Subject, err)
			return
		}
		d.Dispatch(ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}
	b.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for switch events...", subject)
	return nil
}

// PublishEvent publishes an event as the switch-control transport would.
func (b *Bridge) PublishEvent(ev model.Event) error {
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(EventSubject(b.prefix, ev.Kind), data)
}

// Close unsubscribes and drains the NATS connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
