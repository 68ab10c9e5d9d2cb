// Package replay plays a packet capture into the agent as if one switch had
// sent every frame to the controller.
package replay

import (
	"SDNGuard/internal/model"
	"SDNGuard/internal/protocol"
	"SDNGuard/pkg/pcap"
	"context"
	"fmt"
	"log"
	"time"
)

// EventPublisher is where replayed events go. *transport.Bridge satisfies it.
type EventPublisher interface {
	PublishEvent(ev model.Event) error
}

// Replayer turns captured frames into switch events. Each distinct source
// MAC gets its own ingress port, numbered from 1 in order of appearance.
type Replayer struct {
	pub      EventPublisher
	datapath model.DatapathID
	interval time.Duration
	ports    map[string]model.PortNo
}

// Stats summarises a replay.
type Stats struct {
	Published int
	Skipped   int
}

// New creates a replayer for datapath. interval is the pause between frames.
func New(pub EventPublisher, datapath model.DatapathID, interval time.Duration) *Replayer {
	return &Replayer{
		pub:      pub,
		datapath: datapath,
		interval: interval,
		ports:    make(map[string]model.PortNo),
	}
}

// Port returns the ingress port assigned to mac, assigning a new one if needed.
func (r *Replayer) Port(mac string) model.PortNo {
	if p, ok := r.ports[mac]; ok {
		return p
	}
	p := model.PortNo(len(r.ports) + 1)
	r.ports[mac] = p
	return p
}

// Run announces the switch and publishes a packet-in per frame until frames
// is closed or ctx ends.
func (r *Replayer) Run(ctx context.Context, frames <-chan pcap.Frame) (Stats, error) {
	var st Stats
	if err := r.pub.PublishEvent(model.Event{Kind: model.EventSwitchConnect, Datapath: r.datapath}); err != nil {
		return st, fmt.Errorf("failed to publish switch connect: %w", err)
	}

	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		var f pcap.Frame
		var ok bool
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case f, ok = <-frames:
			if !ok {
				return st, nil
			}
		}

		parsed, err := protocol.ParseFrame(f.Data)
		if err != nil {
			st.Skipped++
			continue
		}
		ev := model.Event{
			Kind:     model.EventPacketIn,
			Datapath: r.datapath,
			InPort:   r.Port(parsed.EthSrc.String()),
			BufferID: model.NoBuffer,
			Data:     f.Data,
		}
		if err := r.pub.PublishEvent(ev); err != nil {
			return st, fmt.Errorf("failed to publish packet-in: %w", err)
		}
		st.Published++
		if st.Published%1000 == 0 {
			log.Printf("%d frames replayed...", st.Published)
		}

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return st, ctx.Err()
			}
		}
	}
}
