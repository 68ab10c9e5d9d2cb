package controller

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"SDNGuard/internal/transport"
	"context"
	"net"
	"sync"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countPredictor flags flows at or above a packet count as malicious.
type countPredictor struct{ threshold float64 }

func (p countPredictor) Predict(_ context.Context, f []float64) (model.Verdict, error) {
	if f[0] >= p.threshold {
		return model.VerdictMalicious, nil
	}
	return model.VerdictBenign, nil
}

type memExporter struct {
	mu      sync.Mutex
	records []model.TrainingRecord
}

func (m *memExporter) Export(_ context.Context, r []model.TrainingRecord) error {
	m.mu.Lock()
	m.records = append(m.records, r...)
	m.mu.Unlock()
	return nil
}

func (m *memExporter) Close() error { return nil }

func ipv4Frame(t *testing.T, srcMAC, dstMAC net.HardwareAddr, src, dst net.IP) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: src, DstIP: dst}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 80}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload("x")))
	return buf.Bytes()
}

var (
	mac1 = net.HardwareAddr{0, 0, 0, 0, 0, 1}
	mac2 = net.HardwareAddr{0, 0, 0, 0, 0, 2}
	mac5 = net.HardwareAddr{0, 0, 0, 0, 0, 5}
)

func newController(t *testing.T, cfg *config.Config, deps Deps) (*Controller, *transport.Recorder) {
	t.Helper()
	rec := transport.NewRecorder(false)
	deps.Sender = rec
	c, err := New(cfg, deps)
	require.NoError(t, err)
	return c, rec
}

func TestConnect_InstallsTableMiss(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{Predictor: countPredictor{500}})
	c.Dispatch(model.Event{Kind: model.EventSwitchConnect, Datapath: 1})

	adds := rec.Commands(model.CmdAddFlow)
	require.Len(t, adds, 1)
	miss := adds[0].Command
	assert.Equal(t, TableMissPriority, miss.Priority)
	assert.True(t, miss.Match.IsEmpty())
	assert.Equal(t, []model.Action{{Port: model.PortController, MaxLen: model.MaxLenNoBuffer}}, miss.Actions)
	assert.Equal(t, []model.DatapathID{1}, c.Registry().Datapaths())
}

func TestScenarioA_EndToEnd(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{Predictor: countPredictor{500}})
	ctx := context.Background()
	require.NoError(t, c.HandleConnect(ctx, 1))

	// h2 talks first so h5's traffic has a known destination
	require.NoError(t, c.HandlePacketIn(ctx, model.Event{
		Kind: model.EventPacketIn, Datapath: 1, InPort: 2, BufferID: model.NoBuffer,
		Data: ipv4Frame(t, mac2, mac5, net.IP{10, 0, 0, 2}, net.IP{10, 0, 0, 5}),
	}))
	require.NoError(t, c.HandlePacketIn(ctx, model.Event{
		Kind: model.EventPacketIn, Datapath: 1, InPort: 5, BufferID: model.NoBuffer,
		Data: ipv4Frame(t, mac5, mac2, net.IP{10, 0, 0, 5}, net.IP{10, 0, 0, 2}),
	}))
	rec.Reset()

	rule := model.Match{InPort: 5, EthType: model.EthTypeIPv4, IPv4Src: "10.0.0.5", IPv4Dst: "10.0.0.2"}
	c.Dispatch(model.Event{Kind: model.EventFlowStatsReply, Datapath: 1, Flows: []model.FlowSample{
		{Priority: 0, PacketCount: 4, ByteCount: 400},
		{Priority: 1, PacketCount: 1000, ByteCount: 900000, DurationSec: 30, Match: rule},
	}})

	adds := rec.Commands(model.CmdAddFlow)
	require.Len(t, adds, 1)
	assert.Equal(t, uint16(2), adds[0].Command.Priority)
	assert.Equal(t, uint16(60), adds[0].Command.IdleTimeout)
	assert.Equal(t, "10.0.0.5", adds[0].Command.Match.IPv4Src)

	dels := rec.Commands(model.CmdDeleteFlowStrict)
	require.Len(t, dels, 1)
	assert.Equal(t, rule, dels[0].Command.Match)

	assert.True(t, c.Mitigation().IsBlocked("10.0.0.5"))
	snap := c.Snapshot()
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, "10.0.0.5", snap.Alerts[0].SrcIP)
}

func TestPacketIn_BlockedSourceDroppedFirst(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{Predictor: countPredictor{500}})
	ctx := context.Background()
	require.NoError(t, c.HandleConnect(ctx, 1))
	require.NoError(t, c.Mitigation().Apply(ctx, 1, model.FlowSample{
		Priority: 1, PacketCount: 1000,
		Match: model.Match{IPv4Src: "10.0.0.5", IPv4Dst: "10.0.0.2"},
	}, model.VerdictMalicious))
	rec.Reset()

	// destination unknown: a non-blocked source would be flooded
	require.NoError(t, c.HandlePacketIn(ctx, model.Event{
		Kind: model.EventPacketIn, Datapath: 1, InPort: 5, BufferID: model.NoBuffer,
		Data: ipv4Frame(t, mac5, mac2, net.IP{10, 0, 0, 5}, net.IP{10, 0, 0, 2}),
	}))
	assert.Empty(t, rec.Sent(), "no rule and no packet-out for a blocked source")
	_, learned := c.Registry().Table(1).Lookup(mac5.String())
	assert.False(t, learned, "blocked frames are not learned")

	require.NoError(t, c.HandlePacketIn(ctx, model.Event{
		Kind: model.EventPacketIn, Datapath: 1, InPort: 1, BufferID: model.NoBuffer,
		Data: ipv4Frame(t, mac1, mac2, net.IP{10, 0, 0, 1}, net.IP{10, 0, 0, 2}),
	}))
	outs := rec.Commands(model.CmdPacketOut)
	require.Len(t, outs, 1)
	assert.Equal(t, model.PortFlood, outs[0].Command.Actions[0].Port)
}

func TestPacketIn_Malformed(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{})
	err := c.HandlePacketIn(context.Background(), model.Event{Kind: model.EventPacketIn, Datapath: 1, Data: []byte{1, 2}})
	assert.Error(t, err)
	assert.Empty(t, rec.Sent())
}

func TestFlowStats_ThroughputSnapshot(t *testing.T) {
	c, _ := newController(t, config.Default(), Deps{})
	ctx := context.Background()

	c.HandleFlowStats(ctx, 1, []model.FlowSample{{Priority: 1, ByteCount: 5000, PacketCount: 5}})
	assert.Equal(t, 1000.0, c.Snapshot().TrafficStats.BytesPerSec)

	c.HandleFlowStats(ctx, 1, []model.FlowSample{{Priority: 1, ByteCount: 3000, PacketCount: 3}})
	assert.Equal(t, 0.0, c.Snapshot().TrafficStats.BytesPerSec)
	assert.NotNil(t, c.Snapshot().Alerts)
}

func TestFlowStats_SilentSwitchLeavesNoStaleRate(t *testing.T) {
	c, _ := newController(t, config.Default(), Deps{})
	ctx := context.Background()

	c.HandleFlowStats(ctx, 1, []model.FlowSample{{Priority: 1, ByteCount: 5000, PacketCount: 5}})
	c.HandleFlowStats(ctx, 2, []model.FlowSample{{Priority: 1, ByteCount: 55000, PacketCount: 50}})
	assert.Equal(t, 10000.0, c.Snapshot().TrafficStats.BytesPerSec)

	for i := 0; i < 100; i++ {
		c.HandleFlowStats(ctx, 1, []model.FlowSample{{Priority: 1, ByteCount: 5000, PacketCount: 5}})
	}
	assert.Equal(t, 0.0, c.Snapshot().TrafficStats.BytesPerSec)
}

func TestDegradedMode(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{})
	assert.True(t, c.Degraded())

	c.HandleFlowStats(context.Background(), 1, []model.FlowSample{
		{Priority: 1, PacketCount: 1000, ByteCount: 900000, Match: model.Match{IPv4Src: "10.0.0.5"}},
	})
	assert.Empty(t, rec.Sent())
	assert.False(t, c.Mitigation().IsBlocked("10.0.0.5"))
}

func TestCollectorMode_Exports(t *testing.T) {
	cfg := config.Default()
	cfg.Agent.Mode = config.ModeCollector
	exp := &memExporter{}
	c, rec := newController(t, cfg, Deps{Exporter: exp, Predictor: countPredictor{0}})
	assert.False(t, c.Degraded())

	c.HandleFlowStats(context.Background(), 2, []model.FlowSample{
		{Priority: 0, PacketCount: 9, ByteCount: 900},
		{Priority: 1, PacketCount: 10, ByteCount: 980, DurationSec: 9, Match: model.Match{IPv4Src: "10.0.0.1"}},
	})

	require.Len(t, exp.records, 1)
	assert.Equal(t, model.DatapathID(2), exp.records[0].Datapath)
	assert.Equal(t, uint64(980), exp.records[0].ByteCount)
	assert.Empty(t, rec.Sent(), "collector mode never classifies or blocks")
}

func TestDispatch_UnknownKindIgnored(t *testing.T) {
	c, rec := newController(t, config.Default(), Deps{})
	c.Dispatch(model.Event{Kind: model.EventKind(99), Datapath: 1})
	assert.Empty(t, rec.Sent())
	assert.Zero(t, c.Registry().Len())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.Default(), Deps{})
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Agent.Mode = "router"
	_, err = New(cfg, Deps{Sender: transport.NewRecorder(false)})
	assert.Error(t, err)
}
