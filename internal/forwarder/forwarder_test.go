package forwarder

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"SDNGuard/internal/protocol"
	"SDNGuard/internal/registry"
	"SDNGuard/internal/transport"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	macH1 = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	macH2 = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func newForwarder(t *testing.T) (*Forwarder, *registry.Registry, *transport.Recorder) {
	t.Helper()
	reg := registry.New()
	rec := transport.NewRecorder(false)
	f, err := New(reg, rec, config.Default().Forwarder)
	require.NoError(t, err)
	return f, reg, rec
}

func ipv4Frame(src, dst net.HardwareAddr, srcIP, dstIP net.IP) *protocol.Frame {
	return &protocol.Frame{
		EthSrc:  src,
		EthDst:  dst,
		EthType: layers.EthernetTypeIPv4,
		IPv4:    &protocol.IPv4Header{Src: srcIP, Dst: dstIP, Protocol: layers.IPProtocolICMPv4},
	}
}

func packetIn(dpid model.DatapathID, port model.PortNo) model.Event {
	return model.Event{
		Kind:     model.EventPacketIn,
		Datapath: dpid,
		InPort:   port,
		BufferID: model.NoBuffer,
		Data:     []byte{0xde, 0xad},
	}
}

func TestHandleFrame_UnknownDestinationFloods(t *testing.T) {
	f, reg, rec := newForwarder(t)
	frame := ipv4Frame(macH1, macH2, net.IP{10, 0, 0, 1}, net.IP{10, 0, 0, 2})

	d, err := f.HandleFrame(context.Background(), packetIn(1, 1), frame)
	require.NoError(t, err)
	assert.Equal(t, model.PortFlood, d.OutPort)
	assert.False(t, d.RuleInstalled)

	assert.Empty(t, rec.Commands(model.CmdAddFlow))
	outs := rec.Commands(model.CmdPacketOut)
	require.Len(t, outs, 1)
	assert.Equal(t, []model.Action{model.Output(model.PortFlood)}, outs[0].Command.Actions)
	assert.Equal(t, []byte{0xde, 0xad}, outs[0].Command.Data)

	port, ok := reg.Table(1).Lookup(macH1.String())
	require.True(t, ok)
	assert.Equal(t, model.PortNo(1), port)
}

func TestHandleFrame_KnownDestinationInstallsIPv4Rule(t *testing.T) {
	f, reg, rec := newForwarder(t)
	reg.Table(1).Learn(macH2.String(), 2)

	frame := ipv4Frame(macH1, macH2, net.IP{10, 0, 0, 1}, net.IP{10, 0, 0, 2})
	d, err := f.HandleFrame(context.Background(), packetIn(1, 1), frame)
	require.NoError(t, err)
	assert.Equal(t, model.PortNo(2), d.OutPort)
	assert.True(t, d.RuleInstalled)

	adds := rec.Commands(model.CmdAddFlow)
	require.Len(t, adds, 1)
	rule := adds[0].Command
	assert.Equal(t, RulePriority, rule.Priority)
	assert.Equal(t, uint16(15), rule.IdleTimeout)
	assert.Equal(t, model.Match{
		InPort:  1,
		EthType: model.EthTypeIPv4,
		IPv4Src: "10.0.0.1",
		IPv4Dst: "10.0.0.2",
	}, rule.Match)
	assert.Equal(t, []model.Action{model.Output(2)}, rule.Actions)

	outs := rec.Commands(model.CmdPacketOut)
	require.Len(t, outs, 1)
	assert.Equal(t, model.PortNo(1), outs[0].Command.InPort)
	assert.Equal(t, model.NoBuffer, outs[0].Command.BufferID)
}

func TestHandleFrame_NonIPUsesMACPair(t *testing.T) {
	f, reg, rec := newForwarder(t)
	reg.Table(1).Learn(macH2.String(), 3)

	frame := &protocol.Frame{EthSrc: macH1, EthDst: macH2, EthType: layers.EthernetTypeARP}
	d, err := f.HandleFrame(context.Background(), packetIn(1, 1), frame)
	require.NoError(t, err)
	assert.Equal(t, model.Match{InPort: 1, EthSrc: macH1.String(), EthDst: macH2.String()}, d.Rule)
	require.Len(t, rec.Commands(model.CmdAddFlow), 1)
}

func TestHandleFrame_UndecodableIPv4GetsNoRule(t *testing.T) {
	f, reg, rec := newForwarder(t)
	reg.Table(1).Learn(macH2.String(), 2)

	frame := &protocol.Frame{EthSrc: macH1, EthDst: macH2, EthType: layers.EthernetTypeIPv4}
	d, err := f.HandleFrame(context.Background(), packetIn(1, 1), frame)
	require.NoError(t, err)
	assert.False(t, d.RuleInstalled)
	assert.Empty(t, rec.Commands(model.CmdAddFlow))
	assert.Len(t, rec.Commands(model.CmdPacketOut), 1)
}

func TestHandleFrame_TablesArePerSwitch(t *testing.T) {
	f, reg, rec := newForwarder(t)
	reg.Table(1).Learn(macH2.String(), 2)

	frame := ipv4Frame(macH1, macH2, net.IP{10, 0, 0, 1}, net.IP{10, 0, 0, 2})
	d, err := f.HandleFrame(context.Background(), packetIn(2, 1), frame)
	require.NoError(t, err)
	assert.Equal(t, model.PortFlood, d.OutPort)
	assert.Empty(t, rec.Commands(model.CmdAddFlow))
}

func TestHandleFrame_SendFailure(t *testing.T) {
	f, reg, rec := newForwarder(t)
	reg.Table(1).Learn(macH2.String(), 2)
	rec.FailFor(1, errors.New("switch gone"))

	frame := ipv4Frame(macH1, macH2, net.IP{10, 0, 0, 1}, net.IP{10, 0, 0, 2})
	d, err := f.HandleFrame(context.Background(), packetIn(1, 1), frame)
	assert.Error(t, err)
	assert.False(t, d.RuleInstalled)
	assert.Equal(t, model.PortNo(2), d.OutPort)
}

func TestNew_InvalidIdleTimeout(t *testing.T) {
	cfg := config.Default().Forwarder
	cfg.IdleTimeout = "100000h"
	_, err := New(registry.New(), transport.NewRecorder(false), cfg)
	assert.Error(t, err)
}
