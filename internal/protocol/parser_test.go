package protocol

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	macA = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	macB = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func TestParseFrame_IPv4(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, eth, ip, udp, gopacket.Payload([]byte("hello")))

	frame, err := ParseFrame(data)
	require.NoError(t, err)

	assert.Equal(t, macA.String(), frame.EthSrc.String())
	assert.Equal(t, macB.String(), frame.EthDst.String())
	assert.True(t, frame.IsIPv4())
	require.NotNil(t, frame.IPv4)
	assert.Equal(t, "10.0.0.1", frame.SrcIP())
	assert.Equal(t, "10.0.0.2", frame.IPv4.Dst.String())
	assert.Equal(t, layers.IPProtocolUDP, frame.IPv4.Protocol)
	assert.Equal(t, len(data), frame.Length)
}

func TestParseFrame_ARP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       macA,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   macA,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 0, 2},
	}

	frame, err := ParseFrame(serialize(t, eth, arp))
	require.NoError(t, err)
	assert.False(t, frame.IsIPv4())
	assert.Nil(t, frame.IPv4)
	assert.Equal(t, "", frame.SrcIP())
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", frame.EthDst.String())
}

func TestParseFrame_Truncated(t *testing.T) {
	_, err := ParseFrame([]byte{0x00, 0x01, 0x02})
	assert.Error(t, err)
}
