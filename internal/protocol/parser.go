package protocol

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IPv4Header holds the addresses of an IPv4 payload.
type IPv4Header struct {
	Src      net.IP
	Dst      net.IP
	Protocol layers.IPProtocol
}

// Frame holds the fields of a frame-in payload the forwarder acts on.
type Frame struct {
	EthSrc  net.HardwareAddr
	EthDst  net.HardwareAddr
	EthType layers.EthernetType
	// IPv4 is nil unless the frame carries a decodable IPv4 packet.
	IPv4   *IPv4Header
	Length int
}

// IsIPv4 reports whether the Ethernet type announces IPv4.
func (f *Frame) IsIPv4() bool {
	return f.EthType == layers.EthernetTypeIPv4
}

// SrcIP returns the IPv4 source as a string, or "" for non-IP frames.
func (f *Frame) SrcIP() string {
	if f.IPv4 == nil {
		return ""
	}
	return f.IPv4.Src.String()
}

// ParseFrame uses gopacket to decode a raw Ethernet frame.
func ParseFrame(data []byte) (*Frame, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	l := packet.Layer(layers.LayerTypeEthernet)
	if l == nil {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return nil, fmt.Errorf("not an ethernet frame: %w", errLayer.Error())
		}
		return nil, fmt.Errorf("not an ethernet frame")
	}
	eth := l.(*layers.Ethernet)

	frame := &Frame{
		EthSrc:  eth.SrcMAC,
		EthDst:  eth.DstMAC,
		EthType: eth.EthernetType,
		Length:  len(data),
	}

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		frame.IPv4 = &IPv4Header{Src: ip.SrcIP, Dst: ip.DstIP, Protocol: ip.Protocol}
	}

	return frame, nil
}
