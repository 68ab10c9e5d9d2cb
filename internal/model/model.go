package model

import (
	"fmt"
	"time"
)

// DatapathID is the opaque 64-bit identifier a switch reports on connect.
type DatapathID uint64

// String renders the identifier the way switches print it: 16 hex digits.
func (d DatapathID) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// PortNo is a switch port number. Values above PortMax are reserved ports.
type PortNo uint32

const (
	PortMax        PortNo = 0xffffff00
	PortFlood      PortNo = 0xfffffffb
	PortController PortNo = 0xfffffffd
)

// String returns the port number, or the reserved port's name.
func (p PortNo) String() string {
	switch p {
	case PortFlood:
		return "FLOOD"
	case PortController:
		return "CONTROLLER"
	}
	return fmt.Sprintf("%d", uint32(p))
}

const (
	// NoBuffer marks a packet-in whose frame was not buffered on the switch.
	NoBuffer uint32 = 0xffffffff
	// MaxLenNoBuffer asks the switch to send the whole frame to the controller.
	MaxLenNoBuffer uint16 = 0xffff

	EthTypeIPv4 uint16 = 0x0800
)

// Match holds the match criteria of a flow rule. A zero field is a wildcard.
type Match struct {
	InPort  PortNo `json:"in_port,omitempty"`
	EthType uint16 `json:"eth_type,omitempty"`
	EthSrc  string `json:"eth_src,omitempty"`
	EthDst  string `json:"eth_dst,omitempty"`
	IPv4Src string `json:"ipv4_src,omitempty"`
	IPv4Dst string `json:"ipv4_dst,omitempty"`
}

// IsEmpty reports whether the match is the all-wildcard match.
func (m Match) IsEmpty() bool {
	return m == Match{}
}

// Action is an output action. A rule with no actions drops matching traffic.
type Action struct {
	Port   PortNo `json:"port"`
	MaxLen uint16 `json:"max_len,omitempty"`
}

// Output builds an action forwarding to port.
func Output(port PortNo) Action {
	return Action{Port: port}
}

// Verdict is the classifier output for one flow sample.
type Verdict int

const (
	VerdictBenign    Verdict = 0
	VerdictMalicious Verdict = 1
)

func (v Verdict) String() string {
	if v == VerdictMalicious {
		return "malicious"
	}
	return "benign"
}

// FlowSample is one entry of a flow-stats reply.
type FlowSample struct {
	PacketCount uint64
	ByteCount   uint64
	DurationSec uint32
	Priority    uint16
	Match       Match
}

// Features returns the classifier input vector: packet count, byte count, duration.
func (f FlowSample) Features() []float64 {
	return []float64{float64(f.PacketCount), float64(f.ByteCount), float64(f.DurationSec)}
}

// FeatureNames labels the columns returned by FlowSample.Features.
var FeatureNames = []string{"packet_count", "byte_count", "duration"}

// Alert is one entry of the recent-alerts log as shown on the dashboard.
type Alert struct {
	Timestamp  string `json:"timestamp"`
	SrcIP      string `json:"src_ip"`
	DstIP      string `json:"dst_ip"`
	AttackType string `json:"attack_type"`
	Action     string `json:"action"`
}

// TrafficStats carries the aggregate throughput estimate.
type TrafficStats struct {
	BytesPerSec float64 `json:"bytes_per_sec"`
}

// Snapshot is the telemetry document consumed by the dashboard.
type Snapshot struct {
	TrafficStats TrafficStats `json:"traffic_stats"`
	Alerts       []Alert      `json:"alerts"`
}

// EmptySnapshot is served whenever no valid snapshot is available.
func EmptySnapshot() Snapshot {
	return Snapshot{Alerts: []Alert{}}
}

// TrainingRecord is one row of the offline training export. Label is always
// empty at capture time and filled in by hand before training.
type TrainingRecord struct {
	CapturedAt  time.Time
	Datapath    DatapathID
	PacketCount uint64
	ByteCount   uint64
	Duration    uint32
	Label       string
}
