package model

// EventKind tags the inbound events delivered by the switch-control transport.
type EventKind int

const (
	EventSwitchConnect EventKind = iota + 1
	EventPacketIn
	EventFlowStatsReply
)

func (k EventKind) String() string {
	switch k {
	case EventSwitchConnect:
		return "connect"
	case EventPacketIn:
		return "packet_in"
	case EventFlowStatsReply:
		return "flow_stats"
	}
	return "unknown"
}

// ParseEventKind is the inverse of EventKind.String. It returns 0 for unknown names.
func ParseEventKind(s string) EventKind {
	switch s {
	case "connect":
		return EventSwitchConnect
	case "packet_in":
		return EventPacketIn
	case "flow_stats":
		return EventFlowStatsReply
	}
	return 0
}

// Event is an inbound protocol event. Which fields are set depends on Kind:
// PacketIn uses InPort, BufferID and Data; FlowStatsReply uses Flows.
type Event struct {
	Kind     EventKind
	Datapath DatapathID
	InPort   PortNo
	BufferID uint32
	Data     []byte
	Flows    []FlowSample
}

// Dispatcher consumes inbound events.
type Dispatcher interface {
	Dispatch(ev Event)
}
