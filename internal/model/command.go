package model

import (
	"context"
	"errors"
)

// CommandKind tags the outbound commands understood by the transport.
type CommandKind int

const (
	CmdAddFlow CommandKind = iota + 1
	CmdDeleteFlowStrict
	CmdPacketOut
	CmdFlowStatsRequest
)

func (k CommandKind) String() string {
	switch k {
	case CmdAddFlow:
		return "add_flow"
	case CmdDeleteFlowStrict:
		return "delete_flow_strict"
	case CmdPacketOut:
		return "packet_out"
	case CmdFlowStatsRequest:
		return "flow_stats_request"
	}
	return "unknown"
}

// ParseCommandKind is the inverse of CommandKind.String. It returns 0 for unknown names.
func ParseCommandKind(s string) CommandKind {
	switch s {
	case "add_flow":
		return CmdAddFlow
	case "delete_flow_strict":
		return CmdDeleteFlowStrict
	case "packet_out":
		return CmdPacketOut
	case "flow_stats_request":
		return CmdFlowStatsRequest
	}
	return 0
}

// Command is an outbound instruction for one switch.
type Command struct {
	Kind        CommandKind
	Priority    uint16
	Match       Match
	Actions     []Action
	IdleTimeout uint16 // seconds, 0 = permanent
	BufferID    uint32
	InPort      PortNo
	Data        []byte
}

// AddFlow installs a rule. An empty actions slice installs a drop rule.
func AddFlow(priority uint16, match Match, actions []Action, idleTimeout uint16) Command {
	return Command{Kind: CmdAddFlow, Priority: priority, Match: match, Actions: actions, IdleTimeout: idleTimeout}
}

// DeleteFlowStrict removes exactly the rule with this priority and match.
func DeleteFlowStrict(priority uint16, match Match) Command {
	return Command{Kind: CmdDeleteFlowStrict, Priority: priority, Match: match}
}

// PacketOut sends a frame out of the switch.
func PacketOut(bufferID uint32, inPort PortNo, actions []Action, data []byte) Command {
	return Command{Kind: CmdPacketOut, BufferID: bufferID, InPort: inPort, Actions: actions, Data: data}
}

// FlowStatsRequest asks a switch for counters of all its rules.
func FlowStatsRequest() Command {
	return Command{Kind: CmdFlowStatsRequest}
}

// ErrNotConnected is returned by senders that have no channel to the switch.
var ErrNotConnected = errors.New("switch not connected")

// Sender delivers commands to switches. It is the only capability the core
// needs from the switch-control transport.
type Sender interface {
	Send(ctx context.Context, dpid DatapathID, cmd Command) error
}
