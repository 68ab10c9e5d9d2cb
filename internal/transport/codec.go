package transport

import (
	"SDNGuard/internal/model"
	"encoding/base64"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on the bridge are protobuf-encoded google.protobuf.Struct values.
// Numbers travel as doubles, so datapath IDs are sent as hex strings and the
// 64-bit packet and byte counters as decimal strings to keep all 64 bits;
// frame payloads are base64 strings.

// EncodeEvent serializes an inbound event.
func EncodeEvent(ev model.Event) ([]byte, error) {
	fields := map[string]interface{}{
		"kind":     ev.Kind.String(),
		"datapath": ev.Datapath.String(),
	}
	switch ev.Kind {
	case model.EventPacketIn:
		fields["in_port"] = float64(ev.InPort)
		fields["buffer_id"] = float64(ev.BufferID)
		fields["data"] = base64.StdEncoding.EncodeToString(ev.Data)
	case model.EventFlowStatsReply:
		flows := make([]interface{}, len(ev.Flows))
		for i, f := range ev.Flows {
			flows[i] = map[string]interface{}{
				"packet_count": strconv.FormatUint(f.PacketCount, 10),
				"byte_count":   strconv.FormatUint(f.ByteCount, 10),
				"duration_sec": float64(f.DurationSec),
				"priority":     float64(f.Priority),
				"match":        encodeMatch(f.Match),
			}
		}
		fields["flows"] = flows
	}
	return marshal(fields)
}

// DecodeEvent parses a message produced by EncodeEvent.
func DecodeEvent(data []byte) (model.Event, error) {
	fields, err := unmarshal(data)
	if err != nil {
		return model.Event{}, err
	}

	ev := model.Event{Kind: model.ParseEventKind(stringField(fields, "kind"))}
	if ev.Kind == 0 {
		return model.Event{}, fmt.Errorf("unknown event kind '%s'", stringField(fields, "kind"))
	}
	if ev.Datapath, err = parseDatapath(stringField(fields, "datapath")); err != nil {
		return model.Event{}, err
	}

	switch ev.Kind {
	case model.EventPacketIn:
		ev.InPort = model.PortNo(numberField(fields, "in_port"))
		ev.BufferID = uint32(numberField(fields, "buffer_id"))
		if ev.Data, err = base64.StdEncoding.DecodeString(stringField(fields, "data")); err != nil {
			return model.Event{}, fmt.Errorf("failed to decode packet-in data: %w", err)
		}
	case model.EventFlowStatsReply:
		raw, _ := fields["flows"].([]interface{})
		ev.Flows = make([]model.FlowSample, 0, len(raw))
		for i, item := range raw {
			f, ok := item.(map[string]interface{})
			if !ok {
				return model.Event{}, fmt.Errorf("flow %d is not an object", i)
			}
			packets, err := counterField(f, "packet_count")
			if err != nil {
				return model.Event{}, fmt.Errorf("flow %d: %w", i, err)
			}
			bytes, err := counterField(f, "byte_count")
			if err != nil {
				return model.Event{}, fmt.Errorf("flow %d: %w", i, err)
			}
			m, _ := f["match"].(map[string]interface{})
			ev.Flows = append(ev.Flows, model.FlowSample{
				PacketCount: packets,
				ByteCount:   bytes,
				DurationSec: uint32(numberField(f, "duration_sec")),
				Priority:    uint16(numberField(f, "priority")),
				Match:       decodeMatch(m),
			})
		}
	}
	return ev, nil
}

// EncodeCommand serializes an outbound command.
func EncodeCommand(dpid model.DatapathID, cmd model.Command) ([]byte, error) {
	actions := make([]interface{}, len(cmd.Actions))
	for i, a := range cmd.Actions {
		actions[i] = map[string]interface{}{"port": float64(a.Port), "max_len": float64(a.MaxLen)}
	}
	fields := map[string]interface{}{
		"kind":         cmd.Kind.String(),
		"datapath":     dpid.String(),
		"priority":     float64(cmd.Priority),
		"match":        encodeMatch(cmd.Match),
		"actions":      actions,
		"idle_timeout": float64(cmd.IdleTimeout),
		"buffer_id":    float64(cmd.BufferID),
		"in_port":      float64(cmd.InPort),
	}
	if len(cmd.Data) > 0 {
		fields["data"] = base64.StdEncoding.EncodeToString(cmd.Data)
	}
	return marshal(fields)
}

// DecodeCommand parses a message produced by EncodeCommand.
func DecodeCommand(data []byte) (model.DatapathID, model.Command, error) {
	fields, err := unmarshal(data)
	if err != nil {
		return 0, model.Command{}, err
	}
	cmd := model.Command{Kind: model.ParseCommandKind(stringField(fields, "kind"))}
	if cmd.Kind == 0 {
		return 0, model.Command{}, fmt.Errorf("unknown command kind '%s'", stringField(fields, "kind"))
	}
	dpid, err := parseDatapath(stringField(fields, "datapath"))
	if err != nil {
		return 0, model.Command{}, err
	}

	cmd.Priority = uint16(numberField(fields, "priority"))
	cmd.IdleTimeout = uint16(numberField(fields, "idle_timeout"))
	cmd.BufferID = uint32(numberField(fields, "buffer_id"))
	cmd.InPort = model.PortNo(numberField(fields, "in_port"))
	m, _ := fields["match"].(map[string]interface{})
	cmd.Match = decodeMatch(m)
	if raw, ok := fields["actions"].([]interface{}); ok {
		for _, item := range raw {
			a, _ := item.(map[string]interface{})
			cmd.Actions = append(cmd.Actions, model.Action{
				Port:   model.PortNo(numberField(a, "port")),
				MaxLen: uint16(numberField(a, "max_len")),
			})
		}
	}
	if s := stringField(fields, "data"); s != "" {
		if cmd.Data, err = base64.StdEncoding.DecodeString(s); err != nil {
			return 0, model.Command{}, fmt.Errorf("failed to decode packet-out data: %w", err)
		}
	}
	return dpid, cmd, nil
}

func encodeMatch(m model.Match) map[string]interface{} {
	out := make(map[string]interface{})
	if m.InPort != 0 {
		out["in_port"] = float64(m.InPort)
	}
	if m.EthType != 0 {
		out["eth_type"] = float64(m.EthType)
	}
	if m.EthSrc != "" {
		out["eth_src"] = m.EthSrc
	}
	if m.EthDst != "" {
		out["eth_dst"] = m.EthDst
	}
	if m.IPv4Src != "" {
		out["ipv4_src"] = m.IPv4Src
	}
	if m.IPv4Dst != "" {
		out["ipv4_dst"] = m.IPv4Dst
	}
	return out
}

func decodeMatch(fields map[string]interface{}) model.Match {
	if fields == nil {
		return model.Match{}
	}
	return model.Match{
		InPort:  model.PortNo(numberField(fields, "in_port")),
		EthType: uint16(numberField(fields, "eth_type")),
		EthSrc:  stringField(fields, "eth_src"),
		EthDst:  stringField(fields, "eth_dst"),
		IPv4Src: stringField(fields, "ipv4_src"),
		IPv4Dst: stringField(fields, "ipv4_dst"),
	}
}

func marshal(fields map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte) (map[string]interface{}, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return s.AsMap(), nil
}

func parseDatapath(s string) (model.DatapathID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid datapath id '%s': %w", s, err)
	}
	return model.DatapathID(v), nil
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func numberField(fields map[string]interface{}, key string) float64 {
	n, _ := fields[key].(float64)
	return n
}

// counterField reads a 64-bit counter. Adapters that send plain numbers are
// accepted too; those are exact only up to 2^53.
func counterField(fields map[string]interface{}, key string) (uint64, error) {
	switch v := fields[key].(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s '%s': %w", key, v, err)
		}
		return n, nil
	case float64:
		return uint64(v), nil
	}
	return 0, nil
}
