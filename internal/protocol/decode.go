package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// envelope peeks at the wire "type" discriminator shared by every command
// shape before committing to a concrete Go type, the same two-pass
// approach message kinds use for encoding, mirrored for decoding.
type envelope struct {
	Type string `json:"type"`
}

// DecodeCommand parses one newline-delimited JSON command. sink is attached
// to JoinRoom after unmarshaling since a Sink never crosses the wire itself
// (spec.md §9 Design Notes); callers that are not yet attaching a live
// connection (e.g. a replay tool) may pass Discard. A command that arrives
// with no correlation_id of its own is assigned one, so every Info the
// engine produces can still be matched back to the command that caused it.
func DecodeCommand(data []byte, sink Sink) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed command: %w", err)
	}

	switch env.Type {
	case "create_room":
		var c CreateRoom
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "delete_room":
		var c DeleteRoom
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "new_player":
		var c NewPlayer
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "delete_player":
		var c DeletePlayer
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "join_room":
		var c JoinRoom
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		c.Sink = sink
		return c, nil
	case "leave_room":
		var c LeaveRoom
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "start_game":
		var c StartGame
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "new_instrument":
		var c NewInstrument
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "reveal_card":
		var c RevealCard
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "settle_game":
		var c SettleGame
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "new_order":
		var c NewOrder
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	case "cancel_order":
		var c CancelOrder
		if err := unmarshalInto(data, &c); err != nil {
			return nil, err
		}
		assignCorrelationID(&c.CorrelationID)
		return c, nil
	default:
		return nil, fmt.Errorf("protocol: unrecognized command type %q", env.Type)
	}
}

func assignCorrelationID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func unmarshalInto(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("protocol: malformed command: %w", err)
	}
	return nil
}

// EncodeMessage marshals an outbound Message to a single JSON line (no
// trailing newline; the transport appends its own line delimiter).
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
