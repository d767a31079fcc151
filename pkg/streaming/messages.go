// Package streaming defines the wire format used to stream a simulated play
// to a renderer over WebSocket, in both directions.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/routethat/playsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartPlay = "start_play"
	TypeFrame     = "frame"
	TypeEndPlay   = "end_play"
	TypeAck       = "ack"
	TypeError     = "error"

	// Control messages a live-stream client may send.
	TypePlay   = "play"
	TypePause  = "pause"
	TypeResume = "resume"
	TypeReplay = "replay"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartPlayPayload announces a run before its first frame.
type StartPlayPayload struct {
	Run *core.PlayRun `json:"run"`
}

// FramePayload carries one published tick.
type FramePayload struct {
	RunID    string         `json:"runId"`
	Snapshot *core.Snapshot `json:"snapshot"`
}

// EndPlayPayload carries the final result of a run.
type EndPlayPayload struct {
	Result *core.PlayResult `json:"result"`
}

// PlayPayload asks a live stream to start a play. Routes, when present, are
// run directly instead of looking Play up.
type PlayPayload struct {
	Play            string              `json:"play"`
	Routes          core.RouteSpec      `json:"routes,omitempty"`
	Seed            int64               `json:"seed,omitempty"`
	SpeedMultiplier float64             `json:"speedMultiplier,omitempty"`
	Coverage        core.CoverageScheme `json:"coverage,omitempty"`
}

// ErrorPayload reports a failure to a stream client.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
// A nil payload produces an envelope without one.
func Marshal(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Ack builds the acknowledgement for a message type.
func Ack(forType string) []byte {
	data, _ := json.Marshal(AckMessage{Type: TypeAck, For: forType})
	return data
}

// Decode parses an envelope and, when v is non-nil, its payload.
func Decode(data []byte, v any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if v != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return env, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return env, nil
}
