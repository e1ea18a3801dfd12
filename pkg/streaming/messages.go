// Package streaming defines the envelopes exchanged with the fleet backend
// over WebSocket.
package streaming

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeSubscribe   = "subscribe"
	TypeTruckStates = "truck_states"
	TypeAck         = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SubscribePayload asks the server to push truck states. An empty Depot
// subscribes to every truck.
type SubscribePayload struct {
	Client string `json:"client"`
	Depot  string `json:"depot,omitempty"`
}

// TruckStatesPayload is one complete fleet report.
type TruckStatesPayload struct {
	Trucks []core.TruckState `json:"trucks"`
	SentAt time.Time         `json:"sent_at"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// DecodeTruckStates unpacks a truck_states envelope.
func DecodeTruckStates(env Envelope) (TruckStatesPayload, error) {
	var p TruckStatesPayload
	if env.Type != TypeTruckStates {
		return p, fmt.Errorf("unexpected message type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return p, nil
}
