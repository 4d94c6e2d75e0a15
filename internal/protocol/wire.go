package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EnvelopeType string

const (
	TypeCommand EnvelopeType = "command"
	TypeAck     EnvelopeType = "ack"
	TypeEvent   EnvelopeType = "event"
	// TypeHello is sent once by the client to announce its peer name.
	TypeHello EnvelopeType = "hello"
)

// Envelope is the unit exchanged over the connection (one JSON text frame each).
//
// Commands carry a client-chosen ID; the server answers each with an ack for the same ID,
// with Error set when the command was rejected.
type Envelope struct {
	Type    EnvelopeType `json:"type"`
	ID      string       `json:"id,omitempty"`
	Peer    string       `json:"peer,omitempty"`
	Command *Command     `json:"command,omitempty"`
	Event   *Event       `json:"event,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeCommand:
		if env.Command == nil {
			return Envelope{}, errors.New("decode envelope: command envelope without command")
		}
	case TypeEvent:
		if env.Event == nil {
			return Envelope{}, errors.New("decode envelope: event envelope without event")
		}
	case TypeAck, TypeHello:
	default:
		return Envelope{}, fmt.Errorf("decode envelope: unknown type %q", env.Type)
	}
	return env, nil
}
