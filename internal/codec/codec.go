// Package codec encodes and decodes the event envelopes exchanged on the
// signaling socket. Text frames carry JSON, binary frames carry MessagePack.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrMissingEvent = errors.New("envelope has no event name")
	ErrNoData       = errors.New("envelope has no data")
)

// Codec turns envelopes into websocket frames and back.
type Codec interface {
	Name() string
	// FrameType is the websocket message type frames of this codec use.
	FrameType() int
	Encode(event string, data any) ([]byte, error)
	Decode(frame []byte) (*Frame, error)
}

// Frame is a decoded envelope whose data is bound lazily, once the event
// name has selected a payload type.
type Frame struct {
	Event     string
	data      []byte
	unmarshal func([]byte, any) error
}

// Bind decodes the envelope data into v.
func (f *Frame) Bind(v any) error {
	if len(f.data) == 0 || string(f.data) == "null" {
		return ErrNoData
	}
	if err := f.unmarshal(f.data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return nil
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// ByName resolves a codec from the ?codec= query parameter. Empty selects JSON.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// ForFrameType picks the codec for an inbound frame.
func ForFrameType(messageType int) (Codec, error) {
	switch messageType {
	case websocket.TextMessage:
		return JSON, nil
	case websocket.BinaryMessage:
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unsupported frame type %d", messageType)
}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(jsonEnvelope{Event: event, Data: raw})
}

func (jsonCodec) Decode(frame []byte) (*Frame, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("parse json envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrMissingEvent
	}
	return &Frame{Event: env.Event, data: env.Data, unmarshal: json.Unmarshal}, nil
}

type msgpackEnvelope struct {
	Event string             `msgpack:"event"`
	Data  msgpack.RawMessage `msgpack:"data"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(event string, data any) ([]byte, error) {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return msgpack.Marshal(msgpackEnvelope{Event: event, Data: raw})
}

func (msgpackCodec) Decode(frame []byte) (*Frame, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("parse msgpack envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrMissingEvent
	}
	data := []byte(env.Data)
	// msgpack nil
	if len(data) == 1 && data[0] == 0xc0 {
		data = nil
	}
	return &Frame{Event: env.Event, data: data, unmarshal: msgpack.Unmarshal}, nil
}
