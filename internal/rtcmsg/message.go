// Package rtcmsg defines the msgpack envelope for in-call data-channel
// events. Once peer links are up, lightweight widget traffic (chat,
// reactions) travels peer-to-peer instead of transiting the hub.
package rtcmsg

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Message represents all data channel messages.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

const (
	TypeChat     = "chat"
	TypeReaction = "reaction"
)

// ChatPayload is a text message to the whole room.
type ChatPayload struct {
	From   string    `msgpack:"from"`
	Text   string    `msgpack:"text"`
	SentAt time.Time `msgpack:"sentAt"`
}

// ReactionPayload is an ephemeral emoji reaction.
type ReactionPayload struct {
	From  string `msgpack:"from"`
	Emoji string `msgpack:"emoji"`
}

// NewMessage creates a Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}

// Encode marshals the whole envelope for the wire.
func (m Message) Encode() ([]byte, error) {
	return msgpack.Marshal(m)
}

// DecodeMessage unmarshals a wire frame into an envelope.
func DecodeMessage(b []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}
