package broker

import (
	"strconv"

	"github.com/nats-io/nats.go"
)

// Message is the lazy-stream element subscribers receive from either
// broker semantic (spec §4.F: "Subscribers return a lazy stream of
// Message carrying {payload_bytes, id, ack()}").
type Message struct {
	Payload []byte
	ID      string
	ackFn   func() error
}

// Ack acknowledges the message. A no-op for core pub/sub messages, which
// carry no redelivery contract.
func (m *Message) Ack() error {
	if m.ackFn == nil {
		return nil
	}
	return m.ackFn()
}

// NewMessage builds a Message directly, for an in-process fake broker
// to hand to a work-queue handler without a real NATS round-trip. ack
// may be nil, matching a pub/sub message's no-op Ack.
func NewMessage(payload []byte, id string, ack func() error) *Message {
	return &Message{Payload: payload, ID: id, ackFn: ack}
}

func newJetStreamMessage(msg *nats.Msg) *Message {
	meta, _ := msg.Metadata()
	id := ""
	if meta != nil {
		id = meta.Stream + "#" + strconv.FormatUint(meta.Sequence.Stream, 10)
	}
	return &Message{
		Payload: msg.Data,
		ID:      id,
		ackFn:   msg.Ack,
	}
}

func newPubSubMessage(msg *nats.Msg) *Message {
	return &Message{
		Payload: msg.Data,
		ID:      msg.Subject,
	}
}
