// Package wsgateway implements spec §4.I: the WebSocket subscriber
// gateway. Grounded on pkg/websocket/{hub,client}.go (the teacher's
// gorilla/websocket connection lifecycle — ping/pong deadlines, a
// buffered per-client send channel, a single read-pump goroutine plus a
// select-driven write loop) generalized from broadcast-to-everyone into
// per-session, per-subject delivery backed by internal/stream.Engine.
package wsgateway

// Topic names the subject a client wants to (un)subscribe from, plus the
// optional delivery-policy hint spec §4.H.1 enumerates (New/FromBlock/
// Latest). Spec §4.I.1's literal message shape
// (`{subscribe: {topic: {stream: <subject>}}}`) only names the subject;
// FromBlock/Latest are reachable by clients through these two optional
// fields, defaulting to the server's configured default delivery (see
// DESIGN.md for this Open Question resolution).
type Topic struct {
	Stream    string  `json:"stream"`
	FromBlock *uint64 `json:"fromBlock,omitempty"`
	Latest    bool    `json:"latest,omitempty"`
}

// ClientMessage is the inbound shape every Active-state frame is parsed
// as (spec §4.I.1).
type ClientMessage struct {
	Subscribe   *Topic `json:"subscribe,omitempty"`
	Unsubscribe *Topic `json:"unsubscribe,omitempty"`
}

// Outbound message type discriminants (spec §4.I.1: "Server emits
// {subscribed|unsubscribed|error|update} messages").
const (
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypeError        = "error"
	TypeUpdate       = "update"
)

// ServerMessage is the outbound envelope for all four message kinds.
// Stream is set for every kind; error messages add Error, and update
// messages add Entity and Payload.
type ServerMessage struct {
	Type    string      `json:"type"`
	Stream  string      `json:"stream,omitempty"`
	Error   string      `json:"error,omitempty"`
	Entity  string      `json:"entity,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

func subscribedMsg(stream string) ServerMessage {
	return ServerMessage{Type: TypeSubscribed, Stream: stream}
}

func unsubscribedMsg(stream string) ServerMessage {
	return ServerMessage{Type: TypeUnsubscribed, Stream: stream}
}

func errorMsg(stream, errText string) ServerMessage {
	return ServerMessage{Type: TypeError, Stream: stream, Error: errText}
}
