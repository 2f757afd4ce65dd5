package broker

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// QueueNames are the two durable work queues of spec §4.F.
const (
	QueueBlockImporter = "BlockImporter"
	QueueBlockEvent    = "BlockEvent"
)

// DeclareQueue idempotently creates (or updates) a JetStream stream for a
// named work queue, storing to file with compression, per spec §4.F:
// "Each named queue is declared once with idempotent setup: subject
// list, storage class (file), compression on."
func (c *Client) DeclareQueue(name string, subjects []string) error {
	nsSubjects := make([]string, len(subjects))
	for i, s := range subjects {
		nsSubjects[i] = c.ns(s)
	}

	cfg := &nats.StreamConfig{
		Name:        name,
		Subjects:    nsSubjects,
		Storage:     nats.FileStorage,
		Compression: nats.S2Compression,
	}

	_, err := c.js.AddStream(cfg)
	if err == nil {
		return nil
	}
	if err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("broker: declare queue %s: %w", name, err)
	}
	if _, err := c.js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("broker: update queue %s: %w", name, err)
	}
	return nil
}

// PublishWorkQueue publishes to a durable work queue and blocks until the
// broker confirms enqueue, per spec §4.F: "a publish is successful only
// after the broker confirms enqueue; publish errors are propagated".
func (c *Client) PublishWorkQueue(subject string, data []byte) (uint64, error) {
	ack, err := c.js.Publish(c.ns(subject), data)
	if err != nil {
		return 0, fmt.Errorf("broker: publish to work queue %s: %w", subject, err)
	}
	return ack.Sequence, nil
}

// SubscribeWorkQueue opens a durable, consumer-group-like subscription
// with the given ack-wait interval (spec §4.F: "Messages must be acked;
// unacked messages are redelivered after an ack-wait interval"). A
// zero ackWait applies defaultAckWait. maxAckPending bounds how many
// delivered-but-unacked messages the consumer will hold at once — the
// nearest JetStream push-consumer equivalent of the Block Executor's
// "dequeue batch size" (spec §4.G.1, step 2); zero leaves the server
// default.
func (c *Client) SubscribeWorkQueue(streamName, durable, subject string, ackWait time.Duration, maxAckPending int, handler func(*Message)) (Subscription, error) {
	if ackWait <= 0 {
		ackWait = defaultAckWait
	}

	opts := []nats.SubOpt{nats.Durable(durable), nats.ManualAck(), nats.AckWait(ackWait)}
	if maxAckPending > 0 {
		opts = append(opts, nats.MaxAckPending(maxAckPending))
	}

	sub, err := c.js.Subscribe(c.ns(subject), func(msg *nats.Msg) {
		handler(newJetStreamMessage(msg))
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe work queue %s: %w", subject, err)
	}
	return sub, nil
}
