package broker

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publish fans out to every active subscriber of subject with no
// durability (spec §4.F: "Pub/sub (per subject): fan-out to every active
// subscriber; no durability; ordering preserved per publisher").
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(c.ns(subject), data); err != nil {
		return fmt.Errorf("broker: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe opens a core-NATS fan-out subscription and returns its
// handle. Returned messages carry a no-op Ack, matching the "no
// durability" contract. Callers own the returned handle and must pass it
// to Unsubscribe when done — subjects are not unique per subscriber (the
// stream engine opens one live subscription per active subscription,
// including many concurrent ones to the same wildcard subject), so a
// single subject-keyed registry would let one caller's Unsubscribe tear
// down another's subscription.
func (c *Client) Subscribe(subject string, handler func(*Message)) (Subscription, error) {
	sub, err := c.conn.Subscribe(c.ns(subject), func(msg *nats.Msg) {
		handler(newPubSubMessage(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe %s: %w", subject, err)
	}

	c.subsMutex.Lock()
	c.subs = append(c.subs, sub)
	c.subsMutex.Unlock()
	return sub, nil
}

// Unsubscribe tears down a subscription previously returned by Subscribe.
func (c *Client) Unsubscribe(sub Subscription) error {
	c.subsMutex.Lock()
	defer c.subsMutex.Unlock()

	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("broker: unsubscribe: %w", err)
	}
	return nil
}
