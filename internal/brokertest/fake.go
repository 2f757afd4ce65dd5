// Package brokertest is an in-process substitute for internal/broker's
// *Client, used by internal/executor's and internal/stream's tests
// instead of dialing real NATS. It implements executor.Broker and
// stream.Broker directly (Go's structural typing needs no shared
// interface type between the three packages), modeled on
// internal/records/mock.go's role as a fixture builder for its own
// package's tests.
package brokertest

import (
	"sync"
	"time"

	"github.com/chainstream/streams/internal/broker"
)

// Published records one call to Publish, in call order.
type Published struct {
	Subject string
	Data    []byte
}

// Fake is a minimal in-memory broker: Publish fans out synchronously to
// every handler registered via Subscribe on the same subject, and
// Deliver lets a test push a work-queue message straight to every
// handler SubscribeWorkQueue registered for a subject, without a
// durable queue or redelivery semantics behind it.
type Fake struct {
	mu sync.Mutex

	published []Published
	workSubs  map[string][]func(*broker.Message)
	pubSubs   map[string][]func(*broker.Message)

	declareErr   error
	subscribeErr error
	publishErr   error
}

func New() *Fake {
	return &Fake{
		workSubs: make(map[string][]func(*broker.Message)),
		pubSubs:  make(map[string][]func(*broker.Message)),
	}
}

// FailDeclareQueue makes the next DeclareQueue call (and every call
// after it) return err.
func (f *Fake) FailDeclareQueue(err error) { f.declareErr = err }

// FailSubscribe makes Subscribe/SubscribeWorkQueue return err instead of
// registering a handler.
func (f *Fake) FailSubscribe(err error) { f.subscribeErr = err }

// FailPublish makes Publish report err after recording and fanning out
// the message as usual — mirrors broker.Client's own behavior of
// publishing best-effort and only reporting the NATS client's error.
func (f *Fake) FailPublish(err error) { f.publishErr = err }

// DeclareQueue is a no-op beyond the configured failure, matching that
// tests here care about dispatch, not queue provisioning.
func (f *Fake) DeclareQueue(name string, subjects []string) error {
	return f.declareErr
}

// SubscribeWorkQueue registers handler for subject; it is invoked only
// when a test calls Deliver, simulating an inbound durable-queue message
// without a real broker connection.
func (f *Fake) SubscribeWorkQueue(streamName, durable, subject string, ackWait time.Duration, maxAckPending int, handler func(*broker.Message)) (broker.Subscription, error) {
	return f.subscribe(f.workSubs, subject, handler)
}

// Subscribe registers handler for subject on the pub/sub side; Publish
// invokes every handler registered for the same subject synchronously.
func (f *Fake) Subscribe(subject string, handler func(*broker.Message)) (broker.Subscription, error) {
	return f.subscribe(f.pubSubs, subject, handler)
}

func (f *Fake) subscribe(table map[string][]func(*broker.Message), subject string, handler func(*broker.Message)) (broker.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	table[subject] = append(table[subject], handler)
	f.mu.Unlock()
	return &fakeSubscription{}, nil
}

// Unsubscribe only marks sub as unsubscribed; the fake keeps its handler
// registered, since no test here relies on tearing down one subscriber
// among several on the same subject.
func (f *Fake) Unsubscribe(sub broker.Subscription) error {
	return sub.Unsubscribe()
}

// Publish records the call and synchronously fans out to every pub/sub
// handler registered for subject (broker.Client.Subscribe's contract:
// fan-out, no durability).
func (f *Fake) Publish(subject string, data []byte) error {
	f.mu.Lock()
	f.published = append(f.published, Published{Subject: subject, Data: data})
	handlers := append([]func(*broker.Message){}, f.pubSubs[subject]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(broker.NewMessage(data, subject, nil))
	}
	return f.publishErr
}

// HasSubscriber reports whether Subscribe has registered a handler for
// subject, letting tests wait for a goroutine's subscribe call instead
// of sleeping a fixed duration.
func (f *Fake) HasSubscriber(subject string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pubSubs[subject]) > 0
}

// Published returns every call to Publish so far, in order.
func (f *Fake) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Published, len(f.published))
	copy(out, f.published)
	return out
}

// Deliver feeds msg to every handler SubscribeWorkQueue registered for
// subject, simulating an inbound durable-queue delivery.
func (f *Fake) Deliver(subject string, msg *broker.Message) {
	f.mu.Lock()
	handlers := append([]func(*broker.Message){}, f.workSubs[subject]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

// DeliverLive feeds msg to every handler Subscribe registered for
// subject, simulating an inbound live pub/sub publish from another
// process (as opposed to Publish, which is this process publishing).
func (f *Fake) DeliverLive(subject string, msg *broker.Message) {
	f.mu.Lock()
	handlers := append([]func(*broker.Message){}, f.pubSubs[subject]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

type fakeSubscription struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSubscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
