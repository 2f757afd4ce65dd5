// Package executor implements the Block Executor ingestion pipeline of
// spec §4.G: a bounded concurrency gate, store/stream sibling tasks per
// payload, and the block-event sub-pipeline for Message records.
// Grounded on src/worker_pool.go's fixed-size, channel-backed
// concurrency limiter (generalized from a task queue to a plain
// acquire/release semaphore, since §4.G needs bounded *parallelism* per
// payload rather than a shared task queue) and
// internal/server/server.go's JetStream subscribe-then-dispatch loop.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/broker"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/records"
)

// Queue subjects carrying whole block payloads (spec §4.E.5 glossary,
// "work queues: block_submitted.{height}, block_event.{height}").
const (
	blockSubmittedSubject = "block_submitted.>"
	blockEventSubject     = "block_event.>"
)

// Broker is the subset of broker.Client's behavior Executor depends on:
// declare and drain a durable work queue, and publish decoded packets
// back out on pub/sub. *broker.Client satisfies this directly; tests
// substitute an in-process fake instead of dialing real NATS.
type Broker interface {
	DeclareQueue(name string, subjects []string) error
	SubscribeWorkQueue(streamName, durable, subject string, ackWait time.Duration, maxAckPending int, handler func(*broker.Message)) (broker.Subscription, error)
	Publish(subject string, data []byte) error
}

// Store performs the store task (spec §4.G.1 step 3.c). Implemented by
// *repository.Repositories; tests substitute an in-process fake to
// exercise ack-after-commit ordering and entity-filtered routing without
// a database.
type Store interface {
	StoreBundle(ctx context.Context, bundle *records.Bundle, entityFilter func(entity string) bool) error
}

// Executor runs spec §4.G's ingestion pipeline: dequeue from a durable
// work queue, packetize, and fan out to a store task (transactional
// upsert, routed per packet by entity) and a stream task (pub/sub
// republish of every packet), acking only once the store task commits.
//
// This is a deliberate departure from §4.G.2's "ack-early" rationale —
// see DESIGN.md's "ack after store commit" Open Question resolution:
// acking before the store transaction commits means a crash between ack
// and commit silently drops the payload, since nothing else will ever
// redeliver it.
type Executor struct {
	broker  Broker
	repos   Store
	builder *records.Builder
	gate    *Gate
	retry   RetryPolicy
	metrics Metrics
	logger  zerolog.Logger

	queueName     string
	workSubject   string
	durable       string
	ackWait       time.Duration
	maxAckPending int
	entityFilter  func(entity string) bool

	sub broker.Subscription
	wg  sync.WaitGroup
}

// Option customizes an Executor at construction time.
type Option func(*Executor)

func WithMetrics(m Metrics) Option { return func(e *Executor) { e.metrics = m } }

// New builds the main block-ingest executor, draining BlockImporter.
func New(b Broker, repos Store, builder *records.Builder, cfg *config.Config, logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		broker:        b,
		repos:         repos,
		builder:       builder,
		gate:          NewGate(cfg.EffectiveMaxInFlight()),
		retry:         DefaultRetryPolicy(cfg.Executor.RetryMaxAttempts),
		metrics:       nopMetrics{},
		logger:        logger,
		queueName:     broker.QueueBlockImporter,
		workSubject:   blockSubmittedSubject,
		durable:       "block-executor",
		ackWait:       cfg.Broker.AckWait,
		maxAckPending: cfg.Executor.BatchSize,
		entityFilter:  func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBlockEventExecutor builds the §4.G.5 sub-pipeline draining
// BlockEvent for Message records only: "a parallel executor drains the
// BlockEvent queue for Message records only, using the same pattern but
// a filtered packet set".
func NewBlockEventExecutor(b Broker, repos Store, builder *records.Builder, cfg *config.Config, logger zerolog.Logger, opts ...Option) *Executor {
	e := New(b, repos, builder, cfg, logger, opts...)
	e.queueName = broker.QueueBlockEvent
	e.workSubject = blockEventSubject
	e.durable = "block-event-executor"
	e.entityFilter = func(entity string) bool { return entity == "messages" }
	return e
}

// Start declares the work queue and opens the subscription (spec
// §4.G.1, steps 1-2). It does not block; messages are handled on NATS's
// own dispatch goroutines, each one running Acquire against the gate
// before doing any work.
func (e *Executor) Start(ctx context.Context) error {
	if err := e.broker.DeclareQueue(e.queueName, []string{e.workSubject}); err != nil {
		return fmt.Errorf("executor: declare queue %s: %w", e.queueName, err)
	}

	sub, err := e.broker.SubscribeWorkQueue(e.queueName, e.durable, e.workSubject, e.ackWait, e.maxAckPending, func(msg *broker.Message) {
		e.wg.Add(1)
		go e.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("executor: subscribe %s: %w", e.queueName, err)
	}
	e.sub = sub
	return nil
}

// Stop implements spec §4.G.1, step 5: "stop accepting new messages,
// drain in-flight child tasks, close the broker" (the broker itself is
// shared and closed by the caller, not here).
func (e *Executor) Stop() {
	if e.sub != nil {
		if err := e.sub.Unsubscribe(); err != nil {
			e.logger.Warn().Err(err).Msg("executor: unsubscribe on stop failed")
		}
	}
	e.wg.Wait()
}

// handle implements step 3: decode, packetize, spawn store+stream
// siblings under the gate, ack after the store task commits.
func (e *Executor) handle(ctx context.Context, msg *broker.Message) {
	defer e.wg.Done()

	if err := e.gate.Acquire(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("executor: gate acquire aborted")
		return
	}
	defer e.gate.Release()

	var payload records.Payload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		// Decode failure: log, do not ack, rely on redelivery + DLQ
		// policy (spec §4.G.4).
		e.logger.Error().Err(err).Msg("executor: decode payload failed")
		e.metrics.IncPayloadsFailed()
		return
	}

	bundle, err := e.builder.Build(payload)
	if err != nil {
		e.logger.Error().Err(err).Uint64("block_height", payload.Block.Height).Msg("executor: build packet vector failed")
		e.metrics.IncPayloadsFailed()
		return
	}

	packets := bundle.Packets()
	if e.entityFilter != nil {
		filtered := packets[:0:0]
		for _, p := range packets {
			if e.entityFilter(p.Entity) {
				filtered = append(filtered, p)
			}
		}
		packets = filtered
	}

	var streamWG sync.WaitGroup
	streamWG.Add(1)
	go func() {
		defer streamWG.Done()
		start := time.Now()
		if err := e.retry.Do(ctx, func() error { return e.streamTask(packets) }); err != nil {
			e.logger.Error().Err(err).Uint64("block_height", payload.Block.Height).Msg("executor: stream task failed")
		}
		e.metrics.RecordStreamDuration(time.Since(start))
	}()

	storeStart := time.Now()
	storeErr := e.retry.Do(ctx, func() error {
		return e.storeTask(ctx, bundle)
	})
	e.metrics.RecordStoreDuration(time.Since(storeStart))

	streamWG.Wait()

	if storeErr != nil {
		// Store task failure after retries: log and let the broker
		// redeliver (spec §4.G.4) — no ack below this line.
		e.logger.Error().Err(storeErr).Uint64("block_height", payload.Block.Height).Msg("executor: store task failed after retries")
		e.metrics.IncPayloadsFailed()
		return
	}

	if err := msg.Ack(); err != nil {
		e.logger.Warn().Err(err).Uint64("block_height", payload.Block.Height).Msg("executor: ack failed")
	}
	e.metrics.IncPayloadsOK()
}

// storeTask routes every row in bundle to its entity repository and
// commits atomically, filtered by e.entityFilter — the main executor
// passes every entity through, NewBlockEventExecutor restricts it to
// "messages" only (spec §4.G.5). The per-entity dispatch itself lives in
// repository.Repositories.StoreBundle; this method is the seam tests
// substitute a fake Store behind to observe ack-after-commit ordering
// and which filter each executor variant wires up.
func (e *Executor) storeTask(ctx context.Context, bundle *records.Bundle) error {
	return e.repos.StoreBundle(ctx, bundle, e.entityFilter)
}

// streamTask publishes every packet to its bound subject on the pub/sub
// side in parallel (spec §4.G.1 step 3.c, "Stream task": "publish each
// packet to its subject on the broker pub/sub side in parallel
// (try_join_all)"). It waits for every publish and returns the first
// error, if any.
func (e *Executor) streamTask(packets []records.Packet) error {
	errs := make([]error, len(packets))
	var wg sync.WaitGroup
	wg.Add(len(packets))
	for i, p := range packets {
		go func(i int, p records.Packet) {
			defer wg.Done()
			errs[i] = e.broker.Publish(p.Subject, p.Value)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
