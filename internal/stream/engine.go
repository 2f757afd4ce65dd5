// Package stream implements spec §4.H: the subscriber-facing side of the
// pipeline. An Engine resolves a raw subject string against the subject
// registry, applies one of the three delivery policies (New/FromBlock/
// Latest), and for FromBlock authorizes + replays history before handing
// off to a live pub/sub tail with cursor-keyed deduplication at the
// boundary. Grounded on
// other_examples/745ce4c4_..._persistence.go.go's Replay method (a single
// ORDER BY + WHERE query driving a row-by-row callback) and
// original_source/crates/fuel-streams-core/src/nats/stream.rs /
// fuel-streams/src/stream/stream_impl.rs for the policy vocabulary.
package stream

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/broker"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/records"
	"github.com/chainstream/streams/internal/repository"
	"github.com/chainstream/streams/internal/subject"
)

// Broker is the subset of broker.Client's behavior Engine depends on for
// the live tail (spec §4.H.2 step 3). *broker.Client satisfies this
// directly; tests substitute an in-process fake instead of dialing real
// NATS.
type Broker interface {
	Subscribe(subject string, handler func(*broker.Message)) (broker.Subscription, error)
	Unsubscribe(sub broker.Subscription) error
}

// Repos is the subset of *repository.Repositories Engine depends on:
// the current chain height (for the historical-limit check), the
// cursor-ordered replay page, and the single most-recent packet for the
// Latest delivery policy. Tests substitute an in-process fake to
// exercise the replay-to-live handoff without a database.
type Repos interface {
	FindLastBlockHeight(ctx context.Context) (int64, error)
	LatestPacket(ctx context.Context, entity, subjectWhere string) (records.Packet, bool, error)
	ReplayPackets(ctx context.Context, entity, subjectWhere string, minHeight uint64, afterCursor string, limit int) ([]records.Packet, error)
}

// Engine drives every Subscribe call independently: each gets its own
// goroutine running replay-then-live (or live-only) until the caller
// closes the Subscription.
type Engine struct {
	repos     Repos
	broker    Broker
	registry  *subject.Registry
	chunkSize int
	bufDepth  int
	logger    zerolog.Logger
}

// New builds a stream Engine reading the stream-tuning surface of spec
// §3.4 from cfg.
func New(repos Repos, b Broker, registry *subject.Registry, cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		repos:     repos,
		broker:    b,
		registry:  registry,
		chunkSize: cfg.Stream.HistoricalChunkSize,
		bufDepth:  cfg.Stream.LiveBufferDepth,
		logger:    logger,
	}
}

// Subscription is the handle a caller drains decoded packets from. Close
// stops delivery; Packets and Errs are both closed once teardown
// completes.
type Subscription struct {
	Packets <-chan records.Packet
	Errs    <-chan error

	cancel context.CancelFunc
}

// Close tears down this subscription: cancels replay/live delivery and
// releases the live broker subscription, if one was ever opened.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe resolves raw against the registry and starts delivering
// packets per policy (spec §4.H.1/§4.H.2). For KindFromBlock, limiter
// authorizes the replay span before any work begins; pass a nil limiter
// to skip the check (e.g. an admin role with no configured limit).
func (e *Engine) Subscribe(ctx context.Context, raw string, policy Policy, limiter HistoricalLimiter) (*Subscription, error) {
	bound, ok := subject.Resolve(e.registry, raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, raw)
	}
	liveSubject := bound.Parse()
	entity, ok := repository.EntityForSubject(liveSubject)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, raw)
	}
	subjectWhere, _ := bound.ToSQLWhere()

	if policy.Kind == KindFromBlock {
		latestHeight, err := e.repos.FindLastBlockHeight(ctx)
		if err != nil {
			return nil, err
		}
		if limiter != nil {
			if limit := limiter.HistoricalLimitBlocks(); limit > 0 && !withinHistoricalLimit(latestHeight, policy.Height, limit) {
				return nil, &HistoricalLimitExceeded{Limit: limit}
			}
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	packets := make(chan records.Packet, e.bufDepth)
	errs := make(chan error, 1)

	go e.run(sctx, entity, subjectWhere, liveSubject, policy, packets, errs)

	return &Subscription{Packets: packets, Errs: errs, cancel: cancel}, nil
}

// withinHistoricalLimit reports whether replaying from fromHeight given
// the chain's current latestHeight stays within limit blocks (spec
// §4.H.2 step 1: "If latest_indexed_height - N > limit, fail").
func withinHistoricalLimit(latestHeight int64, fromHeight uint64, limit int64) bool {
	span := latestHeight - int64(fromHeight)
	if span < 0 {
		span = 0
	}
	return span <= limit
}

// run drives one subscription's whole lifecycle — optional replay
// window, then the live tail — until ctx is cancelled (spec §4.H.2 steps
// 2-4). It is the sole writer of packets and errs and closes both
// exactly once, on return.
func (e *Engine) run(ctx context.Context, entity, subjectWhere, liveSubject string, policy Policy, packets chan<- records.Packet, errs chan<- error) {
	defer close(packets)
	defer close(errs)

	seen := make(map[string]struct{})

	switch policy.Kind {
	case KindLatest:
		pkt, ok, err := e.repos.LatestPacket(ctx, entity, subjectWhere)
		if err != nil {
			sendErr(errs, err)
			return
		}
		if ok {
			seen[pkt.Subject] = struct{}{}
			if !send(ctx, packets, pkt) {
				return
			}
		}
	case KindFromBlock:
		if !e.replay(ctx, entity, subjectWhere, policy.Height, packets, errs, seen) {
			return
		}
	}

	e.liveTail(ctx, liveSubject, packets, errs, seen)
}

// replay pages through the repository in cursor order until exhausted
// (spec §4.H.2 step 2), recording every emitted subject in seen for the
// handoff dedup. Returns false if an error was reported or ctx was
// cancelled mid-page, in which case the caller must not proceed to
// liveTail.
func (e *Engine) replay(ctx context.Context, entity, subjectWhere string, fromHeight uint64, packets chan<- records.Packet, errs chan<- error, seen map[string]struct{}) bool {
	after := ""
	for {
		pkts, err := e.repos.ReplayPackets(ctx, entity, subjectWhere, fromHeight, after, e.chunkSize)
		if err != nil {
			sendErr(errs, err)
			return false
		}
		if len(pkts) == 0 {
			return true
		}
		for _, p := range pkts {
			seen[p.Subject] = struct{}{}
			if !send(ctx, packets, p) {
				return false
			}
			after = p.Cursor
		}
		if len(pkts) < e.chunkSize {
			return true
		}
	}
}

// liveTail subscribes to liveSubject and forwards every message whose
// subject hasn't already appeared in seen (spec §4.H.2 step 3: "apply a
// deduplication predicate keyed by the row's cursor tuple"). Live
// pub/sub messages carry no cursor metadata on the wire — only their
// concrete subject and payload (broker.Message.ID is the publisher's
// subject string, per broker/message.go) — so this dedups on the
// concrete subject instead, which is injective over published records in
// this domain (every schema binds the record's natural key, e.g. tx_id,
// into the subject itself). See DESIGN.md for this Open Question
// resolution.
//
// It blocks until ctx is cancelled, so callers run it as the last step
// of their own goroutine.
func (e *Engine) liveTail(ctx context.Context, liveSubject string, packets chan<- records.Packet, errs chan<- error, seen map[string]struct{}) {
	sub, err := e.broker.Subscribe(liveSubject, func(msg *broker.Message) {
		if _, dup := seen[msg.ID]; dup {
			return
		}
		seen[msg.ID] = struct{}{}
		entity, _ := repository.EntityForSubject(msg.ID)
		send(ctx, packets, records.Packet{Entity: entity, Subject: msg.ID, Value: msg.Payload})
	})
	if err != nil {
		sendErr(errs, fmt.Errorf("stream: subscribe live %s: %w", liveSubject, err))
		return
	}

	<-ctx.Done()
	if err := e.broker.Unsubscribe(sub); err != nil {
		e.logger.Warn().Err(err).Str("subject", liveSubject).Msg("stream: unsubscribe live failed")
	}
}

func send(ctx context.Context, packets chan<- records.Packet, p records.Packet) bool {
	select {
	case packets <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

func sendErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
