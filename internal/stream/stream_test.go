package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainstream/streams/internal/broker"
	"github.com/chainstream/streams/internal/brokertest"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/records"
	"github.com/chainstream/streams/internal/repository"
	"github.com/chainstream/streams/internal/subject"
)

func testConfig() *config.Config {
	return &config.Config{
		Stream: config.Stream{
			HistoricalChunkSize: 100,
			LiveBufferDepth:     50,
		},
	}
}

func testRegistry(t *testing.T) *subject.Registry {
	t.Helper()
	reg, err := subject.NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestPolicyConstructors(t *testing.T) {
	assert.Equal(t, Policy{Kind: KindNew}, NewPolicy())
	assert.Equal(t, Policy{Kind: KindLatest}, LatestPolicy())
	assert.Equal(t, Policy{Kind: KindFromBlock, Height: 42}, FromBlockPolicy(42))
}

func TestWithinHistoricalLimitAllowsExactBoundary(t *testing.T) {
	assert.True(t, withinHistoricalLimit(700, 100, 600))
	assert.False(t, withinHistoricalLimit(701, 100, 600))
}

func TestWithinHistoricalLimitClampsNegativeSpan(t *testing.T) {
	// fromHeight ahead of latestHeight (shouldn't happen, but must not
	// spuriously reject).
	assert.True(t, withinHistoricalLimit(100, 200, 0))
}

func TestHistoricalLimitExceededMessageAndUnwrap(t *testing.T) {
	err := &HistoricalLimitExceeded{Limit: 600}
	assert.Contains(t, err.Error(), "600")
	assert.True(t, errors.Is(err, errHistoricalLimitExceeded))
}

func TestNewWiresChunkSizeAndBufferDepthFromConfig(t *testing.T) {
	e := New(nil, nil, testRegistry(t), testConfig(), zerolog.Nop())
	assert.Equal(t, 100, e.chunkSize)
	assert.Equal(t, 50, e.bufDepth)
}

func TestSubscribeRejectsUnknownSubject(t *testing.T) {
	e := New(nil, nil, testRegistry(t), testConfig(), zerolog.Nop())
	_, err := e.Subscribe(context.Background(), "nonexistent.entity", NewPolicy(), nil)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestSendDeliversUntilContextCancelled(t *testing.T) {
	packets := make(chan records.Packet, 1)
	ok := send(context.Background(), packets, records.Packet{Subject: "x"})
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	full := make(chan records.Packet) // unbuffered + no reader: forces ctx.Done() path
	ok = send(ctx, full, records.Packet{Subject: "y"})
	assert.False(t, ok)
}

func TestSendErrIsNonBlockingOnFullBuffer(t *testing.T) {
	errs := make(chan error, 1)
	sendErr(errs, errors.New("first"))
	sendErr(errs, errors.New("dropped")) // must not block

	select {
	case err := <-errs:
		assert.EqualError(t, err, "first")
	case <-time.After(50 * time.Millisecond):
		t.Fatal("expected buffered error")
	}
}

func TestEntityForSubjectMatchesStreamLiveDedupPath(t *testing.T) {
	// Sanity check the dedup key's entity-resolution dependency (liveTail
	// resolves entity from broker.Message.ID the same way).
	entity, ok := repository.EntityForSubject("messages.alice.bob")
	assert.True(t, ok)
	assert.Equal(t, "messages", entity)
}

// fakeRepos is an in-process stand-in for *repository.Repositories,
// letting tests drive Engine's replay and live-delivery paths without a
// database.
type fakeRepos struct {
	mu sync.Mutex

	latestHeight    int64
	replayPages     [][]records.Packet
	replayCallCount int
	latestPacket    records.Packet
	latestPacketOK  bool
}

func (r *fakeRepos) FindLastBlockHeight(ctx context.Context) (int64, error) {
	return r.latestHeight, nil
}

func (r *fakeRepos) LatestPacket(ctx context.Context, entity, subjectWhere string) (records.Packet, bool, error) {
	return r.latestPacket, r.latestPacketOK, nil
}

func (r *fakeRepos) ReplayPackets(ctx context.Context, entity, subjectWhere string, minHeight uint64, afterCursor string, limit int) ([]records.Packet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replayCallCount >= len(r.replayPages) {
		return nil, nil
	}
	page := r.replayPages[r.replayCallCount]
	r.replayCallCount++
	return page, nil
}

// TestRunReplaysThenDedupsLiveAgainstConcreteSubject exercises spec
// §4.H.2's replay-to-live handoff: a FromBlock subscription drains its
// historical page first, then hands off to the live broker tail, which
// must drop any live delivery whose concrete subject already appeared
// during replay (the dedup boundary DESIGN.md resolves by keying on
// broker.Message.ID rather than a cursor tuple, since live messages
// carry no cursor metadata on the wire).
func TestRunReplaysThenDedupsLiveAgainstConcreteSubject(t *testing.T) {
	b := brokertest.New()
	repos := &fakeRepos{
		latestHeight: 10,
		replayPages: [][]records.Packet{
			{{Entity: "blocks", Subject: "blocks.5", Value: []byte("replayed"), Cursor: "0000000005"}},
		},
	}
	e := New(repos, b, testRegistry(t), testConfig(), zerolog.Nop())

	sub, err := e.Subscribe(context.Background(), "blocks.>", FromBlockPolicy(0), nil)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case pkt := <-sub.Packets:
		assert.Equal(t, "blocks.5", pkt.Subject)
		assert.Equal(t, []byte("replayed"), pkt.Value)
	case <-time.After(time.Second):
		t.Fatal("expected the replayed packet")
	}

	require.Eventually(t, func() bool { return b.HasSubscriber("blocks.>") }, time.Second, time.Millisecond)

	// Duplicate of the already-replayed subject must be dropped.
	b.DeliverLive("blocks.>", broker.NewMessage([]byte("dup"), "blocks.5", nil))
	// A fresh subject must pass through to the subscriber.
	b.DeliverLive("blocks.>", broker.NewMessage([]byte("fresh"), "blocks.9", nil))

	select {
	case pkt := <-sub.Packets:
		assert.Equal(t, "blocks.9", pkt.Subject)
		assert.Equal(t, []byte("fresh"), pkt.Value)
	case <-time.After(time.Second):
		t.Fatal("expected the fresh live packet to pass through")
	}

	select {
	case pkt := <-sub.Packets:
		t.Fatalf("duplicate subject should have been dropped, got %+v", pkt)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestRunLatestPolicyEmitsStoredPacketThenLiveTail exercises spec
// §4.H.1's Latest policy: the single most recent stored packet is
// delivered first, then the engine hands off straight to the live tail
// (no replay page at all).
func TestRunLatestPolicyEmitsStoredPacketThenLiveTail(t *testing.T) {
	b := brokertest.New()
	repos := &fakeRepos{
		latestPacket:   records.Packet{Entity: "blocks", Subject: "blocks.3", Value: []byte("latest")},
		latestPacketOK: true,
	}
	e := New(repos, b, testRegistry(t), testConfig(), zerolog.Nop())

	sub, err := e.Subscribe(context.Background(), "blocks.>", LatestPolicy(), nil)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case pkt := <-sub.Packets:
		assert.Equal(t, "blocks.3", pkt.Subject)
	case <-time.After(time.Second):
		t.Fatal("expected the stored latest packet")
	}

	require.Eventually(t, func() bool { return b.HasSubscriber("blocks.>") }, time.Second, time.Millisecond)

	b.DeliverLive("blocks.>", broker.NewMessage([]byte("new"), "blocks.4", nil))
	select {
	case pkt := <-sub.Packets:
		assert.Equal(t, "blocks.4", pkt.Subject)
	case <-time.After(time.Second):
		t.Fatal("expected the live packet after the latest snapshot")
	}
}

// TestSubscribeRejectsReplayBeyondHistoricalLimit exercises spec
// §4.H.2 step 1: a FromBlock subscription whose requested span exceeds
// the caller's configured historical limit fails before any replay
// work begins.
func TestSubscribeRejectsReplayBeyondHistoricalLimit(t *testing.T) {
	b := brokertest.New()
	repos := &fakeRepos{latestHeight: 1000}
	e := New(repos, b, testRegistry(t), testConfig(), zerolog.Nop())

	_, err := e.Subscribe(context.Background(), "blocks.>", FromBlockPolicy(0), staticLimiter{limit: 600})

	var limitErr *HistoricalLimitExceeded
	assert.ErrorAs(t, err, &limitErr)
}

type staticLimiter struct{ limit int64 }

func (l staticLimiter) HistoricalLimitBlocks() int64 { return l.limit }
