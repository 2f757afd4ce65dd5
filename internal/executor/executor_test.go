package executor

import (
	"context"
	"encoding/json"
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
	"github.com/chainstream/streams/internal/subject"
)

func TestGateAcquireBlocksAtCapacity(t *testing.T) {
	g := NewGate(1)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	g.Release()
	require.NoError(t, g.Acquire(context.Background()))
}

func TestGateZeroSizeClampsToOne(t *testing.T) {
	g := NewGate(0)
	assert.Equal(t, 1, cap(g.tokens))
}

func TestRetryPolicyDoSucceedsEventually(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicyDoReturnsLastErrAfterExhaustingAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	attempts := 0
	wantErr := errors.New("permanent")
	err := p.Do(context.Background(), func() error {
		attempts++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, attempts)
}

func TestRetryPolicyDoRespectsContextCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func() error { return errors.New("transient") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Executor.MaxInFlight = 4
	cfg.Executor.BatchSize = 10
	cfg.Executor.PoolReserve = 1
	cfg.Executor.RetryMaxAttempts = 3
	cfg.Database.PoolSize = 5
	cfg.Broker.AckWait = time.Second
	return cfg
}

func TestNewDefaultsToBlockImporterQueue(t *testing.T) {
	e := New(nil, nil, nil, testConfig(), zerolog.Nop())
	assert.Equal(t, "BlockImporter", e.queueName)
	assert.True(t, e.entityFilter("blocks"))
	assert.True(t, e.entityFilter("messages"))
}

func TestNewBlockEventExecutorFiltersToMessagesOnly(t *testing.T) {
	e := NewBlockEventExecutor(nil, nil, nil, testConfig(), zerolog.Nop())
	assert.Equal(t, "BlockEvent", e.queueName)
	assert.True(t, e.entityFilter("messages"))
	assert.False(t, e.entityFilter("blocks"))
	assert.False(t, e.entityFilter("transactions"))
}

// fakeStore is an in-process stand-in for *repository.Repositories'
// StoreBundle, letting tests observe the filter each executor variant
// wires up and control whether the store task succeeds, without a
// database.
type fakeStore struct {
	mu        sync.Mutex
	calls     int
	lastEntityFilter func(string) bool
	delay     chan struct{} // closed to let StoreBundle return
	err       error
}

func (s *fakeStore) StoreBundle(ctx context.Context, bundle *records.Bundle, entityFilter func(entity string) bool) error {
	s.mu.Lock()
	s.calls++
	s.lastEntityFilter = entityFilter
	s.mu.Unlock()

	if s.delay != nil {
		<-s.delay
	}
	return s.err
}

func testBuilder(t *testing.T) *records.Builder {
	t.Helper()
	reg, err := subject.NewDefaultRegistry()
	require.NoError(t, err)
	return records.NewBuilder(reg)
}

func testBundle(t *testing.T) *records.Bundle {
	t.Helper()
	bundle, err := testBuilder(t).Build(records.MockSingleBlockPayload(42))
	require.NoError(t, err)
	return bundle
}

// TestHandleAcksOnlyAfterStoreTaskCommits exercises spec §4.G.1 step 3's
// ack-after-commit ordering: the inbound message's ack must not fire
// until storeTask (here, the fake Store) has returned successfully, even
// though the stream task runs concurrently with it.
func TestHandleAcksOnlyAfterStoreTaskCommits(t *testing.T) {
	b := brokertest.New()
	store := &fakeStore{delay: make(chan struct{})}

	e := New(b, store, testBuilder(t), testConfig(), zerolog.Nop())

	payload, err := json.Marshal(records.MockSingleBlockPayload(42))
	require.NoError(t, err)

	acked := make(chan struct{})
	msg := broker.NewMessage(payload, "block_submitted.42", func() error {
		close(acked)
		return nil
	})

	done := make(chan struct{})
	e.wg.Add(1)
	go func() {
		e.handle(context.Background(), msg)
		close(done)
	}()

	select {
	case <-acked:
		t.Fatal("ack fired before storeTask returned")
	case <-time.After(20 * time.Millisecond):
	}

	close(store.delay)

	select {
	case <-acked:
	case <-time.After(time.Second):
		t.Fatal("ack never fired after storeTask returned")
	}
	<-done
}

// TestHandleDoesNotAckWhenStoreTaskFails exercises the no-ack branch of
// spec §4.G.4: a permanently failing store task must leave the message
// unacked so the broker redelivers it.
func TestHandleDoesNotAckWhenStoreTaskFails(t *testing.T) {
	b := brokertest.New()
	store := &fakeStore{err: errors.New("store task failed")}
	cfg := testConfig()
	cfg.Executor.RetryMaxAttempts = 1

	e := New(b, store, testBuilder(t), cfg, zerolog.Nop())

	payload, err := json.Marshal(records.MockSingleBlockPayload(42))
	require.NoError(t, err)

	acked := false
	msg := broker.NewMessage(payload, "block_submitted.42", func() error {
		acked = true
		return nil
	})

	e.wg.Add(1)
	e.handle(context.Background(), msg)

	assert.False(t, acked)
}

// TestHandlePassesEachExecutorsOwnEntityFilterToStoreTask verifies
// storeTask routes through whichever entity filter its executor
// variant constructed: New's executor passes every entity through,
// NewBlockEventExecutor's restricts storage to "messages" only (spec
// §4.G.5), and handle must forward that exact filter to the store task
// unchanged.
func TestHandlePassesEachExecutorsOwnEntityFilterToStoreTask(t *testing.T) {
	payload, err := json.Marshal(records.MockSingleBlockPayload(7))
	require.NoError(t, err)

	cases := []struct {
		name    string
		newExec func(b Broker, s Store, builder *records.Builder, cfg *config.Config) *Executor
		allowed []string
		denied  []string
	}{
		{
			name: "main executor stores every entity",
			newExec: func(b Broker, s Store, builder *records.Builder, cfg *config.Config) *Executor {
				return New(b, s, builder, cfg, zerolog.Nop())
			},
			allowed: []string{"blocks", "transactions", "messages"},
		},
		{
			name: "block-event executor stores messages only",
			newExec: func(b Broker, s Store, builder *records.Builder, cfg *config.Config) *Executor {
				return NewBlockEventExecutor(b, s, builder, cfg, zerolog.Nop())
			},
			allowed: []string{"messages"},
			denied:  []string{"blocks", "transactions"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := brokertest.New()
			store := &fakeStore{}
			e := tc.newExec(b, store, testBuilder(t), testConfig())

			msg := broker.NewMessage(payload, "block_submitted.7", nil)
			e.wg.Add(1)
			e.handle(context.Background(), msg)

			require.Equal(t, 1, store.calls)
			for _, entity := range tc.allowed {
				assert.True(t, store.lastEntityFilter(entity), "expected %q to be allowed", entity)
			}
			for _, entity := range tc.denied {
				assert.False(t, store.lastEntityFilter(entity), "expected %q to be denied", entity)
			}
		})
	}
}

// TestHandlePublishesEveryPacketToTheBroker exercises the stream task
// side of spec §4.G.1 step 3.c: every packet the builder produces for
// this payload is published on the pub/sub side, independent of the
// store task's outcome.
func TestHandlePublishesEveryPacketToTheBroker(t *testing.T) {
	b := brokertest.New()
	store := &fakeStore{}
	e := New(b, store, testBuilder(t), testConfig(), zerolog.Nop())

	payload, err := json.Marshal(records.MockSingleBlockPayload(9))
	require.NoError(t, err)
	msg := broker.NewMessage(payload, "block_submitted.9", nil)

	e.wg.Add(1)
	e.handle(context.Background(), msg)

	bundle := testBundle(t)
	assert.Len(t, b.Published(), len(bundle.Packets()))
}
