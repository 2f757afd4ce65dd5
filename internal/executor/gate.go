// Package executor implements the Block Executor ingestion pipeline of
// spec §4.G: a bounded concurrency gate, store/stream sibling tasks per
// payload, and the block-event sub-pipeline for Message records.
// Grounded on src/worker_pool.go's fixed-size, channel-backed
// concurrency limiter (generalized from a task queue to a plain
// acquire/release semaphore, since §4.G needs bounded *parallelism* per
// payload rather than a shared task queue) and
// internal/server/server.go's JetStream subscribe-then-dispatch loop.
package executor

import "context"

// Gate is a bounded concurrency semaphore: at most n acquisitions may be
// held at once. Implements spec §4.G.1's "bounded concurrency gate of
// size max_tasks = min(32, pool_size - 5)".
type Gate struct {
	tokens chan struct{}
}

func NewGate(size int) *Gate {
	if size < 1 {
		size = 1
	}
	return &Gate{tokens: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (g *Gate) Release() {
	<-g.tokens
}
