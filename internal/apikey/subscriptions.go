package apikey

import "sync"

// SubscriptionTracker counts each key's currently-open WebSocket
// subscriptions, enforcing spec §4.K's "WebSocket subscribe: active
// subscription count for this key must remain <= subscription_limit"
// and §5's "per-subscription active flag (single-writer, multi-reader)"
// cross-task state. One tracker is shared by every wsgateway session.
type SubscriptionTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSubscriptionTracker builds an empty tracker.
func NewSubscriptionTracker() *SubscriptionTracker {
	return &SubscriptionTracker{counts: make(map[string]int)}
}

// TryAcquire increments keyValue's count and reports whether the result
// still fits within limit (0 == unlimited). On failure the count is left
// unchanged (the caller never opened the subscription).
func (t *SubscriptionTracker) TryAcquire(keyValue string, limit int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit > 0 && t.counts[keyValue] >= limit {
		return false
	}
	t.counts[keyValue]++
	return true
}

// Release decrements keyValue's count (spec §4.I.2: "On session close,
// all owned subscriptions are cancelled and active-key-sub counters
// decremented").
func (t *SubscriptionTracker) Release(keyValue string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[keyValue] > 0 {
		t.counts[keyValue]--
	}
	if t.counts[keyValue] == 0 {
		delete(t.counts, keyValue)
	}
}
