package stream

// Kind names one of the delivery policy variants of spec §4.H.1.
type Kind string

const (
	// KindNew delivers only records published after subscribe.
	KindNew Kind = "new"
	// KindFromBlock delivers every record with block_height >= Height,
	// then continues into live.
	KindFromBlock Kind = "from_block"
	// KindLatest delivers the single most recent record per subject,
	// then continues into live.
	KindLatest Kind = "latest"
)

// Policy selects how a Subscription's initial window is populated before
// it settles into the live tail (spec §4.H.1).
type Policy struct {
	Kind   Kind
	Height uint64 // meaningful only when Kind == KindFromBlock
}

// NewPolicy builds the "New" delivery policy.
func NewPolicy() Policy { return Policy{Kind: KindNew} }

// FromBlockPolicy builds the "FromBlock" delivery policy replaying from
// the given block height (inclusive).
func FromBlockPolicy(height uint64) Policy { return Policy{Kind: KindFromBlock, Height: height} }

// LatestPolicy builds the "Latest" delivery policy.
func LatestPolicy() Policy { return Policy{Kind: KindLatest} }

// HistoricalLimiter authorizes a FromBlock subscription's replay span
// (spec §4.H.2 step 1: "(b) historical-block-range limit"). Kept local,
// mirroring internal/executor.Metrics's pattern, so this package doesn't
// need to import internal/apikey to accept its role type — any caller
// (apikey.Role, a test double, or the admin console)
// just needs to answer this one question.
type HistoricalLimiter interface {
	// HistoricalLimitBlocks returns the caller's configured historical
	// range limit in blocks, or 0 for unlimited.
	HistoricalLimitBlocks() int64
}
