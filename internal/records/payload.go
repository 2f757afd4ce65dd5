package records

import "time"

// ChainMeta carries the chain-level metadata that accompanies a block's
// transaction set on the wire (spec §3.3).
type ChainMeta struct {
	ChainID   string
	BaseAssetID string
}

// Payload is the unit of ingestion handed from the node-facing source to
// the Block Executor: one sealed block plus its transactions and the
// chain metadata needed to resolve base-asset references (spec §3.3:
// "owned ingestion-to-ack unit"). It is consumed exactly once and is not
// retried piecemeal — the whole Payload either commits or is redelivered
// by the broker (spec §4.G.2).
type Payload struct {
	Block       Block
	Transactions []Transaction
	Chain       ChainMeta
	ReceivedAt  time.Time
}
