package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// Block is the domain form of a sealed block (spec §3.1: "Block PK
// (height) root").
type Block struct {
	Height          uint64
	DaHeight        uint64
	ProducerAddress xtypes.Address
	Timestamp       time.Time
	PropagationMs   int64
}

// BlockRow is the flat, DB-codec-friendly row persisted to the `blocks`
// table (spec §6).
type BlockRow struct {
	ID                 int64     `db:"id"`
	Subject            string    `db:"subject"`
	Value              []byte    `db:"value"`
	Cursor             string    `db:"cursor"`
	BlockDaHeight      int64     `db:"block_da_height"`
	BlockHeight        int64     `db:"block_height"` // UNIQUE
	ProducerAddress    string    `db:"producer_address"`
	CreatedAt          time.Time `db:"created_at"`
	PublishedAt        time.Time `db:"published_at"`
	BlockPropagationMs int64     `db:"block_propagation_ms"`
}

// Packet projects the row into the flattened packet-vector view
// consumed by the Block Executor's stream task and the stream engine's
// replay path (spec glossary: "Packet").
func (r BlockRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
