package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// Predicate is the domain form of a predicate-owned coin's bytecode
// registration (spec §3.2: "predicate-owned coins register their
// bytecode once, keyed by the predicate's address").
type Predicate struct {
	Address    xtypes.Address
	Bytecode   xtypes.HexData
	BlockHeight uint64
}

// PredicateRow is the flat row persisted to the `predicates` table (spec
// §6).
type PredicateRow struct {
	Subject     string    `db:"subject"` // UNIQUE
	Value       []byte    `db:"value"`
	Cursor      string    `db:"cursor"`
	Address     string    `db:"predicate_address"` // UNIQUE
	Bytecode    []byte    `db:"bytecode"`
	BlockHeight int64     `db:"block_height"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
}

// PredicateTransactionRow links a registered predicate to every
// transaction whose input it authorizes (spec §6: "predicates registry
// many-to-many via predicate_transactions").
type PredicateTransactionRow struct {
	PredicateAddress string    `db:"predicate_address"`
	TxID             string    `db:"tx_id"`
	BlockHeight      int64     `db:"block_height"`
	CreatedAt        time.Time `db:"created_at"`
}

// predicateFromInput derives the Predicate a predicate-owned coin input
// registers, per Input.IsPredicateOwned.
func predicateFromInput(blockHeight uint64, in Input) (Predicate, bool) {
	if !in.IsPredicateOwned() {
		return Predicate{}, false
	}
	return Predicate{
		Address:     in.Owner,
		Bytecode:    in.PredicateBytecode,
		BlockHeight: blockHeight,
	}, true
}

// Packet projects the row into the flattened packet-vector view.
func (r PredicateRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
