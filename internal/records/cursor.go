// Package records implements the block-shaped record graph of spec §3.1:
// the domain types, DB row types, wire packets, and packet-builder for
// Block, Transaction, Receipt, Input, Output, Utxo, Predicate, and
// Message. Grounded on
// original_source/crates/domains/src/msg_payload.rs (MsgPayload shape),
// crates/domains/src/inputs/types.rs (variant taxonomy), and
// crates/domains/src/receipts/packets.rs (packet construction contract).
package records

import "fmt"

// Cursor is the totally-ordered composite (block_height, tx_index,
// record_index) of spec §3.2 ("cursor totality") and the GLOSSARY. It is
// sufficient to uniquely locate any record within its kind and is used
// both for keyset pagination (§4.D.2) and stream-replay deduplication
// (§4.H.2).
type Cursor struct {
	BlockHeight uint64
	TxIndex     uint32
	RecordIndex uint32
}

// String renders a lexicographically sortable composite key, zero-padded
// so byte-wise string comparison matches numeric comparison.
func (c Cursor) String() string {
	return fmt.Sprintf("%020d-%010d-%010d", c.BlockHeight, c.TxIndex, c.RecordIndex)
}

// Less reports whether c sorts strictly before other under
// (block_height, tx_index, record_index) ascending order.
func (c Cursor) Less(other Cursor) bool {
	if c.BlockHeight != other.BlockHeight {
		return c.BlockHeight < other.BlockHeight
	}
	if c.TxIndex != other.TxIndex {
		return c.TxIndex < other.TxIndex
	}
	return c.RecordIndex < other.RecordIndex
}

// Equal reports cursor equality.
func (c Cursor) Equal(other Cursor) bool {
	return c == other
}
