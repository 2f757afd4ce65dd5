package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// TxStatus is the transaction execution outcome.
type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusFailure TxStatus = "failure"
	TxStatusSqueezed TxStatus = "squeezed_out"
)

// TxKind is the transaction's UTXO-chain script kind.
type TxKind string

const (
	TxKindScript TxKind = "script"
	TxKindCreate TxKind = "create"
	TxKindMint   TxKind = "mint"
	TxKindUpgrade TxKind = "upgrade"
	TxKindUpload  TxKind = "upload"
)

// Transaction is the domain form of one transaction within a block (spec
// §3.1: "Transaction PK (tx_id) FK block_height, tx_index").
type Transaction struct {
	BlockHeight uint64
	TxID        xtypes.TxId
	TxIndex     uint32
	Status      TxStatus
	Kind        TxKind
	Inputs      []Input
	Outputs     []Output
	Receipts    []Receipt
}

// TransactionRow is the flat row persisted to the `transactions` table
// (spec §6).
type TransactionRow struct {
	BlockHeight int64     `db:"block_height"`
	TxID        string    `db:"tx_id"` // UNIQUE
	TxIndex     int32     `db:"tx_index"`
	TxStatus    string    `db:"tx_status"`
	Type        string    `db:"type"`
	Subject     string    `db:"subject"`
	Value       []byte    `db:"value"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
	Cursor      string    `db:"-"` // packet cursor only; the table has no cursor column
}

// Packet projects the row into the flattened packet-vector view.
func (r TransactionRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
