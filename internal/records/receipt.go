package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// ReceiptVariant is the closed 13-member taxonomy of receipt records (spec
// §4.B.2).
type ReceiptVariant string

const (
	ReceiptVariantCall         ReceiptVariant = "call"
	ReceiptVariantReturn       ReceiptVariant = "return"
	ReceiptVariantReturnData   ReceiptVariant = "return_data"
	ReceiptVariantPanic        ReceiptVariant = "panic"
	ReceiptVariantRevert       ReceiptVariant = "revert"
	ReceiptVariantLog          ReceiptVariant = "log"
	ReceiptVariantLogData      ReceiptVariant = "log_data"
	ReceiptVariantTransfer     ReceiptVariant = "transfer"
	ReceiptVariantTransferOut  ReceiptVariant = "transfer_out"
	ReceiptVariantScriptResult ReceiptVariant = "script_result"
	ReceiptVariantMessageOut   ReceiptVariant = "message_out"
	ReceiptVariantMint         ReceiptVariant = "mint"
	ReceiptVariantBurn         ReceiptVariant = "burn"
)

// Receipt is the domain form of one execution receipt. Only the fields
// relevant to its Variant are populated; the rest are zero (spec §4.B.2:
// "variant-dependent subject param subsets").
type Receipt struct {
	BlockHeight uint64
	TxID        xtypes.TxId
	TxIndex     uint32
	ReceiptIndex uint32
	Variant     ReceiptVariant

	// Call / Transfer
	From  xtypes.ContractId
	To    xtypes.ContractId
	Asset xtypes.AssetId

	// TransferOut
	ToAddress xtypes.Address

	// MessageOut
	Sender    xtypes.Address
	Recipient xtypes.Address

	// Mint / Burn
	Contract xtypes.ContractId
	SubID    xtypes.AssetId

	// common payload fields present across most variants
	Amount xtypes.U64
	Val    xtypes.U64
	Data   xtypes.HexData
}

// ReceiptRow is the flat row persisted to the `receipts` table (spec §6).
type ReceiptRow struct {
	Subject      string    `db:"subject"` // UNIQUE
	Value        []byte    `db:"value"`
	Cursor       string    `db:"cursor"`
	BlockHeight  int64     `db:"block_height"`
	TxID         string    `db:"tx_id"`
	TxIndex      int32     `db:"tx_index"`
	ReceiptIndex int32     `db:"receipt_index"`
	ReceiptType  string    `db:"receipt_type"`
	FromContract string    `db:"from_contract"`
	ToContract   string    `db:"to_contract"`
	AssetID      string    `db:"asset_id"`
	ToAddress    string    `db:"to_address"`
	Sender       string    `db:"sender"`
	Recipient    string    `db:"recipient"`
	SubID        string    `db:"sub_id"`
	Amount       int64     `db:"amount"`
	CreatedAt    time.Time `db:"created_at"`
	PublishedAt  time.Time `db:"published_at"`
}

// ProducesMessage reports whether this receipt variant feeds the
// block-event sub-pipeline that derives outgoing Message records (spec
// §4.G.5: "message_out receipts additionally drive message
// derivation").
func (r Receipt) ProducesMessage() bool {
	return r.Variant == ReceiptVariantMessageOut
}

// Packet projects the row into the flattened packet-vector view.
func (r ReceiptRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
