package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// InputVariant is the closed taxonomy of input records (spec §3.1).
type InputVariant string

const (
	InputVariantCoin     InputVariant = "coin"
	InputVariantContract InputVariant = "contract"
	InputVariantMessage  InputVariant = "message"
)

// Input is the domain form of one transaction input. Only the fields
// relevant to its Variant are populated; the rest are zero.
type Input struct {
	BlockHeight uint64
	TxID        xtypes.TxId
	TxIndex     uint32
	InputIndex  uint32
	Variant     InputVariant

	// Coin
	Owner             xtypes.Address
	AssetID           xtypes.AssetId
	Amount            xtypes.U64
	PredicateBytecode xtypes.HexData // non-empty iff this coin is predicate-owned

	// Contract
	ContractID xtypes.ContractId

	// Message
	Sender    xtypes.Address
	Recipient xtypes.Address
	Nonce     xtypes.Bytes32
	MsgAmount xtypes.U64
	Data      xtypes.HexData

	// UtxoID consumed by this input, empty for Contract inputs.
	UtxoID string
}

// InputRow is the flat row persisted to the `inputs` table (spec §6).
type InputRow struct {
	Subject     string    `db:"subject"` // UNIQUE
	Value       []byte    `db:"value"`
	Cursor      string    `db:"cursor"`
	BlockHeight int64     `db:"block_height"`
	TxID        string    `db:"tx_id"`
	TxIndex     int32     `db:"tx_index"`
	InputIndex  int32     `db:"input_index"`
	InputType   string    `db:"input_type"`
	Owner       string    `db:"owner"`
	AssetID     string    `db:"asset_id"`
	Amount      int64     `db:"amount"`
	ContractID  string    `db:"contract_id"`
	Sender      string    `db:"sender"`
	Recipient   string    `db:"recipient"`
	UtxoID      string    `db:"utxo_id"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
}

// IsPredicateOwned reports whether this coin input carries predicate
// bytecode and therefore produces a predicates-registry row (spec §8.4
// S1: "1 predicates row iff the input is a coin-predicate variant").
func (i Input) IsPredicateOwned() bool {
	return i.Variant == InputVariantCoin && len(i.PredicateBytecode) > 0
}

// ConsumesUTXO reports whether this input variant consumes a UTXO (spec
// §3.2: "Inputs carry the UTXO they consume").
func (i Input) ConsumesUTXO() bool {
	return i.Variant == InputVariantCoin || i.Variant == InputVariantContract
}

// Packet projects the row into the flattened packet-vector view.
func (r InputRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
