package records

import (
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// OutputVariant is the closed taxonomy of output records (spec §3.1).
type OutputVariant string

const (
	OutputVariantCoin             OutputVariant = "coin"
	OutputVariantContract         OutputVariant = "contract"
	OutputVariantChange           OutputVariant = "change"
	OutputVariantVariable         OutputVariant = "variable"
	OutputVariantContractCreated  OutputVariant = "contract_created"
)

// Output is the domain form of one transaction output.
type Output struct {
	BlockHeight uint64
	TxID        xtypes.TxId
	TxIndex     uint32
	OutputIndex uint32
	Variant     OutputVariant

	// Coin / Change / Variable
	To      xtypes.Address
	AssetID xtypes.AssetId
	Amount  xtypes.U64

	// Contract / ContractCreated
	ContractID xtypes.ContractId
}

// OutputRow is the flat row persisted to the `outputs` table (spec §6).
type OutputRow struct {
	Subject     string    `db:"subject"` // UNIQUE
	Value       []byte    `db:"value"`
	Cursor      string    `db:"cursor"`
	BlockHeight int64     `db:"block_height"`
	TxID        string    `db:"tx_id"`
	TxIndex     int32     `db:"tx_index"`
	OutputIndex int32     `db:"output_index"`
	OutputType  string    `db:"output_type"`
	To          string    `db:"to_address"`
	AssetID     string    `db:"asset_id"`
	Amount      int64     `db:"amount"`
	ContractID  string    `db:"contract_id"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
}

// ProducesUTXO reports whether this output variant produces a UTXO (spec
// §3.2: "An output of variant {Coin, Change, Variable} produces a UTXO
// with id (tx_id, output_index); Contract/ContractCreated outputs do not
// create UTXOs").
func (o Output) ProducesUTXO() bool {
	switch o.Variant {
	case OutputVariantCoin, OutputVariantChange, OutputVariantVariable:
		return true
	default:
		return false
	}
}

// Packet projects the row into the flattened packet-vector view.
func (r OutputRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
