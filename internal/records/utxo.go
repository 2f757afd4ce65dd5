package records

import (
	"fmt"
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// UtxoVariant tags a UTXO row's kind (spec §3.2). utxoFromOutput always
// tags its rows Coin; nothing in this package derives Contract rows.
type UtxoVariant string

const (
	UtxoVariantCoin     UtxoVariant = "coin"
	UtxoVariantContract UtxoVariant = "contract"
	UtxoVariantMessage  UtxoVariant = "message"
)

// Utxo is the domain form of one entry in the UTXO registry, derived
// rather than sourced directly from the node (spec §3.2: "the UTXO
// registry is derived bookkeeping, not a node-native record").
type Utxo struct {
	TxID        xtypes.TxId
	OutputIndex uint32
	Variant     UtxoVariant
	Owner       xtypes.Address
	AssetID     xtypes.AssetId
	Amount      xtypes.U64
	ContractID  xtypes.ContractId
}

// ID derives the canonical utxo_id = (tx_id, output_index) (spec §3.2).
func (u Utxo) ID() string {
	return fmt.Sprintf("%s:%d", u.TxID.String(), u.OutputIndex)
}

// UtxoRow is the flat row persisted to the `utxos` table (spec §6).
type UtxoRow struct {
	Subject     string    `db:"subject"` // UNIQUE
	Value       []byte    `db:"value"`
	Cursor      string    `db:"cursor"`
	UtxoID      string    `db:"utxo_id"`
	TxID        string    `db:"tx_id"`
	BlockHeight int64     `db:"block_height"`
	OutputIndex int32     `db:"output_index"`
	UtxoType    string    `db:"utxo_type"`
	Owner       string    `db:"owner"`
	AssetID     string    `db:"asset_id"`
	Amount      int64     `db:"amount"`
	ContractID  string    `db:"contract_id"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
}

// utxoFromOutput derives the Utxo a produced Output yields, per the
// ProducesUTXO invariant of output.go. Returns false if this output
// variant does not produce a UTXO.
func utxoFromOutput(o Output) (Utxo, bool) {
	if !o.ProducesUTXO() {
		return Utxo{}, false
	}
	return Utxo{
		TxID:        o.TxID,
		OutputIndex: o.OutputIndex,
		Variant:     UtxoVariantCoin,
		Owner:       o.To,
		AssetID:     o.AssetID,
		Amount:      o.Amount,
	}, true
}

// Packet projects the row into the flattened packet-vector view.
func (r UtxoRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
