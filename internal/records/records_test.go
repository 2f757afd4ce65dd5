package records

import (
	"testing"

	"github.com/chainstream/streams/internal/subject"
	"github.com/chainstream/streams/internal/xtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *subject.Registry {
	t.Helper()
	reg, err := subject.NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestBuilderSingleBlockScenario(t *testing.T) {
	reg := testRegistry(t)
	b := NewBuilder(reg)

	payload := MockSingleBlockPayload(42)
	bundle, err := b.Build(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(42), bundle.Block.BlockHeight)
	assert.NotContains(t, bundle.Block.Subject, "*")

	require.Len(t, bundle.Transactions, 1)
	assert.NotContains(t, bundle.Transactions[0].Subject, "*")

	// S1: one coin input, predicate-owned -> exactly one predicates row
	// and one predicate_transactions link (spec §8.4 S1).
	require.Len(t, bundle.Inputs, 1)
	require.Len(t, bundle.Predicates, 1)
	require.Len(t, bundle.PredicateTxLinks, 1)
	assert.Equal(t, bundle.Inputs[0].Owner, bundle.Predicates[0].Address)

	// one coin output -> exactly one derived utxo row
	require.Len(t, bundle.Outputs, 1)
	require.Len(t, bundle.Utxos, 1)
	assert.Equal(t, bundle.Outputs[0].TxID, bundle.Utxos[0].TxID)

	require.Len(t, bundle.Receipts, 1)
	assert.Equal(t, string(ReceiptVariantCall), bundle.Receipts[0].ReceiptType)

	// call receipts do not derive messages
	assert.Len(t, bundle.Messages, 0)
}

func TestBuilderCursorsAreUnique(t *testing.T) {
	reg := testRegistry(t)
	b := NewBuilder(reg)

	bundle, err := b.Build(MockSingleBlockPayload(7))
	require.NoError(t, err)

	seen := map[string]bool{bundle.Block.Cursor: true}
	for _, row := range bundle.Transactions {
		assert.False(t, seen[row.Cursor], "duplicate cursor %s", row.Cursor)
		seen[row.Cursor] = true
	}
	for _, row := range bundle.Inputs {
		assert.False(t, seen[row.Cursor])
		seen[row.Cursor] = true
	}
	for _, row := range bundle.Outputs {
		assert.False(t, seen[row.Cursor])
		seen[row.Cursor] = true
	}
	for _, row := range bundle.Utxos {
		assert.False(t, seen[row.Cursor])
		seen[row.Cursor] = true
	}
	for _, row := range bundle.Predicates {
		assert.False(t, seen[row.Cursor])
		seen[row.Cursor] = true
	}
}

func TestMessageOutReceiptDerivesMessage(t *testing.T) {
	reg := testRegistry(t)
	b := NewBuilder(reg)

	payload := MockSingleBlockPayload(1)
	tx := &payload.Transactions[0]
	tx.Receipts = append(tx.Receipts, Receipt{
		BlockHeight:  1,
		TxID:         tx.TxID,
		TxIndex:      0,
		ReceiptIndex: 1,
		Variant:      ReceiptVariantMessageOut,
		Sender:       mustAddr(mockAddrA),
		Recipient:    mustAddr(mockAddrB),
		Amount:       xtypes.U64(500),
	})

	bundle, err := b.Build(payload)
	require.NoError(t, err)
	require.Len(t, bundle.Messages, 1)
	assert.NotEmpty(t, bundle.Messages[0].MessageID)
}

func TestUtxoIDDerivation(t *testing.T) {
	u := Utxo{TxID: mustTxID(mockTxA), OutputIndex: 3}
	assert.Equal(t, mustTxID(mockTxA).String()+":3", u.ID())
}

func TestMessageIDDeterministic(t *testing.T) {
	m1 := Message{Sender: mustAddr(mockAddrA), Recipient: mustAddr(mockAddrB), Amount: xtypes.U64(10)}
	m2 := m1
	assert.Equal(t, m1.ID(), m2.ID())

	m3 := m1
	m3.Amount = xtypes.U64(11)
	assert.NotEqual(t, m1.ID(), m3.ID())
}

func TestBundlePacketsCoversEveryRow(t *testing.T) {
	reg := testRegistry(t)
	b := NewBuilder(reg)

	bundle, err := b.Build(MockSingleBlockPayload(9))
	require.NoError(t, err)

	packets := bundle.Packets()
	want := 1 + len(bundle.Transactions) + len(bundle.Inputs) + len(bundle.Outputs) +
		len(bundle.Receipts) + len(bundle.Utxos) + len(bundle.Predicates) + len(bundle.Messages)
	require.Len(t, packets, want)

	assert.Equal(t, "blocks", packets[0].Entity)
	assert.Equal(t, bundle.Block.Subject, packets[0].Subject)

	for _, p := range packets {
		assert.NotEmpty(t, p.Subject)
		assert.NotEmpty(t, p.Value)
	}
}

func TestCursorOrdering(t *testing.T) {
	a := Cursor{BlockHeight: 1, TxIndex: 0, RecordIndex: 0}
	b := Cursor{BlockHeight: 1, TxIndex: 0, RecordIndex: 1}
	c := Cursor{BlockHeight: 2, TxIndex: 0, RecordIndex: 0}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.True(t, a.Equal(a))
}
