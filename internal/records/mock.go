package records

import (
	"strings"
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// mustAddr/mustAsset/mustContract/mustTx are test-only helpers that parse
// a fixed hex literal, panicking on failure — acceptable only in mock
// fixtures never reachable from production code.
func mustAddr(hex string) xtypes.Address {
	a, err := xtypes.ParseAddress(hex)
	if err != nil {
		panic(err)
	}
	return a
}

func mustAsset(hex string) xtypes.AssetId {
	a, err := xtypes.ParseAssetId(hex)
	if err != nil {
		panic(err)
	}
	return a
}

func mustContract(hex string) xtypes.ContractId {
	c, err := xtypes.ParseContractId(hex)
	if err != nil {
		panic(err)
	}
	return c
}

func mustTxID(hex string) xtypes.TxId {
	t, err := xtypes.ParseTxId(hex)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	mockAddrA     = "0x01" + strings.Repeat("0", 62)
	mockAddrB     = "0x02" + strings.Repeat("0", 62)
	mockAssetBase = "0x03" + strings.Repeat("0", 62)
	mockContract  = "0x04" + strings.Repeat("0", 62)
	mockTxA       = "0x05" + strings.Repeat("0", 62)
)

// MockSingleBlockPayload builds the scenario S1 fixture of spec §8.4: one
// block containing one transaction with one coin input (predicate-owned),
// one coin output, and one call receipt. Used by both records tests and
// downstream package tests (executor, stream) that need a minimal, known
// payload without standing up a node connection.
func MockSingleBlockPayload(height uint64) Payload {
	owner := mustAddr(mockAddrA)
	asset := mustAsset(mockAssetBase)
	contract := mustContract(mockContract)
	txID := mustTxID(mockTxA)

	in := Input{
		BlockHeight:       height,
		TxID:              txID,
		TxIndex:           0,
		InputIndex:        0,
		Variant:           InputVariantCoin,
		Owner:             owner,
		AssetID:           asset,
		Amount:            xtypes.U64(1_000_000),
		PredicateBytecode: xtypes.HexData{0xde, 0xad, 0xbe, 0xef},
		UtxoID:            "genesis:0",
	}
	out := Output{
		BlockHeight: height,
		TxID:        txID,
		TxIndex:     0,
		OutputIndex: 0,
		Variant:     OutputVariantCoin,
		To:          mustAddr(mockAddrB),
		AssetID:     asset,
		Amount:      xtypes.U64(999_000),
	}
	receipt := Receipt{
		BlockHeight:  height,
		TxID:         txID,
		TxIndex:      0,
		ReceiptIndex: 0,
		Variant:      ReceiptVariantCall,
		From:         contract,
		To:           contract,
		Asset:        asset,
		Amount:       xtypes.U64(0),
	}

	tx := Transaction{
		BlockHeight: height,
		TxID:        txID,
		TxIndex:     0,
		Status:      TxStatusSuccess,
		Kind:        TxKindScript,
		Inputs:      []Input{in},
		Outputs:     []Output{out},
		Receipts:    []Receipt{receipt},
	}

	block := Block{
		Height:          height,
		DaHeight:        height,
		ProducerAddress: owner,
		Timestamp:       time.Unix(1_700_000_000, 0).UTC(),
		PropagationMs:   120,
	}

	return Payload{
		Block:        block,
		Transactions: []Transaction{tx},
		Chain:        ChainMeta{ChainID: "mock", BaseAssetID: asset.String()},
		ReceivedAt:   block.Timestamp,
	}
}
