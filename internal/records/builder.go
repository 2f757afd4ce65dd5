package records

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chainstream/streams/internal/subject"
)

// Bundle is everything the packet-builder derives from one Payload: the
// rows ready for repository upsert, grouped by table, each already
// carrying its resolved subject string and totally-ordered cursor (spec
// §4.B.1: "assign deterministic cursor tuples; select subject variant by
// record's variant tag; compute bound subject string; attach block
// timestamp; compute utxo_id for derived UTXOs").
type Bundle struct {
	Block             BlockRow
	Transactions      []TransactionRow
	Inputs            []InputRow
	Outputs           []OutputRow
	Receipts          []ReceiptRow
	Utxos             []UtxoRow
	Predicates        []PredicateRow
	PredicateTxLinks  []PredicateTransactionRow
	Messages          []MessageRow
}

// Builder turns a Payload into a Bundle of subject-bound, cursor-ordered
// rows, resolving each record's wire subject against a Registry.
type Builder struct {
	reg *subject.Registry
}

func NewBuilder(reg *subject.Registry) *Builder {
	return &Builder{reg: reg}
}

// Build implements the packet-builder contract of spec §4.B.1.
func (b *Builder) Build(p Payload) (*Bundle, error) {
	now := p.ReceivedAt
	if now.IsZero() {
		now = p.Block.Timestamp
	}

	bundle := &Bundle{}

	blockSubj, err := b.bind("blocks", map[string]string{
		"height":   fmt.Sprint(p.Block.Height),
		"producer": p.Block.ProducerAddress.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("records: bind block subject: %w", err)
	}
	blockVal, err := json.Marshal(p.Block)
	if err != nil {
		return nil, fmt.Errorf("records: marshal block: %w", err)
	}
	bundle.Block = BlockRow{
		Subject:            blockSubj,
		Value:              blockVal,
		Cursor:             Cursor{BlockHeight: p.Block.Height}.String(),
		BlockDaHeight:      int64(p.Block.DaHeight),
		BlockHeight:        int64(p.Block.Height),
		ProducerAddress:    p.Block.ProducerAddress.String(),
		CreatedAt:          now,
		PublishedAt:        now,
		BlockPropagationMs: p.Block.PropagationMs,
	}

	// record index 0 is the block row's own cursor (height, 0, 0).
	recordIndex := uint32(1)

	for _, tx := range p.Transactions {
		cursor := Cursor{BlockHeight: p.Block.Height, TxIndex: tx.TxIndex, RecordIndex: recordIndex}
		recordIndex++

		txSubj, err := b.bind("transactions", map[string]string{
			"height": fmt.Sprint(p.Block.Height),
			"index":  fmt.Sprint(tx.TxIndex),
			"tx_id":  tx.TxID.String(),
			"status": string(tx.Status),
			"kind":   string(tx.Kind),
		})
		if err != nil {
			return nil, fmt.Errorf("records: bind transaction subject: %w", err)
		}
		txVal, err := json.Marshal(tx)
		if err != nil {
			return nil, fmt.Errorf("records: marshal transaction: %w", err)
		}
		bundle.Transactions = append(bundle.Transactions, TransactionRow{
			BlockHeight: int64(p.Block.Height),
			TxID:        tx.TxID.String(),
			TxIndex:     int32(tx.TxIndex),
			TxStatus:    string(tx.Status),
			Type:        string(tx.Kind),
			Subject:     txSubj,
			Value:       txVal,
			CreatedAt:   now,
			PublishedAt: now,
			Cursor:      cursor.String(),
		})

		if err := b.buildInputs(bundle, p.Block.Height, tx, now, &recordIndex); err != nil {
			return nil, err
		}
		if err := b.buildOutputs(bundle, p.Block.Height, tx, now, &recordIndex); err != nil {
			return nil, err
		}
		if err := b.buildReceipts(bundle, p.Block.Height, tx, now, &recordIndex); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

func (b *Builder) buildInputs(bundle *Bundle, height uint64, tx Transaction, now time.Time, recordIndex *uint32) error {
	for _, in := range tx.Inputs {
		schemaID := "inputs_" + string(in.Variant)
		values := map[string]string{
			"height": fmt.Sprint(height),
			"tx_id":  tx.TxID.String(),
			"index":  fmt.Sprint(in.InputIndex),
		}
		switch in.Variant {
		case InputVariantCoin:
			values["owner"] = in.Owner.String()
			values["asset"] = in.AssetID.String()
		case InputVariantContract:
			values["contract"] = in.ContractID.String()
		case InputVariantMessage:
			values["sender"] = in.Sender.String()
			values["recipient"] = in.Recipient.String()
		}
		subj, err := b.bind(schemaID, values)
		if err != nil {
			return fmt.Errorf("records: bind input subject: %w", err)
		}
		val, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("records: marshal input: %w", err)
		}
		bundle.Inputs = append(bundle.Inputs, InputRow{
			Subject:     subj,
			Value:       val,
			Cursor:      (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
			BlockHeight: int64(height),
			TxID:        tx.TxID.String(),
			TxIndex:     int32(tx.TxIndex),
			InputIndex:  int32(in.InputIndex),
			InputType:   string(in.Variant),
			Owner:       in.Owner.String(),
			AssetID:     in.AssetID.String(),
			Amount:      int64(in.Amount),
			ContractID:  in.ContractID.String(),
			Sender:      in.Sender.String(),
			Recipient:   in.Recipient.String(),
			UtxoID:      in.UtxoID,
			CreatedAt:   now,
			PublishedAt: now,
		})
		*recordIndex++

		if pred, ok := predicateFromInput(height, in); ok {
			predSubj, err := b.bind("predicates", map[string]string{"address": pred.Address.String()})
			if err != nil {
				return fmt.Errorf("records: bind predicate subject: %w", err)
			}
			predVal, err := json.Marshal(pred)
			if err != nil {
				return fmt.Errorf("records: marshal predicate: %w", err)
			}
			bundle.Predicates = append(bundle.Predicates, PredicateRow{
				Subject:     predSubj,
				Value:       predVal,
				Cursor:      (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
				Address:     pred.Address.String(),
				Bytecode:    pred.Bytecode,
				BlockHeight: int64(height),
				CreatedAt:   now,
				PublishedAt: now,
			})
			bundle.PredicateTxLinks = append(bundle.PredicateTxLinks, PredicateTransactionRow{
				PredicateAddress: pred.Address.String(),
				TxID:             tx.TxID.String(),
				BlockHeight:      int64(height),
				CreatedAt:        now,
			})
			*recordIndex++
		}

		if msg, ok := messageFromInput(height, in); ok {
			if err := b.appendMessage(bundle, height, tx, msg, now, recordIndex); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) buildOutputs(bundle *Bundle, height uint64, tx Transaction, now time.Time, recordIndex *uint32) error {
	for _, out := range tx.Outputs {
		schemaID := "outputs_" + string(out.Variant)
		values := map[string]string{
			"height": fmt.Sprint(height),
			"tx_id":  tx.TxID.String(),
			"index":  fmt.Sprint(out.OutputIndex),
		}
		switch out.Variant {
		case OutputVariantCoin, OutputVariantChange, OutputVariantVariable:
			values["to"] = out.To.String()
			values["asset"] = out.AssetID.String()
		case OutputVariantContract, OutputVariantContractCreated:
			values["contract"] = out.ContractID.String()
		}
		subj, err := b.bind(schemaID, values)
		if err != nil {
			return fmt.Errorf("records: bind output subject: %w", err)
		}
		val, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("records: marshal output: %w", err)
		}
		bundle.Outputs = append(bundle.Outputs, OutputRow{
			Subject:     subj,
			Value:       val,
			Cursor:      (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
			BlockHeight: int64(height),
			TxID:        tx.TxID.String(),
			TxIndex:     int32(tx.TxIndex),
			OutputIndex: int32(out.OutputIndex),
			OutputType:  string(out.Variant),
			To:          out.To.String(),
			AssetID:     out.AssetID.String(),
			Amount:      int64(out.Amount),
			ContractID:  out.ContractID.String(),
			CreatedAt:   now,
			PublishedAt: now,
		})
		*recordIndex++

		if utxo, ok := utxoFromOutput(out); ok {
			utxoSubj, err := b.bind("utxos", map[string]string{
				"height":    fmt.Sprint(height),
				"tx_id":     tx.TxID.String(),
				"utxo_type": string(utxo.Variant),
			})
			if err != nil {
				return fmt.Errorf("records: bind utxo subject: %w", err)
			}
			utxoVal, err := json.Marshal(utxo)
			if err != nil {
				return fmt.Errorf("records: marshal utxo: %w", err)
			}
			bundle.Utxos = append(bundle.Utxos, UtxoRow{
				Subject:     utxoSubj,
				Value:       utxoVal,
				Cursor:      (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
				UtxoID:      utxo.ID(),
				TxID:        utxo.TxID.String(),
				BlockHeight: int64(height),
				OutputIndex: int32(utxo.OutputIndex),
				UtxoType:    string(utxo.Variant),
				Owner:       utxo.Owner.String(),
				AssetID:     utxo.AssetID.String(),
				Amount:      int64(utxo.Amount),
				ContractID:  utxo.ContractID.String(),
				CreatedAt:   now,
				PublishedAt: now,
			})
			*recordIndex++
		}
	}
	return nil
}

func (b *Builder) buildReceipts(bundle *Bundle, height uint64, tx Transaction, now time.Time, recordIndex *uint32) error {
	for _, r := range tx.Receipts {
		schemaID := "receipts_" + string(r.Variant)
		values := map[string]string{
			"height": fmt.Sprint(height),
			"tx_id":  tx.TxID.String(),
			"index":  fmt.Sprint(r.ReceiptIndex),
		}
		switch r.Variant {
		case ReceiptVariantCall, ReceiptVariantTransfer:
			values["from"] = r.From.String()
			values["to"] = r.To.String()
			values["asset"] = r.Asset.String()
		case ReceiptVariantTransferOut:
			values["from"] = r.From.String()
			values["to"] = r.ToAddress.String()
			values["asset"] = r.Asset.String()
		case ReceiptVariantMessageOut:
			values["sender"] = r.Sender.String()
			values["recipient"] = r.Recipient.String()
		case ReceiptVariantMint, ReceiptVariantBurn:
			values["contract"] = r.Contract.String()
			values["sub_id"] = r.SubID.String()
		}
		subj, err := b.bind(schemaID, values)
		if err != nil {
			return fmt.Errorf("records: bind receipt subject: %w", err)
		}
		val, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("records: marshal receipt: %w", err)
		}
		bundle.Receipts = append(bundle.Receipts, ReceiptRow{
			Subject:      subj,
			Value:        val,
			Cursor:       (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
			BlockHeight:  int64(height),
			TxID:         tx.TxID.String(),
			TxIndex:      int32(tx.TxIndex),
			ReceiptIndex: int32(r.ReceiptIndex),
			ReceiptType:  string(r.Variant),
			FromContract: r.From.String(),
			ToContract:   r.To.String(),
			AssetID:      r.Asset.String(),
			ToAddress:    r.ToAddress.String(),
			Sender:       r.Sender.String(),
			Recipient:    r.Recipient.String(),
			SubID:        r.SubID.String(),
			Amount:       int64(r.Amount),
			CreatedAt:    now,
			PublishedAt:  now,
		})
		*recordIndex++

		// block-event sub-pipeline: message_out receipts derive an
		// outgoing Message keyed by the receipt's own index as nonce
		// material (spec §4.G.5).
		if msg, ok := messageFromReceipt(height, r, nonceFromReceiptIndex(r.ReceiptIndex, tx.TxID)); ok {
			if err := b.appendMessage(bundle, height, tx, msg, now, recordIndex); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) appendMessage(bundle *Bundle, height uint64, tx Transaction, msg Message, now time.Time, recordIndex *uint32) error {
	subj, err := b.bind("messages", map[string]string{
		"sender":    msg.Sender.String(),
		"recipient": msg.Recipient.String(),
	})
	if err != nil {
		return fmt.Errorf("records: bind message subject: %w", err)
	}
	val, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("records: marshal message: %w", err)
	}
	id := msg.ID()
	bundle.Messages = append(bundle.Messages, MessageRow{
		Subject:     subj,
		Value:       val,
		Cursor:      (Cursor{BlockHeight: height, TxIndex: tx.TxIndex, RecordIndex: *recordIndex}).String(),
		MessageID:   id.String(),
		Sender:      msg.Sender.String(),
		Recipient:   msg.Recipient.String(),
		Nonce:       msg.Nonce.String(),
		Amount:      int64(msg.Amount),
		BlockHeight: int64(height),
		CreatedAt:   now,
		PublishedAt: now,
	})
	*recordIndex++
	return nil
}

// nonceFromReceiptIndex derives deterministic nonce material for
// messages emitted via message_out receipts, which carry no on-wire
// nonce field distinct from the enclosing transaction (spec §4.B.3).
func nonceFromReceiptIndex(receiptIndex uint32, txID interface{ String() string }) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s:%d", txID.String(), receiptIndex)))
}

func (b *Builder) bind(schemaID string, values map[string]string) (string, error) {
	schema, ok := b.reg.ByID(schemaID)
	if !ok {
		return "", fmt.Errorf("records: unknown schema %q", schemaID)
	}
	subj := subject.New(schema, values)
	return subj.Parse(), nil
}

// Packet is the glossary's "tuple of (subject string, payload bytes,
// cursor tuple, ...) produced from a domain record, consumed by storage
// and by streaming" (spec glossary). Entity is the table name, used by
// the block-event sub-pipeline to filter for Message packets only.
type Packet struct {
	Entity      string
	Subject     string
	Value       []byte
	Cursor      string
	BlockHeight int64
}

// Packets flattens the Bundle into its packet-vector, grouped by entity
// (the block, then transactions, inputs, outputs, receipts, utxos,
// predicates and messages), each group in build order (spec §4.G.3:
// "the store transaction serializes writes in packet-vector order").
func (bd *Bundle) Packets() []Packet {
	packets := make([]Packet, 0, 1+len(bd.Transactions)+len(bd.Inputs)+len(bd.Outputs)+
		len(bd.Receipts)+len(bd.Utxos)+len(bd.Predicates)+len(bd.Messages))

	packets = append(packets, bd.Block.Packet("blocks"))
	for _, r := range bd.Transactions {
		packets = append(packets, r.Packet("transactions"))
	}
	for _, r := range bd.Inputs {
		packets = append(packets, r.Packet("inputs"))
	}
	for _, r := range bd.Outputs {
		packets = append(packets, r.Packet("outputs"))
	}
	for _, r := range bd.Receipts {
		packets = append(packets, r.Packet("receipts"))
	}
	for _, r := range bd.Utxos {
		packets = append(packets, r.Packet("utxos"))
	}
	for _, r := range bd.Predicates {
		packets = append(packets, r.Packet("predicates"))
	}
	for _, r := range bd.Messages {
		packets = append(packets, r.Packet("messages"))
	}
	return packets
}
