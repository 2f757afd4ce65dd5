package records

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/chainstream/streams/internal/xtypes"
)

// Message is the domain form of a cross-chain message, either consumed by
// a Message input or emitted by a message_out receipt (spec §4.B.3).
type Message struct {
	Sender      xtypes.Address
	Recipient   xtypes.Address
	Nonce       xtypes.Bytes32
	Amount      xtypes.U64
	Data        xtypes.HexData
	BlockHeight uint64
}

// MessageRow is the flat row persisted to the `messages` table (spec §6).
type MessageRow struct {
	Subject     string    `db:"subject"` // UNIQUE
	Value       []byte    `db:"value"`
	Cursor      string    `db:"cursor"`
	MessageID   string    `db:"message_id"` // UNIQUE
	Sender      string    `db:"sender"`
	Recipient   string    `db:"recipient"`
	Nonce       string    `db:"nonce"`
	Amount      int64     `db:"amount"`
	BlockHeight int64     `db:"block_height"`
	CreatedAt   time.Time `db:"created_at"`
	PublishedAt time.Time `db:"published_at"`
}

// ID derives message_id = Hash(sender || recipient || nonce || amount_be
// || data), the canonical cross-chain message identifier (spec §4.B.3).
func (m Message) ID() xtypes.Bytes32 {
	h := sha256.New()
	h.Write(m.Sender[:])
	h.Write(m.Recipient[:])
	h.Write(m.Nonce[:])
	var amountBE [8]byte
	binary.BigEndian.PutUint64(amountBE[:], uint64(m.Amount))
	h.Write(amountBE[:])
	h.Write(m.Data)
	var out xtypes.Bytes32
	copy(out[:], h.Sum(nil))
	return out
}

// messageFromInput derives the Message a Message-variant input consumes.
func messageFromInput(blockHeight uint64, in Input) (Message, bool) {
	if in.Variant != InputVariantMessage {
		return Message{}, false
	}
	return Message{
		Sender:      in.Sender,
		Recipient:   in.Recipient,
		Nonce:       in.Nonce,
		Amount:      in.MsgAmount,
		Data:        in.Data,
		BlockHeight: blockHeight,
	}, true
}

// messageFromReceipt derives the Message a message_out receipt emits.
func messageFromReceipt(blockHeight uint64, r Receipt, nonce xtypes.Bytes32) (Message, bool) {
	if !r.ProducesMessage() {
		return Message{}, false
	}
	return Message{
		Sender:      r.Sender,
		Recipient:   r.Recipient,
		Nonce:       nonce,
		Amount:      r.Amount,
		Data:        r.Data,
		BlockHeight: blockHeight,
	}, true
}

// Packet projects the row into the flattened packet-vector view.
func (r MessageRow) Packet(entity string) Packet {
	return Packet{Entity: entity, Subject: r.Subject, Value: r.Value, Cursor: r.Cursor, BlockHeight: r.BlockHeight}
}
