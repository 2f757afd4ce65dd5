package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// ReceiptRepository implements spec §4.E for the `receipts` table.
type ReceiptRepository struct {
	store *Store
}

func NewReceiptRepository(store *Store) *ReceiptRepository {
	return &ReceiptRepository{store: store}
}

func (r *ReceiptRepository) Insert(ctx context.Context, row records.ReceiptRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *ReceiptRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.ReceiptRow) error {
	return r.insert(ctx, tx, row)
}

func (r *ReceiptRepository) insert(ctx context.Context, q querier, row records.ReceiptRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO receipts (subject, value, cursor, block_height, tx_id, tx_index, receipt_index, receipt_type, from_contract, to_contract, asset_id, to_address, sender, recipient, sub_id, amount, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (tx_id, receipt_index) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			value = EXCLUDED.value`,
		row.Subject, row.Value, row.Cursor, row.BlockHeight, row.TxID, row.TxIndex,
		row.ReceiptIndex, row.ReceiptType, row.FromContract, row.ToContract, row.AssetID,
		row.ToAddress, row.Sender, row.Recipient, row.SubID, row.Amount, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *ReceiptRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.ReceiptRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("receipts", "Receipt", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.ReceiptRow])
	return out, wrapQueryErr(err)
}
