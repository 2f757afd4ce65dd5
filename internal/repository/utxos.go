package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// UtxoRepository implements spec §4.E for the derived `utxos` registry.
type UtxoRepository struct {
	store *Store
}

func NewUtxoRepository(store *Store) *UtxoRepository {
	return &UtxoRepository{store: store}
}

func (r *UtxoRepository) Insert(ctx context.Context, row records.UtxoRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *UtxoRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.UtxoRow) error {
	return r.insert(ctx, tx, row)
}

func (r *UtxoRepository) insert(ctx context.Context, q querier, row records.UtxoRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO utxos (subject, value, cursor, utxo_id, tx_id, block_height, output_index, utxo_type, owner, asset_id, amount, contract_id, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (utxo_id) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			value = EXCLUDED.value`,
		row.Subject, row.Value, row.Cursor, row.UtxoID, row.TxID, row.BlockHeight, row.OutputIndex,
		row.UtxoType, row.Owner, row.AssetID, row.Amount, row.ContractID, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *UtxoRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.UtxoRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("utxos", "Utxo", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.UtxoRow])
	return out, wrapQueryErr(err)
}
