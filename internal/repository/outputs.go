package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// OutputRepository implements spec §4.E for the `outputs` table.
type OutputRepository struct {
	store *Store
}

func NewOutputRepository(store *Store) *OutputRepository {
	return &OutputRepository{store: store}
}

func (r *OutputRepository) Insert(ctx context.Context, row records.OutputRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *OutputRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.OutputRow) error {
	return r.insert(ctx, tx, row)
}

func (r *OutputRepository) insert(ctx context.Context, q querier, row records.OutputRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO outputs (subject, value, cursor, block_height, tx_id, tx_index, output_index, output_type, to_address, asset_id, amount, contract_id, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tx_id, output_index) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			value = EXCLUDED.value`,
		row.Subject, row.Value, row.Cursor, row.BlockHeight, row.TxID, row.TxIndex,
		row.OutputIndex, row.OutputType, row.To, row.AssetID, row.Amount,
		row.ContractID, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *OutputRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.OutputRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("outputs", "Output", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.OutputRow])
	return out, wrapQueryErr(err)
}
