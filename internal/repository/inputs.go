package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// InputRepository implements spec §4.E for the `inputs` table.
type InputRepository struct {
	store *Store
}

func NewInputRepository(store *Store) *InputRepository {
	return &InputRepository{store: store}
}

func (r *InputRepository) Insert(ctx context.Context, row records.InputRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *InputRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.InputRow) error {
	return r.insert(ctx, tx, row)
}

func (r *InputRepository) insert(ctx context.Context, q querier, row records.InputRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO inputs (subject, value, cursor, block_height, tx_id, tx_index, input_index, input_type, owner, asset_id, amount, contract_id, sender, recipient, utxo_id, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (tx_id, input_index) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			value = EXCLUDED.value`,
		row.Subject, row.Value, row.Cursor, row.BlockHeight, row.TxID, row.TxIndex,
		row.InputIndex, row.InputType, row.Owner, row.AssetID, row.Amount,
		row.ContractID, row.Sender, row.Recipient, row.UtxoID, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *InputRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.InputRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("inputs", "Input", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.InputRow])
	return out, wrapQueryErr(err)
}
