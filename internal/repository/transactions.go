package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// TransactionRepository implements spec §4.E for the `transactions`
// table.
type TransactionRepository struct {
	store *Store
}

func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Insert(ctx context.Context, row records.TransactionRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *TransactionRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.TransactionRow) error {
	return r.insert(ctx, tx, row)
}

func (r *TransactionRepository) insert(ctx context.Context, q querier, row records.TransactionRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO transactions (block_height, tx_id, tx_index, tx_status, type, subject, value, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_id) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			tx_status = EXCLUDED.tx_status,
			value = EXCLUDED.value`,
		row.BlockHeight, row.TxID, row.TxIndex, row.TxStatus, row.Type,
		row.Subject, row.Value, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *TransactionRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.TransactionRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("transactions", "Transaction", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.TransactionRow])
	return out, wrapQueryErr(err)
}

func (r *TransactionRepository) FindByHeightRange(ctx context.Context, from, to int64) ([]records.TransactionRow, error) {
	rows, err := r.store.Pool.Query(ctx, `
		SELECT * FROM transactions WHERE block_height >= $1 AND block_height <= $2 ORDER BY block_height ASC, tx_index ASC`,
		from, to)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.TransactionRow])
	return out, wrapQueryErr(err)
}
