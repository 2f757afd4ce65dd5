package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// BlockRepository implements spec §4.E for the `blocks` table.
type BlockRepository struct {
	store *Store
}

func NewBlockRepository(store *Store) *BlockRepository {
	return &BlockRepository{store: store}
}

// Insert upserts keyed on block_height, refreshing published_at on
// conflict (spec §4.E: "published_at refreshed to now on conflict").
func (r *BlockRepository) Insert(ctx context.Context, row records.BlockRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

// InsertWithTx runs the same upsert inside an externally managed
// transaction (spec §4.E: insert_with_transaction).
func (r *BlockRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.BlockRow) error {
	return r.insert(ctx, tx, row)
}

func (r *BlockRepository) insert(ctx context.Context, q querier, row records.BlockRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO blocks (subject, value, cursor, block_da_height, block_height, producer_address, created_at, published_at, block_propagation_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (block_height) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			value = EXCLUDED.value,
			cursor = EXCLUDED.cursor`,
		row.Subject, row.Value, row.Cursor, row.BlockDaHeight, row.BlockHeight,
		row.ProducerAddress, row.CreatedAt, row.PublishedAt, row.BlockPropagationMs,
	)
	return wrapInsertErr(err)
}

// FindMany runs a validated query.Plan against the blocks table.
// subjectWhere and minHeight keep the signature uniform across entity
// repositories, so Repositories.FindManyPackets can dispatch to it; the
// REST layer passes the blocks schema's WHERE fragment (height and
// producer filters) as subjectWhere.
func (r *BlockRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.BlockRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("blocks", "Block", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.BlockRow])
	return out, wrapQueryErr(err)
}

// FindOne returns the first row matching p, or pgx.ErrNoRows.
func (r *BlockRepository) FindOne(ctx context.Context, p query.Pagination) (records.BlockRow, error) {
	one := 1
	p.Limit = &one
	rows, err := r.FindMany(ctx, p, "", nil)
	if err != nil {
		return records.BlockRow{}, err
	}
	if len(rows) == 0 {
		return records.BlockRow{}, pgx.ErrNoRows
	}
	return rows[0], nil
}

// FindLastBlockHeight returns the highest stored block_height (spec
// §4.E: find_last_block_height).
func (r *BlockRepository) FindLastBlockHeight(ctx context.Context) (int64, error) {
	var h int64
	err := r.store.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(block_height), 0) FROM blocks`).Scan(&h)
	return h, wrapQueryErr(err)
}

// FindFirstBlockHeight returns the lowest stored block_height (spec
// §4.E: find_first_block_height).
func (r *BlockRepository) FindFirstBlockHeight(ctx context.Context) (int64, error) {
	var h int64
	err := r.store.Pool.QueryRow(ctx, `SELECT COALESCE(MIN(block_height), 0) FROM blocks`).Scan(&h)
	return h, wrapQueryErr(err)
}

// FindByHeightRange scans blocks with height in [from, to] (spec §4.E:
// find_by_height_range).
func (r *BlockRepository) FindByHeightRange(ctx context.Context, from, to int64) ([]records.BlockRow, error) {
	rows, err := r.store.Pool.Query(ctx, `
		SELECT * FROM blocks WHERE block_height >= $1 AND block_height <= $2 ORDER BY block_height ASC`,
		from, to)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.BlockRow])
	return out, wrapQueryErr(err)
}
