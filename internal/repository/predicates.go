package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// PredicateRepository implements spec §4.E's special predicates registry:
// `predicates` is keyed by predicate_address with conflict-reuse, and
// each referencing transaction additionally inserts a row into the
// many-to-many `predicate_transactions` linking table.
type PredicateRepository struct {
	store *Store
}

func NewPredicateRepository(store *Store) *PredicateRepository {
	return &PredicateRepository{store: store}
}

// Insert upserts the registry row, reusing the existing row on a
// predicate_address conflict (spec §4.E: "Conflict on address -> reuse
// existing id"), then links it to the transaction that referenced it.
func (r *PredicateRepository) Insert(ctx context.Context, row records.PredicateRow, link records.PredicateTransactionRow) error {
	return r.store.WithTx(ctx, func(tx pgx.Tx) error {
		return r.InsertWithTx(ctx, tx, row, link)
	})
}

func (r *PredicateRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.PredicateRow, link records.PredicateTransactionRow) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO predicates (subject, value, cursor, predicate_address, bytecode, block_height, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (predicate_address) DO UPDATE SET
			published_at = EXCLUDED.published_at`,
		row.Subject, row.Value, row.Cursor, row.Address, row.Bytecode, row.BlockHeight, row.CreatedAt, row.PublishedAt,
	); err != nil {
		return wrapInsertErr(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO predicate_transactions (predicate_address, tx_id, block_height, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (predicate_address, tx_id) DO NOTHING`,
		link.PredicateAddress, link.TxID, link.BlockHeight, link.CreatedAt,
	); err != nil {
		return wrapInsertErr(err)
	}
	return nil
}

func (r *PredicateRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.PredicateRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("predicates", "Predicate", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.PredicateRow])
	return out, wrapQueryErr(err)
}

// FindTransactionsByPredicate lists every transaction that referenced
// the given predicate address, via the many-to-many linking table.
func (r *PredicateRepository) FindTransactionsByPredicate(ctx context.Context, address string) ([]records.PredicateTransactionRow, error) {
	rows, err := r.store.Pool.Query(ctx, `
		SELECT * FROM predicate_transactions WHERE predicate_address = $1 ORDER BY block_height ASC`, address)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.PredicateTransactionRow])
	return out, wrapQueryErr(err)
}
