package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// MessageRepository implements spec §4.E for the `messages` table.
type MessageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) *MessageRepository {
	return &MessageRepository{store: store}
}

func (r *MessageRepository) Insert(ctx context.Context, row records.MessageRow) error {
	return r.insert(ctx, r.store.Pool, row)
}

func (r *MessageRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, row records.MessageRow) error {
	return r.insert(ctx, tx, row)
}

func (r *MessageRepository) insert(ctx context.Context, q querier, row records.MessageRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO messages (subject, value, cursor, message_id, sender, recipient, nonce, amount, block_height, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id) DO UPDATE SET
			published_at = EXCLUDED.published_at`,
		row.Subject, row.Value, row.Cursor, row.MessageID, row.Sender, row.Recipient,
		row.Nonce, row.Amount, row.BlockHeight, row.CreatedAt, row.PublishedAt,
	)
	return wrapInsertErr(err)
}

func (r *MessageRepository) FindMany(ctx context.Context, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.MessageRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan := query.BuildPlan("messages", "Message", p, subjectWhere, "", minHeight)
	rows, err := r.store.Pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[records.MessageRow])
	return out, wrapQueryErr(err)
}
