package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
)

// EntityForSubject maps a packet's bound subject string to the table
// name its entity repository writes to, by inspecting the subject's
// fixed prefix — the routing step of spec §4.G.1.c ("route each packet
// to its entity repository by inspecting the packet's subject prefix").
func EntityForSubject(subject string) (string, bool) {
	head, _, _ := strings.Cut(subject, ".")
	switch head {
	case "blocks":
		return "blocks", true
	case "transactions":
		return "transactions", true
	case "inputs":
		return "inputs", true
	case "outputs":
		return "outputs", true
	case "receipts":
		return "receipts", true
	case "utxos":
		return "utxos", true
	case "predicates":
		return "predicates", true
	case "messages":
		return "messages", true
	default:
		return "", false
	}
}

// Repositories aggregates every entity repository behind a single handle
// so the Block Executor's store task can dispatch by table name without
// holding eight separate constructor arguments.
type Repositories struct {
	Store        *Store
	Blocks       *BlockRepository
	Transactions *TransactionRepository
	Inputs       *InputRepository
	Outputs      *OutputRepository
	Receipts     *ReceiptRepository
	Utxos        *UtxoRepository
	Predicates   *PredicateRepository
	Messages     *MessageRepository
}

func NewRepositories(store *Store) *Repositories {
	return &Repositories{
		Store:        store,
		Blocks:       NewBlockRepository(store),
		Transactions: NewTransactionRepository(store),
		Inputs:       NewInputRepository(store),
		Outputs:      NewOutputRepository(store),
		Receipts:     NewReceiptRepository(store),
		Utxos:        NewUtxoRepository(store),
		Predicates:   NewPredicateRepository(store),
		Messages:     NewMessageRepository(store),
	}
}

// WithTx runs fn in a single transaction shared by every entity
// repository — the basis of the Block Executor's packet-atomic store
// task (spec §2: "all records derived from one MsgPayload are inserted
// in a single transaction; partial commits are forbidden").
func (r *Repositories) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.Store.WithTx(ctx, fn)
}

// FindLastBlockHeight forwards to the blocks table, the single column
// every historical-limit check (spec §4.H.2 step 1) needs from the
// repository layer.
func (r *Repositories) FindLastBlockHeight(ctx context.Context) (int64, error) {
	return r.Blocks.FindLastBlockHeight(ctx)
}

// StoreBundle performs the Block Executor's store task (spec §4.G.1 step
// 3.c, "Store task"; spec §2 "Packet atomicity": "all records derived
// from one MsgPayload are inserted in a single transaction"): every row
// in bundle is routed to its entity repository and written inside one
// transaction, skipping any entity entityFilter rejects (the
// BlockEvent sub-pipeline's "Message records only" filter, spec
// §4.G.5).
func (r *Repositories) StoreBundle(ctx context.Context, bundle *records.Bundle, entityFilter func(entity string) bool) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if entityFilter == nil || entityFilter("blocks") {
			if err := r.Blocks.InsertWithTx(ctx, tx, bundle.Block); err != nil {
				return err
			}
		}
		if entityFilter == nil || entityFilter("transactions") {
			for _, row := range bundle.Transactions {
				if err := r.Transactions.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("inputs") {
			for _, row := range bundle.Inputs {
				if err := r.Inputs.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("outputs") {
			for _, row := range bundle.Outputs {
				if err := r.Outputs.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("receipts") {
			for _, row := range bundle.Receipts {
				if err := r.Receipts.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("utxos") {
			for _, row := range bundle.Utxos {
				if err := r.Utxos.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("predicates") {
			for i, row := range bundle.Predicates {
				if err := r.Predicates.InsertWithTx(ctx, tx, row, bundle.PredicateTxLinks[i]); err != nil {
					return err
				}
			}
		}
		if entityFilter == nil || entityFilter("messages") {
			for _, row := range bundle.Messages {
				if err := r.Messages.InsertWithTx(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// FindManyPackets dispatches a paginated, subject-filtered query to the
// entity repository named by entity, projecting every matched row down
// to its generic records.Packet shape via the row's Packet method. The
// REST handlers read through it; rows come back in the order the
// query.Plan sets (query.PaginationColumn). The stream engine's
// historical replay reads through ReplayPackets instead.
func (r *Repositories) FindManyPackets(ctx context.Context, entity string, p query.Pagination, subjectWhere string, minHeight *uint64) ([]records.Packet, error) {
	switch entity {
	case "blocks":
		rows, err := r.Blocks.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.BlockRow.Packet), nil
	case "transactions":
		rows, err := r.Transactions.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.TransactionRow.Packet), nil
	case "inputs":
		rows, err := r.Inputs.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.InputRow.Packet), nil
	case "outputs":
		rows, err := r.Outputs.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.OutputRow.Packet), nil
	case "receipts":
		rows, err := r.Receipts.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.ReceiptRow.Packet), nil
	case "utxos":
		rows, err := r.Utxos.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.UtxoRow.Packet), nil
	case "predicates":
		rows, err := r.Predicates.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.PredicateRow.Packet), nil
	case "messages":
		rows, err := r.Messages.FindMany(ctx, p, subjectWhere, minHeight)
		if err != nil {
			return nil, err
		}
		return mapPackets(rows, entity, records.MessageRow.Packet), nil
	default:
		return nil, fmt.Errorf("repository: unknown entity %q", entity)
	}
}

// mapPackets projects a row slice to packets via each row type's own
// Packet method, keeping FindManyPackets's switch branches uniform.
func mapPackets[T any](rows []T, entity string, toPacket func(T, string) records.Packet) []records.Packet {
	out := make([]records.Packet, len(rows))
	for i, row := range rows {
		out[i] = toPacket(row, entity)
	}
	return out
}

// ReplayPackets pages through entity's table in strict cursor order for
// the stream engine's historical replay (§4.H.2: "page through the
// repository with cursor pagination... filtered by the subject's SQL
// WHERE and block_height >= N"). Grounded on
// other_examples/745ce4c4_..._persistence.go.go's Replay method (a
// single ORDER BY + WHERE seq > since query driving a row-by-row
// callback), adapted to this package's pgx.CollectRows idiom.
//
// Unlike FindManyPackets (which orders by the single-column keyset
// query.PaginationColumn uses for REST pagination), ReplayPackets orders
// by the "cursor" column itself: records.Cursor.String() is zero-padded
// so byte-wise ordering matches (block_height, tx_index, record_index)
// ordering exactly, including rows that share one block_height. Pass
// afterCursor == "" for the first page; feed back the last packet's
// Cursor field to continue.
func (r *Repositories) ReplayPackets(ctx context.Context, entity, subjectWhere string, minHeight uint64, afterCursor string, limit int) ([]records.Packet, error) {
	plan := query.Plan{
		Table:  entity,
		Column: "cursor",
		Order:  query.OrderAsc,
		Limit:  limit,
	}
	if subjectWhere != "" {
		plan.Where = append(plan.Where, subjectWhere)
	}
	plan.Where = append(plan.Where, fmt.Sprintf("block_height >= %d", minHeight))
	if afterCursor != "" {
		plan.Where = append(plan.Where, fmt.Sprintf("cursor > '%s'", escapeCursorLiteral(afterCursor)))
	}

	return r.dispatchPlan(ctx, entity, plan)
}

// LatestPacket returns the most recently published row matching
// subjectWhere, if any (spec §4.H.1: "Latest: deliver the single most
// recent record per subject, then live").
func (r *Repositories) LatestPacket(ctx context.Context, entity, subjectWhere string) (records.Packet, bool, error) {
	plan := query.Plan{
		Table:  entity,
		Column: "cursor",
		Order:  query.OrderDesc,
		Limit:  1,
	}
	if subjectWhere != "" {
		plan.Where = append(plan.Where, subjectWhere)
	}

	pkts, err := r.dispatchPlan(ctx, entity, plan)
	if err != nil {
		return records.Packet{}, false, err
	}
	if len(pkts) == 0 {
		return records.Packet{}, false, nil
	}
	return pkts[0], true, nil
}

// dispatchPlan runs plan against entity's table, switching on entity only
// to pick the Row type pgx.CollectRows decodes into — every branch shares
// the same query/collect/project shape.
func (r *Repositories) dispatchPlan(ctx context.Context, entity string, plan query.Plan) ([]records.Packet, error) {
	switch entity {
	case "blocks":
		return queryPackets[records.BlockRow](ctx, r.Store.Pool, plan, entity, records.BlockRow.Packet)
	case "transactions":
		return queryPackets[records.TransactionRow](ctx, r.Store.Pool, plan, entity, records.TransactionRow.Packet)
	case "inputs":
		return queryPackets[records.InputRow](ctx, r.Store.Pool, plan, entity, records.InputRow.Packet)
	case "outputs":
		return queryPackets[records.OutputRow](ctx, r.Store.Pool, plan, entity, records.OutputRow.Packet)
	case "receipts":
		return queryPackets[records.ReceiptRow](ctx, r.Store.Pool, plan, entity, records.ReceiptRow.Packet)
	case "utxos":
		return queryPackets[records.UtxoRow](ctx, r.Store.Pool, plan, entity, records.UtxoRow.Packet)
	case "predicates":
		return queryPackets[records.PredicateRow](ctx, r.Store.Pool, plan, entity, records.PredicateRow.Packet)
	case "messages":
		return queryPackets[records.MessageRow](ctx, r.Store.Pool, plan, entity, records.MessageRow.Packet)
	default:
		return nil, fmt.Errorf("repository: unknown entity %q", entity)
	}
}

func queryPackets[T any](ctx context.Context, pool *pgxpool.Pool, plan query.Plan, entity string, toPacket func(T, string) records.Packet) ([]records.Packet, error) {
	rows, err := pool.Query(ctx, plan.SQL(), plan.Args...)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	return mapPackets(collected, entity, toPacket), nil
}

func escapeCursorLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
