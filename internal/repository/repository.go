// Package repository implements spec §4.E: per-entity upsert, keyset/offset
// find, and the predicates many-to-many registry, over a pgx/v5 pool.
// Grounded on
// other_examples/745ce4c4_primal-host-primal-pds__internal-events-persistence.go.go
// (pgxpool.Pool + Scan-per-row pattern) and
// original_source/crates/{outputs,predicates}/src/repository.rs for the
// insert/insert_with_transaction/find_one/find_many contract.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for a unique-key conflict.
const uniqueViolation = "23505"

// ErrInsert wraps any insert failure not resolved by the upsert path
// (spec §4.E: "RepositoryError::Insert").
var ErrInsert = errors.New("repository: insert failed")

// ErrQuery wraps any read failure (spec §4.E: "RepositoryError::Query").
var ErrQuery = errors.New("repository: query failed")

// Store wraps a pgxpool.Pool and implements the shared upsert/find
// machinery every entity repository in this package composes.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting every
// entity method run standalone or inside insert_with_transaction (spec
// §4.E).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx runs fn inside a new transaction, committing on success and
// rolling back on error — the basis for insert_with_transaction (spec
// §4.E).
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrInsert, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", ErrInsert, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, the signal that an insert should fall back to a refresh
// (spec §4.E: "unique-violation on insert of the same natural key
// resolves to a refresh").
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// wrapInsertErr classifies a raw driver error, per spec §4.E's failure
// model: unique violations are the caller's cue to retry as an update,
// everything else is a genuine ErrInsert.
func wrapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInsert, err)
}

func wrapQueryErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrQuery, err)
}
