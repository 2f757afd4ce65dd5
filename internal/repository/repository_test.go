package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolation}
	assert.True(t, isUniqueViolation(pgErr))

	other := &pgconn.PgError{Code: "23502"} // not_null_violation
	assert.False(t, isUniqueViolation(other))

	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestWrapInsertErrPassesThroughUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolation}
	wrapped := wrapInsertErr(pgErr)
	assert.True(t, isUniqueViolation(wrapped))
}

func TestWrapInsertErrWrapsOtherErrors(t *testing.T) {
	err := wrapInsertErr(errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrInsert)
}

func TestEntityForSubject(t *testing.T) {
	cases := map[string]string{
		"blocks.42.0xabc":              "blocks",
		"transactions.42.0.*.*.*":      "transactions",
		"inputs.coin.42.0xabc.0":       "inputs",
		"outputs.coin.42.0xabc.0":      "outputs",
		"receipts.call.42.0xabc.0":     "receipts",
		"utxos.42.0xabc.coin":          "utxos",
		"predicates.0xabc":             "predicates",
		"messages.0xabc.0xdef":         "messages",
	}
	for subj, want := range cases {
		got, ok := EntityForSubject(subj)
		assert.True(t, ok, subj)
		assert.Equal(t, want, got, subj)
	}

	_, ok := EntityForSubject("unknown.foo")
	assert.False(t, ok)
}
