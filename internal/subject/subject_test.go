package subject

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFullyBoundHasNoWildcards(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, ok := reg.ByID("outputs_coin")
	require.True(t, ok)

	s := New(schema, map[string]string{
		"height": "1001",
		"tx_id":  "0xabc",
		"index":  "0",
		"to":     "0x02",
		"asset":  "0x00",
	})
	require.True(t, s.IsFullyBound())

	parsed := s.Parse()
	require.NotContains(t, parsed, "*")
	require.NotContains(t, parsed, ">")
	require.Equal(t, "outputs.coin.1001.0xabc.0.0x02.0x00", parsed)
}

func TestParseAllWildcardEmitsQueryAll(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, _ := reg.ByID("blocks")
	s := New(schema, nil)
	require.Equal(t, "blocks.>", s.Parse())
}

func TestParsePartialBindingUsesWildcards(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, _ := reg.ByID("blocks")
	s := New(schema, map[string]string{"height": "42"})
	require.Equal(t, "blocks.42.*", s.Parse())
}

func TestToSQLWhereColumnsMatchFormat(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, _ := reg.ByID("receipts_mint")
	s := New(schema, map[string]string{"contract": "0xaa", "sub_id": "0xbb"})
	where, ok := s.ToSQLWhere()
	require.True(t, ok)
	require.Contains(t, where, "contract_id = '0xaa'")
	require.Contains(t, where, "sub_id = '0xbb'")
	require.Contains(t, where, "receipt_type = 'mint'")
}

func TestToSQLWhereEmptyWithoutBindingsOrCustomWhere(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, _ := reg.ByID("blocks")
	s := New(schema, nil)
	_, ok := s.ToSQLWhere()
	require.False(t, ok)
}

func TestPayloadRoundTrip(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, _ := reg.ByID("transactions")
	s := New(schema, map[string]string{"height": "7", "tx_id": "0xdead"})

	payload := s.ToPayload()
	roundTripped, err := FromPayload(reg, payload)
	require.NoError(t, err)
	require.Equal(t, s.Parse(), roundTripped.Parse())
}

func TestFromPayloadUnknownSubject(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	_, err = FromPayload(reg, Payload{Subject: "does_not_exist"})
	require.ErrorIs(t, err, ErrUnknownSubject)
}

func TestMatchWildcardAlgebra(t *testing.T) {
	require.True(t, Match("outputs.coin.1001.0xabc.0.0x02.0x00", "outputs.coin.>"))
	require.True(t, Match("outputs.coin.1001.0xabc.0.0x02.0x00", "outputs.*.1001.*.*.*.*"))
	require.False(t, Match("outputs.contract.1001.0xabc.0.0x02", "outputs.coin.>"))
	require.True(t, Match("blocks.42", "blocks.*"))
	require.False(t, Match("blocks.42.extra", "blocks.*"))
}

func TestResolveRoundTripsFullyBoundSubject(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, ok := reg.ByID("outputs_coin")
	require.True(t, ok)
	original := New(schema, map[string]string{
		"height": "1001",
		"tx_id":  "0xabc",
		"index":  "0",
		"to":     "0x02",
		"asset":  "0x00",
	})

	resolved, ok := Resolve(reg, original.Parse())
	require.True(t, ok)
	require.Equal(t, schema.ID, resolved.Schema.ID)
	require.Equal(t, original.Parse(), resolved.Parse())
}

func TestResolveQueryAllWildcard(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	schema, ok := reg.ByID("blocks")
	require.True(t, ok)

	resolved, ok := Resolve(reg, schema.QueryAll())
	require.True(t, ok)
	require.Equal(t, "blocks", resolved.Schema.ID)
	require.False(t, resolved.IsFullyBound())
}

func TestResolvePartialWildcardPreservesBoundParams(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	resolved, ok := Resolve(reg, "outputs.coin.1001.*.*.*.*")
	require.True(t, ok)
	require.Equal(t, "outputs_coin", resolved.Schema.ID)
	where, ok := resolved.ToSQLWhere()
	require.True(t, ok)
	require.Contains(t, where, "1001")
}

func TestResolveUnknownSubjectFails(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	_, ok := Resolve(reg, "nonexistent.entity.1")
	require.False(t, ok)
}

func TestNoAmbiguousOverlapsAtRegistration(t *testing.T) {
	_, err := NewDefaultRegistry()
	require.NoError(t, err)

	_, err = NewRegistry([]*Schema{
		{ID: "a", Entity: "X", Prefix: "foo.bar"},
		{ID: "b", Entity: "X", Prefix: "foo.bar"},
	})
	require.ErrorIs(t, err, ErrAmbiguousSchema)
}
