package xtypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytes32RoundTrip(t *testing.T) {
	hexStr := "0x" + strings.Repeat("01", 32)

	b, err := ParseBytes32(hexStr)
	require.NoError(t, err)
	require.Equal(t, hexStr, b.String())

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var decoded Bytes32
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, b, decoded)
}

func TestBytes32InvalidFormat(t *testing.T) {
	_, err := ParseBytes32("deadbeef")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestBytes32OutOfRange(t *testing.T) {
	_, err := ParseBytes32("0x0102")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestAddressDistinctFromAssetId(t *testing.T) {
	hexStr := "0x" + strings.Repeat("02", 32)
	addr, err := ParseAddress(hexStr)
	require.NoError(t, err)
	asset, err := ParseAssetId(hexStr)
	require.NoError(t, err)
	require.Equal(t, addr.String(), asset.String())
	// Types are distinct at compile time; this only checks value equivalence.
}

func TestHexDataRoundTrip(t *testing.T) {
	h, err := ParseHexData("0xdeadbeef")
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", h.String())

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded HexData
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, h, decoded)
}

func TestHexDataEmpty(t *testing.T) {
	h, err := ParseHexData("0x")
	require.NoError(t, err)
	require.Equal(t, "0x", h.String())
}

func TestU64RoundTrip(t *testing.T) {
	u := U64(18446744073709551615) // max uint64, would lose precision as a JSON number
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded U64
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, u, decoded)
}
