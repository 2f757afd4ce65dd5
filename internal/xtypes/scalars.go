package xtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Address, AssetId, ContractId, and TxId are each distinct 32-byte chain
// scalars (spec §4.A: "Every blockchain scalar ... is a distinct opaque
// type"). They share Bytes32's wire shape but are separate Go types so the
// compiler rejects an Address passed where an AssetId is expected.

type Address Bytes32
type AssetId Bytes32
type ContractId Bytes32
type TxId Bytes32

func ParseAddress(s string) (Address, error) {
	b, err := ParseBytes32(s)
	return Address(b), err
}

func ParseAssetId(s string) (AssetId, error) {
	b, err := ParseBytes32(s)
	return AssetId(b), err
}

func ParseContractId(s string) (ContractId, error) {
	b, err := ParseBytes32(s)
	return ContractId(b), err
}

func ParseTxId(s string) (TxId, error) {
	b, err := ParseBytes32(s)
	return TxId(b), err
}

func (a Address) String() string    { return Bytes32(a).String() }
func (a AssetId) String() string    { return Bytes32(a).String() }
func (a ContractId) String() string { return Bytes32(a).String() }
func (a TxId) String() string       { return Bytes32(a).String() }

func (a Address) IsZero() bool    { return Bytes32(a).IsZero() }
func (a AssetId) IsZero() bool    { return Bytes32(a).IsZero() }
func (a ContractId) IsZero() bool { return Bytes32(a).IsZero() }
func (a TxId) IsZero() bool       { return Bytes32(a).IsZero() }

func (a Address) MarshalJSON() ([]byte, error)    { return json.Marshal(a.String()) }
func (a AssetId) MarshalJSON() ([]byte, error)    { return json.Marshal(a.String()) }
func (a ContractId) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }
func (a TxId) MarshalJSON() ([]byte, error)       { return json.Marshal(a.String()) }

func (a *Address) UnmarshalJSON(data []byte) error {
	var b Bytes32
	if err := (&b).UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Address(b)
	return nil
}

func (a *AssetId) UnmarshalJSON(data []byte) error {
	var b Bytes32
	if err := (&b).UnmarshalJSON(data); err != nil {
		return err
	}
	*a = AssetId(b)
	return nil
}

func (a *ContractId) UnmarshalJSON(data []byte) error {
	var b Bytes32
	if err := (&b).UnmarshalJSON(data); err != nil {
		return err
	}
	*a = ContractId(b)
	return nil
}

func (a *TxId) UnmarshalJSON(data []byte) error {
	var b Bytes32
	if err := (&b).UnmarshalJSON(data); err != nil {
		return err
	}
	*a = TxId(b)
	return nil
}

func (a Address) Value() (driver.Value, error)    { return Bytes32(a).Value() }
func (a AssetId) Value() (driver.Value, error)    { return Bytes32(a).Value() }
func (a ContractId) Value() (driver.Value, error) { return Bytes32(a).Value() }
func (a TxId) Value() (driver.Value, error)       { return Bytes32(a).Value() }

func (a *Address) Scan(src interface{}) error    { return (*Bytes32)(a).Scan(src) }
func (a *AssetId) Scan(src interface{}) error    { return (*Bytes32)(a).Scan(src) }
func (a *ContractId) Scan(src interface{}) error { return (*Bytes32)(a).Scan(src) }
func (a *TxId) Scan(src interface{}) error       { return (*Bytes32)(a).Scan(src) }

// HexData is a variable-width byte blob (predicate bytecode, receipt data,
// message data, ...). Canonical text form is 0x-prefixed lowercase hex
// with no fixed length.
type HexData []byte

func ParseHexData(s string) (HexData, error) {
	if s == "0x" || s == "" {
		return HexData{}, nil
	}
	raw, err := decodeHexPrefixed(s, 0)
	if err != nil {
		return nil, err
	}
	return HexData(raw), nil
}

func (h HexData) String() string {
	return encodeHexPrefixed(h)
}

func (h HexData) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HexData) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	parsed, err := ParseHexData(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h HexData) Value() (driver.Value, error) {
	return []byte(h), nil
}

func (h *HexData) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		*h = out
		return nil
	case string:
		parsed, err := ParseHexData(v)
		if err != nil {
			return err
		}
		*h = parsed
		return nil
	case nil:
		*h = nil
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan source %T", ErrInvalidFormat, src)
	}
}

// U64 is a JSON-safe wrapper around uint64 that marshals as a decimal
// string, avoiding float64 precision loss in JSON numbers above 2^53 (the
// same concern original_source/crates/types/src/primitives/wrapped_int.rs
// addresses for "integers wider than JSON native", spec §4.A).
type U64 uint64

func (u U64) String() string {
	return fmt.Sprintf("%d", uint64(u))
}

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *U64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var v uint64
		if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		*u = U64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	*u = U64(v)
	return nil
}

func (u U64) Value() (driver.Value, error) {
	return int64(u), nil
}

func (u *U64) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*u = U64(v)
		return nil
	case nil:
		*u = 0
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan source %T", ErrInvalidFormat, src)
	}
}
