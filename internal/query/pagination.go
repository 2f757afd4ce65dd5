// Package query implements the uniform pagination language of spec §4.D:
// validated request extraction, cursor/offset composition, and SQL-shape
// projection. Grounded on
// original_source/crates/domains/src/infra/repository/pagination.rs,
// which defines this same QueryPagination struct and validation rule set.
package query

import (
	"fmt"
)

// OrderBy is the row ordering requested for offset-based pagination.
// Rejected entirely when a cursor is present (§4.D.1: "order_by with a
// cursor is rejected").
type OrderBy string

const (
	OrderAsc  OrderBy = "asc"
	OrderDesc OrderBy = "desc"
)

// DefaultLimit is applied when neither limit nor first/last is given
// (spec §4.D.1).
const DefaultLimit = 100

// MaxPageSize bounds first/last/limit (spec §4.D.1: "∈ [1, 1000]").
const MaxPageSize = 1000

// Pagination is the uniform pagination language of spec §4.D, built
// directly from request query-string parameters.
type Pagination struct {
	After    string
	Before   string
	First    *int
	Last     *int
	Limit    *int
	Offset   *int
	OrderBy  *OrderBy
}

// Validate enforces every rule of spec §4.D.1, in the table's order, so
// the first violated rule is always the one reported.
func (p Pagination) Validate() error {
	hasCursor := p.After != "" || p.Before != ""
	hasOffsetStrategy := p.Limit != nil || p.Offset != nil

	if hasCursor && hasOffsetStrategy {
		return ErrMixedPaginationStrategy
	}
	if p.After != "" && p.Before != "" {
		return ErrConflictingCursors
	}
	if p.First != nil && p.Last != nil {
		return ErrConflictingFirstLast
	}
	if p.After != "" && p.First == nil {
		return ErrMissingFirstWithAfter
	}
	if p.Before != "" && p.Last == nil {
		return ErrMissingLastWithBefore
	}
	if p.First != nil {
		if err := validateRange("first", *p.First, ErrInvalidFirst); err != nil {
			return err
		}
	}
	if p.Last != nil {
		if err := validateRange("last", *p.Last, ErrInvalidLast); err != nil {
			return err
		}
	}
	if p.Limit != nil {
		if err := validateRange("limit", *p.Limit, ErrInvalidLimit); err != nil {
			return err
		}
	}
	if p.Offset != nil && *p.Offset < 0 {
		return ErrNegativeOffset
	}
	if hasCursor && p.OrderBy != nil {
		return ErrOrderByWithCursor
	}
	return nil
}

func validateRange(field string, v int, sentinel error) error {
	if v < 1 || v > MaxPageSize {
		return fmt.Errorf("%w: '%s' parameter must be between 1 and %d", sentinel, field, MaxPageSize)
	}
	return nil
}

// EffectiveOrder resolves the row direction per §4.D.1: "first/after
// imply ascending, last/before imply descending", falling back to the
// explicit OrderBy (or ascending) for offset pagination.
func (p Pagination) EffectiveOrder() OrderBy {
	switch {
	case p.First != nil || p.After != "":
		return OrderAsc
	case p.Last != nil || p.Before != "":
		return OrderDesc
	case p.OrderBy != nil:
		return *p.OrderBy
	default:
		return OrderAsc
	}
}

// EffectiveLimit resolves the row cap, preferring first/last over limit,
// falling back to DefaultLimit (§4.D.1).
func (p Pagination) EffectiveLimit() int {
	switch {
	case p.First != nil:
		return *p.First
	case p.Last != nil:
		return *p.Last
	case p.Limit != nil:
		return *p.Limit
	default:
		return DefaultLimit
	}
}

// IsCursorBased reports whether this pagination uses keyset (cursor)
// strategy rather than offset.
func (p Pagination) IsCursorBased() bool {
	return p.After != "" || p.Before != "" || p.First != nil || p.Last != nil
}
