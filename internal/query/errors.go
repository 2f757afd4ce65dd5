package query

import "errors"

// Sentinel validation errors, named after the failure identifiers of
// spec §4.D.1's rule table, so callers (the HTTP layer) can map each to
// its required error message and a 400 response.
var (
	ErrMixedPaginationStrategy = errors.New("MixedPaginationStrategy: cannot mix cursor-based pagination with limit/offset")
	ErrConflictingCursors      = errors.New("ConflictingCursors: cannot set both 'after' and 'before'")
	ErrConflictingFirstLast    = errors.New("ConflictingFirstLast: cannot use both 'first' and 'last'")
	ErrMissingFirstWithAfter   = errors.New("MissingFirstWithAfter: 'after' requires 'first'")
	ErrMissingLastWithBefore   = errors.New("MissingLastWithBefore: 'before' requires 'last'")
	ErrNegativeOffset          = errors.New("NegativeOffset: 'offset' must be >= 0")
	ErrOrderByWithCursor       = errors.New("OrderByWithCursor: cannot set 'order_by' with cursor pagination")

	ErrInvalidFirst = errors.New("InvalidFirst")
	ErrInvalidLast  = errors.New("InvalidLast")
	ErrInvalidLimit = errors.New("InvalidLimit")
)
