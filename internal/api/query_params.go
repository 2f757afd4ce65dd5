package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/chainstream/streams/internal/query"
)

// errInvalidFormat reports a query parameter that isn't the integer
// shape the §4.D pagination language expects (spec §7: "Input errors
// (InvalidFormat...): client fault; surface as 400").
var errInvalidFormat = fmt.Errorf("InvalidFormat: malformed query parameter")

// parsePagination extracts spec §4.D.1's uniform pagination language
// from a request's query string. It does not validate the combination
// of fields — callers call Pagination.Validate separately so the same
// rule table backs both the REST surface and any future caller.
func parsePagination(q url.Values) (query.Pagination, error) {
	var p query.Pagination
	p.After = q.Get("after")
	p.Before = q.Get("before")

	var err error
	if p.First, err = optionalInt(q, "first"); err != nil {
		return query.Pagination{}, err
	}
	if p.Last, err = optionalInt(q, "last"); err != nil {
		return query.Pagination{}, err
	}
	if p.Limit, err = optionalInt(q, "limit"); err != nil {
		return query.Pagination{}, err
	}
	if p.Offset, err = optionalInt(q, "offset"); err != nil {
		return query.Pagination{}, err
	}

	if raw := q.Get("order_by"); raw != "" {
		switch query.OrderBy(raw) {
		case query.OrderAsc, query.OrderDesc:
			ob := query.OrderBy(raw)
			p.OrderBy = &ob
		default:
			return query.Pagination{}, fmt.Errorf("%w: 'order_by' must be 'asc' or 'desc'", errInvalidFormat)
		}
	}
	return p, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s' must be an integer", errInvalidFormat, name)
	}
	return &v, nil
}
