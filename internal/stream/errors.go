package stream

import (
	"errors"
	"fmt"
)

// ErrUnknownSubject is returned when Subscribe's raw subject string
// matches no registered schema (spec §4.C.2, "Resolution... error on no
// match").
var ErrUnknownSubject = errors.New("stream: unknown subject")

// errHistoricalLimitExceeded is the sentinel HistoricalLimitExceeded
// wraps, letting callers errors.Is against the class without caring
// about the specific limit value.
var errHistoricalLimitExceeded = errors.New("stream: historical range exceeds role limit")

// HistoricalLimitExceeded is returned when a FromBlock subscription's
// replay span exceeds the caller's role-configured historical-block-range
// limit (spec §4.H.2 step 1: "fail with HistoricalLimitExceeded(limit)").
type HistoricalLimitExceeded struct {
	Limit int64
}

func (e *HistoricalLimitExceeded) Error() string {
	return fmt.Sprintf("%s: limit is %d blocks", errHistoricalLimitExceeded, e.Limit)
}

func (e *HistoricalLimitExceeded) Unwrap() error {
	return errHistoricalLimitExceeded
}
