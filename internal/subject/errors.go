package subject

import "errors"

var (
	// ErrUnknownSubject is an input error (§7): client fault, never retried.
	ErrUnknownSubject = errors.New("subject: unknown subject")
	// ErrAmbiguousSchema is raised at registry construction time when two
	// schemas would overlap under the broker's wildcard algebra (§4.C.2:
	// "ambiguous overlaps are disallowed at schema definition").
	ErrAmbiguousSchema = errors.New("subject: ambiguous schema overlap")
)
