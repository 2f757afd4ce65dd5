package subject

import "strings"

// Resolve is the reverse of Subject.Parse: given a raw subject string a
// client subscribed with (fully bound, partially wildcarded with "*", or
// ending in ">"), find the one registered Schema whose fixed Prefix
// matches it and rebuild the bound Subject. This is the "subject
// resolution" of spec §4.H.3: "A subscription may be to a fully-bound
// subject or to any wildcard form registered for the record entity" —
// used by the stream engine to recover a schema's ToSQLWhere projection
// from the subject string a WebSocket client (or REST filter) supplies
// on the wire.
//
// NewRegistry's no-ambiguous-overlap invariant guarantees at most one
// schema's Prefix can match any given raw string, so the first match
// found is the only one possible.
func Resolve(reg *Registry, raw string) (Subject, bool) {
	rawSegs := strings.Split(raw, ".")

	for _, schema := range reg.All() {
		prefixSegs := strings.Split(schema.Prefix, ".")
		if len(rawSegs) < len(prefixSegs) {
			continue
		}
		matched := true
		for i, seg := range prefixSegs {
			if rawSegs[i] != seg {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		rest := rawSegs[len(prefixSegs):]
		if len(rest) == 1 && rest[0] == ">" {
			return New(schema, nil), true
		}
		if len(rest) != len(schema.Params) {
			continue
		}

		values := make(map[string]string, len(schema.Params))
		for i, p := range schema.Params {
			v := rest[i]
			if v == "*" || v == ">" {
				continue
			}
			values[p.Name] = v
		}
		return New(schema, values), true
	}

	return Subject{}, false
}
