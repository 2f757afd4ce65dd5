package subject

import "strings"

// Match implements the broker's subject algebra (spec §4.C.2): "*"
// matches exactly one segment, ">" matches one-or-more trailing segments.
// subj must be fully concrete (no wildcards); pattern may contain "*" and
// a single trailing ">".
func Match(subj, pattern string) bool {
	subjSegs := strings.Split(subj, ".")
	patSegs := strings.Split(pattern, ".")

	for i, p := range patSegs {
		if p == ">" {
			// ">" must be the last segment and matches one or more
			// remaining segments.
			return i < len(subjSegs)
		}
		if i >= len(subjSegs) {
			return false
		}
		if p == "*" {
			continue
		}
		if p != subjSegs[i] {
			return false
		}
	}
	return len(patSegs) == len(subjSegs)
}

// Overlaps reports whether two registered QUERY_ALL prefixes could both
// match some concrete subject, which would make schema resolution
// ambiguous. Two prefixes overlap only if one is a literal prefix
// (segment-wise) of the other's fixed portion, since every registered
// schema's QUERY_ALL ends in ">" and differs starting from its fixed
// Prefix segments.
func Overlaps(prefixA, prefixB string) bool {
	a := strings.Split(prefixA, ".")
	b := strings.Split(prefixB, ".")
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
