// Package subject implements the hierarchical dot-delimited routing keys
// of spec §4.C: format templates, wildcard matching, JSON<->subject
// conversion, and SQL WHERE projection.
//
// Subjects are represented as data (a declarative Schema table) rather
// than one Go type per subject variant generated by a macro, per
// SPEC_FULL.md's resolution of the spec's own Open Question ("Subject
// declaration", option (b): "represent subjects as data ... recommended
// for reducing compile times"). Grounded on
// original_source/crates/fuel-streams-domains/src/subjects.rs and
// crates/domains/src/subjects.rs, which enumerate exactly this
// {ID, ENTITY, QUERY_ALL, FORMAT, CUSTOM_WHERE} shape per subject.
package subject

import (
	"fmt"
	"strings"
)

// ParamSpec describes one ordered, typed parameter segment in a subject's
// format template.
type ParamSpec struct {
	Name      string
	SQLColumn string // empty if this parameter has no direct column (rare)
}

// Schema is the declarative definition of one subject variant.
type Schema struct {
	ID          string // canonical short identifier, e.g. "outputs_coin"
	Entity      string // owning record entity, e.g. "Output"
	Prefix      string // fixed leading dot-segments, e.g. "outputs.coin"
	Params      []ParamSpec
	CustomWhere string // optional SQL predicate conjoined with bound params
}

// QueryAll is the broadest wildcard subsuming every value of this schema:
// Prefix + ".>" (or just ">" for an empty prefix, which does not occur in
// this registry).
func (s *Schema) QueryAll() string {
	return s.Prefix + ".>"
}

// Subject is one bound (or partially bound) instance of a Schema.
type Subject struct {
	Schema *Schema
	Values map[string]string // param name -> canonical text; absent = wildcard "*"
}

// New creates a Subject bound to values. Unset parameters are treated as
// wildcards ("*") when rendered.
func New(schema *Schema, values map[string]string) Subject {
	return Subject{Schema: schema, Values: values}
}

// Parse emits the fully-bound subject string (spec §4.C.1). Any parameter
// with no bound value becomes "*"; if no parameter is bound at all, the
// QUERY_ALL form is emitted instead of a string of bare "*" segments.
func (s Subject) Parse() string {
	if len(s.Values) == 0 {
		return s.Schema.QueryAll()
	}

	segments := make([]string, 0, len(s.Schema.Params)+1)
	segments = append(segments, s.Schema.Prefix)
	for _, p := range s.Schema.Params {
		if v, ok := s.Values[p.Name]; ok && v != "" {
			segments = append(segments, v)
		} else {
			segments = append(segments, "*")
		}
	}
	return strings.Join(segments, ".")
}

// IsFullyBound reports whether every declared parameter has a bound value
// (used by the invariant in spec §8.1: "for all subjects S with all
// parameters bound, parse(S) contains no * or >").
func (s Subject) IsFullyBound() bool {
	if len(s.Schema.Params) == 0 {
		return true
	}
	for _, p := range s.Schema.Params {
		if v, ok := s.Values[p.Name]; !ok || v == "" {
			return false
		}
	}
	return true
}

// ToSQLWhere conjoins `col = 'val'` for each bound parameter with
// CUSTOM_WHERE if present (spec §4.C.1). Returns ("", false) only when
// nothing is bound and no custom clause exists.
func (s Subject) ToSQLWhere() (string, bool) {
	var clauses []string
	for _, p := range s.Schema.Params {
		if p.SQLColumn == "" {
			continue
		}
		if v, ok := s.Values[p.Name]; ok && v != "" {
			clauses = append(clauses, fmt.Sprintf("%s = '%s'", p.SQLColumn, escapeSQLLiteral(v)))
		}
	}
	if s.Schema.CustomWhere != "" {
		clauses = append(clauses, s.Schema.CustomWhere)
	}
	if len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, " AND "), true
}

// ToSQLSelect returns the comma-joined column names of bound parameters,
// per spec §4.C.1.
func (s Subject) ToSQLSelect() string {
	var cols []string
	for _, p := range s.Schema.Params {
		if p.SQLColumn == "" {
			continue
		}
		if v, ok := s.Values[p.Name]; ok && v != "" {
			cols = append(cols, p.SQLColumn)
		}
	}
	return strings.Join(cols, ", ")
}

// Payload is the wire-interchange form of a subject (spec §4.C.1
// to_payload).
type Payload struct {
	Subject string            `json:"subject"`
	Params  map[string]string `json:"params"`
}

// ToPayload converts a Subject to its wire form.
func (s Subject) ToPayload() Payload {
	params := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		params[k] = v
	}
	return Payload{Subject: s.Schema.ID, Params: params}
}

// FromPayload reconstructs a Subject from its wire form using a registry
// lookup, satisfying the round-trip law of spec §8.2:
// from_payload(to_payload(subject)) == subject.
func FromPayload(reg *Registry, p Payload) (Subject, error) {
	schema, ok := reg.ByID(p.Subject)
	if !ok {
		return Subject{}, fmt.Errorf("%w: unknown subject id %q", ErrUnknownSubject, p.Subject)
	}
	values := make(map[string]string, len(p.Params))
	for k, v := range p.Params {
		values[k] = v
	}
	return New(schema, values), nil
}

func escapeSQLLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
