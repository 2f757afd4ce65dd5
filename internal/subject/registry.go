package subject

import "fmt"

// Registry holds every declared Schema, indexed by ID and by Entity, and
// enforces the no-ambiguous-overlap rule at construction time (§4.C.2).
type Registry struct {
	byID     map[string]*Schema
	byEntity map[string][]*Schema
}

// NewRegistry builds a Registry from the given schemas, rejecting any pair
// whose fixed Prefix segments overlap (§4.C.2, "ambiguous overlaps are
// disallowed at schema definition").
func NewRegistry(schemas []*Schema) (*Registry, error) {
	reg := &Registry{
		byID:     make(map[string]*Schema, len(schemas)),
		byEntity: make(map[string][]*Schema),
	}

	for _, s := range schemas {
		if _, exists := reg.byID[s.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate subject id %q", ErrAmbiguousSchema, s.ID)
		}
		reg.byID[s.ID] = s
		reg.byEntity[s.Entity] = append(reg.byEntity[s.Entity], s)
	}

	for i, a := range schemas {
		for _, b := range schemas[i+1:] {
			if Overlaps(a.Prefix, b.Prefix) {
				return nil, fmt.Errorf("%w: %q and %q", ErrAmbiguousSchema, a.ID, b.ID)
			}
		}
	}

	return reg, nil
}

// ByID looks up a schema by its canonical identifier.
func (r *Registry) ByID(id string) (*Schema, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ByEntity returns every schema variant declared for a record entity.
func (r *Registry) ByEntity(entity string) []*Schema {
	return r.byEntity[entity]
}

// All returns every registered schema.
func (r *Registry) All() []*Schema {
	out := make([]*Schema, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}
