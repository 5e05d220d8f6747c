package formatter

import (
	"maps"
	"sort"

	"github.com/kokukuma/mdoc-issuer/schema"
)

// Record holds the claim values of one issuance request.
type Record map[string]interface{}

// Clone returns a shallow copy. Stages replace values, they never modify
// nested structures in place.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

func (r Record) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// State is the snapshot passed between pipeline stages: the record and the
// doctype-level claim views derivation may extend.
type State struct {
	Record Record
	Claims schema.Claims
}

func (s State) clone() State {
	return State{
		Record: s.Record.Clone(),
		Claims: s.Claims,
	}
}
