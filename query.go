package ecsruntime

import (
	"reflect"

	"github.com/TheBitDrifter/ecsruntime/bitset"
)

// Filter is the {all, any, none} component-set predicate a Query is
// defined by. An archetype's mask satisfies the filter iff it contains
// every `all` bit, at least one `any` bit (when any is non-empty), and
// none of the `none` bits.
type Filter struct {
	all, any, none bitset.Bitset

	// allComponents preserves the order passed to All so CollectValues can
	// materialize each row's values by reading the requested columns in
	// this exact order.
	allComponents []Component
}

// NewFilter returns an empty filter; chain All/Any/None to build it
// up.
func (w *World) NewFilter() Filter {
	return Filter{}
}

// All requires every given component.
func (f Filter) All(w *World, components ...Component) Filter {
	for _, c := range components {
		w.registry.Register(c)
	}
	f.all = f.all.Union(w.registry.Mask(components))
	f.allComponents = append(append([]Component{}, f.allComponents...), components...)
	return f
}

// Any requires at least one of the given components.
func (f Filter) Any(w *World, components ...Component) Filter {
	for _, c := range components {
		w.registry.Register(c)
	}
	f.any = f.any.Union(w.registry.Mask(components))
	return f
}

// None excludes entities carrying any of the given components.
func (f Filter) None(w *World, components ...Component) Filter {
	for _, c := range components {
		w.registry.Register(c)
	}
	f.none = f.none.Union(w.registry.Mask(components))
	return f
}

// matches reports whether an archetype's mask satisfies the filter.
func (f Filter) matches(archeMask bitset.Bitset) bool {
	if !archeMask.ContainsAll(f.all) {
		return false
	}
	if !f.any.IsEmpty() && !archeMask.ContainsAny(f.any) {
		return false
	}
	return archeMask.ContainsNone(f.none)
}

// QueryResult pairs a matched entity with its requested component
// values in filter order.
type QueryResult struct {
	Entity Entity
	Values []any
}

// Query caches the archetypes matching a Filter and provides
// iteration. Archetype order is registration order; row order within
// an archetype is insertion order (subject to swap-remove).
type Query struct {
	world      *World
	filter     Filter
	archetypes []*ArchetypeImpl
}

func newQuery(filter Filter, w *World) *Query {
	return &Query{world: w, filter: filter}
}

// addArchetype is called by World whenever a new archetype is created;
// it tests the filter and caches the archetype if accepted, so a query
// observes every satisfying archetype, including ones created after
// the query itself.
func (q *Query) addArchetype(a *ArchetypeImpl) {
	if !q.filter.matches(a.Mask()) {
		return
	}
	for _, existing := range q.archetypes {
		if existing == a {
			return
		}
	}
	q.archetypes = append(q.archetypes, a)
}

// EntityCount returns the sum of entity counts over every cached
// archetype.
func (q *Query) EntityCount() int {
	total := 0
	for _, a := range q.archetypes {
		total += a.EntityCount()
	}
	return total
}

// ForEach iterates every cached archetype, then every row within it in
// insertion order, invoking fn once per matched entity. Values for the
// filter's `all:` components are read off fn's Entity argument via
// AccessibleComponent.GetFromEntity; access to other components goes
// through World.GetComponent directly. Mutating the World
// (AddComponent/RemoveComponent) during iteration may move rows; safe
// mutation during iteration goes through a CommandBuffer.
func (q *Query) ForEach(fn func(e Entity)) {
	for _, a := range q.archetypes {
		for row := 0; row < a.table.Length(); row++ {
			entry, err := a.table.Entry(row)
			if err != nil {
				continue
			}
			en, ok := q.world.entryLookup(entry.ID())
			if !ok {
				continue
			}
			fn(en)
		}
	}
}

// Collect eagerly snapshots every matched entity.
func (q *Query) Collect() []Entity {
	var out []Entity
	q.ForEach(func(e Entity) {
		out = append(out, e)
	})
	return out
}

// CollectValues eagerly snapshots every matched entity paired with its
// `all:` filter component values, in filter order.
func (q *Query) CollectValues() []QueryResult {
	var out []QueryResult
	for _, a := range q.archetypes {
		for row := 0; row < a.table.Length(); row++ {
			entry, err := a.table.Entry(row)
			if err != nil {
				continue
			}
			en, ok := q.world.entryLookup(entry.ID())
			if !ok {
				continue
			}
			out = append(out, QueryResult{Entity: en, Values: q.valuesAt(a, row)})
		}
	}
	return out
}

// valuesAt reads each `all:`-filter component's column at row, in filter
// order.
func (q *Query) valuesAt(a *ArchetypeImpl, row int) []any {
	values := make([]any, len(q.filter.allComponents))
	for i, c := range q.filter.allComponents {
		elemType := componentType(c)
		for _, colRow := range a.table.Rows() {
			rowVal := reflect.Value(colRow)
			if rowVal.Type().Elem() == elemType {
				values[i] = rowVal.Index(row).Interface()
				break
			}
		}
	}
	return values
}

// Archetypes returns the currently cached archetype set.
func (q *Query) Archetypes() []*ArchetypeImpl {
	return q.archetypes
}
