// Package change tracks which (entity, component-type) pairs were
// added, modified, or removed during the current frame.
package change

import "fmt"

// Kind is a bitmask over the three disjoint change kinds a tracker
// records.
type Kind uint8

const (
	Added Kind = 1 << iota
	Modified
	Removed

	Any = Added | Modified | Removed
)

// TypeID identifies a component type to the tracker; callers own the
// mapping from their own type system (e.g. a ComponentRegistry bit
// index or type-id) to this key.
type TypeID int32

type entityKind struct {
	entity uint32
	typ    TypeID
}

// Tracker holds per-frame Added/Modified/Removed marks keyed by
// (entity, component type), cleared in bulk at frame boundaries.
type Tracker struct {
	registered map[TypeID]bool

	added    map[entityKind]bool
	modified map[entityKind]bool
	removed  map[entityKind]bool

	// byEntity indexes every kind currently marked against an entity,
	// so ChangedComponents/HasAnyChange avoid a full scan.
	byEntity map[uint32]map[TypeID]Kind

	frame uint64
}

// NewTracker returns an empty Tracker at frame 0.
func NewTracker() *Tracker {
	return &Tracker{
		registered: make(map[TypeID]bool),
		added:      make(map[entityKind]bool),
		modified:   make(map[entityKind]bool),
		removed:    make(map[entityKind]bool),
		byEntity:   make(map[uint32]map[TypeID]Kind),
	}
}

// RegisterComponent idempotently registers a component type with the
// tracker. Marking a type autoregisters it, so direct calls are only
// needed to pre-warm. ChangeCount and ChangedEntities do not consult
// registration; for a type nothing has touched they report zero/empty
// either way.
func (t *Tracker) RegisterComponent(typ TypeID) {
	t.registered[typ] = true
}

func (t *Tracker) mark(e uint32, typ TypeID, set map[entityKind]bool, k Kind) {
	t.registered[typ] = true
	set[entityKind{entity: e, typ: typ}] = true
	if t.byEntity[e] == nil {
		t.byEntity[e] = make(map[TypeID]Kind)
	}
	t.byEntity[e][typ] |= k
}

// MarkAdded records that component typ was added to entity e this frame.
func (t *Tracker) MarkAdded(e uint32, typ TypeID) { t.mark(e, typ, t.added, Added) }

// MarkModified records that component typ on entity e was modified this
// frame.
func (t *Tracker) MarkModified(e uint32, typ TypeID) { t.mark(e, typ, t.modified, Modified) }

// MarkRemoved records that component typ was removed from entity e this
// frame.
func (t *Tracker) MarkRemoved(e uint32, typ TypeID) { t.mark(e, typ, t.removed, Removed) }

// HasChanged reports whether entity e's component typ was touched this
// frame in any of the kinds named by the kinds bitmask.
func (t *Tracker) HasChanged(e uint32, typ TypeID, kinds Kind) bool {
	k, ok := t.byEntity[e][typ]
	if !ok {
		return false
	}
	return k&kinds != 0
}

// HasAnyChange reports whether entity e has any mark at all this frame.
func (t *Tracker) HasAnyChange(e uint32) bool {
	marks, ok := t.byEntity[e]
	if !ok {
		return false
	}
	return len(marks) > 0
}

// ChangedEntities returns every entity whose component typ was touched
// this frame in any of the kinds named by kinds, in no particular order.
func (t *Tracker) ChangedEntities(typ TypeID, kinds Kind) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	add := func(set map[entityKind]bool) {
		for ek := range set {
			if ek.typ != typ || seen[ek.entity] {
				continue
			}
			seen[ek.entity] = true
			out = append(out, ek.entity)
		}
	}
	if kinds&Added != 0 {
		add(t.added)
	}
	if kinds&Modified != 0 {
		add(t.modified)
	}
	if kinds&Removed != 0 {
		add(t.removed)
	}
	return out
}

// ChangedComponents returns every component type touched on entity e
// this frame, in no particular order.
func (t *Tracker) ChangedComponents(e uint32) []TypeID {
	marks, ok := t.byEntity[e]
	if !ok {
		return nil
	}
	out := make([]TypeID, 0, len(marks))
	for typ := range marks {
		out = append(out, typ)
	}
	return out
}

// ChangeCount sums the number of distinct (entity, type, kind) marks recorded
// across the given types this frame.
func (t *Tracker) ChangeCount(types []TypeID) uint32 {
	want := make(map[TypeID]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	var count uint32
	for ek := range t.added {
		if want[ek.typ] {
			count++
		}
	}
	for ek := range t.modified {
		if want[ek.typ] {
			count++
		}
	}
	for ek := range t.removed {
		if want[ek.typ] {
			count++
		}
	}
	return count
}

// ClearAll drops every mark and advances the frame counter. Intended
// call site: end of frame.
func (t *Tracker) ClearAll() {
	t.added = make(map[entityKind]bool)
	t.modified = make(map[entityKind]bool)
	t.removed = make(map[entityKind]bool)
	t.byEntity = make(map[uint32]map[TypeID]Kind)
	t.frame++
}

// ClearComponent drops every mark for component type typ, across all
// entities.
func (t *Tracker) ClearComponent(typ TypeID) {
	clearType := func(set map[entityKind]bool) {
		for ek := range set {
			if ek.typ == typ {
				delete(set, ek)
			}
		}
	}
	clearType(t.added)
	clearType(t.modified)
	clearType(t.removed)
	for e, marks := range t.byEntity {
		delete(marks, typ)
		if len(marks) == 0 {
			delete(t.byEntity, e)
		}
	}
}

// ClearEntity drops every mark for entity e, across all component
// types.
func (t *Tracker) ClearEntity(e uint32) {
	clearEntity := func(set map[entityKind]bool) {
		for ek := range set {
			if ek.entity == e {
				delete(set, ek)
			}
		}
	}
	clearEntity(t.added)
	clearEntity(t.modified)
	clearEntity(t.removed)
	delete(t.byEntity, e)
}

// CurrentFrame returns the number of times ClearAll has run.
func (t *Tracker) CurrentFrame() uint64 {
	return t.frame
}

func (k Kind) String() string {
	switch k {
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Removed:
		return "Removed"
	case Any:
		return "Any"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}
