package ecsruntime

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/ecsruntime/bitset"
	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

const lockBitGeneral = 0

// WorldStats is a point-in-time snapshot of World introspection data.
type WorldStats struct {
	EntityCount    int
	ArchetypeCount int
	QueryCount     int
	ResourceCount  int
}

// World owns the IdAllocator, ComponentRegistry, every Archetype,
// resources, and the query registry; it is the sole mutator of the
// entity-to-archetype mapping.
type World struct {
	ids      *IdAllocator
	registry *ComponentRegistry
	schema   table.Schema
	entries  table.EntryIndex

	entitiesByIndex *bitset.SparseMap[*entity]
	entriesByID     map[table.EntryID]*entity

	archetypes      []*ArchetypeImpl
	archetypeByHash map[string]int // hash -> index into archetypes
	numericStrides  map[int32]int  // component type-id -> slab stride, once RegisterNumericComponent'd

	resources map[reflect.Type]any

	queries []*Query

	locks mask.Mask256

	destroyCallbacks map[EntityHandle]EntityDestroyCallback
}

// NewWorld returns an empty World with a freshly-created empty archetype.
func NewWorld() *World {
	w := &World{
		ids:              NewIdAllocator(),
		registry:         NewComponentRegistry(),
		schema:           table.Factory.NewSchema(),
		entries:          table.Factory.NewEntryIndex(),
		entitiesByIndex:  bitset.NewSparseMap[*entity](),
		entriesByID:      make(map[table.EntryID]*entity),
		archetypeByHash:  make(map[string]int),
		numericStrides:   make(map[int32]int),
		resources:        make(map[reflect.Type]any),
		destroyCallbacks: make(map[EntityHandle]EntityDestroyCallback),
	}
	if _, err := w.findOrCreateArchetype(nil); err != nil {
		panic(rlog.Trace(err))
	}
	return w
}

// RegisterComponent idempotently assigns (type-id, bit-index) to c's
// type.
func (w *World) RegisterComponent(c Component) (int32, uint32) {
	return w.registry.Register(c)
}

// RegisterNumericComponent registers c and additionally declares it
// slab-backed with the given per-entity scalar stride: archetypes
// containing c that are created after this call carry a TypedSlab column
// for it alongside the boxed table column. Archetypes that already exist
// are not given one.
func (w *World) RegisterNumericComponent(c Component, stride int) (int32, uint32) {
	id, bit := w.registry.Register(c)
	w.numericStrides[id] = stride
	return id, bit
}

// Locked reports whether the World is currently locked (during Cursor
// iteration). While locked, CreateEntity, DestroyEntity and Entity's
// add/remove methods refuse; World.AddComponent and
// World.RemoveComponent do not check the lock.
func (w *World) Locked() bool {
	return !w.locks.IsEmpty()
}

// Lock marks the World locked under the general lock bit.
func (w *World) Lock() {
	w.locks.Mark(lockBitGeneral)
}

// Unlock clears the general lock bit.
func (w *World) Unlock() {
	w.locks.Unmark(lockBitGeneral)
}

func (w *World) entityOf(h EntityHandle) (*entity, bool) {
	en, ok := w.entitiesByIndex.Get(h.Index())
	if !ok || en.handle != h {
		return nil, false
	}
	return en, true
}

// IsAlive reports whether h names a live entity.
func (w *World) IsAlive(h EntityHandle) bool {
	return w.ids.IsLive(h)
}

// CreateEntity allocates an id and inserts the entity into the
// archetype matching components (the empty archetype if none given).
func (w *World) CreateEntity(components ...Component) (Entity, error) {
	if w.Locked() {
		return nil, LockedStorageError{}
	}
	h, err := w.ids.Create()
	if err != nil {
		return nil, err
	}
	arche, err := w.findOrCreateArchetype(components)
	if err != nil {
		w.ids.Destroy(h)
		return nil, err
	}
	entries, err := arche.table.NewEntries(1)
	if err != nil {
		w.ids.Destroy(h)
		return nil, err
	}
	comps := make([]Component, len(components))
	copy(comps, components)
	en := &entity{
		Entry:      entries[0],
		handle:     h,
		world:      w,
		components: comps,
	}
	w.entitiesByIndex.Set(h.Index(), en)
	w.entriesByID[en.ID()] = en
	w.addNumericRows(arche, h, components)
	return en, nil
}

// DestroyEntity removes the entity from its archetype, clears its
// location, fires its destroy callback if any, and frees its id.
func (w *World) DestroyEntity(h EntityHandle) bool {
	if w.Locked() || !w.ids.IsLive(h) {
		return false
	}
	en, ok := w.entityOf(h)
	if !ok {
		return false
	}
	arche := w.archetypeOf(en)
	if arche != nil {
		arche.table.DeleteEntries(int(en.ID()))
		w.removeNumericRows(arche, h)
	}
	if cb, ok := w.destroyCallbacks[h]; ok {
		cb(en)
		delete(w.destroyCallbacks, h)
	}
	delete(w.entriesByID, en.ID())
	w.entitiesByIndex.Delete(h.Index())
	w.ids.Destroy(h)
	return true
}

// entryLookup resolves a table.Entry's stable EntryID back to the entity
// that owns it, used by Query iteration to turn a (archetype, row) pair
// into an Entity without relying on row position, which swap-remove may
// change at any migration.
func (w *World) entryLookup(id table.EntryID) (*entity, bool) {
	en, ok := w.entriesByID[id]
	return en, ok
}

// SetEntityParent records a parent relationship and a callback fired
// when the parent is destroyed. A child may only be parented once.
func (w *World) SetEntityParent(child, parent EntityHandle, cb EntityDestroyCallback) error {
	cen, ok := w.entityOf(child)
	if !ok {
		return NotLiveError{Handle: child}
	}
	if cen.hasParent {
		return EntityRelationError{Child: child, Parent: parent}
	}
	cen.parent = parent
	cen.hasParent = true
	if cb != nil {
		w.destroyCallbacks[parent] = cb
	}
	return nil
}

func (w *World) archetypeOf(en *entity) *ArchetypeImpl {
	tbl := en.Table()
	for _, a := range w.archetypes {
		if a.table == tbl {
			return a
		}
	}
	return nil
}

// AddComponent moves the entity to the archetype for its current
// component set plus c, updating in place if c is already present.
func (w *World) AddComponent(h EntityHandle, c Component, data any) (bool, error) {
	if !w.ids.IsLive(h) {
		return false, nil
	}
	en, ok := w.entityOf(h)
	if !ok {
		return false, nil
	}
	w.registry.Register(c)
	origin := w.archetypeOf(en)
	if origin != nil && origin.table.Contains(c) {
		if data != nil {
			applyFieldUpdate(origin.table, en.Index(), c, data)
		}
		return true, nil
	}
	for _, existing := range en.components {
		if sameComponentType(existing, c) {
			return true, nil
		}
	}
	newComponents := append(append([]Component{}, en.components...), c)
	dest, err := w.findOrCreateArchetype(newComponents)
	if err != nil {
		return false, fmt.Errorf("ecsruntime: add component: %w", err)
	}
	if origin != nil {
		if err := origin.table.TransferEntries(dest.table, en.Index()); err != nil {
			return false, fmt.Errorf("ecsruntime: add component transfer: %w", err)
		}
		w.moveNumericRows(origin, dest, h, en.components, newComponents)
	} else {
		if _, err := dest.table.NewEntries(1); err != nil {
			return false, err
		}
		w.addNumericRows(dest, h, newComponents)
	}
	en.components = newComponents
	if data != nil {
		applyFieldUpdate(dest.table, en.Index(), c, data)
	}
	return true, nil
}

// RemoveComponent moves the entity to the archetype for its current
// component set minus c. Returns false for an unregistered type, a
// type the entity lacks, or a dead entity.
func (w *World) RemoveComponent(h EntityHandle, c Component) (bool, error) {
	if !w.ids.IsLive(h) {
		return false, nil
	}
	en, ok := w.entityOf(h)
	if !ok {
		return false, nil
	}
	origin := w.archetypeOf(en)
	if origin == nil || !origin.table.Contains(c) {
		return false, nil
	}
	newComponents := make([]Component, 0, len(en.components))
	for _, existing := range en.components {
		if !sameComponentType(existing, c) {
			newComponents = append(newComponents, existing)
		}
	}
	dest, err := w.findOrCreateArchetype(newComponents)
	if err != nil {
		return false, fmt.Errorf("ecsruntime: remove component: %w", err)
	}
	if err := origin.table.TransferEntries(dest.table, en.Index()); err != nil {
		return false, fmt.Errorf("ecsruntime: remove component transfer: %w", err)
	}
	w.moveNumericRows(origin, dest, h, en.components, newComponents)
	en.components = newComponents
	return true, nil
}

// HasComponent reports whether h carries c.
func (w *World) HasComponent(h EntityHandle, c Component) bool {
	en, ok := w.entityOf(h)
	if !ok {
		return false
	}
	arche := w.archetypeOf(en)
	return arche != nil && arche.table.Contains(c)
}

// GetComponent retrieves T's value for h via the given accessor.
func GetComponent[T any](w *World, h EntityHandle, c AccessibleComponent[T]) (*T, bool) {
	en, ok := w.entityOf(h)
	if !ok {
		return nil, false
	}
	arche := w.archetypeOf(en)
	if arche == nil || !arche.table.Contains(c.Component) {
		return nil, false
	}
	return c.GetFromEntity(en), true
}

func sameComponentType(a, b Component) bool {
	ta := reflect.TypeOf(a)
	tb := reflect.TypeOf(b)
	return ta == tb
}

// applyFieldUpdate either replaces the stored value (when data's type
// matches the component's element type exactly) or merges named fields
// onto the existing value (partial update).
func applyFieldUpdate(tbl table.Table, row int, c Component, data any) {
	dataVal := reflect.ValueOf(data)
	for _, colRow := range tbl.Rows() {
		rowVal := reflect.Value(colRow)
		elemType := rowVal.Type().Elem()
		if dataVal.Type() == elemType || (dataVal.Kind() == reflect.Ptr && dataVal.Type().Elem() == elemType) {
			target := rowVal.Index(row)
			if dataVal.Kind() == reflect.Ptr {
				target.Set(dataVal.Elem())
			} else {
				target.Set(dataVal)
			}
			return
		}
		if elemType.Kind() == reflect.Struct && dataVal.Kind() == reflect.Struct {
			target := rowVal.Index(row)
			for i := 0; i < dataVal.NumField(); i++ {
				name := dataVal.Type().Field(i).Name
				field := target.FieldByName(name)
				if field.IsValid() && field.CanSet() {
					field.Set(dataVal.Field(i))
				}
			}
			return
		}
	}
}

// findOrCreateArchetype returns the archetype for exactly this component
// set, creating it (and notifying every live query) on first use.
// Keyed by mask digest.
func (w *World) findOrCreateArchetype(components []Component) (*ArchetypeImpl, error) {
	for _, c := range components {
		w.registry.Register(c)
	}
	m := w.registry.Mask(components)
	hash := maskHash(m)
	if idx, ok := w.archetypeByHash[hash]; ok {
		return w.archetypes[idx], nil
	}
	id := archetypeID(len(w.archetypes) + 1)
	created, err := newArchetype(w.schema, w.entries, id, m, components...)
	if err != nil {
		return nil, err
	}
	for typeID, stride := range w.numericStrides {
		for _, c := range components {
			if w.registry.TypeID(c) == typeID {
				created.attachNumericSlab(typeID, NewTypedSlab(stride))
			}
		}
	}
	idx := len(w.archetypes)
	w.archetypes = append(w.archetypes, &created)
	w.archetypeByHash[hash] = idx
	for _, q := range w.queries {
		q.addArchetype(&created)
	}
	return &created, nil
}

func (w *World) addNumericRows(a *ArchetypeImpl, h EntityHandle, components []Component) {
	for _, slab := range a.numeric {
		slab.Add(h, make([]float64, slab.Stride()))
	}
}

func (w *World) removeNumericRows(a *ArchetypeImpl, h EntityHandle) {
	for _, slab := range a.numeric {
		slab.Remove(h)
	}
}

func (w *World) moveNumericRows(origin, dest *ArchetypeImpl, h EntityHandle, oldComponents, newComponents []Component) {
	for typeID, slab := range origin.numeric {
		view, ok := slab.View(h)
		var saved []float64
		if ok {
			saved = append(saved, view...)
		}
		slab.Remove(h)
		if destSlab, ok := dest.numeric[typeID]; ok {
			if saved == nil {
				saved = make([]float64, destSlab.Stride())
			}
			destSlab.Add(h, saved)
		}
	}
	for typeID, slab := range dest.numeric {
		if _, had := origin.numeric[typeID]; !had {
			if _, ok := slab.RowOf(h); !ok {
				slab.Add(h, make([]float64, slab.Stride()))
			}
		}
	}
}

// InsertResource stores v as the singleton instance for its type. The
// value is boxed once so GetResource returns a pointer aliasing live
// storage; mutations through that pointer persist. Passing a *T stores
// that exact instance under T.
func (w *World) InsertResource(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		w.resources[rv.Type().Elem()] = v
		return
	}
	boxed := reflect.New(rv.Type())
	boxed.Elem().Set(rv)
	w.resources[rv.Type()] = boxed.Interface()
}

// GetResource retrieves the resource instance of type T. The returned
// pointer aliases the stored instance, not a copy.
func GetResource[T any](w *World) (*T, bool) {
	var zero T
	v, ok := w.resources[reflect.TypeOf(zero)]
	if !ok {
		return nil, false
	}
	ptr, ok := v.(*T)
	return ptr, ok
}

// RemoveResource deletes the resource instance of type T.
func RemoveResource[T any](w *World) bool {
	var zero T
	t := reflect.TypeOf(zero)
	if _, ok := w.resources[t]; !ok {
		return false
	}
	delete(w.resources, t)
	return true
}

// Query constructs a filter-backed Query, pre-populates its archetype
// cache, and registers it for future archetype notifications.
func (w *World) Query(filter Filter) *Query {
	q := newQuery(filter, w)
	for _, a := range w.archetypes {
		q.addArchetype(a)
	}
	w.queries = append(w.queries, q)
	return q
}

// RemoveQuery deregisters q so it no longer observes new archetypes.
func (w *World) RemoveQuery(q *Query) bool {
	for i, existing := range w.queries {
		if existing == q {
			w.queries = append(w.queries[:i], w.queries[i+1:]...)
			return true
		}
	}
	return false
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return int(w.ids.LiveCount())
}

// EntityIter yields every live entity in ascending index order.
func (w *World) EntityIter(yield func(Entity) bool) {
	w.ids.LiveIter(func(h EntityHandle) bool {
		en, ok := w.entityOf(h)
		if !ok {
			return true
		}
		return yield(en)
	})
}

// Stats returns a point-in-time snapshot of World introspection data.
func (w *World) Stats() WorldStats {
	return WorldStats{
		EntityCount:    w.EntityCount(),
		ArchetypeCount: len(w.archetypes),
		QueryCount:     len(w.queries),
		ResourceCount:  len(w.resources),
	}
}

// Archetypes returns every archetype currently in the World.
func (w *World) Archetypes() []*ArchetypeImpl {
	return w.archetypes
}

// Registry exposes the World's ComponentRegistry for callers needing raw
// type-id/bit-index lookups.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Clear drops all entities, archetypes, queries, and resources, leaving
// a freshly re-created empty archetype.
func (w *World) Clear() {
	*w = *NewWorld()
}
