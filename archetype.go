package ecsruntime

import (
	"fmt"
	"strings"

	"github.com/TheBitDrifter/ecsruntime/bitset"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

// ArchetypeImpl is the storage bucket for every entity sharing one
// component-set mask. Boxed-value columns ride on a table.Table;
// components registered as numeric (via World.RegisterNumericComponent)
// additionally get a TypedSlab, a flat-packed contiguous column GPU
// uploads can read zero-copy.
type ArchetypeImpl struct {
	id      archetypeID
	table   table.Table
	mask    bitset.Bitset
	types   []Component // registration order, mirrors table column order
	numeric map[int32]*TypedSlab
}

// emptyAnchor backs the empty archetype's table: table wants at least
// one element type per table, and entities carrying no components still
// need rows. It is never registered with the ComponentRegistry, so the
// empty archetype's mask stays empty.
type emptyAnchor struct{}

var emptyAnchorType = table.FactoryNewElementType[emptyAnchor]()

func newArchetype(schema table.Schema, entryIndex table.EntryIndex, id archetypeID, m bitset.Bitset, components ...Component) (ArchetypeImpl, error) {
	elementTypes := make([]table.ElementType, len(components))
	for i, comp := range components {
		elementTypes[i] = comp
	}
	if len(elementTypes) == 0 {
		elementTypes = []table.ElementType{emptyAnchorType}
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(elementTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return ArchetypeImpl{}, err
	}
	types := make([]Component, len(components))
	copy(types, components)
	return ArchetypeImpl{
		table: tbl,
		id:    id,
		mask:  m,
		types: types,
	}, nil
}

// ID returns the archetype's dense identifier.
func (a ArchetypeImpl) ID() uint32 {
	return uint32(a.id)
}

// Table returns the underlying boxed-value storage.
func (a ArchetypeImpl) Table() table.Table {
	return a.table
}

// Mask returns the component-set bitmask identifying this archetype.
func (a ArchetypeImpl) Mask() bitset.Bitset {
	return a.mask
}

// ComponentTypes returns the ordered component list, matching column
// order pointwise.
func (a ArchetypeImpl) ComponentTypes() []Component {
	return a.types
}

// Hash returns a stable digest of the mask, used as the archetype's
// identity key.
func (a ArchetypeImpl) Hash() string {
	return maskHash(a.mask)
}

// maskHash renders a bitset's set bits as a stable, ascending-order
// digest string, used both for Archetype.Hash() and as the World's
// archetype-lookup key.
func maskHash(m bitset.Bitset) string {
	bits := m.ToArray()
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return strings.Join(parts, ",")
}

// NumericSlab returns the TypedSlab column for a numeric component
// type-id, or nil if that type-id isn't backed by one.
func (a *ArchetypeImpl) NumericSlab(typeID int32) *TypedSlab {
	if a.numeric == nil {
		return nil
	}
	return a.numeric[typeID]
}

// attachNumericSlab installs a TypedSlab column for typeID, called
// once at registration time so column kind is dispatched by type-id
// rather than by runtime type tests in the hot path.
func (a *ArchetypeImpl) attachNumericSlab(typeID int32, slab *TypedSlab) {
	if a.numeric == nil {
		a.numeric = make(map[int32]*TypedSlab)
	}
	a.numeric[typeID] = slab
}

// EntityCount returns the number of resident entities.
func (a ArchetypeImpl) EntityCount() int {
	return a.table.Length()
}
