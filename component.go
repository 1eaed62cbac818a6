package ecsruntime

import "github.com/TheBitDrifter/table"

// Component is a data attribute/state attachable to entities. Any
// table.ElementType (the marker every table-registered struct type
// satisfies) is a valid component, so boxed-value columns ride
// directly on table.Table.
type Component interface {
	table.ElementType
}

// AccessibleComponent pairs a Component marker with a concrete
// table.Accessor[T]: it is how callers read/write a component's value
// for a given entity or cursor position without per-access type
// assertions.
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T]
}

// GetFromCursor retrieves the component value for the entity at the
// cursor's current position.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(cursor.entityIndex-1, cursor.currentArchetype.table)
}

// GetFromCursorSafe retrieves the component value only if present on the
// cursor's current archetype.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether this component exists on the cursor's
// current archetype.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.currentArchetype.table)
}

// GetFromEntity retrieves the component value for the given entity.
func (c AccessibleComponent[T]) GetFromEntity(entity Entity) *T {
	return c.Get(entity.Index(), entity.Table())
}

// NewComponent registers a new AccessibleComponent for T, the single
// entry point for declaring component types.
func NewComponent[T any]() AccessibleComponent[T] {
	iden := table.FactoryNewElementType[T]()
	return AccessibleComponent[T]{
		Component: iden,
		Accessor:  table.FactoryNewAccessor[T](iden),
	}
}
