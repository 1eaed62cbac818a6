package ecsruntime

// Factory groups the constructors a caller typically needs to stand up
// a runtime: a World plus the Query/Cursor/CommandBuffer machinery that
// operate on it. Since Go methods can't carry type parameters, the
// per-component constructors (NewComponent[T], GetComponent[T], ...)
// stay as free functions and Factory only wraps the non-generic ones.
var Factory factory

type factory struct{}

// NewWorld returns a new, empty World.
func (factory) NewWorld() *World {
	return NewWorld()
}

// NewQuery builds a Filter-backed Query against w.
func (factory) NewQuery(w *World, filter Filter) *Query {
	return w.Query(filter)
}

// NewCursor returns a Cursor over q.
func (factory) NewCursor(q *Query) *Cursor {
	return NewCursor(q)
}

// NewCommandBuffer returns an empty CommandBuffer.
func (factory) NewCommandBuffer() *CommandBuffer {
	return NewCommandBuffer()
}
