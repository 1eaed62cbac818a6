package ecsruntime

// TypedSlab is contiguous numeric storage for one numeric component
// type: N entities' worth of `stride` scalars each, flat-packed so the
// raw buffer is a zero-copy view suitable for GPU upload. It is the
// numeric half of the two column representations, the other being
// table-backed boxed values (ArchetypeImpl.table).
type TypedSlab struct {
	stride int
	data   []float64 // canonical storage; narrower scalar types convert at the boundary
	rows   []EntityHandle
	rowOf  map[EntityHandle]int
}

// NewTypedSlab returns an empty slab for components of the given
// scalar-per-entity width.
func NewTypedSlab(stride int) *TypedSlab {
	return &TypedSlab{
		stride: stride,
		rowOf:  make(map[EntityHandle]int),
	}
}

// Stride returns the scalar count per entity.
func (s *TypedSlab) Stride() int {
	return s.stride
}

// Len returns the number of resident entities (live prefix length).
func (s *TypedSlab) Len() int {
	return len(s.rows)
}

// Add appends an entity's scalar values, growing the backing buffer by
// doubling when exhausted. Returns the assigned row.
func (s *TypedSlab) Add(e EntityHandle, scalars []float64) int {
	if len(scalars) != s.stride {
		panic(InvariantViolationError{Detail: "typed slab arity mismatch"})
	}
	row := len(s.rows)
	neededLen := (row + 1) * s.stride
	if cap(s.data) < neededLen {
		newCap := neededLen
		if 2*cap(s.data) > newCap {
			newCap = 2 * cap(s.data)
		}
		grown := make([]float64, len(s.data), newCap)
		copy(grown, s.data)
		s.data = grown
	}
	s.data = s.data[:neededLen]
	copy(s.data[row*s.stride:neededLen], scalars)
	s.rows = append(s.rows, e)
	s.rowOf[e] = row
	return row
}

// Remove deletes e's row via swap-with-last, returning whether it was
// present.
func (s *TypedSlab) Remove(e EntityHandle) bool {
	row, ok := s.rowOf[e]
	if !ok {
		return false
	}
	last := len(s.rows) - 1
	if row != last {
		lastEntity := s.rows[last]
		copy(s.data[row*s.stride:(row+1)*s.stride], s.data[last*s.stride:(last+1)*s.stride])
		s.rows[row] = lastEntity
		s.rowOf[lastEntity] = row
	}
	s.rows = s.rows[:last]
	s.data = s.data[:last*s.stride]
	delete(s.rowOf, e)
	return true
}

// View returns the sub-slice of scalars belonging to e.
func (s *TypedSlab) View(e EntityHandle) ([]float64, bool) {
	row, ok := s.rowOf[e]
	if !ok {
		return nil, false
	}
	return s.data[row*s.stride : (row+1)*s.stride], true
}

// Get returns a single scalar at (entity, field).
func (s *TypedSlab) Get(e EntityHandle, field int) (float64, bool) {
	view, ok := s.View(e)
	if !ok || field < 0 || field >= s.stride {
		return 0, false
	}
	return view[field], true
}

// Set writes a single scalar at (entity, field).
func (s *TypedSlab) Set(e EntityHandle, field int, value float64) bool {
	view, ok := s.View(e)
	if !ok || field < 0 || field >= s.stride {
		return false
	}
	view[field] = value
	return true
}

// RawBuffer returns the live-prefix slice, the zero-copy view a
// GpuBufferSync source reads uploads from.
func (s *TypedSlab) RawBuffer() []float64 {
	return s.data
}

// RowOf returns e's row and whether it is resident.
func (s *TypedSlab) RowOf(e EntityHandle) (int, bool) {
	row, ok := s.rowOf[e]
	return row, ok
}
