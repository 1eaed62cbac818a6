package ecsruntime

import "fmt"

// EntityHandle packs an index and a generation into a 32-bit value:
// bits [31:12] are the index (20 bits), bits [11:0] are the generation
// (12 bits). The all-ones value is the invalid sentinel.
type EntityHandle uint32

const (
	indexBits                        = 20
	genBits                          = 12
	indexMax                         = (1 << indexBits) - 1
	genMax                           = (1 << genBits) - 1
	genMask                          = uint32(genMax)
	indexShift                       = genBits
	InvalidEntityHandle EntityHandle = 0xFFFFFFFF
)

// MakeEntityHandle packs an index/generation pair into a handle.
func MakeEntityHandle(index, generation uint32) EntityHandle {
	return EntityHandle((index << indexShift) | (generation & genMask))
}

// Index returns the packed index.
func (h EntityHandle) Index() uint32 {
	return uint32(h) >> indexShift
}

// Generation returns the packed generation.
func (h EntityHandle) Generation() uint32 {
	return uint32(h) & genMask
}

// IsValid reports whether h differs from the sentinel.
func (h EntityHandle) IsValid() bool {
	return h != InvalidEntityHandle
}

// String renders the handle as "index#generation".
func (h EntityHandle) String() string {
	if !h.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%d#%d", h.Index(), h.Generation())
}

type idSlot struct {
	alive      bool
	generation uint32
}

// IdAllocator allocates and recycles EntityHandles with generational
// invalidation. It is a standalone identity layer with a fixed packed
// encoding; table.EntryIndex (used elsewhere in this module for
// archetype row bookkeeping) provides a similar recycling scheme but
// does not expose one.
type IdAllocator struct {
	slots    []idSlot
	freeList []uint32
	live     int
}

// NewIdAllocator returns an empty IdAllocator.
func NewIdAllocator() *IdAllocator {
	return &IdAllocator{}
}

// Create allocates and returns a live handle. It fails only if every one
// of the 2^20 indices is simultaneously live.
func (a *IdAllocator) Create() (EntityHandle, error) {
	for len(a.freeList) > 0 {
		idx := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		slot := &a.slots[idx]
		nextGen := slot.generation + 1
		if nextGen > genMax {
			// Generation would overflow: permanently retire this slot
			// and try the next free index instead of reusing it.
			continue
		}
		slot.generation = nextGen
		slot.alive = true
		a.live++
		return MakeEntityHandle(idx, slot.generation), nil
	}
	idx := uint32(len(a.slots))
	if idx > indexMax {
		return InvalidEntityHandle, fmt.Errorf("ecsruntime: entity index space exhausted")
	}
	a.slots = append(a.slots, idSlot{alive: true, generation: 0})
	a.live++
	return MakeEntityHandle(idx, 0), nil
}

// Destroy releases h, succeeding iff it was live. Returns false (not
// an error) for an already-dead or unknown handle.
func (a *IdAllocator) Destroy(h EntityHandle) bool {
	if !a.IsLive(h) {
		return false
	}
	idx := h.Index()
	a.slots[idx].alive = false
	a.freeList = append(a.freeList, idx)
	a.live--
	return true
}

// IsLive reports whether h names a currently-live entity: its index is
// in range, its stored generation matches, and the alive flag is set.
func (a *IdAllocator) IsLive(h EntityHandle) bool {
	if !h.IsValid() {
		return false
	}
	idx := h.Index()
	if int(idx) >= len(a.slots) {
		return false
	}
	slot := a.slots[idx]
	return slot.alive && slot.generation == h.Generation()
}

// LiveCount returns the number of currently-live handles.
func (a *IdAllocator) LiveCount() uint32 {
	return uint32(a.live)
}

// TotalCount returns the number of indices ever allocated (live + dead).
func (a *IdAllocator) TotalCount() uint32 {
	return uint32(len(a.slots))
}

// FreeCount returns the number of indices pending reuse.
func (a *IdAllocator) FreeCount() uint32 {
	return uint32(len(a.freeList))
}

// LiveIter yields all live handles in ascending index order.
func (a *IdAllocator) LiveIter(yield func(EntityHandle) bool) {
	for idx, slot := range a.slots {
		if slot.alive {
			if !yield(MakeEntityHandle(uint32(idx), slot.generation)) {
				return
			}
		}
	}
}

// Clear resets the allocator to empty.
func (a *IdAllocator) Clear() {
	a.slots = nil
	a.freeList = nil
	a.live = 0
}
