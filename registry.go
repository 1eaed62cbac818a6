package ecsruntime

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/ecsruntime/bitset"
	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
)

// ComponentRegistry assigns a dense type-id and bit-index to each
// distinct component type registered against a World. It plays the
// role table.Schema plays for column indices, with the explicit
// reverse lookup archetype reconstruction needs and table.Schema does
// not expose.
type ComponentRegistry struct {
	typeIDs    map[reflect.Type]int32
	bitIndices map[reflect.Type]uint32
	byBit      []reflect.Type
	nextID     int32
}

// NewComponentRegistry returns an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		typeIDs:    make(map[reflect.Type]int32),
		bitIndices: make(map[reflect.Type]uint32),
	}
}

func componentType(c Component) reflect.Type {
	t := reflect.TypeOf(c)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Register assigns (or returns the existing) type-id/bit-index for c's
// underlying type. Idempotent: re-registration returns identical ids.
func (r *ComponentRegistry) Register(c Component) (typeID int32, bitIndex uint32) {
	t := componentType(c)
	if id, ok := r.typeIDs[t]; ok {
		return id, r.bitIndices[t]
	}
	id := r.nextID
	bit := uint32(len(r.byBit))
	r.typeIDs[t] = id
	r.bitIndices[t] = bit
	r.byBit = append(r.byBit, t)
	r.nextID++
	return id, bit
}

// TypeID returns the type-id for c's type, or -1 if unregistered.
func (r *ComponentRegistry) TypeID(c Component) int32 {
	t := componentType(c)
	if id, ok := r.typeIDs[t]; ok {
		return id
	}
	return -1
}

// BitIndex returns the bit-index for c's type; ok is false if the type
// is unregistered.
func (r *ComponentRegistry) BitIndex(c Component) (uint32, bool) {
	t := componentType(c)
	bit, ok := r.bitIndices[t]
	return bit, ok
}

// Mask returns the union bitset for the given components. Panics (via
// rlog.Trace) if any component is unregistered.
func (r *ComponentRegistry) Mask(components []Component) bitset.Bitset {
	var out bitset.Bitset
	for _, c := range components {
		bit, ok := r.BitIndex(c)
		if !ok {
			panic(rlog.Trace(fmt.Errorf("ecsruntime: mask requested for unregistered component %T", c)))
		}
		out.Set(bit)
	}
	return out
}

// TypesFromMask reverse-looks-up the reflect.Type for every set bit,
// used when reconstructing an archetype's ordered component list.
func (r *ComponentRegistry) TypesFromMask(m bitset.Bitset) []reflect.Type {
	var out []reflect.Type
	for _, bit := range m.ToArray() {
		if int(bit) < len(r.byBit) {
			out = append(out, r.byBit[bit])
		}
	}
	return out
}

// Count returns the number of distinct registered component types.
func (r *ComponentRegistry) Count() int {
	return len(r.byBit)
}
