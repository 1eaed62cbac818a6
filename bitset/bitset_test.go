package bitset

import (
	"reflect"
	"testing"
)

func TestBitsetSetClearHas(t *testing.T) {
	var b Bitset
	if b.Has(3) {
		t.Fatal("empty bitset has bit")
	}
	b.Set(3)
	b.Set(7)
	b.Set(3) // idempotent
	if !b.Has(3) || !b.Has(7) {
		t.Fatal("set bits missing")
	}
	b.Clear(3)
	if b.Has(3) {
		t.Fatal("cleared bit still present")
	}
	if !b.Has(7) {
		t.Fatal("clear removed the wrong bit")
	}
}

func TestBitsetToArrayAscending(t *testing.T) {
	var b Bitset
	for _, bit := range []uint32{9, 1, 40, 4} {
		b.Set(bit)
	}
	want := []uint32{1, 4, 9, 40}
	if got := b.ToArray(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ToArray() = %v, want %v", got, want)
	}
}

func TestBitsetSetOps(t *testing.T) {
	var a, b Bitset
	a.Set(1)
	a.Set(2)
	b.Set(2)
	b.Set(3)

	union := a.Union(b)
	if got := union.ToArray(); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Fatalf("Union = %v", got)
	}
	inter := a.Intersection(b)
	if got := inter.ToArray(); !reflect.DeepEqual(got, []uint32{2}) {
		t.Fatalf("Intersection = %v", got)
	}
	if !a.ContainsAny(b) {
		t.Fatal("ContainsAny false for overlapping sets")
	}
	if a.ContainsAll(b) {
		t.Fatal("ContainsAll true for partial overlap")
	}
	if !union.ContainsAll(a) {
		t.Fatal("union does not contain operand")
	}
	var c Bitset
	c.Set(9)
	if !a.ContainsNone(c) {
		t.Fatal("ContainsNone false for disjoint sets")
	}
}

func TestBitsetCloneIndependent(t *testing.T) {
	var a Bitset
	a.Set(5)
	c := a.Clone()
	c.Set(6)
	if a.Has(6) {
		t.Fatal("mutation of clone leaked into original")
	}
	if !c.Has(5) {
		t.Fatal("clone lost original bit")
	}
}

func TestSparseSetAddRemove(t *testing.T) {
	s := NewSparseSet()
	s.Add(4)
	s.Add(10)
	s.Add(4) // idempotent
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !s.Has(4) || !s.Has(10) || s.Has(5) {
		t.Fatal("membership wrong")
	}
	if !s.Remove(4) {
		t.Fatal("Remove failed")
	}
	if s.Remove(4) {
		t.Fatal("double Remove succeeded")
	}
	if s.Has(4) || !s.Has(10) {
		t.Fatal("membership wrong after remove")
	}
}

func TestSparseSetSwapRemoveKeepsDense(t *testing.T) {
	s := NewSparseSet()
	for i := uint32(0); i < 5; i++ {
		s.Add(i)
	}
	s.Remove(0)
	items := s.Items()
	if len(items) != 4 {
		t.Fatalf("dense length = %d, want 4", len(items))
	}
	for _, k := range items {
		if !s.Has(k) {
			t.Fatalf("dense item %d not a member", k)
		}
	}
}

func TestSparseMapSetGetDelete(t *testing.T) {
	m := NewSparseMap[string]()
	m.Set(2, "two")
	m.Set(8, "eight")
	m.Set(2, "TWO") // update in place

	if v, ok := m.Get(2); !ok || v != "TWO" {
		t.Fatalf("Get(2) = (%q, %v)", v, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if !m.Delete(2) {
		t.Fatal("Delete failed")
	}
	if _, ok := m.Get(2); ok {
		t.Fatal("deleted key still present")
	}
	if v, ok := m.Get(8); !ok || v != "eight" {
		t.Fatalf("swap-delete corrupted survivor: (%q, %v)", v, ok)
	}
}
