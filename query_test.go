package ecsruntime

import "testing"

// TestQueryBasic: three entities, only the one carrying both Position
// and Velocity matches {all: [Position, Velocity]}, with its exact
// values in filter order.
func TestQueryBasic(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()
	velComp := NewComponent[Velocity]()

	e1, _ := w.CreateEntity(posComp)
	posComp.GetFromEntity(e1).X = 1

	e2, _ := w.CreateEntity(posComp, velComp)
	posComp.GetFromEntity(e2).X = 2
	velComp.GetFromEntity(e2).X = 1

	e3, _ := w.CreateEntity(velComp)
	velComp.GetFromEntity(e3).X = 1

	q := w.Query(w.NewFilter().All(w, posComp, velComp))
	results := q.CollectValues()
	if len(results) != 1 {
		t.Fatalf("Collect returned %d results, want 1", len(results))
	}
	r := results[0]
	if r.Entity.Handle() != e2.Handle() {
		t.Fatalf("matched entity = %v, want %v", r.Entity.Handle(), e2.Handle())
	}
	pos, ok := r.Values[0].(Position)
	if !ok || pos.X != 2 {
		t.Fatalf("values[0] = %#v, want Position{X: 2}", r.Values[0])
	}
	vel, ok := r.Values[1].(Velocity)
	if !ok || vel.X != 1 {
		t.Fatalf("values[1] = %#v, want Velocity{X: 1}", r.Values[1])
	}
}

func TestQueryFilterAnyNone(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()
	velComp := NewComponent[Velocity]()
	healthComp := NewComponent[Health]()

	w.CreateEntity(posComp)                      // pos only
	w.CreateEntity(posComp, velComp)             // pos+vel
	w.CreateEntity(posComp, healthComp)          // pos+health
	w.CreateEntity(posComp, velComp, healthComp) // all three
	w.CreateEntity()                             // empty

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all pos", w.NewFilter().All(w, posComp), 4},
		{"any vel or health", w.NewFilter().Any(w, velComp, healthComp), 3},
		{"pos none vel", w.NewFilter().All(w, posComp).None(w, velComp), 2},
		{"pos any health none vel", w.NewFilter().All(w, posComp).Any(w, healthComp).None(w, velComp), 1},
		{"empty filter matches everything", w.NewFilter(), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := w.Query(tt.filter)
			if got := q.EntityCount(); got != tt.want {
				t.Errorf("EntityCount() = %d, want %d", got, tt.want)
			}
			w.RemoveQuery(q)
		})
	}
}

// TestQueryObservesFutureArchetypes: a query created before any
// matching archetype exists still yields entities migrated into
// archetypes created afterwards.
func TestQueryObservesFutureArchetypes(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()
	velComp := NewComponent[Velocity]()

	q := w.Query(w.NewFilter().All(w, posComp, velComp))
	if q.EntityCount() != 0 {
		t.Fatalf("EntityCount before any entities = %d", q.EntityCount())
	}

	en, _ := w.CreateEntity(posComp)
	if q.EntityCount() != 0 {
		t.Fatal("query matched an archetype missing Velocity")
	}

	if ok, err := w.AddComponent(en.Handle(), velComp, nil); err != nil || !ok {
		t.Fatalf("AddComponent = (%v, %v)", ok, err)
	}
	if q.EntityCount() != 1 {
		t.Fatalf("EntityCount after migration = %d, want 1", q.EntityCount())
	}

	// Completeness both ways: every cached archetype satisfies the
	// filter, and every satisfying archetype is cached.
	for _, a := range w.Archetypes() {
		cached := false
		for _, qa := range q.Archetypes() {
			if qa == a {
				cached = true
			}
		}
		if satisfies := q.filter.matches(a.Mask()); satisfies != cached {
			t.Errorf("archetype %s: satisfies=%v cached=%v", a.Hash(), satisfies, cached)
		}
	}
}

func TestQueryRemoveStopsObserving(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()

	q := w.Query(w.NewFilter().All(w, posComp))
	if !w.RemoveQuery(q) {
		t.Fatal("RemoveQuery failed")
	}
	if w.RemoveQuery(q) {
		t.Fatal("double RemoveQuery succeeded")
	}

	w.CreateEntity(posComp)
	if len(q.Archetypes()) != 0 {
		t.Fatal("removed query observed a new archetype")
	}
}

func TestQueryForEachSkipsDestroyed(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()

	e1, _ := w.CreateEntity(posComp)
	e2, _ := w.CreateEntity(posComp)
	w.DestroyEntity(e1.Handle())

	q := w.Query(w.NewFilter().All(w, posComp))
	var seen []EntityHandle
	q.ForEach(func(e Entity) {
		seen = append(seen, e.Handle())
	})
	if len(seen) != 1 || seen[0] != e2.Handle() {
		t.Fatalf("ForEach yielded %v, want only %v", seen, e2.Handle())
	}
}

func TestCursorIteration(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()
	velComp := NewComponent[Velocity]()

	for i := 0; i < 3; i++ {
		en, _ := w.CreateEntity(posComp, velComp)
		posComp.GetFromEntity(en).X = float64(i)
	}
	w.CreateEntity(posComp)

	q := w.Query(w.NewFilter().All(w, posComp, velComp))
	cursor := NewCursor(q)
	if got := cursor.TotalMatched(); got != 3 {
		t.Fatalf("TotalMatched() = %d, want 3", got)
	}

	sum := 0.0
	count := 0
	for cursor.Next() {
		sum += posComp.GetFromCursor(cursor).X
		count++
	}
	if count != 3 || sum != 3 {
		t.Fatalf("cursor visited %d rows with sum %v, want 3 rows summing 3", count, sum)
	}
	if w.Locked() {
		t.Fatal("world still locked after cursor drained")
	}
}

func TestMaskHashStable(t *testing.T) {
	w := NewWorld()
	posComp := NewComponent[Position]()
	velComp := NewComponent[Velocity]()
	w.RegisterComponent(posComp)
	w.RegisterComponent(velComp)

	a := w.registry.Mask([]Component{posComp, velComp})
	b := w.registry.Mask([]Component{velComp, posComp})
	if maskHash(a) != maskHash(b) {
		t.Fatalf("hash order-dependent: %q vs %q", maskHash(a), maskHash(b))
	}
}
