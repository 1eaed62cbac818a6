// Package ecsruntime implements an archetype-based entity-component
// runtime: generational entity handles, structure-of-arrays storage
// split between boxed component columns and flat numeric slabs,
// filtered queries, deferred command buffers, and the supporting
// sub-packages (bitset, change, dag, system, gpusync, renderstore) that
// build a staged scheduler and a GPU-facing render pipeline on top of
// it.
//
// A minimal usage:
//
//	w := ecsruntime.NewWorld()
//	Position := ecsruntime.NewComponent[Vec2]()
//	en, _ := w.CreateEntity(Position)
//
//	filter := w.NewFilter().All(w, Position)
//	q := w.Query(filter)
//	q.ForEach(func(e ecsruntime.Entity) {
//		pos, _ := ecsruntime.GetComponent(w, e.Handle(), Position)
//		_ = pos
//	})
package ecsruntime
