package ecsruntime

import "fmt"

// commandState is the CommandBuffer's {Recording, Applied} state
// machine.
type commandState int

const (
	commandRecording commandState = iota
	commandApplied
)

// commandRecord is one queued, tagged operation.
type commandRecord interface {
	apply(w *World) error
	kind() string
}

// CommandBuffer records deferred World mutations and applies them
// atomically (from the caller's perspective) in record order.
type CommandBuffer struct {
	state   commandState
	records []commandRecord
}

// NewCommandBuffer returns an empty, Recording CommandBuffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

func (cb *CommandBuffer) requireRecording() {
	if cb.state != commandRecording {
		panic(InvariantViolationError{Detail: "command buffer recorded after being applied"})
	}
}

// Spawn records an entity creation; cb receives the new handle via
// callback at apply time, if given.
func (cb *CommandBuffer) Spawn(components []Component, callback func(EntityHandle)) {
	cb.requireRecording()
	cb.records = append(cb.records, spawnRecord{components: components, callback: callback})
}

// Despawn records an entity destruction.
func (cb *CommandBuffer) Despawn(h EntityHandle) {
	cb.requireRecording()
	cb.records = append(cb.records, despawnRecord{handle: h})
}

// AddComponent records a component addition, with an optional initial
// value.
func (cb *CommandBuffer) AddComponent(h EntityHandle, c Component, data any) {
	cb.requireRecording()
	cb.records = append(cb.records, addComponentRecord{handle: h, component: c, data: data})
}

// RemoveComponent records a component removal.
func (cb *CommandBuffer) RemoveComponent(h EntityHandle, c Component) {
	cb.requireRecording()
	cb.records = append(cb.records, removeComponentRecord{handle: h, component: c})
}

// InsertResource records a resource insertion.
func (cb *CommandBuffer) InsertResource(value any) {
	cb.requireRecording()
	cb.records = append(cb.records, insertResourceRecord{value: value})
}

// removeResource records a resource removal performed by remove at apply
// time (Go has no generic methods, so RemoveResourceCmd[T] is the
// ergonomic entry point; this is its backing op).
func (cb *CommandBuffer) removeResource(remove func(*World) bool) {
	cb.requireRecording()
	cb.records = append(cb.records, removeResourceRecord{remove: remove})
}

// RemoveResourceCmd records removal of resource type T.
func RemoveResourceCmd[T any](cb *CommandBuffer) {
	cb.removeResource(RemoveResource[T])
}

// Apply drains the queue in record order against w. Recording after
// Applied is a hard error (InvariantViolationError, panics);
// re-applying an already-applied buffer is likewise a hard error.
func (cb *CommandBuffer) Apply(w *World) error {
	if cb.state == commandApplied {
		panic(InvariantViolationError{Detail: "command buffer applied twice"})
	}
	for _, rec := range cb.records {
		if err := rec.apply(w); err != nil {
			return fmt.Errorf("ecsruntime: command buffer apply (%s): %w", rec.kind(), err)
		}
	}
	cb.state = commandApplied
	return nil
}

// Clear resets the buffer to Recording for reuse.
func (cb *CommandBuffer) Clear() {
	cb.state = commandRecording
	cb.records = nil
}

// Stats counts queued records per kind.
func (cb *CommandBuffer) Stats() map[string]int {
	out := make(map[string]int)
	for _, rec := range cb.records {
		out[rec.kind()]++
	}
	return out
}

type spawnRecord struct {
	components []Component
	callback   func(EntityHandle)
}

func (r spawnRecord) kind() string { return "spawn" }
func (r spawnRecord) apply(w *World) error {
	en, err := w.CreateEntity(r.components...)
	if err != nil {
		return err
	}
	if r.callback != nil {
		r.callback(en.Handle())
	}
	return nil
}

type despawnRecord struct{ handle EntityHandle }

func (r despawnRecord) kind() string { return "despawn" }
func (r despawnRecord) apply(w *World) error {
	w.DestroyEntity(r.handle)
	return nil
}

type addComponentRecord struct {
	handle    EntityHandle
	component Component
	data      any
}

func (r addComponentRecord) kind() string { return "add_component" }
func (r addComponentRecord) apply(w *World) error {
	_, err := w.AddComponent(r.handle, r.component, r.data)
	return err
}

type removeComponentRecord struct {
	handle    EntityHandle
	component Component
}

func (r removeComponentRecord) kind() string { return "remove_component" }
func (r removeComponentRecord) apply(w *World) error {
	_, err := w.RemoveComponent(r.handle, r.component)
	return err
}

type insertResourceRecord struct{ value any }

func (r insertResourceRecord) kind() string { return "insert_resource" }
func (r insertResourceRecord) apply(w *World) error {
	w.InsertResource(r.value)
	return nil
}

type removeResourceRecord struct{ remove func(*World) bool }

func (r removeResourceRecord) kind() string { return "remove_resource" }
func (r removeResourceRecord) apply(w *World) error {
	r.remove(w)
	return nil
}
