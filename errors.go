package ecsruntime

import "fmt"

// LockedStorageError reports an attempted mutation while the World is
// locked (during Cursor iteration).
type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "ecsruntime: world is currently locked"
}

// EntityRelationError reports a duplicate parent assignment.
type EntityRelationError struct {
	Child, Parent EntityHandle
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("ecsruntime: entity %v already has a parent (attempted %v)", e.Child, e.Parent)
}

// ComponentExistsError describes an add of a component the entity
// already carries. World.AddComponent does not return it: it applies the
// data in place and returns true.
type ComponentExistsError struct {
	Component Component
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("ecsruntime: component already exists on entity: %T", e.Component)
}

// ComponentNotFoundError reports Entity.RemoveComponent called for a
// component the entity lacks.
type ComponentNotFoundError struct {
	Component Component
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("ecsruntime: component does not exist on entity: %T", e.Component)
}

// NotLiveError reports an operation against a destroyed or unknown
// entity handle. Operations return this rather than panicking.
type NotLiveError struct {
	Handle EntityHandle
}

func (e NotLiveError) Error() string {
	return fmt.Sprintf("ecsruntime: entity %v is not live", e.Handle)
}

// UnregisteredComponentError describes an operation on a component type
// that is not registered. No function in this module returns it;
// World.RemoveComponent on an unknown type returns false, nil.
type UnregisteredComponentError struct {
	Component Component
}

func (e UnregisteredComponentError) Error() string {
	return fmt.Sprintf("ecsruntime: component type %T is not registered", e.Component)
}

// InvariantViolationError reports a contract breach: mismatched row
// arity, index-space overflow, double-apply of a CommandBuffer. Fatal —
// always propagated, generally via rlog.Trace at the call site.
type InvariantViolationError struct {
	Detail string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("ecsruntime: invariant violated: %s", e.Detail)
}

// CycleDetectedError describes a dependency cycle. No function in this
// module returns it; dag.Graph.TopoSort reports cycles as *dag.CycleError.
type CycleDetectedError struct {
	Path []string
}

func (e CycleDetectedError) Error() string {
	return fmt.Sprintf("ecsruntime: dependency cycle detected: %v", e.Path)
}

// SystemFailure is the error a system.Scheduler's Update returns under
// ErrorPolicyThrow when a system panics. The scheduler's error callback
// receives a system.ErrorInfo, not this type.
type SystemFailure struct {
	SystemName string
	Stage      string
	Err        error
	FrameCount uint64
}

func (e SystemFailure) Error() string {
	return fmt.Sprintf("ecsruntime: system %q failed in stage %q: %v", e.SystemName, e.Stage, e.Err)
}

// DeviceFailureError wraps an error from the GPU device trait. No
// function in this module returns it; gpusync wraps device errors with
// fmt.Errorf instead.
type DeviceFailureError struct {
	Storage string
	Err     error
}

func (e DeviceFailureError) Error() string {
	return fmt.Sprintf("ecsruntime: device failure syncing %q: %v", e.Storage, e.Err)
}

func (e DeviceFailureError) Unwrap() error {
	return e.Err
}
