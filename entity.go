package ecsruntime

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/TheBitDrifter/table"
)

// Entity represents a game/sim object: a stable EntityHandle plus
// table-backed row access (table.Entry) and a parent relationship.
// Destroy callbacks are registered through World.SetEntityParent.
type Entity interface {
	table.Entry

	Handle() EntityHandle
	Parent() Entity

	AddComponent(Component) error
	AddComponentWithValue(Component, any) error
	RemoveComponent(Component) error

	Components() []Component
	ComponentsAsString() string

	Valid() bool
	World() *World
}

// EntityDestroyCallback is invoked from World.DestroyEntity when an
// entity with a registered callback is destroyed.
type EntityDestroyCallback func(Entity)

type entity struct {
	table.Entry
	handle     EntityHandle
	world      *World
	parent     EntityHandle
	hasParent  bool
	components []Component
}

var _ Entity = &entity{}

func (e *entity) Handle() EntityHandle {
	return e.handle
}

func (e *entity) Parent() Entity {
	if !e.hasParent {
		return nil
	}
	en, ok := e.world.entityOf(e.parent)
	if !ok {
		return nil
	}
	return en
}

// AddComponent adds a component to the entity, moving it to a new
// archetype if needed.
func (e *entity) AddComponent(c Component) error {
	return e.AddComponentWithValue(c, nil)
}

// AddComponentWithValue adds a component with an initial value.
func (e *entity) AddComponentWithValue(c Component, value any) error {
	if e.world.Locked() {
		return LockedStorageError{}
	}
	ok, err := e.world.AddComponent(e.handle, c, value)
	if err != nil {
		return err
	}
	if !ok {
		return NotLiveError{Handle: e.handle}
	}
	return nil
}

// RemoveComponent removes a component from the entity, moving it to a
// new archetype.
func (e *entity) RemoveComponent(c Component) error {
	if e.world.Locked() {
		return LockedStorageError{}
	}
	if !e.world.IsAlive(e.handle) {
		return NotLiveError{Handle: e.handle}
	}
	if !e.world.HasComponent(e.handle, c) {
		return ComponentNotFoundError{Component: c}
	}
	if _, err := e.world.RemoveComponent(e.handle, c); err != nil {
		return err
	}
	return nil
}

func (e *entity) Components() []Component {
	return e.components
}

// ComponentsAsString renders a sorted, bracketed component-name list,
// useful for debug logging and test assertions.
func (e *entity) ComponentsAsString() string {
	if len(e.components) == 0 {
		return "[]"
	}
	names := make([]string, 0, len(e.components))
	for _, c := range e.components {
		typeName := reflect.TypeOf(c).String()
		typeName = strings.TrimPrefix(typeName, "*")
		parts := strings.Split(typeName, ".")
		name := parts[len(parts)-1]
		names = append(names, name)
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}

func (e *entity) Valid() bool {
	return e.handle.IsValid()
}

func (e *entity) World() *World {
	return e.world
}

func (e *entity) String() string {
	return fmt.Sprintf("Entity(%v)", e.handle)
}
