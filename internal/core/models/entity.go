package models

import (
	"github.com/zeusync/arcade/internal/core/observability/log"
)

// EntityID is the opaque identity of an entity.
type EntityID string

func (id EntityID) String() string { return string(id) }

// Entity is a named bag of components. A component type name appears at most
// once per entity. Systems must look entities up every frame rather than keep
// references across frames: removal from the Store invalidates them.
type Entity struct {
	id     EntityID
	Name   string
	Active bool

	components map[string]any
	order      []string
	logger     log.Log
}

func newEntity(id EntityID, name string, logger log.Log) *Entity {
	return &Entity{
		id:         id,
		Name:       name,
		Active:     true,
		components: make(map[string]any),
		logger:     logger,
	}
}

func (e *Entity) ID() EntityID { return e.id }

// AddComponent attaches data under componentType. Adding a type that is already
// present keeps the original data, logs a warning and returns false.
func (e *Entity) AddComponent(componentType string, data any) bool {
	if _, exists := e.components[componentType]; exists {
		e.logger.Warn("entity already has component",
			log.String("entity", e.Name),
			log.String("entity_id", string(e.id)),
			log.String("component", componentType))
		return false
	}
	e.components[componentType] = data
	e.order = append(e.order, componentType)
	return true
}

// Component returns the raw component data for componentType.
func (e *Entity) Component(componentType string) (any, bool) {
	data, ok := e.components[componentType]
	return data, ok
}

func (e *Entity) RemoveComponent(componentType string) {
	if _, ok := e.components[componentType]; !ok {
		return
	}
	delete(e.components, componentType)
	for i, t := range e.order {
		if t == componentType {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Entity) HasComponent(componentType string) bool {
	_, ok := e.components[componentType]
	return ok
}

// ComponentTypes lists attached component types in insertion order.
func (e *Entity) ComponentTypes() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// GetComponent is the typed accessor. It reports false when the component is
// absent or stored under a different Go type; it never panics.
func GetComponent[T any](e *Entity, componentType string) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	data, ok := e.components[componentType]
	if !ok {
		return zero, false
	}
	typed, ok := data.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
