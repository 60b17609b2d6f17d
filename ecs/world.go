package ecs

import "github.com/milk9111/scripthost/ecs/component"

// World owns entities, component storage, and entity names.
type World struct {
	entities entityStore
	stores   map[component.ID]*SparseSet
	names    map[Entity]string
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		stores: map[component.ID]*SparseSet{},
		names:  map[Entity]string{},
	}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity removes an entity and all of its components.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.entities.destroy(e) {
		return false
	}
	for _, store := range w.stores {
		store.Remove(e.id())
	}
	delete(w.names, e)
	return true
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

func (w *World) AddComponent(e Entity, id component.ID, value any) error {
	if !w.IsAlive(e) {
		return component.ErrEntityNotAlive
	}
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	store := w.stores[id]
	if store == nil {
		store = &SparseSet{}
		w.stores[id] = store
	}
	store.Set(e.id(), value)
	return nil
}

func (w *World) GetComponent(e Entity, id component.ID) (any, bool) {
	if !w.IsAlive(e) {
		return nil, false
	}
	store := w.stores[id]
	if store == nil || !store.Has(e.id()) {
		return nil, false
	}
	return store.Get(e.id()), true
}

func (w *World) HasComponent(e Entity, id component.ID) bool {
	_, ok := w.GetComponent(e, id)
	return ok
}

func (w *World) RemoveComponent(e Entity, id component.ID) bool {
	if !w.IsAlive(e) {
		return false
	}
	store := w.stores[id]
	if store == nil {
		return false
	}
	return store.Remove(e.id())
}

// SetName attaches a display name to an entity.
func (w *World) SetName(e Entity, name string) {
	if !w.IsAlive(e) {
		return
	}
	if name == "" {
		delete(w.names, e)
		return
	}
	w.names[e] = name
}

// Name returns the entity's display name, or "".
func (w *World) Name(e Entity) string {
	return w.names[e]
}

// FindByName returns the first entity with the given name.
func (w *World) FindByName(name string) Entity {
	for e, n := range w.names {
		if n == name && w.IsAlive(e) {
			return e
		}
	}
	return InvalidEntity
}
