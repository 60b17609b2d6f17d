package ecs

import "github.com/milk9111/scripthost/ecs/component"

func Add[T any](w *World, e Entity, handle component.Handle[T], value T) error {
	return w.AddComponent(e, handle.Kind().ID(), value)
}

func Remove[T any](w *World, e Entity, handle component.Handle[T]) bool {
	return w.RemoveComponent(e, handle.Kind().ID())
}

func Has[T any](w *World, e Entity, handle component.Handle[T]) bool {
	return w.HasComponent(e, handle.Kind().ID())
}

func Get[T any](w *World, e Entity, handle component.Handle[T]) (T, bool) {
	var zero T
	value, ok := w.GetComponent(e, handle.Kind().ID())
	if !ok {
		return zero, false
	}
	cast, ok := value.(T)
	if !ok {
		return zero, false
	}
	return cast, true
}

// Mutate applies fn to the stored component value in place.
func Mutate[T any](w *World, e Entity, handle component.Handle[T], fn func(*T)) bool {
	value, ok := Get(w, e, handle)
	if !ok {
		return false
	}
	fn(&value)
	return w.AddComponent(e, handle.Kind().ID(), value) == nil
}
