package component

import (
	"errors"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

type ID uint32

var nextID atomic.Uint32

type Kind[T any] struct {
	id ID
}

func NewKind[T any]() Kind[T] {
	return Kind[T]{id: ID(nextID.Add(1))}
}

func (k Kind[T]) ID() ID {
	return k.id
}

func (k Kind[T]) Valid() bool {
	return k.id != 0
}

// Handle is the package-level identity of a component type. Declare one per
// component as a package var.
type Handle[T any] struct {
	kind Kind[T]
}

func NewComponent[T any]() Handle[T] {
	return Handle[T]{kind: NewKind[T]()}
}

func (h Handle[T]) Kind() Kind[T] {
	return h.kind
}
