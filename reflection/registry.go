package reflection

import (
	"errors"

	"github.com/milk9111/scripthost/ecs"
)

var (
	ErrDuplicateName = errors.New("reflection: duplicate registration")
	ErrBadArgument   = errors.New("reflection: argument kind mismatch")
)

// Property is one reflected component property. Getter is required; a nil
// Setter marks the property read-only.
type Property struct {
	Name   string
	Kind   Kind
	Getter func(e ecs.Entity) (Variant, error)
	Setter func(e ecs.Entity, v Variant) error
}

// Func is one reflected method. For component methods the first declared
// argument is always the owning entity. Invoke receives arguments already
// marshaled by declared kind and returns a Variant of kind Ret.
type Func struct {
	Name   string
	Args   []Kind
	Ret    Kind
	Invoke func(args []Variant) (Variant, error)
}

// Component describes one reflected component type.
type Component struct {
	Name  string
	Props []Property
	Funcs []Func
}

// Module describes one reflected engine module (world-scoped function set).
type Module struct {
	Name  string
	Funcs []Func
}

// Registry is the reflection database the bridge walks. Registration order is
// preserved; the bridge must be re-run after the registry changes.
type Registry struct {
	components []*Component
	modules    []*Module
	names      map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]bool{}}
}

func (r *Registry) RegisterComponent(c *Component) error {
	if r.names[c.Name] {
		return ErrDuplicateName
	}
	r.names[c.Name] = true
	r.components = append(r.components, c)
	return nil
}

func (r *Registry) RegisterModule(m *Module) error {
	if r.names[m.Name] {
		return ErrDuplicateName
	}
	r.names[m.Name] = true
	r.modules = append(r.modules, m)
	return nil
}

func (r *Registry) Components() []*Component { return r.components }

func (r *Registry) Modules() []*Module { return r.modules }
