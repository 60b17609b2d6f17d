// Package vm wraps the tengo scripting VM behind the named-module /
// execution-context model the script binding layer works in terms of. One
// Engine exists per process; modules are named per script instance so
// concurrently attached scripts never collide.
package vm

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"
)

// Engine owns global script bindings and the module registry. It is created
// once at host startup and torn down once at shutdown. Not safe for use from
// multiple goroutines; all compilation and execution is single-threaded.
type Engine struct {
	log      *zap.Logger
	bindings map[string]tengo.Object
	modules  map[string]*Module
	counter  int
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:      log,
		bindings: map[string]tengo.Object{},
		modules:  map[string]*Module{},
	}
}

// SetBindings replaces the engine-wide globals injected into every module at
// build time. The reflection bridge calls this; calling it again after the
// registry changes re-registers everything (modules pick the new set up on
// their next build).
func (e *Engine) SetBindings(globals map[string]tengo.Object) {
	e.bindings = globals
}

// Binding exposes one engine-wide global.
func (e *Engine) Binding(name string) (tengo.Object, bool) {
	obj, ok := e.bindings[name]
	return obj, ok
}

// Module returns the named module, creating it if it does not exist.
func (e *Engine) Module(name string) *Module {
	if m, ok := e.modules[name]; ok {
		return m
	}
	m := &Module{engine: e, name: name, extras: map[string]tengo.Object{}}
	e.modules[name] = m
	return m
}

// NextModuleName reserves a unique module name with the given prefix.
func (e *Engine) NextModuleName(prefix string) string {
	e.counter++
	return fmt.Sprintf("%s%d", prefix, e.counter)
}

// Remove discards and unregisters a module.
func (e *Engine) Remove(name string) {
	if m, ok := e.modules[name]; ok {
		m.Discard()
		delete(e.modules, name)
	}
}

// Close discards every module. The engine must not be used afterwards.
func (e *Engine) Close() {
	for name := range e.modules {
		e.modules[name].Discard()
	}
	e.modules = map[string]*Module{}
}

// Logger returns the engine's message sink. Script build and execution
// diagnostics go through it.
func (e *Engine) Logger() *zap.Logger {
	return e.log
}
