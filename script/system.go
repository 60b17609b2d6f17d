package script

import (
	"errors"

	"go.uber.org/zap"

	"github.com/milk9111/scripthost/bridge"
	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/reflection"
	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/vm"
)

var ErrNoMain = errors.New("script: no main function")

// System owns the process-wide scripting state: the VM engine, the script
// resource manager, the reflection registry, and the handle table scripts use
// to hold resources. Created once at host startup, closed once at shutdown.
type System struct {
	log      *zap.Logger
	engine   *vm.Engine
	scripts  *resource.Manager
	registry *reflection.Registry

	handles    map[uint32]*resource.Resource
	nextHandle uint32
}

// NewSystem builds a system. read may be nil to load scripts from disk.
func NewSystem(read resource.ReadFunc, log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	s := &System{
		log:      log,
		engine:   vm.NewEngine(log),
		registry: reflection.NewRegistry(),
		handles:  map[uint32]*resource.Resource{},
	}
	s.scripts = resource.NewManager(SourceFactory, read, log)
	return s
}

func (s *System) Engine() *vm.Engine { return s.engine }

// ScriptManager returns the manager owning all script resources.
func (s *System) ScriptManager() *resource.Manager { return s.scripts }

// Registry returns the reflection registry the bridge walks.
func (s *System) Registry() *reflection.Registry { return s.registry }

func (s *System) Logger() *zap.Logger { return s.log }

// NewWorldModule creates the script module for one world.
func (s *System) NewWorldModule(world *ecs.World) *Module {
	return NewModule(s, world, s.log)
}

// InstallBindings regenerates every engine-wide script global from the
// reflection registry plus the world and engine built-ins. Must be re-run
// after the registry changes; modules pick the new set up on their next
// build.
func (s *System) InstallBindings(world *ecs.World) {
	globals := bridge.Build(s.registry, s.log)
	for name, obj := range bridge.WorldBindings(world) {
		globals[name] = obj
	}
	for name, obj := range bridge.EngineBindings(s, s.log) {
		globals[name] = obj
	}
	s.engine.SetBindings(globals)
}

// Update delivers completed resource loads, which drives script rebuild and
// awake dispatch. Call once per frame before the world module's Update.
func (s *System) Update() {
	s.scripts.Poll()
}

// RunCode compiles source into a throwaway module and invokes its main
// function. Used for one-off scripts run from the command line.
func (s *System) RunCode(name, source string) error {
	modName := s.engine.NextModuleName("ExecScript")
	mod := s.engine.Module(modName)
	defer s.engine.Remove(modName)

	mod.AddSection(name, source)
	if err := mod.Build(); err != nil {
		return err
	}
	if !mod.HasFunction("main") {
		return ErrNoMain
	}
	ctx := vm.NewContext(mod)
	defer ctx.Close()
	if err := ctx.Prepare("main"); err != nil {
		return err
	}
	_, err := ctx.Execute()
	return err
}

// AddResource loads a script resource on behalf of a running script and
// returns an opaque handle for it.
func (s *System) AddResource(path string) uint32 {
	if path == "" {
		return bridge.InvalidResourceHandle
	}
	res := s.scripts.Load(path)
	s.nextHandle++
	s.handles[s.nextHandle] = res
	return s.nextHandle
}

// ResourcePath returns the path behind a handle, or "".
func (s *System) ResourcePath(handle uint32) string {
	if res, ok := s.handles[handle]; ok {
		return res.Path()
	}
	return ""
}

// UnloadResource releases the handle's resource reference. Unknown handles
// are ignored.
func (s *System) UnloadResource(handle uint32) {
	if res, ok := s.handles[handle]; ok {
		s.scripts.Release(res)
		delete(s.handles, handle)
	}
}

// Close releases every script-held resource and tears the engine down.
func (s *System) Close() {
	for h, res := range s.handles {
		s.scripts.Release(res)
		delete(s.handles, h)
	}
	s.engine.Close()
}
