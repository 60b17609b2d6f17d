package script

import (
	"github.com/d5/tengo/v2"
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/vm"
)

// InlineScript holds literal source directly on an entity, with no resource
// indirection. Its VM module/context pair is created at construction and
// kept for the component's lifetime.
type InlineScript struct {
	module *Module
	entity ecs.Entity

	vmModule *vm.Module
	ctx      *vm.Context
	source   string
}

func newInlineScript(m *Module, entity ecs.Entity) *InlineScript {
	engine := m.system.Engine()
	name := engine.NextModuleName("InlineScript")
	s := &InlineScript{
		module:   m,
		entity:   entity,
		vmModule: engine.Module(name),
	}
	s.ctx = vm.NewContext(s.vmModule)
	return s
}

func (s *InlineScript) Source() string { return s.source }

func (s *InlineScript) SetSource(source string) { s.source = source }

// CompileAndRun re-adds the literal source as the main section, builds, and
// runs main() if the script defines one. No compiled state is cached across
// edits; every invocation compiles the current source.
func (s *InlineScript) CompileAndRun() {
	s.vmModule.SetBinding("this_entity", &tengo.Int{Value: int64(uint64(s.entity))})
	s.vmModule.AddSection("main", s.source)
	if err := s.vmModule.Build(); err != nil {
		s.module.log.Error("failed to build inline script",
			zap.String("entity", s.entity.String()),
			zap.Error(err))
		return
	}
	if !s.vmModule.HasFunction("main") {
		return
	}
	if err := s.ctx.Prepare("main"); err != nil {
		return
	}
	if _, err := s.ctx.Execute(); err != nil {
		s.module.log.Error("inline script execution fault",
			zap.String("entity", s.entity.String()),
			zap.Error(err))
	}
}

func (s *InlineScript) destroy() {
	s.ctx.Close()
	s.module.system.Engine().Remove(s.vmModule.Name())
}
