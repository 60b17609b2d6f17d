package script

import (
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/vm"
)

// ModuleName identifies the script section in serialized worlds.
const ModuleName = "script"

// Module owns every script attachment in one world: regular script
// components, inline script components, the shared function-call builder, and
// the reverse map from property name hashes back to names.
type Module struct {
	system *System
	world  *ecs.World
	log    *zap.Logger

	scripts map[ecs.Entity]*Component
	inline  map[ecs.Entity]*InlineScript

	propertyNames map[uint64]string
	call          FunctionCall
	running       bool
}

// Component is the ordered list of script slots attached to one entity. Slot
// indices are stable identifiers until an explicit remove or move.
type Component struct {
	module    *Module
	entity    ecs.Entity
	instances []*Instance
}

func NewModule(system *System, world *ecs.World, log *zap.Logger) *Module {
	m := &Module{
		system:        system,
		world:         world,
		log:           log,
		scripts:       map[ecs.Entity]*Component{},
		inline:        map[ecs.Entity]*InlineScript{},
		propertyNames: map[uint64]string{},
	}
	return m
}

func (m *Module) Name() string { return ModuleName }

// World returns the entity world this module is bound to.
func (m *Module) World() *ecs.World { return m.world }

// CreateScriptComponent attaches an empty script component to the entity.
// Returns the existing component if one is already attached.
func (m *Module) CreateScriptComponent(entity ecs.Entity) *Component {
	if cmp, ok := m.scripts[entity]; ok {
		return cmp
	}
	cmp := &Component{module: m, entity: entity}
	m.scripts[entity] = cmp
	return cmp
}

// DestroyScriptComponent removes the entity's script component, destroying
// every slot.
func (m *Module) DestroyScriptComponent(entity ecs.Entity) {
	cmp, ok := m.scripts[entity]
	if !ok {
		return
	}
	for _, inst := range cmp.instances {
		m.destroyInstance(inst)
	}
	cmp.instances = nil
	delete(m.scripts, entity)
}

// HasScriptComponent reports whether the entity has a script component.
func (m *Module) HasScriptComponent(entity ecs.Entity) bool {
	_, ok := m.scripts[entity]
	return ok
}

// CreateInlineScript attaches an inline script component to the entity.
func (m *Module) CreateInlineScript(entity ecs.Entity) *InlineScript {
	if s, ok := m.inline[entity]; ok {
		return s
	}
	s := newInlineScript(m, entity)
	m.inline[entity] = s
	return s
}

// DestroyInlineScript removes the entity's inline script component.
func (m *Module) DestroyInlineScript(entity ecs.Entity) {
	s, ok := m.inline[entity]
	if !ok {
		return
	}
	s.destroy()
	delete(m.inline, entity)
}

// HasInlineScript reports whether the entity has an inline script component.
func (m *Module) HasInlineScript(entity ecs.Entity) bool {
	_, ok := m.inline[entity]
	return ok
}

// InlineScriptCode returns the entity's inline source, or "".
func (m *Module) InlineScriptCode(entity ecs.Entity) string {
	if s, ok := m.inline[entity]; ok {
		return s.Source()
	}
	return ""
}

// SetInlineScriptCode replaces the entity's inline source. No-op when the
// entity has no inline script component.
func (m *Module) SetInlineScriptCode(entity ecs.Entity, source string) {
	if s, ok := m.inline[entity]; ok {
		s.SetSource(source)
	}
}

// ScriptCount returns the number of script slots on the entity.
func (m *Module) ScriptCount(entity ecs.Entity) int {
	if cmp, ok := m.scripts[entity]; ok {
		return len(cmp.instances)
	}
	return 0
}

// AddScript appends an empty script slot and returns its index.
func (m *Module) AddScript(entity ecs.Entity) int {
	cmp := m.component(entity)
	cmp.instances = append(cmp.instances, newInstance(cmp))
	return len(cmp.instances) - 1
}

// InsertScript inserts an empty slot at index, shifting later slots up.
func (m *Module) InsertScript(entity ecs.Entity, index int) {
	cmp := m.component(entity)
	if index < 0 || index > len(cmp.instances) {
		panic("script: slot index out of range")
	}
	inst := newInstance(cmp)
	cmp.instances = append(cmp.instances, nil)
	copy(cmp.instances[index+1:], cmp.instances[index:])
	cmp.instances[index] = inst
}

// RemoveScript destroys the slot at index. Removing a slot while a function
// call is under construction is a contract violation: the builder may hold
// the slot's context.
func (m *Module) RemoveScript(entity ecs.Entity, index int) {
	if m.call.inProgress {
		panic("script: removeScript during function call construction")
	}
	cmp := m.component(entity)
	inst := cmp.instance(index)
	m.destroyInstance(inst)
	cmp.instances = append(cmp.instances[:index], cmp.instances[index+1:]...)
}

// MoveScript shifts the slot at index up or down by one position.
func (m *Module) MoveScript(entity ecs.Entity, index int, up bool) {
	cmp := m.component(entity)
	_ = cmp.instance(index)
	other := index + 1
	if up {
		other = index - 1
	}
	if other < 0 || other >= len(cmp.instances) {
		return
	}
	cmp.instances[index], cmp.instances[other] = cmp.instances[other], cmp.instances[index]
}

// EnableScript sets or clears the slot's enabled flag.
func (m *Module) EnableScript(entity ecs.Entity, index int, enabled bool) {
	inst := m.component(entity).instance(index)
	if enabled {
		inst.flags |= FlagEnabled
	} else {
		inst.flags &^= FlagEnabled
	}
}

// IsScriptEnabled reports the slot's enabled flag.
func (m *Module) IsScriptEnabled(entity ecs.Entity, index int) bool {
	return m.component(entity).instance(index).Enabled()
}

// ScriptPath returns the slot's linked resource path, or "".
func (m *Module) ScriptPath(entity ecs.Entity, index int) string {
	return m.component(entity).instance(index).Path()
}

// SetScriptPath links the slot to a script resource. Any existing link is
// fully torn down first, even when the path is unchanged. If the resource is
// already loaded the rebuild happens immediately; otherwise it happens when
// the resource reaches ready.
func (m *Module) SetScriptPath(entity ecs.Entity, index int, path string) {
	inst := m.component(entity).instance(index)
	m.setPath(inst, path)
}

func (m *Module) setPath(inst *Instance, path string) {
	if inst.res != nil {
		inst.res.Unsubscribe(inst.obsID)
		m.system.ScriptManager().Release(inst.res)
		inst.res = nil
		inst.onUnloaded()
	}
	if path == "" {
		return
	}
	inst.res = m.system.ScriptManager().Load(path)
	inst.obsID = inst.res.Subscribe(func(old, new resource.State, res *resource.Resource) {
		inst.cmp.onResourceState(old, new, res)
	})
	if inst.res.State() == resource.StateReady {
		inst.onLoaded()
	}
}

// ScriptModule returns the slot's VM module handle.
func (m *Module) ScriptModule(entity ecs.Entity, index int) *vm.Module {
	return m.component(entity).instance(index).module
}

// ScriptContext returns the slot's VM execution context.
func (m *Module) ScriptContext(entity ecs.Entity, index int) *vm.Context {
	return m.component(entity).instance(index).ctx
}

// SetPropertyValue stores a textual value on the slot's named property,
// creating the property on first use.
func (m *Module) SetPropertyValue(entity ecs.Entity, index int, name, value string) {
	inst := m.component(entity).instance(index)
	inst.property(name).StoredValue = value
}

// PropertyValue returns the stored textual value of the named property, or ""
// when the property does not exist.
func (m *Module) PropertyValue(entity ecs.Entity, index int, name string) string {
	inst := m.component(entity).instance(index)
	if p := inst.findProperty(HashPropertyName(name)); p != nil {
		return p.StoredValue
	}
	return ""
}

// PropertyCount returns the number of properties on the slot.
func (m *Module) PropertyCount(entity ecs.Entity, index int) int {
	return len(m.component(entity).instance(index).properties)
}

// PropertyName returns the name behind the property at propIndex, or "N/A"
// when only the hash survived (restored from a save written by code that
// never named it at runtime).
func (m *Module) PropertyName(entity ecs.Entity, index, propIndex int) string {
	inst := m.component(entity).instance(index)
	if propIndex < 0 || propIndex >= len(inst.properties) {
		panic("script: property index out of range")
	}
	if name, ok := m.propertyNames[inst.properties[propIndex].NameHash]; ok {
		return name
	}
	return "N/A"
}

// PropertyType returns the declared type tag of the named property, or
// PropertyAny when absent.
func (m *Module) PropertyType(entity ecs.Entity, index int, name string) PropertyType {
	inst := m.component(entity).instance(index)
	if p := inst.findProperty(HashPropertyName(name)); p != nil {
		return p.Type
	}
	return PropertyAny
}

// PropertyResourceType returns the resource-type tag of the named property.
func (m *Module) PropertyResourceType(entity ecs.Entity, index int, name string) string {
	inst := m.component(entity).instance(index)
	if p := inst.findProperty(HashPropertyName(name)); p != nil {
		return p.ResourceType
	}
	return ""
}

// Execute compiles code into the slot's module as an extra section and runs
// its main function if it defines one. A later Execute on the same slot
// replaces the section. Failures are logged; a failed build leaves the slot
// unexecutable until its resource reloads.
func (m *Module) Execute(entity ecs.Entity, index int, code string) {
	inst := m.component(entity).instance(index)
	inst.module.AddSection("exec", code)
	if err := inst.module.Build(); err != nil {
		inst.flags &^= FlagLoaded
		m.log.Error("failed to build executed code",
			zap.String("entity", entity.String()),
			zap.Error(err))
		return
	}
	inst.callEntryPoint("main")
}

// StartGame marks the world as running and compiles every inline script.
func (m *Module) StartGame() {
	m.running = true
	for _, s := range m.inline {
		s.CompileAndRun()
	}
}

// StopGame stops per-frame dispatch.
func (m *Module) StopGame() {
	m.running = false
}

// Running reports whether the world is between StartGame and StopGame.
func (m *Module) Running() bool { return m.running }

// Update delivers completed resource loads, then calls the update entry
// point on every enabled, loaded slot. Loads are delivered even while the
// game is stopped so scripts keep compiling in edit mode.
func (m *Module) Update(dt float64) {
	m.system.Update()
	if !m.running {
		return
	}
	for _, cmp := range m.scripts {
		for _, inst := range cmp.instances {
			if !inst.Enabled() || !inst.Loaded() {
				continue
			}
			inst.callEntryPoint("update", func(c *vm.Context) {
				c.PushFloat(dt)
			})
		}
	}
}

func (m *Module) component(entity ecs.Entity) *Component {
	cmp, ok := m.scripts[entity]
	if !ok {
		panic("script: entity has no script component")
	}
	return cmp
}

func (m *Module) destroyInstance(inst *Instance) {
	if m.call.inProgress && m.call.target == inst.ctx {
		panic("script: destroying instance referenced by in-progress call")
	}
	inst.destroy()
}

// Entity returns the entity this component is attached to.
func (c *Component) Entity() ecs.Entity { return c.entity }

func (c *Component) instance(index int) *Instance {
	if index < 0 || index >= len(c.instances) {
		panic("script: slot index out of range")
	}
	return c.instances[index]
}

// onResourceState fans a resource state change out to the slots linked to
// that resource. Ready triggers rebuild+awake, empty triggers discard.
func (c *Component) onResourceState(old, new resource.State, res *resource.Resource) {
	for _, inst := range c.instances {
		if inst.res != res {
			continue
		}
		switch new {
		case resource.StateReady:
			inst.onLoaded()
		case resource.StateEmpty:
			inst.onUnloaded()
		}
	}
}
