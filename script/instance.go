package script

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/vm"
)

type InstanceFlags uint32

const (
	// FlagEnabled gates per-frame update dispatch.
	FlagEnabled InstanceFlags = 1 << iota
	// FlagLoaded is set only after a successful build.
	FlagLoaded
)

// Instance is one script slot on an entity: a VM module/context pair that
// lives for the whole instance lifetime, an optional resource link, and the
// property store.
type Instance struct {
	cmp   *Component
	res   *resource.Resource
	obsID int

	module     *vm.Module
	ctx        *vm.Context
	properties []*Property
	flags      InstanceFlags
}

func newInstance(cmp *Component) *Instance {
	engine := cmp.module.system.Engine()
	name := engine.NextModuleName("ScriptInstance")
	inst := &Instance{
		cmp:    cmp,
		module: engine.Module(name),
		flags:  FlagEnabled,
	}
	inst.ctx = vm.NewContext(inst.module)
	return inst
}

func (inst *Instance) Enabled() bool { return inst.flags&FlagEnabled != 0 }

func (inst *Instance) Loaded() bool { return inst.flags&FlagLoaded != 0 }

// Module returns the instance's VM module handle.
func (inst *Instance) Module() *vm.Module { return inst.module }

// Context returns the instance's execution context.
func (inst *Instance) Context() *vm.Context { return inst.ctx }

// Path returns the linked resource path, or "".
func (inst *Instance) Path() string {
	if inst.res == nil {
		return ""
	}
	return inst.res.Path()
}

// onLoaded rebuilds the VM module from the resource's source under the
// instance's stable module name and invokes awake. Reload behaves exactly
// like first load, including the awake call.
func (inst *Instance) onLoaded() {
	src, ok := inst.res.Asset().(*Source)
	if !ok {
		return
	}
	log := inst.log()

	inst.module.Discard()
	inst.flags &^= FlagLoaded
	inst.module.AddSection(inst.res.Path(), src.SourceCode())
	inst.installBindings()

	if err := inst.module.Build(); err != nil {
		log.Error("failed to build script",
			zap.String("path", inst.res.Path()),
			zap.String("entity", inst.cmp.entity.String()),
			zap.Error(err))
		return
	}

	inst.flags |= FlagLoaded
	inst.callEntryPoint("awake")
}

// onUnloaded discards the built program when the resource empties.
func (inst *Instance) onUnloaded() {
	inst.module.Discard()
	inst.flags &^= FlagLoaded
}

// callEntryPoint invokes a soft-contract entry point. A missing function is
// a normal outcome; execution faults are logged and recovered locally.
func (inst *Instance) callEntryPoint(name string, push ...func(*vm.Context)) {
	if !inst.module.HasFunction(name) {
		return
	}
	if err := inst.ctx.Prepare(name); err != nil {
		return
	}
	for _, p := range push {
		p(inst.ctx)
	}
	if _, err := inst.ctx.Execute(); err != nil {
		inst.log().Error("script execution fault",
			zap.String("function", name),
			zap.String("path", inst.Path()),
			zap.Error(err))
	}
}

// installBindings adds the per-instance globals scripts see: the owning
// entity and accessors for the instance property store.
func (inst *Instance) installBindings() {
	inst.module.SetBinding("this_entity", &tengo.Int{Value: int64(uint64(inst.cmp.entity))})
	inst.module.SetBinding("set_prop", &tengo.UserFunction{
		Name: "set_prop",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			name, ok := tengo.ToString(args[0])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "name", Expected: "string", Found: args[0].TypeName()}
			}
			value, _ := tengo.ToString(args[1])
			inst.property(name).StoredValue = value
			return tengo.UndefinedValue, nil
		},
	})
	inst.module.SetBinding("get_prop", &tengo.UserFunction{
		Name: "get_prop",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			name, ok := tengo.ToString(args[0])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "name", Expected: "string", Found: args[0].TypeName()}
			}
			return &tengo.String{Value: inst.property(name).StoredValue}, nil
		},
	})
}

// property returns the named property, creating it with type Any on first
// use. Names are recorded on the owning module for reverse lookup.
func (inst *Instance) property(name string) *Property {
	hash := HashPropertyName(name)
	for _, p := range inst.properties {
		if p.NameHash == hash {
			return p
		}
	}
	p := &Property{NameHash: hash, Type: PropertyAny}
	inst.properties = append(inst.properties, p)
	inst.cmp.module.propertyNames[hash] = name
	return p
}

func (inst *Instance) findProperty(hash uint64) *Property {
	for _, p := range inst.properties {
		if p.NameHash == hash {
			return p
		}
	}
	return nil
}

// destroy tears the instance down: unsubscribe, release the resource, close
// the context, then discard the module. The order matters; the observer must
// go before the resource reference.
func (inst *Instance) destroy() {
	m := inst.cmp.module
	if inst.res != nil {
		inst.res.Unsubscribe(inst.obsID)
		m.system.ScriptManager().Release(inst.res)
		inst.res = nil
	}
	inst.ctx.Close()
	m.system.Engine().Remove(inst.module.Name())
}

func (inst *Instance) log() *zap.Logger {
	return inst.cmp.module.log
}

func (inst *Instance) String() string {
	return fmt.Sprintf("instance{entity=%s path=%q}", inst.cmp.entity, inst.Path())
}
