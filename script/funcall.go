package script

import (
	"github.com/d5/tengo/v2"
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/vm"
)

// FunctionCall is the single-slot call builder: begin a call on a target
// instance, push typed parameters, end to execute. There is exactly one
// builder per world module, shared by all callers, so construction of calls
// must not be interleaved.
type FunctionCall struct {
	target     *vm.Context
	targetMod  *vm.Module
	fn         string
	args       []tengo.Object
	inProgress bool
}

// InProgress reports whether a call is currently under construction.
func (f *FunctionCall) InProgress() bool { return f.inProgress }

// ParameterCount returns the number of parameters pushed so far.
func (f *FunctionCall) ParameterCount() int { return len(f.args) }

func (f *FunctionCall) AddInt(v int64) {
	f.args = append(f.args, &tengo.Int{Value: v})
}

func (f *FunctionCall) AddBool(v bool) {
	if v {
		f.args = append(f.args, tengo.TrueValue)
	} else {
		f.args = append(f.args, tengo.FalseValue)
	}
}

func (f *FunctionCall) AddFloat(v float64) {
	f.args = append(f.args, &tengo.Float{Value: v})
}

func (f *FunctionCall) AddString(v string) {
	f.args = append(f.args, &tengo.String{Value: v})
}

func (f *FunctionCall) AddEntity(e ecs.Entity) {
	f.args = append(f.args, &tengo.Int{Value: int64(uint64(e))})
}

// AddValue converts an arbitrary Go value; unconvertible values become
// undefined.
func (f *FunctionCall) AddValue(v any) {
	obj, err := tengo.FromInterface(v)
	if err != nil {
		obj = tengo.UndefinedValue
	}
	f.args = append(f.args, obj)
}

func (f *FunctionCall) begin(target *vm.Context, targetMod *vm.Module, fn string) *FunctionCall {
	if targetMod == nil || !targetMod.Built() || !targetMod.HasFunction(fn) {
		return nil
	}
	f.target = target
	f.targetMod = targetMod
	f.fn = fn
	f.args = f.args[:0]
	f.inProgress = true
	return f
}

func (f *FunctionCall) reset() {
	f.target = nil
	f.targetMod = nil
	f.fn = ""
	f.args = nil
	f.inProgress = false
}

// BeginFunctionCall starts building a call to a named function on the given
// script slot. Returns nil when the slot has no built module or the function
// is absent; both are normal outcomes. Beginning a second call while one is
// in progress is a contract violation.
func (m *Module) BeginFunctionCall(entity ecs.Entity, index int, fn string) *FunctionCall {
	if m.call.inProgress {
		panic("script: function call already in progress")
	}
	cmp, ok := m.scripts[entity]
	if !ok {
		return nil
	}
	inst := cmp.instance(index)
	return m.call.begin(inst.ctx, inst.module, fn)
}

// BeginFunctionCallInline starts building a call into an entity's inline
// script.
func (m *Module) BeginFunctionCallInline(entity ecs.Entity, fn string) *FunctionCall {
	if m.call.inProgress {
		panic("script: function call already in progress")
	}
	s, ok := m.inline[entity]
	if !ok {
		return nil
	}
	return m.call.begin(s.ctx, s.vmModule, fn)
}

// EndFunctionCall executes the call under construction. Execution faults are
// logged, never returned; the call is considered ended either way. Ending
// without a begun call is a contract violation.
func (m *Module) EndFunctionCall() {
	if !m.call.inProgress {
		panic("script: endFunctionCall without a call in progress")
	}
	target := m.call.target
	fn := m.call.fn
	args := m.call.args
	m.call.reset()

	if err := target.Prepare(fn); err != nil {
		m.log.Error("function call prepare failed", zap.String("function", fn), zap.Error(err))
		return
	}
	for _, a := range args {
		target.PushObject(a)
	}
	if _, err := target.Execute(); err != nil {
		m.log.Error("script execution fault", zap.String("function", fn), zap.Error(err))
	}
}
