package vm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

var (
	ErrNotBuilt   = errors.New("vm: module has no built program")
	ErrNoFunction = errors.New("vm: function not found")
)

// Reserved globals carrying the dispatch protocol. Script sources must not
// declare names with the "__" prefix.
const (
	globalFn   = "__fn"
	globalArgs = "__args"
	globalRet  = "__ret"
)

type section struct {
	name string
	src  string
}

// Module is a named compilation unit: an ordered set of source sections
// compiled into one program. Function dispatch goes through a generated
// trailer that switches on the reserved __fn global, because tengo exposes no
// way to invoke a compiled function object from the host directly.
type Module struct {
	engine    *Engine
	name      string
	sections  []section
	extras    map[string]tengo.Object
	compiled  *tengo.Compiled
	functions map[string]bool
}

func (m *Module) Name() string { return m.name }

// AddSection appends a source section, replacing any existing section with
// the same name.
func (m *Module) AddSection(name, src string) {
	for i := range m.sections {
		if m.sections[i].name == name {
			m.sections[i].src = src
			return
		}
	}
	m.sections = append(m.sections, section{name: name, src: src})
}

// SetBinding adds a module-local global, overriding engine-wide bindings of
// the same name. Takes effect on the next Build.
func (m *Module) SetBinding(name string, obj tengo.Object) {
	m.extras[name] = obj
}

// Built reports whether the module holds an executable program.
func (m *Module) Built() bool { return m.compiled != nil }

// HasFunction reports whether the built program defines a callable top-level
// function with the given name.
func (m *Module) HasFunction(name string) bool {
	return m.compiled != nil && m.functions[name]
}

// Functions returns the names of callable top-level functions.
func (m *Module) Functions() []string {
	out := make([]string, 0, len(m.functions))
	for name := range m.functions {
		out = append(out, name)
	}
	return out
}

// Discard drops the built program, all sections, and module-local bindings.
// The module name stays reserved.
func (m *Module) Discard() {
	m.compiled = nil
	m.sections = nil
	m.functions = nil
	m.extras = map[string]tengo.Object{}
}

// Build concatenates all sections, appends the dispatch trailer, compiles,
// and runs the top level once to bind globals. On failure the previous
// program (if any) is kept discarded: a failed build leaves the module
// unexecutable.
func (m *Module) Build() error {
	m.compiled = nil
	m.functions = nil

	var sb strings.Builder
	for _, s := range m.sections {
		sb.WriteString(s.src)
		sb.WriteByte('\n')
	}
	names := scanFunctions(sb.String())
	sb.WriteString(buildTrailer(names))

	script := tengo.NewScript([]byte(sb.String()))
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	if err := script.Add(globalFn, ""); err != nil {
		return fmt.Errorf("vm: declare %s: %w", globalFn, err)
	}
	if err := script.Add(globalArgs, &tengo.Array{}); err != nil {
		return fmt.Errorf("vm: declare %s: %w", globalArgs, err)
	}
	if err := script.Add(globalRet, tengo.UndefinedValue); err != nil {
		return fmt.Errorf("vm: declare %s: %w", globalRet, err)
	}
	for name, obj := range m.engine.bindings {
		if _, shadowed := m.extras[name]; shadowed {
			continue
		}
		if err := script.Add(name, obj); err != nil {
			return fmt.Errorf("vm: bind %s: %w", name, err)
		}
	}
	for name, obj := range m.extras {
		if err := script.Add(name, obj); err != nil {
			return fmt.Errorf("vm: bind %s: %w", name, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("vm: compile %s: %w", m.name, err)
	}
	// Top-level statements run here, defining the script's functions.
	if err := compiled.Run(); err != nil {
		return fmt.Errorf("vm: build %s: %w", m.name, err)
	}

	m.functions = map[string]bool{}
	for _, name := range names {
		v := compiled.Get(name)
		if v == nil {
			continue
		}
		if obj := v.Object(); obj != nil && obj.CanCall() {
			m.functions[name] = true
		}
	}
	m.compiled = compiled
	return nil
}

// call runs one named function with the given arguments, re-executing the
// module's top level with __fn set so the trailer dispatches.
func (m *Module) call(fn string, args []tengo.Object) (tengo.Object, error) {
	if m.compiled == nil {
		return nil, ErrNotBuilt
	}
	if !m.functions[fn] {
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, fn)
	}
	if args == nil {
		args = []tengo.Object{}
	}
	if err := m.compiled.Set(globalRet, tengo.UndefinedValue); err != nil {
		return nil, err
	}
	if err := m.compiled.Set(globalArgs, &tengo.Array{Value: args}); err != nil {
		return nil, err
	}
	if err := m.compiled.Set(globalFn, fn); err != nil {
		return nil, err
	}
	runErr := m.compiled.Run()
	_ = m.compiled.Set(globalFn, "")
	if runErr != nil {
		return nil, runErr
	}
	if v := m.compiled.Get(globalRet); v != nil {
		return v.Object(), nil
	}
	return tengo.UndefinedValue, nil
}

var funcDefRe = regexp.MustCompile(`(?m)^([A-Za-z_][A-Za-z0-9_]*)\s*:=\s*func\b`)

// scanFunctions finds top-level `name := func` definitions. Only column-zero
// definitions count; nested closures are invisible to the host on purpose.
func scanFunctions(src string) []string {
	var names []string
	seen := map[string]bool{}
	for _, match := range funcDefRe.FindAllStringSubmatch(src, -1) {
		name := match[1]
		if strings.HasPrefix(name, "__") || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func buildTrailer(names []string) string {
	var b strings.Builder
	b.WriteString("\n__dispatch := {}\n")
	for _, name := range names {
		fmt.Fprintf(&b, "if is_callable(%s) { __dispatch[%q] = %s }\n", name, name, name)
	}
	b.WriteString("if __fn != \"\" {\n")
	b.WriteString("\t__f := __dispatch[__fn]\n")
	b.WriteString("\tif is_callable(__f) { __ret = __f(__args...) }\n")
	b.WriteString("}\n")
	return b.String()
}
