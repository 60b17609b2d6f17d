package vm

import (
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const addScript = `
counter := 0

bump := func() {
	counter += 1
	return counter
}

add := func(a, b) {
	return a + b
}

greet := func(name) {
	return "hello " + name
}
`

func TestBuildAndCall(t *testing.T) {
	e := NewEngine(zap.NewNop())
	m := e.Module("test1")
	m.AddSection("main", addScript)
	require.NoError(t, m.Build())
	require.True(t, m.Built())
	require.True(t, m.HasFunction("add"))
	require.True(t, m.HasFunction("bump"))
	require.False(t, m.HasFunction("missing"))

	ctx := NewContext(m)
	require.NoError(t, ctx.Prepare("add"))
	ctx.PushInt(2)
	ctx.PushInt(3)
	ret, err := ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, int64(5), ret.(*tengo.Int).Value)

	require.NoError(t, ctx.Prepare("greet"))
	ctx.PushString("world")
	ret, err = ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, "hello world", ret.(*tengo.String).Value)
}

func TestBuildFailureLeavesModuleUnexecutable(t *testing.T) {
	e := NewEngine(zap.NewNop())
	m := e.Module("bad")
	m.AddSection("main", `this is not tengo ===`)
	require.Error(t, m.Build())
	require.False(t, m.Built())

	ctx := NewContext(m)
	require.ErrorIs(t, ctx.Prepare("anything"), ErrNotBuilt)
}

func TestSectionReplacementAndRebuild(t *testing.T) {
	e := NewEngine(zap.NewNop())
	m := e.Module("rebuild")
	m.AddSection("main", `version := func() { return 1 }`)
	require.NoError(t, m.Build())

	m.AddSection("main", `version := func() { return 2 }`)
	require.NoError(t, m.Build())

	ctx := NewContext(m)
	require.NoError(t, ctx.Prepare("version"))
	ret, err := ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, int64(2), ret.(*tengo.Int).Value)
}

func TestBindingsAndExtras(t *testing.T) {
	e := NewEngine(zap.NewNop())
	calls := 0
	e.SetBindings(map[string]tengo.Object{
		"ping": &tengo.UserFunction{Name: "ping", Value: func(args ...tengo.Object) (tengo.Object, error) {
			calls++
			return tengo.TrueValue, nil
		}},
	})

	m := e.Module("bound")
	m.SetBinding("this_entity", &tengo.Int{Value: 42})
	m.AddSection("main", `
who := func() { return this_entity }
poke := func() { return ping() }
`)
	require.NoError(t, m.Build())

	ctx := NewContext(m)
	require.NoError(t, ctx.Prepare("who"))
	ret, err := ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, int64(42), ret.(*tengo.Int).Value)

	require.NoError(t, ctx.Prepare("poke"))
	_, err = ctx.Execute()
	require.NoError(t, err)
	require.NotZero(t, calls)
}

func TestDiscard(t *testing.T) {
	e := NewEngine(zap.NewNop())
	m := e.Module("discard")
	m.AddSection("main", `f := func() { return 1 }`)
	require.NoError(t, m.Build())
	require.True(t, m.HasFunction("f"))

	m.Discard()
	require.False(t, m.Built())
	require.False(t, m.HasFunction("f"))

	// Same handle rebuilds under the same name.
	m.AddSection("main", `f := func() { return 3 }`)
	require.NoError(t, m.Build())
	ctx := NewContext(m)
	require.NoError(t, ctx.Prepare("f"))
	ret, err := ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, int64(3), ret.(*tengo.Int).Value)
}

func TestExecutionFaultIsRecoverable(t *testing.T) {
	e := NewEngine(zap.NewNop())
	m := e.Module("fault")
	m.AddSection("main", `
boom := func() { x := 5; return x() }
ok := func() { return "fine" }
`)
	require.NoError(t, m.Build())

	ctx := NewContext(m)
	require.NoError(t, ctx.Prepare("boom"))
	_, err := ctx.Execute()
	require.Error(t, err)

	// The context stays usable after a fault.
	require.NoError(t, ctx.Prepare("ok"))
	ret, err := ctx.Execute()
	require.NoError(t, err)
	require.Equal(t, "fine", ret.(*tengo.String).Value)
}

func TestModuleNamesAreUnique(t *testing.T) {
	e := NewEngine(zap.NewNop())
	a := e.NextModuleName("ScriptInstance")
	b := e.NextModuleName("ScriptInstance")
	require.NotEqual(t, a, b)
	require.Same(t, e.Module(a), e.Module(a))
	require.NotSame(t, e.Module(a), e.Module(b))
}
