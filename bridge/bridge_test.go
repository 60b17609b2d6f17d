package bridge

import (
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/ecs/component"
	"github.com/milk9111/scripthost/reflection"
)

func callUF(t *testing.T, values map[string]tengo.Object, name string, args ...tengo.Object) tengo.Object {
	t.Helper()
	uf, ok := values[name].(*tengo.UserFunction)
	require.True(t, ok, "missing binding %q", name)
	ret, err := uf.Value(args...)
	require.NoError(t, err)
	return ret
}

func entityArg(e ecs.Entity) tengo.Object {
	return &tengo.Int{Value: int64(uint64(e))}
}

func TestTransformPropertyBindings(t *testing.T) {
	w := ecs.NewWorld()
	reg := reflection.NewRegistry()
	require.NoError(t, RegisterCoreComponents(reg, w))

	globals := Build(reg, zap.NewNop())
	tf, ok := globals["transform"].(*tengo.ImmutableMap)
	require.True(t, ok)

	e := w.CreateEntity()
	require.NoError(t, ecs.Add(w, e, component.TransformComponent, component.DefaultTransform()))

	callUF(t, tf.Value, "set_position", entityArg(e), &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: 1}, &tengo.Float{Value: 2}, &tengo.Float{Value: 3},
	}})

	pos := callUF(t, tf.Value, "get_position", entityArg(e)).(*tengo.Array)
	require.Equal(t, 3.0, pos.Value[2].(*tengo.Float).Value)

	got, ok := ecs.Get(w, e, component.TransformComponent)
	require.True(t, ok)
	require.Equal(t, mgl64.Vec3{1, 2, 3}, got.Position)
}

func TestMethodTrampoline(t *testing.T) {
	w := ecs.NewWorld()
	reg := reflection.NewRegistry()
	require.NoError(t, RegisterCoreComponents(reg, w))
	globals := Build(reg, zap.NewNop())
	tf := globals["transform"].(*tengo.ImmutableMap)

	e := w.CreateEntity()
	require.NoError(t, ecs.Add(w, e, component.TransformComponent, component.DefaultTransform()))

	ret := callUF(t, tf.Value, "translate", entityArg(e), &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: 5}, &tengo.Float{Value: 0}, &tengo.Float{Value: -1},
	}}).(*tengo.Array)
	require.Equal(t, 5.0, ret.Value[0].(*tengo.Float).Value)

	uf := tf.Value["translate"].(*tengo.UserFunction)
	require.Equal(t, "dvec3 translate(entity, dvec3)", uf.Name, "synthesized signature")

	_, err := uf.Value(entityArg(e))
	require.ErrorIs(t, err, tengo.ErrWrongNumArguments)
}

func TestIVec3Explode(t *testing.T) {
	w := ecs.NewWorld()
	type grid struct{ X, Y, Z int32 }
	gridHandle := component.NewComponent[grid]()

	reg := reflection.NewRegistry()
	require.NoError(t, reg.RegisterComponent(&reflection.Component{
		Name: "grid_cell",
		Props: []reflection.Property{{
			Name: "coord",
			Kind: reflection.KindIVec3,
			Getter: func(e ecs.Entity) (reflection.Variant, error) {
				g, ok := ecs.Get(w, e, gridHandle)
				if !ok {
					return reflection.Variant{}, component.ErrEntityNotAlive
				}
				return reflection.IVec3(g.X, g.Y, g.Z), nil
			},
			Setter: func(e ecs.Entity, v reflection.Variant) error {
				return ecs.Add(w, e, gridHandle, grid{v.IVec3[0], v.IVec3[1], v.IVec3[2]})
			},
		}},
	}))

	globals := Build(reg, zap.NewNop())
	gc := globals["grid_cell"].(*tengo.ImmutableMap)

	e := w.CreateEntity()
	require.NoError(t, ecs.Add(w, e, gridHandle, grid{}))

	// One combined setter, three exploded getters.
	callUF(t, gc.Value, "set_coord", entityArg(e),
		&tengo.Int{Value: 4}, &tengo.Int{Value: 5}, &tengo.Int{Value: 6})
	require.Equal(t, int64(4), callUF(t, gc.Value, "get_coord_x", entityArg(e)).(*tengo.Int).Value)
	require.Equal(t, int64(5), callUF(t, gc.Value, "get_coord_y", entityArg(e)).(*tengo.Int).Value)
	require.Equal(t, int64(6), callUF(t, gc.Value, "get_coord_z", entityArg(e)).(*tengo.Int).Value)

	_, hasCombined := gc.Value["get_coord"]
	require.False(t, hasCombined, "ivec3 getter must be exploded")
}

func TestUnsupportedKindsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	reg := reflection.NewRegistry()
	require.NoError(t, reg.RegisterComponent(&reflection.Component{
		Name: "mesh",
		Props: []reflection.Property{
			{
				Name: "geometry",
				Kind: reflection.KindBlob,
				Getter: func(e ecs.Entity) (reflection.Variant, error) {
					return reflection.Void(), nil
				},
			},
			{
				Name: "visible",
				Kind: reflection.KindBool,
				Getter: func(e ecs.Entity) (reflection.Variant, error) {
					return reflection.Bool(true), nil
				},
			},
		},
	}))

	globals := Build(reg, log)
	mesh := globals["mesh"].(*tengo.ImmutableMap)

	_, hasBlob := mesh.Value["get_geometry"]
	require.False(t, hasBlob)
	_, hasBool := mesh.Value["get_visible"]
	require.True(t, hasBool, "other properties still register")
	require.Equal(t, 1, logs.FilterMessage("unsupported property kind, not registered").Len())
}

func TestReadOnlyPropertyHasNoSetter(t *testing.T) {
	reg := reflection.NewRegistry()
	require.NoError(t, reg.RegisterComponent(&reflection.Component{
		Name: "camera",
		Props: []reflection.Property{{
			Name: "fov",
			Kind: reflection.KindFloat,
			Getter: func(e ecs.Entity) (reflection.Variant, error) {
				return reflection.Float(60), nil
			},
		}},
	}))
	globals := Build(reg, zap.NewNop())
	cam := globals["camera"].(*tengo.ImmutableMap)
	_, hasGet := cam.Value["get_fov"]
	_, hasSet := cam.Value["set_fov"]
	require.True(t, hasGet)
	require.False(t, hasSet)
}

func TestWorldBindings(t *testing.T) {
	w := ecs.NewWorld()
	globals := WorldBindings(w)
	world := globals["world"].(*tengo.ImmutableMap)

	eObj := callUF(t, world.Value, "create_entity")
	e := ecs.Entity(uint64(eObj.(*tengo.Int).Value))
	require.True(t, w.IsAlive(e))

	callUF(t, world.Value, "set_entity_name", eObj, &tengo.String{Value: "hero"})
	require.Equal(t, "hero", w.Name(e))
	found := callUF(t, world.Value, "find_by_name", &tengo.String{Value: "hero"})
	require.Equal(t, eObj.(*tengo.Int).Value, found.(*tengo.Int).Value)

	callUF(t, world.Value, "set_entity_position", eObj, floatArray(7, 8, 9))
	pos := callUF(t, world.Value, "get_entity_position", eObj).(*tengo.Array)
	require.Equal(t, 9.0, pos.Value[2].(*tengo.Float).Value)

	callUF(t, world.Value, "destroy_entity", eObj)
	require.False(t, w.IsAlive(e))
}
