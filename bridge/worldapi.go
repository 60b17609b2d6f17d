package bridge

import (
	"github.com/d5/tengo/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/ecs/component"
	"github.com/milk9111/scripthost/reflection"
)

// ResourceHandles is the system-side table scripts use to hold engine
// resources by opaque handle.
type ResourceHandles interface {
	AddResource(path string) uint32
	ResourcePath(handle uint32) string
	UnloadResource(handle uint32)
}

// InvalidResourceHandle is returned by load_resource on failure.
const InvalidResourceHandle = uint32(0xFFFFFFFF)

// WorldBindings exposes entity lifecycle and transform access as the "world"
// script global.
func WorldBindings(w *ecs.World) map[string]tengo.Object {
	values := map[string]tengo.Object{
		"create_entity": fn0(func() (tengo.Object, error) {
			e := w.CreateEntity()
			_ = ecs.Add(w, e, component.TransformComponent, component.DefaultTransform())
			return &tengo.Int{Value: int64(uint64(e))}, nil
		}),
		"destroy_entity": fnEntity(func(e ecs.Entity) (tengo.Object, error) {
			w.DestroyEntity(e)
			return tengo.UndefinedValue, nil
		}),
		"is_alive": fnEntity(func(e ecs.Entity) (tengo.Object, error) {
			if w.IsAlive(e) {
				return tengo.TrueValue, nil
			}
			return tengo.FalseValue, nil
		}),
		"set_entity_name": &tengo.UserFunction{Name: "set_entity_name", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			e, err := argEntity(args, 0)
			if err != nil {
				return nil, err
			}
			name, _ := tengo.ToString(args[1])
			w.SetName(e, name)
			return tengo.UndefinedValue, nil
		}},
		"get_entity_name": fnEntity(func(e ecs.Entity) (tengo.Object, error) {
			return &tengo.String{Value: w.Name(e)}, nil
		}),
		"find_by_name": &tengo.UserFunction{Name: "find_by_name", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			name, _ := tengo.ToString(args[0])
			return &tengo.Int{Value: int64(uint64(w.FindByName(name)))}, nil
		}},
		"set_entity_position": &tengo.UserFunction{Name: "set_entity_position", Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, err := argEntity(args, 0)
			if err != nil {
				return nil, err
			}
			if len(args) != 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			fs, err := floatsFrom(args[1], 3)
			if err != nil {
				return nil, err
			}
			ok := ecs.Mutate(w, e, component.TransformComponent, func(t *component.Transform) {
				t.Position = mgl64.Vec3{fs[0], fs[1], fs[2]}
			})
			if !ok {
				return nil, component.ErrEntityNotAlive
			}
			return tengo.UndefinedValue, nil
		}},
		"get_entity_position": fnEntity(func(e ecs.Entity) (tengo.Object, error) {
			t, ok := ecs.Get(w, e, component.TransformComponent)
			if !ok {
				return nil, component.ErrEntityNotAlive
			}
			return floatArray(t.Position[0], t.Position[1], t.Position[2]), nil
		}),
	}
	return map[string]tengo.Object{"world": &tengo.ImmutableMap{Value: values}}
}

// EngineBindings exposes logging and the script-held resource handle table.
func EngineBindings(res ResourceHandles, log *zap.Logger) map[string]tengo.Object {
	if log == nil {
		log = zap.NewNop()
	}
	globals := map[string]tengo.Object{
		"log_info": &tengo.UserFunction{Name: "log_info", Value: func(args ...tengo.Object) (tengo.Object, error) {
			log.Info(joinArgs(args))
			return tengo.UndefinedValue, nil
		}},
		"log_error": &tengo.UserFunction{Name: "log_error", Value: func(args ...tengo.Object) (tengo.Object, error) {
			log.Error(joinArgs(args))
			return tengo.UndefinedValue, nil
		}},
	}
	if res != nil {
		globals["load_resource"] = &tengo.UserFunction{Name: "load_resource", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			path, _ := tengo.ToString(args[0])
			return &tengo.Int{Value: int64(res.AddResource(path))}, nil
		}}
		globals["get_resource_path"] = &tengo.UserFunction{Name: "get_resource_path", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			h, ok := tengo.ToInt64(args[0])
			if !ok {
				return nil, convErr("int", args[0])
			}
			return &tengo.String{Value: res.ResourcePath(uint32(h))}, nil
		}}
		globals["unload_resource"] = &tengo.UserFunction{Name: "unload_resource", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			h, ok := tengo.ToInt64(args[0])
			if !ok {
				return nil, convErr("int", args[0])
			}
			res.UnloadResource(uint32(h))
			return tengo.UndefinedValue, nil
		}}
	}
	return globals
}

// RegisterCoreComponents adds the built-in reflected component types backed
// by the world's stores. Engine plugins register their own on top.
func RegisterCoreComponents(reg *reflection.Registry, w *ecs.World) error {
	transform := &reflection.Component{
		Name: "transform",
		Props: []reflection.Property{
			{
				Name: "position",
				Kind: reflection.KindDVec3,
				Getter: func(e ecs.Entity) (reflection.Variant, error) {
					t, ok := ecs.Get(w, e, component.TransformComponent)
					if !ok {
						return reflection.Variant{}, component.ErrEntityNotAlive
					}
					return reflection.DVec3(t.Position), nil
				},
				Setter: func(e ecs.Entity, v reflection.Variant) error {
					if !ecs.Mutate(w, e, component.TransformComponent, func(t *component.Transform) {
						t.Position = v.DVec3
					}) {
						return component.ErrEntityNotAlive
					}
					return nil
				},
			},
			{
				Name: "scale",
				Kind: reflection.KindVec3,
				Getter: func(e ecs.Entity) (reflection.Variant, error) {
					t, ok := ecs.Get(w, e, component.TransformComponent)
					if !ok {
						return reflection.Variant{}, component.ErrEntityNotAlive
					}
					return reflection.Vec3(t.Scale), nil
				},
				Setter: func(e ecs.Entity, v reflection.Variant) error {
					if !ecs.Mutate(w, e, component.TransformComponent, func(t *component.Transform) {
						t.Scale = v.Vec3
					}) {
						return component.ErrEntityNotAlive
					}
					return nil
				},
			},
			{
				Name: "rotation",
				Kind: reflection.KindQuat,
				Getter: func(e ecs.Entity) (reflection.Variant, error) {
					t, ok := ecs.Get(w, e, component.TransformComponent)
					if !ok {
						return reflection.Variant{}, component.ErrEntityNotAlive
					}
					return reflection.Quat(t.Rotation), nil
				},
				Setter: func(e ecs.Entity, v reflection.Variant) error {
					if !ecs.Mutate(w, e, component.TransformComponent, func(t *component.Transform) {
						t.Rotation = v.Quat
					}) {
						return component.ErrEntityNotAlive
					}
					return nil
				},
			},
		},
		Funcs: []reflection.Func{
			{
				// First argument is the owning entity, per component method
				// convention.
				Name: "translate",
				Args: []reflection.Kind{reflection.KindEntity, reflection.KindDVec3},
				Ret:  reflection.KindDVec3,
				Invoke: func(args []reflection.Variant) (reflection.Variant, error) {
					e := args[0].Entity
					delta := args[1].DVec3
					var out mgl64.Vec3
					ok := ecs.Mutate(w, e, component.TransformComponent, func(t *component.Transform) {
						t.Position = t.Position.Add(delta)
						out = t.Position
					})
					if !ok {
						return reflection.Variant{}, component.ErrEntityNotAlive
					}
					return reflection.DVec3(out), nil
				},
			},
		},
	}
	return reg.RegisterComponent(transform)
}

func fn0(f func() (tengo.Object, error)) *tengo.UserFunction {
	return &tengo.UserFunction{Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 0 {
			return nil, tengo.ErrWrongNumArguments
		}
		return f()
	}}
}

func fnEntity(f func(ecs.Entity) (tengo.Object, error)) *tengo.UserFunction {
	return &tengo.UserFunction{Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		e, err := argEntity(args, 0)
		if err != nil {
			return nil, err
		}
		return f(e)
	}}
}

func joinArgs(args []tengo.Object) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		s, _ := tengo.ToString(a)
		out += s
	}
	return out
}
