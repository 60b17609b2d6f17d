// Package bridge walks the reflection registry and emits native-callable
// script bindings: one immutable map per component or module type, with
// get_/set_ accessor pairs per property and one generic trampoline per
// method. Re-run Build after the registry changes; registration is not
// incremental.
package bridge

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/reflection"
)

// Build produces the engine-wide script globals for every registered
// component and module type. Unsupported property kinds are logged and
// skipped, never fatal.
func Build(reg *reflection.Registry, log *zap.Logger) map[string]tengo.Object {
	if log == nil {
		log = zap.NewNop()
	}
	globals := map[string]tengo.Object{}

	for _, cmp := range reg.Components() {
		values := map[string]tengo.Object{}
		for i := range cmp.Props {
			registerProperty(values, cmp.Name, &cmp.Props[i], log)
		}
		for i := range cmp.Funcs {
			registerFunc(values, cmp.Name, &cmp.Funcs[i], log)
		}
		globals[cmp.Name] = &tengo.ImmutableMap{Value: values}
	}

	for _, mod := range reg.Modules() {
		values := map[string]tengo.Object{}
		for i := range mod.Funcs {
			registerFunc(values, mod.Name, &mod.Funcs[i], log)
		}
		globals[mod.Name] = &tengo.ImmutableMap{Value: values}
	}

	return globals
}

func registerProperty(values map[string]tengo.Object, owner string, prop *reflection.Property, log *zap.Logger) {
	if prop.Kind == reflection.KindIVec3 {
		registerIVec3Property(values, prop)
		return
	}
	if !prop.Kind.Supported() {
		log.Warn("unsupported property kind, not registered",
			zap.String("component", owner),
			zap.String("property", prop.Name),
			zap.String("kind", prop.Kind.String()))
		return
	}

	getter := prop.Getter
	values["get_"+prop.Name] = &tengo.UserFunction{
		Name: signature(prop.Kind, "get_"+prop.Name, []reflection.Kind{reflection.KindEntity}),
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, err := argEntity(args, 0)
			if err != nil {
				return nil, err
			}
			v, err := getter(e)
			if err != nil {
				return nil, err
			}
			return variantToObject(v), nil
		},
	}

	if prop.Setter == nil {
		return
	}
	kind := prop.Kind
	setter := prop.Setter
	values["set_"+prop.Name] = &tengo.UserFunction{
		Name: signature(reflection.KindVoid, "set_"+prop.Name, []reflection.Kind{reflection.KindEntity, kind}),
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, err := argEntity(args, 0)
			if err != nil {
				return nil, err
			}
			if len(args) < 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			v, err := objectToVariant(args[1], kind)
			if err != nil {
				return nil, err
			}
			return tengo.UndefinedValue, setter(e, v)
		},
	}
}

// registerIVec3Property explodes an integer vector into component getters and
// a single set_<name>(entity, x, y, z) setter.
func registerIVec3Property(values map[string]tengo.Object, prop *reflection.Property) {
	getter := prop.Getter
	for axis, suffix := range []string{"_x", "_y", "_z"} {
		idx := axis
		values["get_"+prop.Name+suffix] = &tengo.UserFunction{
			Name: "get_" + prop.Name + suffix,
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				e, err := argEntity(args, 0)
				if err != nil {
					return nil, err
				}
				v, err := getter(e)
				if err != nil {
					return nil, err
				}
				return &tengo.Int{Value: int64(v.IVec3[idx])}, nil
			},
		}
	}

	if prop.Setter == nil {
		return
	}
	setter := prop.Setter
	values["set_"+prop.Name] = &tengo.UserFunction{
		Name: "set_" + prop.Name,
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, err := argEntity(args, 0)
			if err != nil {
				return nil, err
			}
			if len(args) != 4 {
				return nil, tengo.ErrWrongNumArguments
			}
			var xyz [3]int32
			for i := 0; i < 3; i++ {
				n, ok := tengo.ToInt64(args[i+1])
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{
						Name: fmt.Sprintf("arg%d", i+1), Expected: "int", Found: args[i+1].TypeName(),
					}
				}
				xyz[i] = int32(n)
			}
			return tengo.UndefinedValue, setter(e, reflection.IVec3(xyz[0], xyz[1], xyz[2]))
		},
	}
}

// registerFunc installs the generic method trampoline: call-site arguments
// are marshaled into variants by declared kind, the reflected invoke closure
// runs, and the typed result is marshaled back.
func registerFunc(values map[string]tengo.Object, owner string, fn *reflection.Func, log *zap.Logger) {
	for _, k := range fn.Args {
		if !k.Supported() {
			log.Warn("unsupported method argument kind, not registered",
				zap.String("component", owner),
				zap.String("method", fn.Name),
				zap.String("kind", k.String()))
			return
		}
	}
	if fn.Ret != reflection.KindVoid && !fn.Ret.Supported() {
		log.Warn("unsupported method return kind, not registered",
			zap.String("component", owner),
			zap.String("method", fn.Name),
			zap.String("kind", fn.Ret.String()))
		return
	}

	decl := fn
	values[fn.Name] = &tengo.UserFunction{
		Name: signature(fn.Ret, fn.Name, fn.Args),
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != len(decl.Args) {
				return nil, tengo.ErrWrongNumArguments
			}
			vars := make([]reflection.Variant, len(args))
			for i, obj := range args {
				v, err := objectToVariant(obj, decl.Args[i])
				if err != nil {
					return nil, err
				}
				vars[i] = v
			}
			ret, err := decl.Invoke(vars)
			if err != nil {
				return nil, err
			}
			if decl.Ret == reflection.KindVoid {
				return tengo.UndefinedValue, nil
			}
			return variantToObject(ret), nil
		},
	}
}

// signature renders a readable declaration used as the registered function's
// diagnostic name, e.g. "dvec3 get_position(entity)".
func signature(ret reflection.Kind, name string, args []reflection.Kind) string {
	parts := make([]string, len(args))
	for i, k := range args {
		parts[i] = k.String()
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(parts, ", "))
}

func argEntity(args []tengo.Object, idx int) (ecs.Entity, error) {
	if len(args) <= idx {
		return ecs.InvalidEntity, tengo.ErrWrongNumArguments
	}
	n, ok := tengo.ToInt64(args[idx])
	if !ok {
		return ecs.InvalidEntity, tengo.ErrInvalidArgumentType{
			Name: "entity", Expected: "int", Found: args[idx].TypeName(),
		}
	}
	return ecs.Entity(uint64(n)), nil
}
