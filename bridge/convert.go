package bridge

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/reflection"
)

// variantToObject marshals a typed engine value into the VM's calling
// convention. Vectors and quaternions become float arrays; scalars map to
// their VM primitives.
func variantToObject(v reflection.Variant) tengo.Object {
	switch v.Kind {
	case reflection.KindVoid:
		return tengo.UndefinedValue
	case reflection.KindBool:
		if v.Bool {
			return tengo.TrueValue
		}
		return tengo.FalseValue
	case reflection.KindI32, reflection.KindU32:
		return &tengo.Int{Value: v.I64}
	case reflection.KindFloat:
		return &tengo.Float{Value: v.F64}
	case reflection.KindVec2:
		return floatArray(float64(v.Vec2[0]), float64(v.Vec2[1]))
	case reflection.KindVec3:
		return floatArray(float64(v.Vec3[0]), float64(v.Vec3[1]), float64(v.Vec3[2]))
	case reflection.KindVec4, reflection.KindColor:
		return floatArray(float64(v.Vec4[0]), float64(v.Vec4[1]), float64(v.Vec4[2]), float64(v.Vec4[3]))
	case reflection.KindIVec3:
		return &tengo.Array{Value: []tengo.Object{
			&tengo.Int{Value: int64(v.IVec3[0])},
			&tengo.Int{Value: int64(v.IVec3[1])},
			&tengo.Int{Value: int64(v.IVec3[2])},
		}}
	case reflection.KindDVec3:
		return floatArray(v.DVec3[0], v.DVec3[1], v.DVec3[2])
	case reflection.KindQuat:
		return floatArray(float64(v.Quat.V[0]), float64(v.Quat.V[1]), float64(v.Quat.V[2]), float64(v.Quat.W))
	case reflection.KindEntity:
		return &tengo.Int{Value: int64(uint64(v.Entity))}
	case reflection.KindPath, reflection.KindString:
		return &tengo.String{Value: v.Str}
	}
	return tengo.UndefinedValue
}

// objectToVariant marshals a VM value into the declared engine kind.
func objectToVariant(obj tengo.Object, kind reflection.Kind) (reflection.Variant, error) {
	switch kind {
	case reflection.KindVoid:
		return reflection.Void(), nil
	case reflection.KindBool:
		return reflection.Bool(!obj.IsFalsy()), nil
	case reflection.KindI32:
		n, ok := tengo.ToInt64(obj)
		if !ok {
			return reflection.Variant{}, convErr("int", obj)
		}
		return reflection.I32(int32(n)), nil
	case reflection.KindU32:
		n, ok := tengo.ToInt64(obj)
		if !ok {
			return reflection.Variant{}, convErr("int", obj)
		}
		return reflection.U32(uint32(n)), nil
	case reflection.KindFloat:
		f, ok := tengo.ToFloat64(obj)
		if !ok {
			return reflection.Variant{}, convErr("float", obj)
		}
		return reflection.Float(float32(f)), nil
	case reflection.KindVec2:
		fs, err := floatsFrom(obj, 2)
		if err != nil {
			return reflection.Variant{}, err
		}
		return reflection.Vec2(mgl32.Vec2{float32(fs[0]), float32(fs[1])}), nil
	case reflection.KindVec3:
		fs, err := floatsFrom(obj, 3)
		if err != nil {
			return reflection.Variant{}, err
		}
		return reflection.Vec3(mgl32.Vec3{float32(fs[0]), float32(fs[1]), float32(fs[2])}), nil
	case reflection.KindVec4, reflection.KindColor:
		fs, err := floatsFrom(obj, 4)
		if err != nil {
			return reflection.Variant{}, err
		}
		v := mgl32.Vec4{float32(fs[0]), float32(fs[1]), float32(fs[2]), float32(fs[3])}
		if kind == reflection.KindColor {
			return reflection.Color(v), nil
		}
		return reflection.Vec4(v), nil
	case reflection.KindIVec3:
		arr, ok := obj.(*tengo.Array)
		if !ok || len(arr.Value) != 3 {
			return reflection.Variant{}, convErr("array[3] of int", obj)
		}
		var xyz [3]int32
		for i, el := range arr.Value {
			n, ok := tengo.ToInt64(el)
			if !ok {
				return reflection.Variant{}, convErr("int", el)
			}
			xyz[i] = int32(n)
		}
		return reflection.IVec3(xyz[0], xyz[1], xyz[2]), nil
	case reflection.KindDVec3:
		fs, err := floatsFrom(obj, 3)
		if err != nil {
			return reflection.Variant{}, err
		}
		return reflection.DVec3(mgl64.Vec3{fs[0], fs[1], fs[2]}), nil
	case reflection.KindQuat:
		fs, err := floatsFrom(obj, 4)
		if err != nil {
			return reflection.Variant{}, err
		}
		return reflection.Quat(mgl32.Quat{
			V: mgl32.Vec3{float32(fs[0]), float32(fs[1]), float32(fs[2])},
			W: float32(fs[3]),
		}), nil
	case reflection.KindEntity:
		n, ok := tengo.ToInt64(obj)
		if !ok {
			return reflection.Variant{}, convErr("entity", obj)
		}
		return reflection.EntityV(ecs.Entity(uint64(n))), nil
	case reflection.KindPath:
		s, ok := tengo.ToString(obj)
		if !ok {
			return reflection.Variant{}, convErr("string", obj)
		}
		return reflection.Path(s), nil
	case reflection.KindString:
		s, ok := tengo.ToString(obj)
		if !ok {
			return reflection.Variant{}, convErr("string", obj)
		}
		return reflection.String(s), nil
	}
	return reflection.Variant{}, fmt.Errorf("bridge: cannot marshal kind %s", kind)
}

func floatArray(vals ...float64) *tengo.Array {
	objs := make([]tengo.Object, len(vals))
	for i, f := range vals {
		objs[i] = &tengo.Float{Value: f}
	}
	return &tengo.Array{Value: objs}
}

func floatsFrom(obj tengo.Object, n int) ([]float64, error) {
	arr, ok := obj.(*tengo.Array)
	if !ok || len(arr.Value) != n {
		return nil, convErr(fmt.Sprintf("array[%d] of float", n), obj)
	}
	out := make([]float64, n)
	for i, el := range arr.Value {
		f, ok := tengo.ToFloat64(el)
		if !ok {
			return nil, convErr("float", el)
		}
		out[i] = f
	}
	return out, nil
}

func convErr(expected string, found tengo.Object) error {
	return tengo.ErrInvalidArgumentType{Name: "value", Expected: expected, Found: found.TypeName()}
}
