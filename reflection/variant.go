// Package reflection holds the registry of engine component and module types
// the bridge exposes to scripts: properties with typed getter/setter closures
// and methods with a generic variant-based calling convention.
package reflection

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/scripthost/ecs"
)

// Kind tags the value types crossing the bridge.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindI32
	KindU32
	KindFloat
	KindVec2
	KindVec3
	KindVec4
	KindIVec3
	KindDVec3
	KindQuat
	KindEntity
	KindPath
	KindString
	KindColor
	KindArray
	KindBlob
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindIVec3:
		return "ivec3"
	case KindDVec3:
		return "dvec3"
	case KindQuat:
		return "quat"
	case KindEntity:
		return "entity"
	case KindPath:
		return "path"
	case KindString:
		return "string"
	case KindColor:
		return "color"
	case KindArray:
		return "array"
	case KindBlob:
		return "blob"
	case KindDynamic:
		return "dynamic"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Supported reports whether the bridge can marshal this kind. Blob and
// dynamic properties are declared but not bridgeable.
func (k Kind) Supported() bool {
	return k != KindBlob && k != KindDynamic && k != KindArray
}

// Variant is a fixed-shape tagged union for values crossing the bridge.
type Variant struct {
	Kind   Kind
	Bool   bool
	I64    int64
	F64    float64
	Vec2   mgl32.Vec2
	Vec3   mgl32.Vec3
	Vec4   mgl32.Vec4
	IVec3  [3]int32
	DVec3  mgl64.Vec3
	Quat   mgl32.Quat
	Entity ecs.Entity
	Str    string
}

func Void() Variant               { return Variant{Kind: KindVoid} }
func Bool(v bool) Variant         { return Variant{Kind: KindBool, Bool: v} }
func I32(v int32) Variant         { return Variant{Kind: KindI32, I64: int64(v)} }
func U32(v uint32) Variant        { return Variant{Kind: KindU32, I64: int64(v)} }
func Float(v float32) Variant     { return Variant{Kind: KindFloat, F64: float64(v)} }
func Vec2(v mgl32.Vec2) Variant   { return Variant{Kind: KindVec2, Vec2: v} }
func Vec3(v mgl32.Vec3) Variant   { return Variant{Kind: KindVec3, Vec3: v} }
func Vec4(v mgl32.Vec4) Variant   { return Variant{Kind: KindVec4, Vec4: v} }
func IVec3(x, y, z int32) Variant { return Variant{Kind: KindIVec3, IVec3: [3]int32{x, y, z}} }
func DVec3(v mgl64.Vec3) Variant  { return Variant{Kind: KindDVec3, DVec3: v} }
func Quat(v mgl32.Quat) Variant   { return Variant{Kind: KindQuat, Quat: v} }
func EntityV(e ecs.Entity) Variant {
	return Variant{Kind: KindEntity, Entity: e}
}
func Path(v string) Variant   { return Variant{Kind: KindPath, Str: v} }
func String(v string) Variant { return Variant{Kind: KindString, Str: v} }
func Color(v mgl32.Vec4) Variant {
	return Variant{Kind: KindColor, Vec4: v}
}
