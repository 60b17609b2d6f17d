package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the spatial component every scripted entity is expected to
// carry. Positions are double precision; rotation and scale are single.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func DefaultTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

var TransformComponent = NewComponent[Transform]()
