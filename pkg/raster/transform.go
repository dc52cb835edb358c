package raster

import "github.com/go-gl/mathgl/mgl32"

// Transform is a 2D affine transform in homogeneous coordinates.
//
// Translate, Scale and ScaleAround compose on the right, so the most recently
// added operation is applied to points first.
type Transform struct {
	m mgl32.Mat3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{m: mgl32.Ident3()}
}

// Matrix returns the underlying matrix.
func (t Transform) Matrix() mgl32.Mat3 {
	if t.m == (mgl32.Mat3{}) {
		return mgl32.Ident3()
	}
	return t.m
}

// Translate returns t combined with a translation by (x, y).
func (t Transform) Translate(x, y float32) Transform {
	return Transform{m: t.Matrix().Mul3(mgl32.Translate2D(x, y))}
}

// Scale returns t combined with a scale by (sx, sy) about the origin.
func (t Transform) Scale(sx, sy float32) Transform {
	return Transform{m: t.Matrix().Mul3(mgl32.Scale2D(sx, sy))}
}

// ScaleAround returns t combined with a scale by (sx, sy) about (cx, cy).
func (t Transform) ScaleAround(sx, sy, cx, cy float32) Transform {
	s := mgl32.Mat3{
		sx, 0, 0,
		0, sy, 0,
		cx * (1 - sx), cy * (1 - sy), 1,
	}
	return Transform{m: t.Matrix().Mul3(s)}
}

// Then returns the transform that applies t and then next.
func (t Transform) Then(next Transform) Transform {
	return Transform{m: next.Matrix().Mul3(t.Matrix())}
}

// Apply maps a point through t.
func (t Transform) Apply(p mgl32.Vec2) mgl32.Vec2 {
	return t.Matrix().Mul3x1(p.Vec3(1)).Vec2()
}
