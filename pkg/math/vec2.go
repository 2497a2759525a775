// Package math provides the vector and affine transform types used by
// mesh geometry, slice outlines and component placements.
package math

// Vec2 is a point in a slice plane or a texture coordinate.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Cross returns the z component of the 3D cross product.
// Positive means other is counter-clockwise from v.
func (v Vec2) Cross(other Vec2) float32 {
	return v.X*other.Y - v.Y*other.X
}

// Min returns the component-wise minimum.
func (v Vec2) Min(other Vec2) Vec2 {
	return Vec2{min(v.X, other.X), min(v.Y, other.Y)}
}

// Max returns the component-wise maximum.
func (v Vec2) Max(other Vec2) Vec2 {
	return Vec2{max(v.X, other.X), max(v.Y, other.Y)}
}

// SignedArea returns the area enclosed by the closed outline pts, positive
// when it winds counter-clockwise. Fewer than three points enclose nothing.
func SignedArea(pts []Vec2) float32 {
	if len(pts) < 3 {
		return 0
	}
	var twice float64
	prev := pts[len(pts)-1]
	for _, p := range pts {
		twice += float64(prev.Cross(p))
		prev = p
	}
	return float32(twice / 2)
}
