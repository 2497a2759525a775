package math

// Mat4 is a 4x4 matrix in column-major order. Only affine matrices (last
// row 0 0 0 1) are produced by this package.
//
//	[m0 m4 m8  m12]
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scale matrix. A negative factor mirrors along that axis.
func Scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// at returns the element in row r, column c.
func (m Mat4) at(r, c int) float32 { return m[c*4+r] }

// Mul returns m * other, so other is applied to a point first.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.at(r, k) * other.at(k, c)
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulPoint transforms p as a point (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12],
		m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13],
		m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14],
	}
}

// Determinant3x3 returns the determinant of the upper-left 3x3 portion.
// A negative value means the matrix mirrors geometry.
func (m Mat4) Determinant3x3() float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}

// Inverse returns the inverse of an affine matrix, or identity when the
// linear part is singular.
func (m Mat4) Inverse() Mat4 {
	det := m.Determinant3x3()
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	// Adjugate of the linear part, transposed into column-major order.
	var out Mat4
	out[0] = (m[5]*m[10] - m[6]*m[9]) * inv
	out[1] = (m[2]*m[9] - m[1]*m[10]) * inv
	out[2] = (m[1]*m[6] - m[2]*m[5]) * inv
	out[4] = (m[6]*m[8] - m[4]*m[10]) * inv
	out[5] = (m[0]*m[10] - m[2]*m[8]) * inv
	out[6] = (m[2]*m[4] - m[0]*m[6]) * inv
	out[8] = (m[4]*m[9] - m[5]*m[8]) * inv
	out[9] = (m[1]*m[8] - m[0]*m[9]) * inv
	out[10] = (m[0]*m[5] - m[1]*m[4]) * inv

	// Translation is -R^-1 * t.
	t := out.MulPoint(Vec3{m[12], m[13], m[14]})
	out[12], out[13], out[14] = -t.X, -t.Y, -t.Z
	out[15] = 1
	return out
}
