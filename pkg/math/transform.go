package math

// Transform is an affine 4x3 matrix in 3MF wire order:
//
//	m00 m01 m02 m10 m11 m12 m20 m21 m22 m30 m31 m32
//
// Points are row vectors, so a point p maps to p*M with (m30, m31, m32)
// as the translation.
type Transform [12]float32

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0, 0, 0,
	}
}

// TranslateTransform returns a pure translation.
func TranslateTransform(x, y, z float32) Transform {
	t := IdentityTransform()
	t[9], t[10], t[11] = x, y, z
	return t
}

// TransformFromMat4 drops the projective row of a column-major matrix.
func TransformFromMat4(m Mat4) Transform {
	return Transform{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
		m[12], m[13], m[14],
	}
}

// Mat4 expands the transform to a column-major 4x4 matrix.
func (t Transform) Mat4() Mat4 {
	return Mat4{
		t[0], t[1], t[2], 0,
		t[3], t[4], t[5], 0,
		t[6], t[7], t[8], 0,
		t[9], t[10], t[11], 1,
	}
}

// Mul returns the transform that applies inner first and then t.
func (t Transform) Mul(inner Transform) Transform {
	return TransformFromMat4(t.Mat4().Mul(inner.Mat4()))
}

// Apply transforms a point.
func (t Transform) Apply(p Vec3) Vec3 {
	return Vec3{
		p.X*t[0] + p.Y*t[3] + p.Z*t[6] + t[9],
		p.X*t[1] + p.Y*t[4] + p.Z*t[7] + t[10],
		p.X*t[2] + p.Y*t[5] + p.Z*t[8] + t[11],
	}
}

// Determinant returns the determinant of the linear part.
func (t Transform) Determinant() float32 {
	return t.Mat4().Determinant3x3()
}

// IsIdentity reports whether t is exactly the identity.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}

// Inverse returns the inverse transform, or identity if t is singular.
func (t Transform) Inverse() Transform {
	return TransformFromMat4(t.Mat4().Inverse())
}
