package math

import "testing"

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 || m[12] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3).Mul(Scale(2, 3, 4))
	for _, got := range []Mat4{m.Mul(Identity()), Identity().Mul(m)} {
		if got != m {
			t.Errorf("M * I should equal M: got %v, want %v", got, m)
		}
	}
}

func TestMulPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(10, 20, 30), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(2, 2, 2), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"scale then translate", Translate(1, 0, 0).Mul(Scale(2, 2, 2)), Vec3{1, 1, 1}, Vec3{3, 2, 2}},
	}
	for _, tt := range tests {
		if got := tt.m.MulPoint(tt.p); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDeterminantMirror(t *testing.T) {
	if d := Scale(-1, 1, 1).Determinant3x3(); d != -1 {
		t.Errorf("mirror determinant: got %f, want -1", d)
	}
	if d := Scale(2, 3, 4).Determinant3x3(); d != 24 {
		t.Errorf("scale determinant: got %f, want 24", d)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(1, 2, 3).Mul(Scale(2, 4, 0.5))
	m[4] = 0.25 // shear
	p := Vec3{4, 5, 6}
	back := m.Inverse().MulPoint(m.MulPoint(p))

	for i, pair := range [][2]float32{{back.X, p.X}, {back.Y, p.Y}, {back.Z, p.Z}} {
		if abs(pair[0]-pair[1]) > 1e-5 {
			t.Errorf("inverse round trip component %d: got %f, want %f", i, pair[0], pair[1])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(1, 0, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse: got %v, want identity", got)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
