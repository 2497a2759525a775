package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/props"
)

// tetrahedron builds a closed, outward-wound tetrahedron.
func tetrahedron(t *testing.T) *Mesh {
	t.Helper()
	m := New()
	for _, v := range []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		_, err := m.AddVertex(v)
		require.NoError(t, err)
	}
	for _, f := range [][3]uint32{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}} {
		_, err := m.AddFace(f[0], f[1], f[2])
		require.NoError(t, err)
	}
	return m
}

func TestAddFaceRoundTrip(t *testing.T) {
	m := tetrahedron(t)

	idx, err := m.AddFace(3, 1, 0)
	require.NoError(t, err)

	f, err := m.Face(idx)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{3, 1, 0}, f.Nodes)
	assert.Equal(t, 5, m.Properties().FaceCount())
}

func TestAddFaceRejects(t *testing.T) {
	tests := []struct {
		name  string
		nodes [3]uint32
	}{
		{"first two equal", [3]uint32{0, 0, 1}},
		{"last two equal", [3]uint32{0, 1, 1}},
		{"outer equal", [3]uint32{2, 1, 2}},
		{"out of range", [3]uint32{0, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tetrahedron(t)
			_, err := m.AddFace(tt.nodes[0], tt.nodes[1], tt.nodes[2])
			assert.ErrorIs(t, err, diag.ErrInvalidIndex)
			assert.Equal(t, 4, m.FaceCount())
		})
	}
}

func TestSetFaceValidates(t *testing.T) {
	m := tetrahedron(t)
	assert.ErrorIs(t, m.SetFace(0, 1, 1, 2), diag.ErrInvalidIndex)
	assert.ErrorIs(t, m.SetFace(9, 0, 1, 2), diag.ErrInvalidIndex)
	require.NoError(t, m.SetFace(0, 0, 1, 2))
}

func TestManifoldTetrahedron(t *testing.T) {
	m := tetrahedron(t)
	assert.True(t, m.IsManifoldAndOriented())
	assert.Equal(t, 0, m.BoundaryEdgeCount())

	open := New()
	require.NoError(t, open.SetGeometry(m.Vertices(), m.Faces()[:3]))
	assert.False(t, open.IsManifoldAndOriented())
	assert.Equal(t, 3, open.BoundaryEdgeCount())
}

func TestManifoldRejectsFlippedFace(t *testing.T) {
	m := tetrahedron(t)
	require.NoError(t, m.SetFace(3, 1, 3, 2))
	assert.False(t, m.IsManifoldAndOriented())
}

func TestManifoldEmpty(t *testing.T) {
	assert.False(t, New().IsManifoldAndOriented())
}

func TestSetGeometryAtomic(t *testing.T) {
	m := tetrahedron(t)
	require.NoError(t, m.Properties().SetFaceProperties(0, props.BaseMaterial, props.Uniform(1, 1)))

	err := m.SetGeometry([]math.Vec3{{0, 0, 0}}, []Face{{Nodes: [3]uint32{0, 1, 2}}})
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)
	assert.Equal(t, 4, m.VertexCount())
	assert.True(t, m.Properties().Channel(props.BaseMaterial).FaceHasData(0))

	require.NoError(t, m.SetGeometry(m.Vertices()[:3], []Face{{Nodes: [3]uint32{0, 1, 2}}}))
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, 1, m.FaceCount())
	assert.False(t, m.Properties().Channel(props.BaseMaterial).FaceHasData(0))
}

func TestPermuteFaceMovesProperties(t *testing.T) {
	m := tetrahedron(t)
	data := props.FaceData{ResourceID: 5, PropertyIDs: [3]uint32{10, 20, 30}}
	require.NoError(t, m.Properties().SetFaceProperties(1, props.TexCoord, data))

	require.NoError(t, m.PermuteFace(1, [3]int{1, 2, 0}))

	f, _ := m.Face(1)
	assert.Equal(t, [3]uint32{1, 3, 0}, f.Nodes)
	_, got, ok := m.Properties().FaceProperties(1)
	require.True(t, ok)
	assert.Equal(t, [3]uint32{20, 30, 10}, got.PropertyIDs)

	assert.ErrorIs(t, m.PermuteFace(1, [3]int{1, 1, 0}), diag.ErrInvalidArgument)
}

func TestBeamsAndBalls(t *testing.T) {
	m := tetrahedron(t)

	_, err := m.AddBeam(Beam{Nodes: [2]uint32{0, 0}, Radius: [2]float64{1, 1}})
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)
	_, err = m.AddBeam(Beam{Nodes: [2]uint32{0, 1}, Radius: [2]float64{0, 1}})
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)

	b, err := m.AddBeam(Beam{Nodes: [2]uint32{0, 1}, Radius: [2]float64{1, 2}, Cap: [2]CapMode{CapButt, CapSphere}})
	require.NoError(t, err)
	got, err := m.Beam(b)
	require.NoError(t, err)
	assert.Equal(t, CapButt, got.Cap[0])

	ball, err := m.AddBall(Ball{Node: 3, Radius: 0.5})
	require.NoError(t, err)

	_, err = m.AddBeamSet(BeamSet{Name: "set", Refs: []uint32{b, 7}})
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)
	set, err := m.AddBeamSet(BeamSet{Name: "set", Refs: []uint32{b}, BallRefs: []uint32{ball}})
	require.NoError(t, err)
	assert.Equal(t, "set", set.Name)

	m.ClearBeamLattice()
	assert.Equal(t, 0, m.BeamCount())
	assert.Equal(t, 0, m.BallCount())
	assert.Equal(t, 0, m.BeamSetCount())
	assert.Equal(t, 4, m.FaceCount())
}

func TestCloneIndependent(t *testing.T) {
	m := tetrahedron(t)
	c := m.Clone()
	require.NoError(t, c.SetVertex(0, math.Vec3{X: 9}))

	v, _ := m.Vertex(0)
	assert.Equal(t, math.Vec3{}, v)
	assert.Equal(t, m.FaceCount(), c.Properties().FaceCount())
}

func TestMergeWithTransform(t *testing.T) {
	a := tetrahedron(t)
	b := tetrahedron(t)
	require.NoError(t, b.Properties().SetFaceProperties(0, props.Color, props.Uniform(2, 1)))

	require.NoError(t, a.Merge(b, math.TranslateTransform(10, 0, 0)))

	assert.Equal(t, 8, a.VertexCount())
	assert.Equal(t, 8, a.FaceCount())
	v, _ := a.Vertex(5)
	assert.Equal(t, math.Vec3{X: 11}, v)
	f, _ := a.Face(4)
	assert.Equal(t, [3]uint32{4, 6, 5}, f.Nodes)
	assert.True(t, a.Properties().Channel(props.Color).FaceHasData(4))
	assert.True(t, a.IsManifoldAndOriented())

	// source untouched
	v, _ = b.Vertex(1)
	assert.Equal(t, math.Vec3{X: 1}, v)
}

func TestApplyMirrorKeepsOrientation(t *testing.T) {
	m := tetrahedron(t)
	m.ApplyTransform(math.TransformFromMat4(math.Scale(-1, 1, 1)))
	assert.True(t, m.IsManifoldAndOriented())
	v, _ := m.Vertex(1)
	assert.Equal(t, float32(-1), v.X)
}

func TestApplyScaleScalesRadii(t *testing.T) {
	m := tetrahedron(t)
	b, err := m.AddBeam(Beam{Nodes: [2]uint32{0, 1}, Radius: [2]float64{1, 0.5}})
	require.NoError(t, err)
	ball, err := m.AddBall(Ball{Node: 3, Radius: 0.25})
	require.NoError(t, err)

	m.ApplyTransform(math.TransformFromMat4(math.Scale(2, 2, 2)))
	got, err := m.Beam(b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.Radius[0], 1e-9)
	assert.InDelta(t, 1.0, got.Radius[1], 1e-9)
	gb, err := m.Ball(ball)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gb.Radius, 1e-9)

	m.ApplyTransform(math.TranslateTransform(5, 0, 0))
	got, _ = m.Beam(b)
	assert.InDelta(t, 2.0, got.Radius[0], 1e-9)
	assert.InDelta(t, 2.0, RadiusScale(math.TransformFromMat4(math.Scale(-2, 2, 2))), 1e-6)
}

func TestBounds(t *testing.T) {
	_, _, ok := New().Bounds()
	assert.False(t, ok)

	lo, hi, ok := tetrahedron(t).Bounds()
	require.True(t, ok)
	assert.Equal(t, math.Vec3{}, lo)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, hi)
}

func TestCapModeParse(t *testing.T) {
	for _, c := range []CapMode{CapSphere, CapHemisphere, CapButt} {
		got, ok := ParseCapMode(c.String())
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := ParseCapMode("round")
	assert.False(t, ok)
}
