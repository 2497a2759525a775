package model

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/props"
)

func TestMergeToModelBakesPlacements(t *testing.T) {
	m := New()
	require.NoError(t, m.Metadata.Add(Metadata{Name: "Title", Value: "assembly"}))
	colors, err := m.AddColorGroup("", 0)
	require.NoError(t, err)
	colors.Add(color.RGBA{A: 255})
	blue := colors.Add(color.RGBA{B: 255, A: 255})

	part := addTetra(t, m)
	part.Name = "leg"
	require.NoError(t, part.SetFaceProperty(2, props.Color, props.Uniform(uint32(colors.ID()), blue)))

	asm, err := m.AddComponentsObject("", 0)
	require.NoError(t, err)
	require.NoError(t, asm.AddComponent(Component{Object: part.ID(), Transform: math.TranslateTransform(10, 0, 0)}))
	require.NoError(t, asm.AddComponent(Component{Object: part.ID(), Transform: math.TranslateTransform(0, 20, 0)}))
	item, err := m.AddBuildItem(asm.ID(), math.TranslateTransform(0, 0, 5))
	require.NoError(t, err)
	item.PartNumber = "A-1"

	merged, err := m.MergeToModel()
	require.NoError(t, err)

	var meshes []*MeshObject
	var groups []*ColorGroup
	for _, r := range merged.Resources() {
		switch v := r.(type) {
		case *MeshObject:
			meshes = append(meshes, v)
		case *ColorGroup:
			groups = append(groups, v)
		}
	}
	require.Len(t, meshes, 2)
	require.Len(t, groups, 1)
	assert.NotSame(t, meshes[0].Mesh(), meshes[1].Mesh())
	assert.NotSame(t, part.Mesh(), meshes[0].Mesh())

	v, _ := meshes[0].Mesh().Vertex(1)
	assert.Equal(t, math.Vec3{X: 11, Z: 5}, v)
	v, _ = meshes[1].Mesh().Vertex(2)
	assert.Equal(t, math.Vec3{Y: 21, Z: 5}, v)
	assert.Equal(t, "leg", meshes[1].Name)

	// source untouched
	v, _ = part.Mesh().Vertex(1)
	assert.Equal(t, math.Vec3{X: 1}, v)

	kind, data, ok := meshes[0].Mesh().Properties().FaceProperties(2)
	require.True(t, ok)
	assert.Equal(t, props.Color, kind)
	assert.Equal(t, uint32(groups[0].ID()), data.ResourceID)
	assert.Equal(t, blue, data.PropertyIDs[0])
	c, err := groups[0].Get(blue)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.B)

	require.Len(t, merged.BuildItems(), 2)
	for _, bi := range merged.BuildItems() {
		assert.True(t, bi.Transform.IsIdentity())
		assert.Equal(t, "A-1", bi.PartNumber)
	}
	md, ok := merged.Metadata.Get("Title")
	require.True(t, ok)
	assert.Equal(t, "assembly", md.Value)
}

func TestMergeToModelScalesLattice(t *testing.T) {
	m := New()
	o := addTetra(t, m)
	_, err := o.Mesh().AddBeam(mesh.Beam{Nodes: [2]uint32{0, 1}, Radius: [2]float64{0.5, 0.5}})
	require.NoError(t, err)
	_, err = o.Mesh().AddBall(mesh.Ball{Node: 2, Radius: 0.75})
	require.NoError(t, err)
	l := o.BeamLattice()
	l.MinLength = 0.1
	l.DefaultRadius = 0.5
	l.BallMode = BallMixed
	l.DefaultBallRadius = 0.75
	_, err = m.AddBuildItem(o.ID(), math.TransformFromMat4(math.Scale(3, 3, 3)))
	require.NoError(t, err)

	merged, err := m.MergeToModel()
	require.NoError(t, err)
	var out *MeshObject
	for _, r := range merged.Resources() {
		if v, ok := r.(*MeshObject); ok {
			out = v
		}
	}
	require.NotNil(t, out)
	beam, err := out.Mesh().Beam(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, beam.Radius[0], 1e-6)
	ball, err := out.Mesh().Ball(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, ball.Radius, 1e-6)
	ml := out.BeamLattice()
	assert.InDelta(t, 0.3, ml.MinLength, 1e-6)
	assert.InDelta(t, 1.5, ml.DefaultRadius, 1e-6)
	assert.InDelta(t, 2.25, ml.DefaultBallRadius, 1e-6)

	// source untouched
	src, _ := o.Mesh().Beam(0)
	assert.Equal(t, 0.5, src.Radius[0])
}

func TestMergeToModelCopiesDependentGroups(t *testing.T) {
	m := New()
	mats, _ := m.AddBaseMaterialGroup("", 0)
	a := mats.Add(BaseMaterial{Name: "a"})
	b := mats.Add(BaseMaterial{Name: "b"})
	comp, err := m.AddCompositeMaterials("", 0, mats.ID(), []uint32{a, b})
	require.NoError(t, err)
	mix, err := comp.Add([]float64{0.3, 0.7})
	require.NoError(t, err)

	_, err = m.AddAttachment("/3D/Textures/t.png", RelTexture, []byte{1})
	require.NoError(t, err)
	tex, _ := m.AddTexture2D("", 0, "/3D/Textures/t.png", "image/png")
	tex.TileStyleU = TileClamp
	uvs, err := m.AddTexture2DGroup("", 0, tex.ID())
	require.NoError(t, err)
	uv := uvs.Add(math.Vec2{X: 0.5, Y: 0.25})

	o := addTetra(t, m)
	require.NoError(t, o.SetFaceProperty(0, props.Passthrough, props.Uniform(uint32(comp.ID()), mix)))
	require.NoError(t, o.SetFaceProperty(1, props.TexCoord, props.FaceData{ResourceID: uint32(uvs.ID()), PropertyIDs: [3]uint32{uv, uv, uv}}))
	_, err = m.AddBuildItem(o.ID(), math.IdentityTransform())
	require.NoError(t, err)

	merged, err := m.MergeToModel()
	require.NoError(t, err)

	counts := make(map[ResourceKind]int)
	for _, r := range merged.Resources() {
		counts[r.Kind()]++
	}
	assert.Equal(t, 1, counts[KindBaseMaterials])
	assert.Equal(t, 1, counts[KindCompositeMaterials])
	assert.Equal(t, 1, counts[KindTexture2D])
	assert.Equal(t, 1, counts[KindTexture2DGroup])
	assert.Equal(t, 1, counts[KindMeshObject])

	for _, r := range merged.Resources() {
		switch v := r.(type) {
		case *CompositeMaterials:
			got, err := v.Get(mix)
			require.NoError(t, err)
			assert.Equal(t, []float64{0.3, 0.7}, got)
			assert.Equal(t, []uint32{a, b}, v.MaterialIDs())
		case *Texture2D:
			assert.Equal(t, TileClamp, v.TileStyleU)
			require.NotNil(t, v.Attachment())
		}
	}
}
