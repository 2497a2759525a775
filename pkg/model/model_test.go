package model

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/props"
)

func addTetra(t *testing.T, m *Model) *MeshObject {
	t.Helper()
	o, err := m.AddMeshObject("", 0)
	require.NoError(t, err)
	for _, v := range []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		_, err := o.Mesh().AddVertex(v)
		require.NoError(t, err)
	}
	for _, f := range [][3]uint32{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}} {
		_, err := o.Mesh().AddFace(f[0], f[1], f[2])
		require.NoError(t, err)
	}
	return o
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.FindOrCreate("", 5)
	b := r.FindOrCreate("/3D/other.model", 5)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, r.FindOrCreate(RootPath, 5))

	_, ok := r.Find("", 6)
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())

	pid, ok := r.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, PackageResourceID{Path: "/3D/other.model", LocalID: 5}, pid)
	assert.Equal(t, uint32(6), r.GenerateLocalID(""))
	assert.Equal(t, uint32(1), r.GenerateLocalID("/3D/empty.model"))
}

func TestParseLocalID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"1", 1, false},
		{"2147483647", MaxLocalID, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"2147483648", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocalID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, diag.ErrInvalidResourceID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindPackageResourceIDAllocates(t *testing.T) {
	m := New()
	id, err := m.Registry().FindPackageResourceID("", "7")
	require.NoError(t, err)

	o, err := m.AddMeshObject("", 7)
	require.NoError(t, err)
	assert.Equal(t, id, o.ID())

	_, err = m.AddColorGroup("", 7)
	assert.ErrorIs(t, err, diag.ErrDuplicateResourceID)
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	m := New()
	a, err := m.AddBaseMaterialGroup("", 0)
	require.NoError(t, err)
	b, err := m.AddColorGroup("", 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a.PackageID().LocalID)
	assert.Equal(t, uint32(2), b.PackageID().LocalID)
	assert.True(t, m.CompareObjectsByResourceID(a, b))
	assert.False(t, m.CompareObjectsByResourceID(b, a))
	assert.False(t, m.CompareObjectsByResourceID(a, a))
}

func TestRemovedIDNotReused(t *testing.T) {
	m := New()
	o, err := m.AddMeshObject("", 5)
	require.NoError(t, err)
	removed := o.ID()
	require.NoError(t, m.RemoveResource(removed))

	_, ok := m.Registry().Find("", 5)
	assert.False(t, ok)
	pid, ok := m.Registry().Lookup(removed)
	require.True(t, ok)
	assert.Equal(t, uint32(5), pid.LocalID)

	g, err := m.AddBaseMaterialGroup("", 5)
	require.NoError(t, err)
	assert.NotEqual(t, removed, g.ID())
	assert.Equal(t, uint32(5), g.PackageID().LocalID)

	_, err = m.Resource(removed)
	assert.ErrorIs(t, err, diag.ErrResourceNotFound)
	got, err := m.FindResource("", 5)
	require.NoError(t, err)
	assert.Equal(t, g.ID(), got.ID())
}

func TestRemoveResourceObjectsOnly(t *testing.T) {
	m := New()
	colors, err := m.AddColorGroup("", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, m.RemoveResource(colors.ID()), diag.ErrInvalidArgument)
	_, err = m.Resource(colors.ID())
	assert.NoError(t, err)

	part := addTetra(t, m)
	asm, err := m.AddComponentsObject("", 0)
	require.NoError(t, err)
	require.NoError(t, asm.AddComponent(Component{Object: part.ID(), Transform: math.IdentityTransform()}))
	assert.ErrorIs(t, m.RemoveResource(part.ID()), diag.ErrInvalidArgument)
	require.NoError(t, m.RemoveResource(asm.ID()))
	require.NoError(t, m.RemoveResource(part.ID()))
	assert.Len(t, m.Resources(), 1)
}

func TestComponentCycleRejected(t *testing.T) {
	m := New()
	mesh := addTetra(t, m)
	b, err := m.AddComponentsObject("", 0)
	require.NoError(t, err)
	require.NoError(t, b.AddComponent(Component{Object: mesh.ID()}))
	a, err := m.AddComponentsObject("", 0)
	require.NoError(t, err)
	require.NoError(t, a.AddComponent(Component{Object: b.ID()}))

	err = b.AddComponent(Component{Object: a.ID()})
	assert.ErrorIs(t, err, diag.ErrCircularReference)
	assert.Equal(t, 1, b.ComponentCount())

	assert.ErrorIs(t, a.AddComponent(Component{Object: a.ID()}), diag.ErrCircularReference)
	assert.Equal(t, math.IdentityTransform(), b.Components()[0].Transform)
}

func TestComponentPartRules(t *testing.T) {
	m := New()
	rootMesh := addTetra(t, m)
	deep, err := m.AddMeshObject("/3D/deep.model", 1)
	require.NoError(t, err)

	rootAsm, err := m.AddComponentsObject("", 0)
	require.NoError(t, err)
	require.NoError(t, rootAsm.AddComponent(Component{Object: deep.ID()}))

	deepAsm, err := m.AddComponentsObject("/3D/deep.model", 2)
	require.NoError(t, err)
	assert.ErrorIs(t, deepAsm.AddComponent(Component{Object: rootMesh.ID()}), diag.ErrReferenceTooDeep)
	require.NoError(t, deepAsm.AddComponent(Component{Object: deep.ID()}))

	later := addTetra(t, m)
	assert.ErrorIs(t, rootAsm.AddComponent(Component{Object: later.ID()}), diag.ErrForwardReference)

	_, err = m.AddMultiPropertyGroup("", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, rootAsm.AddComponent(Component{Object: 999}), diag.ErrResourceNotFound)

	assert.Equal(t, []string{RootPath, "/3D/deep.model"}, m.Parts())
	assert.Len(t, m.ResourcesInPart("/3D/deep.model"), 2)
}

func TestClippingMeshOrder(t *testing.T) {
	m := New()
	earlier := addTetra(t, m)
	lattice := addTetra(t, m)
	later := addTetra(t, m)

	l := lattice.BeamLattice()
	assert.ErrorIs(t, l.SetClippingMesh(later.ID()), diag.ErrInvalidArgument)
	assert.ErrorIs(t, l.SetRepresentationMesh(later.ID()), diag.ErrInvalidArgument)
	assert.ErrorIs(t, l.SetClippingMesh(lattice.ID()), diag.ErrInvalidArgument)
	assert.Equal(t, UniqueID(0), l.ClippingMesh())

	require.NoError(t, l.SetClippingMesh(earlier.ID()))
	require.NoError(t, l.SetRepresentationMesh(earlier.ID()))
	assert.Equal(t, earlier.ID(), l.ClippingMesh())
	assert.Contains(t, lattice.References(), earlier.ID())

	g, err := m.AddColorGroup("", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, l.SetClippingMesh(g.ID()), diag.ErrResourceKindMismatch)
}

func TestSliceStackOrdering(t *testing.T) {
	m := New()
	s, err := m.AddSliceStack("", 0, 0)
	require.NoError(t, err)
	for _, z := range []float64{0, 1, 1, 2} {
		_, err := s.AddSlice(z)
		require.NoError(t, err, "z=%v", z)
	}
	assert.Len(t, s.Slices(), 4)

	s2, err := m.AddSliceStack("", 0, 0)
	require.NoError(t, err)
	_, err = s2.AddSlice(0)
	require.NoError(t, err)
	_, err = s2.AddSlice(1)
	require.NoError(t, err)
	_, err = s2.AddSlice(0.5)
	assert.ErrorIs(t, err, diag.ErrSlicesZNotIncreasing)
	assert.Len(t, s2.Slices(), 2)

	s3, err := m.AddSliceStack("", 0, 5)
	require.NoError(t, err)
	_, err = s3.AddSlice(4)
	assert.ErrorIs(t, err, diag.ErrSlicesZNotIncreasing)
}

func TestSliceRefs(t *testing.T) {
	m := New()
	a, _ := m.AddSliceStack("/3D/slices.model", 1, 0)
	_, err := a.AddSlice(1)
	require.NoError(t, err)
	b, _ := m.AddSliceStack("/3D/slices.model", 2, 1)
	_, err = b.AddSlice(2)
	require.NoError(t, err)

	refs, _ := m.AddSliceStack("", 0, 0)
	require.NoError(t, refs.AddSliceRef(a.ID()))
	require.NoError(t, refs.AddSliceRef(b.ID()))
	assert.ErrorIs(t, refs.AddSliceRef(a.ID()), diag.ErrSlicesZNotIncreasing)
	_, err = refs.AddSlice(3)
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)
	assert.ErrorIs(t, a.AddSliceRef(b.ID()), diag.ErrInvalidArgument)
}

func TestPolygonValidity(t *testing.T) {
	s := &Slice{}
	for i := 0; i < 3; i++ {
		s.AddVertex(math.Vec2{X: float32(i)})
	}
	tests := []struct {
		poly []uint32
		want bool
	}{
		{[]uint32{}, false},
		{[]uint32{0}, false},
		{[]uint32{0, 0}, false},
		{[]uint32{0, 1}, true},
		{[]uint32{0, 1, 2}, true},
		{[]uint32{0, 1, 2, 0}, true},
	}
	for _, tt := range tests {
		i, err := s.AddPolygon(tt.poly)
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.IsPolygonValid(i), "%v", tt.poly)
	}
	_, err := s.AddPolygon([]uint32{0, 9})
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)
	assert.False(t, s.IsPolygonValid(99))
}

func TestSliceAreaAndBounds(t *testing.T) {
	s := &Slice{}
	for _, v := range []math.Vec2{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 2}, {X: 0, Y: 2}} {
		s.AddVertex(v)
	}
	closed, err := s.AddPolygon([]uint32{0, 1, 2, 3, 0})
	require.NoError(t, err)
	reversed, err := s.AddPolygon([]uint32{0, 3, 2, 1})
	require.NoError(t, err)

	a, err := s.PolygonArea(closed)
	require.NoError(t, err)
	assert.Equal(t, float32(6), a)
	a, err = s.PolygonArea(reversed)
	require.NoError(t, err)
	assert.Equal(t, float32(-6), a)
	_, err = s.PolygonArea(5)
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)

	lo, hi, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, math.Vec2{}, lo)
	assert.Equal(t, math.Vec2{X: 3, Y: 2}, hi)
	_, _, ok = (&Slice{}).Bounds()
	assert.False(t, ok)
}

func TestPropertyIDsNeverReused(t *testing.T) {
	m := New()
	g, err := m.AddBaseMaterialGroup("", 0)
	require.NoError(t, err)
	a := g.Add(BaseMaterial{Name: "red", Color: color.RGBA{R: 255, A: 255}})
	b := g.Add(BaseMaterial{Name: "blue", Color: color.RGBA{B: 255, A: 255}})
	require.NoError(t, g.Remove(b))
	c := g.Add(BaseMaterial{Name: "green", Color: color.RGBA{G: 255, A: 255}})

	assert.Equal(t, []uint32{1, 3}, []uint32{a, c})
	assert.Equal(t, []uint32{1, 3}, g.PropertyIDs())
	_, err = g.Get(b)
	assert.ErrorIs(t, err, diag.ErrInvalidPropertyIndex)
}

func TestFacePropertyValidation(t *testing.T) {
	m := New()
	colors, err := m.AddColorGroup("", 0)
	require.NoError(t, err)
	red := colors.Add(color.RGBA{R: 255, A: 255})
	o := addTetra(t, m)

	require.NoError(t, o.SetFaceProperty(0, props.Color, props.Uniform(uint32(colors.ID()), red)))
	assert.ErrorIs(t, o.SetFaceProperty(1, props.BaseMaterial, props.Uniform(uint32(colors.ID()), red)), diag.ErrResourceKindMismatch)
	assert.ErrorIs(t, o.SetFaceProperty(1, props.Color, props.Uniform(uint32(colors.ID()), 42)), diag.ErrInvalidPropertyIndex)
	assert.ErrorIs(t, o.SetDefaultProperty(props.Color, props.Uniform(999, 1)), diag.ErrResourceNotFound)

	require.NoError(t, o.SetDefaultProperty(props.Color, props.Uniform(uint32(colors.ID()), red)))
	kind, data, ok := o.DefaultProperty()
	require.True(t, ok)
	assert.Equal(t, props.Color, kind)
	assert.Equal(t, uint32(colors.ID()), data.ResourceID)

	assert.ErrorIs(t, m.RemoveResource(colors.ID()), diag.ErrInvalidArgument)
}

func TestMultiPropertyLayers(t *testing.T) {
	m := New()
	mats, _ := m.AddBaseMaterialGroup("", 0)
	steel := mats.Add(BaseMaterial{Name: "steel"})
	c1, _ := m.AddColorGroup("", 0)
	red := c1.Add(color.RGBA{R: 255, A: 255})
	c2, _ := m.AddColorGroup("", 0)
	comp, err := m.AddCompositeMaterials("", 0, mats.ID(), []uint32{steel})
	require.NoError(t, err)

	multi, err := m.AddMultiPropertyGroup("", 0)
	require.NoError(t, err)
	require.NoError(t, multi.AddLayer(MultiLayer{Group: mats.ID()}))
	require.NoError(t, multi.AddLayer(MultiLayer{Group: c1.ID(), Blend: BlendMultiply}))
	assert.ErrorIs(t, multi.AddLayer(MultiLayer{Group: c2.ID()}), diag.ErrInvalidArgument)
	assert.ErrorIs(t, multi.AddLayer(MultiLayer{Group: comp.ID()}), diag.ErrInvalidArgument)

	pid, err := multi.Add([]uint32{steel, red})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), pid)
	_, err = multi.Add([]uint32{steel})
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)
	_, err = multi.Add([]uint32{steel, 77})
	assert.ErrorIs(t, err, diag.ErrInvalidPropertyIndex)

	assert.ErrorIs(t, multi.AddLayer(MultiLayer{Group: c2.ID()}), diag.ErrInvalidArgument)

	nested, _ := m.AddMultiPropertyGroup("", 0)
	assert.ErrorIs(t, nested.AddLayer(MultiLayer{Group: multi.ID()}), diag.ErrResourceKindMismatch)
}

func TestCompositeValidation(t *testing.T) {
	m := New()
	mats, _ := m.AddBaseMaterialGroup("", 0)
	a := mats.Add(BaseMaterial{Name: "a"})
	b := mats.Add(BaseMaterial{Name: "b"})

	_, err := m.AddCompositeMaterials("", 0, mats.ID(), []uint32{a, 9})
	assert.ErrorIs(t, err, diag.ErrInvalidPropertyIndex)

	comp, err := m.AddCompositeMaterials("", 0, mats.ID(), []uint32{a, b})
	require.NoError(t, err)
	_, err = comp.Add([]float64{0.5})
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)
	id, err := comp.Add([]float64{0.25, 0.75})
	require.NoError(t, err)
	got, _ := comp.Get(id)
	assert.Equal(t, []float64{0.25, 0.75}, got)
}

func TestVolumetric(t *testing.T) {
	m := New()
	fn, err := m.AddVolumetricFunction("", 0)
	require.NoError(t, err)
	require.NoError(t, fn.AddOutput("distance"))
	assert.Error(t, fn.AddOutput("distance"))

	stack, err := m.AddVolumetricStack("", 0)
	require.NoError(t, err)
	bg := 1.5
	require.NoError(t, stack.AddDstChannel("shape", &bg))
	require.NoError(t, stack.AddLayer(VolumeLayer{Function: fn.ID(), Channel: "distance", DstChannel: "shape"}))
	assert.ErrorIs(t, stack.AddLayer(VolumeLayer{Function: fn.ID(), Channel: "nope", DstChannel: "shape"}), diag.ErrInvalidArgument)
	assert.ErrorIs(t, stack.AddLayer(VolumeLayer{Function: fn.ID(), Channel: "distance", DstChannel: "nope"}), diag.ErrInvalidArgument)

	o := addTetra(t, m)
	err = o.SetLevelset(Levelset{VolumeReference: VolumeReference{Stack: stack.ID()}})
	assert.ErrorIs(t, err, diag.ErrMissingVolumeDataAttribute)

	require.NoError(t, o.SetLevelset(Levelset{
		VolumeReference: VolumeReference{Stack: stack.ID(), Channel: "shape"},
		SolidThreshold:  0.5,
	}))
	assert.Equal(t, math.IdentityTransform(), o.VolumeData().Levelset.Transform)
	require.NoError(t, o.AddVolumeProperty(VolumeProperty{
		VolumeReference: VolumeReference{Stack: stack.ID(), Channel: "shape"},
		Name:            "density",
		Required:        true,
	}))
	assert.Error(t, o.AddVolumeProperty(VolumeProperty{
		VolumeReference: VolumeReference{Stack: stack.ID(), Channel: "shape"},
		Name:            "density",
	}))
	assert.False(t, o.VolumeData().IsEmpty())
	assert.Contains(t, o.References(), stack.ID())

	o.ClearVolumeData()
	assert.True(t, o.VolumeData().IsEmpty())
}

func TestMetadataGroup(t *testing.T) {
	var g MetadataGroup
	require.NoError(t, g.Add(Metadata{Name: "Title", Value: "part"}))
	require.NoError(t, g.Add(Metadata{Namespace: "http://example.com/x", Name: "Title", Value: "other"}))
	assert.ErrorIs(t, g.Add(Metadata{Name: "Title"}), diag.ErrDuplicateMetadata)
	assert.ErrorIs(t, g.Add(Metadata{}), diag.ErrInvalidArgument)

	md, ok := g.Get("Title")
	require.True(t, ok)
	assert.Equal(t, "part", md.Value)
	assert.True(t, g.Remove("Title"))
	assert.False(t, g.Remove("Title"))
	assert.Equal(t, 1, g.Len())
}

func TestBuildItems(t *testing.T) {
	m := New()
	o := addTetra(t, m)
	item, err := m.AddBuildItem(o.ID(), math.Transform{})
	require.NoError(t, err)
	assert.True(t, item.Transform.IsIdentity())

	assert.ErrorIs(t, m.RemoveResource(o.ID()), diag.ErrInvalidArgument)
	require.NoError(t, m.RemoveBuildItem(item))
	assert.Error(t, m.RemoveBuildItem(item))
	require.NoError(t, m.RemoveResource(o.ID()))
	_, err = m.Resource(o.ID())
	assert.ErrorIs(t, err, diag.ErrResourceNotFound)

	other := addTetra(t, m)
	other.Type = ObjectOther
	_, err = m.AddBuildItem(other.ID(), math.IdentityTransform())
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)

	// IDs of removed resources are not handed out again.
	next := addTetra(t, m)
	assert.NotEqual(t, o.ID(), next.ID())
}

func TestAttachments(t *testing.T) {
	m := New()
	require.NoError(t, m.SetThumbnail([]byte{1, 2, 3}, "image/png"))
	th := m.Thumbnail()
	require.NotNil(t, th)
	assert.Equal(t, ThumbnailPath, th.Path)
	assert.Equal(t, RelThumbnail, th.RelationshipType)

	_, err := m.AddAttachment("3D/Textures/wood.png", RelTexture, []byte{9})
	require.NoError(t, err)
	tex, err := m.AddTexture2D("", 0, "/3D/Textures/wood.png", "image/png")
	require.NoError(t, err)
	require.NotNil(t, tex.Attachment())
	assert.Equal(t, "image/png", tex.Attachment().ContentType)

	_, err = m.AddAttachment("/3D/textures/WOOD.png", RelTexture, nil)
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)
	assert.ErrorIs(t, m.RemoveAttachment("/3D/Textures/wood.png"), diag.ErrInvalidArgument)

	require.NoError(t, m.SetThumbnail(nil, ""))
	assert.Nil(t, m.Thumbnail())
	assert.Len(t, m.Attachments(), 1)
}
