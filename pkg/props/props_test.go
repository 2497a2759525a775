package props

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/diag"
)

func TestChannelFaceRange(t *testing.T) {
	c := New(TexCoord, 2)

	_, err := c.FaceData(2)
	assert.ErrorIs(t, err, diag.ErrInvalidIndex)
	assert.ErrorIs(t, c.SetFaceData(-1, Uniform(1, 1)), diag.ErrInvalidIndex)
	assert.False(t, c.FaceHasData(5))
}

func TestChannelSingleValued(t *testing.T) {
	tests := []struct {
		kind    Kind
		data    FaceData
		wantErr bool
	}{
		{BaseMaterial, Uniform(3, 1), false},
		{BaseMaterial, FaceData{ResourceID: 3, PropertyIDs: [3]uint32{1, 2, 1}}, true},
		{Color, FaceData{ResourceID: 3, PropertyIDs: [3]uint32{1, 1, 2}}, true},
		{NodeColor, FaceData{ResourceID: 3, PropertyIDs: [3]uint32{1, 2, 3}}, false},
		{TexCoord, FaceData{ResourceID: 3, PropertyIDs: [3]uint32{4, 5, 6}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c := New(tt.kind, 1)
			err := c.SetFaceData(0, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, diag.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChannelResizeInvalidatesNewSlots(t *testing.T) {
	c := New(NodeColor, 1)
	require.NoError(t, c.SetFaceData(0, FaceData{ResourceID: 7, PropertyIDs: [3]uint32{1, 2, 3}}))

	c.Resize(0)
	c.Resize(3)
	for i := 0; i < 3; i++ {
		assert.False(t, c.FaceHasData(i), "face %d", i)
	}
}

func TestChannelPermute(t *testing.T) {
	c := New(TexCoord, 1)
	require.NoError(t, c.SetFaceData(0, FaceData{ResourceID: 2, PropertyIDs: [3]uint32{10, 20, 30}}))

	require.NoError(t, c.PermuteNodeInformation(0, [3]int{2, 0, 1}))
	got, err := c.FaceData(0)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{30, 10, 20}, got.PropertyIDs)

	assert.ErrorIs(t, c.PermuteNodeInformation(0, [3]int{0, 0, 1}), diag.ErrInvalidArgument)
}

func TestChannelCloneIsDeep(t *testing.T) {
	c := New(Color, 2)
	require.NoError(t, c.SetFaceData(1, Uniform(4, 9)))
	require.NoError(t, c.SetDefaultData(Uniform(4, 1)))

	clone := c.CloneInstance(3)
	require.NoError(t, c.InvalidateFace(1))

	assert.Equal(t, 3, clone.FaceCount())
	assert.True(t, clone.FaceHasData(1))
	assert.False(t, clone.FaceHasData(2))
	assert.Equal(t, Uniform(4, 1), clone.DefaultData())
}

func TestChannelCloneFromOther(t *testing.T) {
	src := New(BaseMaterial, 2)
	require.NoError(t, src.SetFaceData(1, Uniform(5, 2)))
	require.NoError(t, src.SetDefaultData(Uniform(5, 1)))

	dst := New(BaseMaterial, 1)
	require.NoError(t, dst.CloneFaceInfosFrom(0, src, 1))
	require.NoError(t, dst.CloneDefaultInfosFrom(src))

	got, _ := dst.FaceData(0)
	assert.Equal(t, Uniform(5, 2), got)
	assert.Equal(t, Uniform(5, 1), dst.DefaultData())

	assert.ErrorIs(t, dst.CloneDefaultInfosFrom(New(Color, 1)), diag.ErrInvalidArgument)
}

func TestChannelMerge(t *testing.T) {
	a := New(TexCoord, 1)
	b := New(TexCoord, 2)
	require.NoError(t, b.SetFaceData(1, FaceData{ResourceID: 8, PropertyIDs: [3]uint32{1, 2, 3}}))

	require.NoError(t, a.MergeInformationFrom(b))
	assert.Equal(t, 3, a.FaceCount())
	assert.False(t, a.FaceHasData(1))
	assert.True(t, a.FaceHasData(2))
}

func TestChannelRemap(t *testing.T) {
	c := New(BaseMaterial, 2)
	require.NoError(t, c.SetFaceData(0, Uniform(1, 1)))
	require.NoError(t, c.SetFaceData(1, Uniform(2, 1)))

	c.RemapResources(map[uint32]uint32{1: 11})

	d0, _ := c.FaceData(0)
	assert.Equal(t, uint32(11), d0.ResourceID)
	assert.False(t, c.FaceHasData(1))
}

func TestHandlerSingleChannelPerFace(t *testing.T) {
	h := NewHandler(2)
	require.NoError(t, h.SetFaceProperties(0, BaseMaterial, Uniform(1, 1)))
	require.NoError(t, h.SetFaceProperties(0, TexCoord, FaceData{ResourceID: 2, PropertyIDs: [3]uint32{1, 2, 3}}))

	kind, data, ok := h.FaceProperties(0)
	require.True(t, ok)
	assert.Equal(t, TexCoord, kind)
	assert.Equal(t, uint32(2), data.ResourceID)
	assert.False(t, h.Channel(BaseMaterial).FaceHasData(0))

	_, _, ok = h.FaceProperties(1)
	assert.False(t, ok)
	assert.ErrorIs(t, h.SetFaceProperties(2, Color, Uniform(1, 1)), diag.ErrInvalidIndex)
}

func TestHandlerGrowInvalidates(t *testing.T) {
	h := NewHandler(1)
	require.NoError(t, h.SetFaceProperties(0, Color, Uniform(3, 1)))

	h.AddFaces(2)
	assert.Equal(t, 3, h.FaceCount())
	assert.Equal(t, 3, h.Channel(Color).FaceCount())
	_, _, ok := h.FaceProperties(2)
	assert.False(t, ok)
}

func TestHandlerDefaultProperty(t *testing.T) {
	h := NewHandler(0)
	_, _, ok := h.DefaultProperty()
	assert.False(t, ok)

	require.NoError(t, h.SetDefaultProperty(Color, Uniform(4, 2)))
	require.NoError(t, h.SetDefaultProperty(BaseMaterial, Uniform(1, 1)))

	kind, data, ok := h.DefaultProperty()
	require.True(t, ok)
	assert.Equal(t, BaseMaterial, kind)
	assert.Equal(t, Uniform(1, 1), data)
	assert.False(t, h.Channel(Color).DefaultData().HasData())
}

func TestHandlerMergeFrom(t *testing.T) {
	a := NewHandler(2)
	require.NoError(t, a.SetFaceProperties(0, BaseMaterial, Uniform(1, 1)))

	b := NewHandler(1)
	require.NoError(t, b.SetFaceProperties(0, Color, Uniform(2, 5)))

	require.NoError(t, a.MergeFrom(b))
	assert.Equal(t, 3, a.FaceCount())

	kind, data, ok := a.FaceProperties(2)
	require.True(t, ok)
	assert.Equal(t, Color, kind)
	assert.Equal(t, Uniform(2, 5), data)
	assert.Equal(t, 3, a.Channel(BaseMaterial).FaceCount())
	assert.Equal(t, []uint32{1, 2}, a.ResourceIDs())
}

func TestHandlerPermuteFace(t *testing.T) {
	h := NewHandler(1)
	require.NoError(t, h.SetFaceProperties(0, NodeColor, FaceData{ResourceID: 9, PropertyIDs: [3]uint32{1, 2, 3}}))
	require.NoError(t, h.PermuteFace(0, [3]int{1, 2, 0}))

	_, data, _ := h.FaceProperties(0)
	assert.Equal(t, [3]uint32{2, 3, 1}, data.PropertyIDs)
}
