package opc

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/diag"
)

func buildPackage(t *testing.T, modelType string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	pw, err := w.CreatePart("3D/3dmodel.model", modelType)
	require.NoError(t, err)
	_, err = io.WriteString(pw, "<model/>")
	require.NoError(t, err)

	tw, err := w.CreatePart("/3D/Textures/wood.png", ContentTypeTexture)
	require.NoError(t, err)
	_, err = tw.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	_, err = w.AddRelationship("", "/3D/3dmodel.model", RelModel)
	require.NoError(t, err)
	_, err = w.AddRelationship("/3D/3dmodel.model", "/3D/Textures/wood.png", RelTexture)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	data := buildPackage(t, ContentTypeModel)

	p, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer p.Close()

	root, err := p.RootModelPart()
	require.NoError(t, err)
	assert.Equal(t, "/3D/3dmodel.model", root)

	assert.True(t, p.Contains("/3d/TEXTURES/wood.png"))
	assert.Equal(t, ContentTypeTexture, p.ContentType("/3D/Textures/wood.png"))
	assert.Equal(t, ContentTypeModel, p.ContentType(root))

	body, err := p.Read(root)
	require.NoError(t, err)
	assert.Equal(t, "<model/>", string(body))

	rels, err := p.RelationshipsByType(root, RelTexture)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "/3D/Textures/wood.png", rels[0].Target)
	assert.Equal(t, "rel1", rels[0].ID)

	assert.Contains(t, p.Parts(), "/[Content_Types].xml")
	assert.Contains(t, p.Parts(), "/3D/_rels/3dmodel.model.rels")
}

func TestWriterDeterministic(t *testing.T) {
	a := buildPackage(t, ContentTypeModel)
	b := buildPackage(t, ContentTypeModel)
	assert.Equal(t, a, b)
}

func TestWriterRejectsDuplicates(t *testing.T) {
	w := NewWriter(io.Discard)
	_, err := w.CreatePart("/a.png", ContentTypePNG)
	require.NoError(t, err)
	_, err = w.CreatePart("/A.PNG", ContentTypePNG)
	assert.ErrorIs(t, err, diag.ErrInvalidArgument)

	id1, err := w.AddRelationship("", "/a.png", RelThumbnail)
	require.NoError(t, err)
	id2, err := w.AddRelationship("", "/a.png", RelThumbnail)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	require.NoError(t, w.Close())
}

func TestRootContentTypeMismatch(t *testing.T) {
	data := buildPackage(t, "text/xml")
	p, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	_, err = p.RootModelPart()
	assert.ErrorIs(t, err, diag.ErrContentTypeMismatch)
}

func TestMissingModelRelationship(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_, err := w.CreatePart("/3D/3dmodel.model", ContentTypeModel)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	p, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	_, err = p.RootModelPart()
	assert.ErrorIs(t, err, diag.ErrMissingModelPart)
	assert.Equal(t, diag.KindMalformedInput, diag.KindOf(err))
}

func TestTruncatedPackage(t *testing.T) {
	data := buildPackage(t, ContentTypeModel)
	data = data[:len(data)/2]
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, diag.ErrMalformedPackage)
}

func TestNames(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"", "3D/3dmodel.model", "/3D/3dmodel.model"},
		{"/3D/3dmodel.model", "Textures/a.png", "/3D/Textures/a.png"},
		{"/3D/3dmodel.model", "../Metadata/t.png", "/Metadata/t.png"},
		{"/3D/3dmodel.model", "/abs.png", "/abs.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveTarget(tt.source, tt.target))
	}
	assert.Equal(t, "/_rels/.rels", RelsName(""))
	assert.Equal(t, "/3D/_rels/3dmodel.model.rels", RelsName("3D/3dmodel.model"))
}
