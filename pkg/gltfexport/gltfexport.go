// Package gltfexport converts a model into a glTF 2.0 document for viewers
// that do not read 3MF.
package gltfexport

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/threemf/pkg/model"
)

// DefaultColor is used for faces without color information.
var DefaultColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}

// Export flattens the build of m and emits one glTF mesh and node per
// placed mesh object. Faces are unshared so every face keeps its own flat
// normal and corner colors.
func Export(m *model.Model) (*gltf.Document, error) {
	merged, err := m.MergeToModel()
	if err != nil {
		return nil, fmt.Errorf("flattening build: %w", err)
	}

	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
	})

	for _, r := range merged.Resources() {
		o, ok := r.(*model.MeshObject)
		if !ok || o.Mesh().FaceCount() == 0 {
			continue
		}
		if err := exportMesh(doc, merged, o); err != nil {
			return nil, fmt.Errorf("object %q: %w", o.Name, err)
		}
	}
	return doc, nil
}

func exportMesh(doc *gltf.Document, m *model.Model, o *model.MeshObject) error {
	msh := o.Mesh()
	verts := msh.Vertices()
	faces := msh.Faces()
	h := msh.Properties()

	positions := make([][3]float32, 0, len(faces)*3)
	normals := make([][3]float32, 0, len(faces)*3)
	colors := make([][4]uint8, 0, len(faces)*3)
	indices := make([]uint32, 0, len(faces)*3)

	_, defData, hasDef := h.DefaultProperty()
	for i, f := range faces {
		var corners [3]mgl32.Vec3
		for j, n := range f.Nodes {
			v := verts[n]
			corners[j] = mgl32.Vec3{v.X, v.Y, v.Z}
		}
		normal := corners[1].Sub(corners[0]).Cross(corners[2].Sub(corners[0]))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}

		_, data, ok := h.FaceProperties(i)
		if !ok && hasDef {
			data, ok = defData, true
		}
		var cs [3]color.RGBA
		for j := range cs {
			cs[j] = DefaultColor
			if ok {
				c, err := propertyColor(m, model.UniqueID(data.ResourceID), data.PropertyIDs[j])
				if err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				cs[j] = c
			}
		}

		for j := range corners {
			indices = append(indices, uint32(len(positions)))
			positions = append(positions, corners[j])
			normals = append(normals, normal)
			colors = append(colors, [4]uint8{cs[j].R, cs[j].G, cs[j].B, cs[j].A})
		}
	}

	indicesAccessor := modeler.WriteIndices(doc, indices)
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
		"NORMAL":   modeler.WriteNormal(doc, normals),
		"COLOR_0":  modeler.WriteColor(doc, colors),
	}

	name := o.Name
	if name == "" {
		name = fmt.Sprintf("object_%d", o.PackageID().LocalID)
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indicesAccessor),
			Attributes: attributes,
			Material:   gltf.Index(0),
		}},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
	return nil
}

// propertyColor resolves the display color of one property.
func propertyColor(m *model.Model, group model.UniqueID, pid uint32) (color.RGBA, error) {
	r, err := m.Resource(group)
	if err != nil {
		return DefaultColor, err
	}
	switch g := r.(type) {
	case *model.ColorGroup:
		return g.Get(pid)
	case *model.BaseMaterialGroup:
		b, err := g.Get(pid)
		return b.Color, err
	case *model.CompositeMaterials:
		ratios, err := g.Get(pid)
		if err != nil {
			return DefaultColor, err
		}
		var mix [4]float64
		for i, id := range g.MaterialIDs() {
			c, err := propertyColor(m, g.BaseMaterials(), id)
			if err != nil {
				return DefaultColor, err
			}
			for k, v := range [4]uint8{c.R, c.G, c.B, c.A} {
				mix[k] += ratios[i] * float64(v)
			}
		}
		return color.RGBA{R: clamp(mix[0]), G: clamp(mix[1]), B: clamp(mix[2]), A: clamp(mix[3])}, nil
	case *model.MultiPropertyGroup:
		pids, err := g.Get(pid)
		if err != nil {
			return DefaultColor, err
		}
		out := DefaultColor
		for i, l := range g.Layers() {
			if i >= len(pids) {
				break
			}
			c, err := propertyColor(m, l.Group, pids[i])
			if err != nil {
				return DefaultColor, err
			}
			if i == 0 || l.Blend == model.BlendMix {
				out = c
				continue
			}
			out = color.RGBA{
				R: uint8(uint16(out.R) * uint16(c.R) / 255),
				G: uint8(uint16(out.G) * uint16(c.G) / 255),
				B: uint8(uint16(out.B) * uint16(c.B) / 255),
				A: uint8(uint16(out.A) * uint16(c.A) / 255),
			}
		}
		return out, nil
	}
	// texture coordinates carry no color of their own
	return DefaultColor, nil
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}

// WriteBinary encodes doc as a single GLB stream.
func WriteBinary(w io.Writer, doc *gltf.Document) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}
