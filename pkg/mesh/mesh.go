// Package mesh provides the vertex/triangle store of a mesh object together
// with its beam lattice arrays. It knows nothing about packages or resources;
// per-face property data lives in the attached props.Handler.
package mesh

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/props"
)

// MaxIndex is the largest vertex, face, beam or ball count a mesh accepts.
const MaxIndex = stdmath.MaxInt32

// Face is a triangle given by three distinct vertex indices.
type Face struct {
	Nodes [3]uint32
}

// CapMode is the shape of a beam end.
type CapMode uint8

// Beam cap modes.
const (
	CapSphere CapMode = iota
	CapHemisphere
	CapButt
)

// String returns the XML name of the cap mode.
func (c CapMode) String() string {
	switch c {
	case CapSphere:
		return "sphere"
	case CapHemisphere:
		return "hemisphere"
	case CapButt:
		return "butt"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// ParseCapMode converts an XML cap name.
func ParseCapMode(s string) (CapMode, bool) {
	switch s {
	case "sphere":
		return CapSphere, true
	case "hemisphere":
		return CapHemisphere, true
	case "butt":
		return CapButt, true
	}
	return 0, false
}

// Beam is a cylinder or cone between two vertices.
type Beam struct {
	Nodes  [2]uint32
	Radius [2]float64
	Cap    [2]CapMode
}

// Ball is a sphere centered on a vertex.
type Ball struct {
	Node   uint32
	Radius float64
}

// BeamSet names a subset of beams and balls.
type BeamSet struct {
	Name       string
	Identifier string
	Refs       []uint32 // beam indices
	BallRefs   []uint32 // ball indices
}

// Mesh owns the geometry of one mesh object.
type Mesh struct {
	vertices []math.Vec3
	faces    []Face
	beams    []Beam
	balls    []Ball
	beamSets []*BeamSet
	info     *props.Handler
}

// New creates an empty mesh.
func New() *Mesh {
	return &Mesh{info: props.NewHandler(0)}
}

// Properties returns the property channels attached to the faces.
func (m *Mesh) Properties() *props.Handler {
	return m.info
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.vertices) }

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int { return len(m.faces) }

// BeamCount returns the number of beams.
func (m *Mesh) BeamCount() int { return len(m.beams) }

// BallCount returns the number of balls.
func (m *Mesh) BallCount() int { return len(m.balls) }

// BeamSetCount returns the number of beam sets.
func (m *Mesh) BeamSetCount() int { return len(m.beamSets) }

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v math.Vec3) (uint32, error) {
	if len(m.vertices) >= MaxIndex {
		return 0, diag.New(diag.ErrInvalidIndex, "too many vertices")
	}
	if !v.IsFinite() {
		return 0, diag.New(diag.ErrInvalidArgument, "vertex %v is not finite", v)
	}
	m.vertices = append(m.vertices, v)
	return uint32(len(m.vertices) - 1), nil
}

// Vertex returns the vertex at index i.
func (m *Mesh) Vertex(i uint32) (math.Vec3, error) {
	if int64(i) >= int64(len(m.vertices)) {
		return math.Vec3{}, diag.New(diag.ErrInvalidIndex, "vertex %d of %d", i, len(m.vertices))
	}
	return m.vertices[i], nil
}

// SetVertex replaces the vertex at index i.
func (m *Mesh) SetVertex(i uint32, v math.Vec3) error {
	if int64(i) >= int64(len(m.vertices)) {
		return diag.New(diag.ErrInvalidIndex, "vertex %d of %d", i, len(m.vertices))
	}
	if !v.IsFinite() {
		return diag.New(diag.ErrInvalidArgument, "vertex %v is not finite", v)
	}
	m.vertices[i] = v
	return nil
}

// Vertices returns the vertex array. The slice is owned by the mesh.
func (m *Mesh) Vertices() []math.Vec3 {
	return m.vertices
}

func (m *Mesh) checkFace(nodes [3]uint32) error {
	n := uint32(len(m.vertices))
	for _, v := range nodes {
		if v >= n {
			return diag.New(diag.ErrInvalidIndex, "face vertex %d of %d", v, n)
		}
	}
	if nodes[0] == nodes[1] || nodes[1] == nodes[2] || nodes[0] == nodes[2] {
		return diag.New(diag.ErrInvalidIndex, "degenerate face %v", nodes)
	}
	return nil
}

// AddFace appends a triangle and returns its index. The property channels
// grow with an empty slot for the new face.
func (m *Mesh) AddFace(v0, v1, v2 uint32) (uint32, error) {
	nodes := [3]uint32{v0, v1, v2}
	if err := m.checkFace(nodes); err != nil {
		return 0, err
	}
	if len(m.faces) >= MaxIndex {
		return 0, diag.New(diag.ErrInvalidIndex, "too many faces")
	}
	m.faces = append(m.faces, Face{Nodes: nodes})
	m.info.AddFaces(1)
	return uint32(len(m.faces) - 1), nil
}

// Face returns the triangle at index i.
func (m *Mesh) Face(i uint32) (Face, error) {
	if int64(i) >= int64(len(m.faces)) {
		return Face{}, diag.New(diag.ErrInvalidIndex, "face %d of %d", i, len(m.faces))
	}
	return m.faces[i], nil
}

// SetFace replaces the vertex indices of triangle i.
func (m *Mesh) SetFace(i uint32, v0, v1, v2 uint32) error {
	if int64(i) >= int64(len(m.faces)) {
		return diag.New(diag.ErrInvalidIndex, "face %d of %d", i, len(m.faces))
	}
	nodes := [3]uint32{v0, v1, v2}
	if err := m.checkFace(nodes); err != nil {
		return err
	}
	m.faces[i].Nodes = nodes
	return nil
}

// Faces returns the face array. The slice is owned by the mesh.
func (m *Mesh) Faces() []Face {
	return m.faces
}

// SetGeometry atomically replaces vertices and faces. Nothing is changed when
// validation fails. Face property records are reset.
func (m *Mesh) SetGeometry(vertices []math.Vec3, faces []Face) error {
	if len(vertices) > MaxIndex || len(faces) > MaxIndex {
		return diag.New(diag.ErrInvalidIndex, "geometry too large")
	}
	for i, v := range vertices {
		if !v.IsFinite() {
			return diag.New(diag.ErrInvalidArgument, "vertex %d is not finite", i)
		}
	}
	n := uint32(len(vertices))
	for i, f := range faces {
		for _, v := range f.Nodes {
			if v >= n {
				return diag.New(diag.ErrInvalidIndex, "face %d vertex %d of %d", i, v, n)
			}
		}
		if f.Nodes[0] == f.Nodes[1] || f.Nodes[1] == f.Nodes[2] || f.Nodes[0] == f.Nodes[2] {
			return diag.New(diag.ErrInvalidIndex, "degenerate face %d %v", i, f.Nodes)
		}
	}
	for _, b := range m.beams {
		if b.Nodes[0] >= n || b.Nodes[1] >= n {
			return diag.New(diag.ErrInvalidIndex, "beam vertex out of range for new geometry")
		}
	}
	for _, b := range m.balls {
		if b.Node >= n {
			return diag.New(diag.ErrInvalidIndex, "ball vertex out of range for new geometry")
		}
	}

	m.vertices = append([]math.Vec3(nil), vertices...)
	m.faces = append([]Face(nil), faces...)
	m.info.ResetFaces(len(m.faces))
	return nil
}

// PermuteFace reorders the corners of face i so that corner k takes the
// vertex previously at corner perm[k]. Property records move with their
// vertices.
func (m *Mesh) PermuteFace(i uint32, perm [3]int) error {
	if int64(i) >= int64(len(m.faces)) {
		return diag.New(diag.ErrInvalidIndex, "face %d of %d", i, len(m.faces))
	}
	if !props.ValidPermutation(perm) {
		return diag.New(diag.ErrInvalidArgument, "invalid permutation %v", perm)
	}
	if err := m.info.PermuteFace(int(i), perm); err != nil {
		return err
	}
	old := m.faces[i].Nodes
	for k := 0; k < 3; k++ {
		m.faces[i].Nodes[k] = old[perm[k]]
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the vertices.
// ok is false for an empty mesh.
func (m *Mesh) Bounds() (lo, hi math.Vec3, ok bool) {
	if len(m.vertices) == 0 {
		return math.Vec3{}, math.Vec3{}, false
	}
	lo, hi = m.vertices[0], m.vertices[0]
	for _, v := range m.vertices[1:] {
		lo = lo.Min(v)
		hi = hi.Max(v)
	}
	return lo, hi, true
}

// Clone returns a deep copy including beams and property channels.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		vertices: append([]math.Vec3(nil), m.vertices...),
		faces:    append([]Face(nil), m.faces...),
		beams:    append([]Beam(nil), m.beams...),
		balls:    append([]Ball(nil), m.balls...),
		info:     m.info.Clone(len(m.faces)),
	}
	for _, s := range m.beamSets {
		out.beamSets = append(out.beamSets, &BeamSet{
			Name:       s.Name,
			Identifier: s.Identifier,
			Refs:       append([]uint32(nil), s.Refs...),
			BallRefs:   append([]uint32(nil), s.BallRefs...),
		})
	}
	return out
}

// RadiusScale returns the factor t applies to beam and ball radii: the
// cube root of its volume scale.
func RadiusScale(t math.Transform) float64 {
	return stdmath.Cbrt(stdmath.Abs(float64(t.Determinant())))
}

// ApplyTransform moves every vertex through t and scales beam and ball radii
// by RadiusScale. A mirroring transform also flips the winding of every face
// so outward normals stay outward.
func (m *Mesh) ApplyTransform(t math.Transform) {
	if t.IsIdentity() {
		return
	}
	for i, v := range m.vertices {
		m.vertices[i] = t.Apply(v)
	}
	if s := RadiusScale(t); s > 0 && s != 1 {
		for i := range m.beams {
			m.beams[i].Radius[0] *= s
			m.beams[i].Radius[1] *= s
		}
		for i := range m.balls {
			m.balls[i].Radius *= s
		}
	}
	if t.Determinant() < 0 {
		for i := range m.faces {
			_ = m.PermuteFace(uint32(i), [3]int{0, 2, 1})
		}
	}
}

// Merge appends other's geometry after transforming it by t. Faces, beams,
// balls and property records are re-indexed; beam sets are copied with
// shifted references.
func (m *Mesh) Merge(other *Mesh, t math.Transform) error {
	if len(m.vertices)+len(other.vertices) > MaxIndex || len(m.faces)+len(other.faces) > MaxIndex {
		return diag.New(diag.ErrInvalidIndex, "merged mesh too large")
	}
	src := other
	if !t.IsIdentity() {
		src = other.Clone()
		src.ApplyTransform(t)
	}

	vOff := uint32(len(m.vertices))
	beamOff := uint32(len(m.beams))
	ballOff := uint32(len(m.balls))

	m.vertices = append(m.vertices, src.vertices...)
	for _, f := range src.faces {
		m.faces = append(m.faces, Face{Nodes: [3]uint32{f.Nodes[0] + vOff, f.Nodes[1] + vOff, f.Nodes[2] + vOff}})
	}
	for _, b := range src.beams {
		b.Nodes[0] += vOff
		b.Nodes[1] += vOff
		m.beams = append(m.beams, b)
	}
	for _, b := range src.balls {
		b.Node += vOff
		m.balls = append(m.balls, b)
	}
	for _, s := range src.beamSets {
		ns := &BeamSet{Name: s.Name, Identifier: s.Identifier}
		for _, r := range s.Refs {
			ns.Refs = append(ns.Refs, r+beamOff)
		}
		for _, r := range s.BallRefs {
			ns.BallRefs = append(ns.BallRefs, r+ballOff)
		}
		m.beamSets = append(m.beamSets, ns)
	}
	return m.info.MergeFrom(src.info)
}
