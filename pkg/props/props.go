// Package props implements the per-face property information channels that
// travel alongside a mesh: base materials, colors, texture coordinates and
// pass-through references to composite or multi-property groups.
//
// A channel stores one FaceData record per face plus one mesh-wide default.
// Records name a property group by its package-wide unique resource ID and
// up to three property IDs local to that group, one per triangle corner.
package props

import (
	"fmt"

	"github.com/Faultbox/threemf/pkg/diag"
)

// Kind identifies the channel type. The kind value doubles as the channel
// index inside a Handler.
type Kind int

// Channel kinds.
const (
	BaseMaterial Kind = iota // one base material per face
	Color                    // one color per face
	NodeColor                // color gradient, one color per corner
	TexCoord                 // texture coordinate per corner
	Passthrough              // composite and multi-property references

	kindCount
)

// Kinds lists every built-in kind in channel index order.
var Kinds = []Kind{BaseMaterial, Color, NodeColor, TexCoord, Passthrough}

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case BaseMaterial:
		return "BaseMaterial"
	case Color:
		return "Color"
	case NodeColor:
		return "NodeColor"
	case TexCoord:
		return "TexCoord"
	case Passthrough:
		return "Passthrough"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// SingleValued reports whether the kind stores one property per face rather
// than one per corner.
func (k Kind) SingleValued() bool {
	return k == BaseMaterial || k == Color
}

// FaceData is the fixed-size record stored per face.
type FaceData struct {
	ResourceID  uint32    // unique ID of the property group, 0 = no data
	PropertyIDs [3]uint32 // property IDs inside the group, one per corner
}

// Uniform returns a record using the same property for all three corners.
func Uniform(resourceID, propertyID uint32) FaceData {
	return FaceData{ResourceID: resourceID, PropertyIDs: [3]uint32{propertyID, propertyID, propertyID}}
}

// HasData reports whether the record references a property group.
func (d FaceData) HasData() bool {
	return d.ResourceID != 0
}

// IsUniform reports whether all three corners use the same property.
func (d FaceData) IsUniform() bool {
	return d.PropertyIDs[0] == d.PropertyIDs[1] && d.PropertyIDs[1] == d.PropertyIDs[2]
}

// Permuted returns the record with its corners reordered so that corner i
// takes the value previously at corner perm[i].
func (d FaceData) Permuted(perm [3]int) FaceData {
	out := d
	for i := 0; i < 3; i++ {
		out.PropertyIDs[i] = d.PropertyIDs[perm[i]]
	}
	return out
}

// ValidPermutation reports whether perm is a permutation of {0,1,2}.
func ValidPermutation(perm [3]int) bool {
	var seen [3]bool
	for _, p := range perm {
		if p < 0 || p > 2 || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// Channel is one typed side array parallel to a mesh's face array.
// Third-party channel types may implement it; Handler accepts any Channel.
type Channel interface {
	Kind() Kind
	FaceCount() int

	FaceHasData(face int) bool
	FaceData(face int) (FaceData, error)
	SetFaceData(face int, data FaceData) error
	InvalidateFace(face int) error

	DefaultData() FaceData
	SetDefaultData(data FaceData) error

	// CloneInstance returns a deep copy resized to faceCount.
	CloneInstance(faceCount int) Channel
	// CloneDefaultInfosFrom copies other's default record.
	CloneDefaultInfosFrom(other Channel) error
	// CloneFaceInfosFrom copies one face record from other.
	CloneFaceInfosFrom(face int, other Channel, otherFace int) error
	// PermuteNodeInformation reorders a face record's corners.
	PermuteNodeInformation(face int, perm [3]int) error
	// MergeInformationFrom appends other's face records.
	MergeInformationFrom(other Channel) error
	// Resize grows or shrinks the face array; new slots carry no data.
	Resize(faceCount int)
	// RemapResources rewrites resource IDs through mapping. Records whose
	// resource is absent from mapping are invalidated.
	RemapResources(mapping map[uint32]uint32)
}

// New creates an empty built-in channel of the given kind.
func New(kind Kind, faceCount int) Channel {
	c := &channel{kind: kind}
	c.Resize(faceCount)
	return c
}

type channel struct {
	kind  Kind
	faces []FaceData
	def   FaceData
}

func (c *channel) Kind() Kind { return c.kind }
func (c *channel) FaceCount() int { return len(c.faces) }

func (c *channel) checkFace(face int) error {
	if face < 0 || face >= len(c.faces) {
		return diag.New(diag.ErrInvalidIndex, "%s channel face %d of %d", c.kind, face, len(c.faces))
	}
	return nil
}

func (c *channel) checkData(data FaceData) error {
	if c.kind.SingleValued() && data.HasData() && !data.IsUniform() {
		return diag.New(diag.ErrInvalidArgument, "%s channel holds one property per face, got %v", c.kind, data.PropertyIDs)
	}
	return nil
}

func (c *channel) FaceHasData(face int) bool {
	if face < 0 || face >= len(c.faces) {
		return false
	}
	return c.faces[face].HasData()
}

func (c *channel) FaceData(face int) (FaceData, error) {
	if err := c.checkFace(face); err != nil {
		return FaceData{}, err
	}
	return c.faces[face], nil
}

func (c *channel) SetFaceData(face int, data FaceData) error {
	if err := c.checkFace(face); err != nil {
		return err
	}
	if err := c.checkData(data); err != nil {
		return err
	}
	if !data.HasData() {
		data = FaceData{}
	}
	c.faces[face] = data
	return nil
}

func (c *channel) InvalidateFace(face int) error {
	if err := c.checkFace(face); err != nil {
		return err
	}
	c.faces[face] = FaceData{}
	return nil
}

func (c *channel) DefaultData() FaceData { return c.def }

func (c *channel) SetDefaultData(data FaceData) error {
	if err := c.checkData(data); err != nil {
		return err
	}
	c.def = data
	return nil
}

func (c *channel) CloneInstance(faceCount int) Channel {
	clone := &channel{kind: c.kind, def: c.def}
	clone.faces = make([]FaceData, faceCount)
	copy(clone.faces, c.faces)
	return clone
}

func (c *channel) sameKind(other Channel) error {
	if other == nil || other.Kind() != c.kind {
		return diag.New(diag.ErrInvalidArgument, "cannot combine %s channel with a different kind", c.kind)
	}
	return nil
}

func (c *channel) CloneDefaultInfosFrom(other Channel) error {
	if err := c.sameKind(other); err != nil {
		return err
	}
	c.def = other.DefaultData()
	return nil
}

func (c *channel) CloneFaceInfosFrom(face int, other Channel, otherFace int) error {
	if err := c.sameKind(other); err != nil {
		return err
	}
	data, err := other.FaceData(otherFace)
	if err != nil {
		return err
	}
	return c.SetFaceData(face, data)
}

func (c *channel) PermuteNodeInformation(face int, perm [3]int) error {
	if err := c.checkFace(face); err != nil {
		return err
	}
	if !ValidPermutation(perm) {
		return diag.New(diag.ErrInvalidArgument, "invalid permutation %v", perm)
	}
	c.faces[face] = c.faces[face].Permuted(perm)
	return nil
}

func (c *channel) MergeInformationFrom(other Channel) error {
	if err := c.sameKind(other); err != nil {
		return err
	}
	n := other.FaceCount()
	for i := 0; i < n; i++ {
		data, err := other.FaceData(i)
		if err != nil {
			return err
		}
		c.faces = append(c.faces, data)
	}
	return nil
}

func (c *channel) Resize(faceCount int) {
	if faceCount < 0 {
		faceCount = 0
	}
	if faceCount <= len(c.faces) {
		c.faces = c.faces[:faceCount]
		return
	}
	// append zero records so grown slots are explicitly invalid
	c.faces = append(c.faces, make([]FaceData, faceCount-len(c.faces))...)
}

func (c *channel) RemapResources(mapping map[uint32]uint32) {
	remap := func(d FaceData) FaceData {
		if !d.HasData() {
			return d
		}
		id, ok := mapping[d.ResourceID]
		if !ok {
			return FaceData{}
		}
		d.ResourceID = id
		return d
	}
	for i := range c.faces {
		c.faces[i] = remap(c.faces[i])
	}
	c.def = remap(c.def)
}
