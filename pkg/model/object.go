package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/props"
)

// ObjectType is the printing role of an object.
type ObjectType uint8

// Object types.
const (
	ObjectModel ObjectType = iota
	ObjectSupport
	ObjectSolidSupport
	ObjectSurface
	ObjectOther
)

func (t ObjectType) String() string {
	switch t {
	case ObjectModel:
		return "model"
	case ObjectSupport:
		return "support"
	case ObjectSolidSupport:
		return "solidsupport"
	case ObjectSurface:
		return "surface"
	case ObjectOther:
		return "other"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ParseObjectType converts a wire object type.
func ParseObjectType(s string) (ObjectType, bool) {
	for t := ObjectModel; t <= ObjectOther; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// MeshResolution tells which mesh a sliced object's slices were made from.
type MeshResolution uint8

// Mesh resolutions.
const (
	FullResolution MeshResolution = iota
	LowResolution
)

func (r MeshResolution) String() string {
	if r == LowResolution {
		return "lowres"
	}
	return "fullres"
}

// ObjectInfo holds the attributes shared by mesh and components objects.
type ObjectInfo struct {
	Name       string
	PartNumber string
	Type       ObjectType
	Thumbnail  string
	UUID       uuid.UUID
	Metadata   MetadataGroup
}

// Object is a resource that can be placed by build items and components.
type Object interface {
	Resource
	Info() *ObjectInfo
}

// MeshObject is an object defined by a triangle mesh, a beam lattice or
// both, plus optional slice and volumetric data.
type MeshObject struct {
	base
	ObjectInfo
	MeshResolution MeshResolution

	mesh       *mesh.Mesh
	lattice    *BeamLattice
	volume     VolumeData
	sliceStack UniqueID
}

func (o *MeshObject) Kind() ResourceKind { return KindMeshObject }

// Info returns the shared object attributes.
func (o *MeshObject) Info() *ObjectInfo { return &o.ObjectInfo }

// Mesh returns the geometry store.
func (o *MeshObject) Mesh() *mesh.Mesh { return o.mesh }

// References lists property groups used by faces and defaults, lattice
// meshes, the slice stack and volumetric stacks.
func (o *MeshObject) References() []UniqueID {
	var out []UniqueID
	for _, id := range o.mesh.Properties().ResourceIDs() {
		out = append(out, UniqueID(id))
	}
	if o.lattice != nil {
		if o.lattice.clipping != 0 {
			out = append(out, o.lattice.clipping)
		}
		if o.lattice.representation != 0 {
			out = append(out, o.lattice.representation)
		}
	}
	if o.sliceStack != 0 {
		out = append(out, o.sliceStack)
	}
	out = append(out, o.volume.stacks()...)
	return out
}

// DefaultProperty returns the object-level property, if any.
func (o *MeshObject) DefaultProperty() (props.Kind, props.FaceData, bool) {
	return o.mesh.Properties().DefaultProperty()
}

// SetDefaultProperty sets the object-level property. The group must exist
// and hold the referenced property.
func (o *MeshObject) SetDefaultProperty(kind props.Kind, data props.FaceData) error {
	if err := o.model.checkFaceData(kind, data); err != nil {
		return err
	}
	return o.mesh.Properties().SetDefaultProperty(kind, data)
}

// SetFaceProperty assigns properties to one triangle after validating the
// group reference.
func (o *MeshObject) SetFaceProperty(face int, kind props.Kind, data props.FaceData) error {
	if err := o.model.checkFaceData(kind, data); err != nil {
		return err
	}
	return o.mesh.Properties().SetFaceProperties(face, kind, data)
}

// BeamLattice returns the lattice attributes, creating them on first use.
func (o *MeshObject) BeamLattice() *BeamLattice {
	if o.lattice == nil {
		o.lattice = newBeamLattice(o)
	}
	return o.lattice
}

// HasBeamLattice reports whether the mesh carries beams.
func (o *MeshObject) HasBeamLattice() bool {
	return o.mesh.BeamCount() > 0
}

// SliceStack returns the referenced slice stack, or 0.
func (o *MeshObject) SliceStack() UniqueID { return o.sliceStack }

// SetSliceStack links a slice stack defined before the object. Zero clears.
func (o *MeshObject) SetSliceStack(id UniqueID) error {
	if id == 0 {
		o.sliceStack = 0
		return nil
	}
	s, err := As[*SliceStack](o.model, id)
	if err != nil {
		return err
	}
	if !s.definedBefore(&o.base) {
		return diag.New(diag.ErrForwardReference, "object %d slice stack %d", o.pid.LocalID, s.pid.LocalID)
	}
	o.sliceStack = id
	return nil
}

// IsValid reports whether the object can be written: a model or solid
// support mesh must be manifold and oriented unless it is a pure lattice.
func (o *MeshObject) IsValid() bool {
	switch o.Type {
	case ObjectModel, ObjectSolidSupport:
		if o.mesh.FaceCount() == 0 {
			return o.mesh.BeamCount() > 0
		}
		return o.mesh.IsManifoldAndOriented()
	default:
		return true
	}
}

// Component places an object inside a components object.
type Component struct {
	Object    UniqueID
	Transform math.Transform
	UUID      uuid.UUID
}

// ComponentsObject is an assembly of placed objects.
type ComponentsObject struct {
	base
	ObjectInfo
	components []Component
}

func (o *ComponentsObject) Kind() ResourceKind { return KindComponentsObject }

// Info returns the shared object attributes.
func (o *ComponentsObject) Info() *ObjectInfo { return &o.ObjectInfo }

func (o *ComponentsObject) References() []UniqueID {
	out := make([]UniqueID, len(o.components))
	for i, c := range o.components {
		out[i] = c.Object
	}
	return out
}

// Components returns the placements in order.
func (o *ComponentsObject) Components() []Component { return o.components }

// ComponentCount returns the number of placements.
func (o *ComponentsObject) ComponentCount() int { return len(o.components) }

// AddComponent appends a placement. The target must exist, must not contain
// o, must be defined before o, and may live in another part only when o is
// in the root part. Nothing is changed on failure.
func (o *ComponentsObject) AddComponent(c Component) error {
	target, err := o.model.Object(c.Object)
	if err != nil {
		return err
	}
	if c.Object == o.id || o.model.contains(c.Object, o.id) {
		return diag.New(diag.ErrCircularReference, "object %d in %d", o.pid.LocalID, target.PackageID().LocalID)
	}
	tp := target.PackageID().Path
	if tp != o.pid.Path && o.pid.Path != RootPath {
		return diag.New(diag.ErrReferenceTooDeep, "%s references %s", o.pid.Path, tp)
	}
	if !target.core().definedBefore(&o.base) {
		return diag.New(diag.ErrForwardReference, "component object %d", target.PackageID().LocalID)
	}
	if c.Transform == (math.Transform{}) {
		c.Transform = math.IdentityTransform()
	}
	o.components = append(o.components, c)
	return nil
}

// RemoveComponent deletes placement i.
func (o *ComponentsObject) RemoveComponent(i int) error {
	if i < 0 || i >= len(o.components) {
		return diag.New(diag.ErrInvalidIndex, "component %d of %d", i, len(o.components))
	}
	o.components = append(o.components[:i], o.components[i+1:]...)
	return nil
}
