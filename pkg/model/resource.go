// Package model holds the in-memory resource graph of a 3MF package: objects,
// property groups, slice stacks, volumetric data and the build list.
//
// Resources reference each other by UniqueID handles. Every reference is
// validated when it is stored: the target must exist, be of the expected
// kind and, where file order matters, be defined before the referrer.
package model

import (
	"fmt"
	"sort"

	"github.com/Faultbox/threemf/pkg/diag"
)

// ResourceKind is the closed set of top-level resource shapes.
type ResourceKind int

// Resource kinds.
const (
	KindMeshObject ResourceKind = iota
	KindComponentsObject
	KindBaseMaterials
	KindColorGroup
	KindTexture2D
	KindTexture2DGroup
	KindCompositeMaterials
	KindMultiProperties
	KindSliceStack
	KindVolumetricFunction
	KindVolumetricStack
)

func (k ResourceKind) String() string {
	switch k {
	case KindMeshObject:
		return "MeshObject"
	case KindComponentsObject:
		return "ComponentsObject"
	case KindBaseMaterials:
		return "BaseMaterials"
	case KindColorGroup:
		return "ColorGroup"
	case KindTexture2D:
		return "Texture2D"
	case KindTexture2DGroup:
		return "Texture2DGroup"
	case KindCompositeMaterials:
		return "CompositeMaterials"
	case KindMultiProperties:
		return "MultiProperties"
	case KindSliceStack:
		return "SliceStack"
	case KindVolumetricFunction:
		return "VolumetricFunction"
	case KindVolumetricStack:
		return "VolumetricStack"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Resource is implemented only by the resource types of this package.
type Resource interface {
	ID() UniqueID
	PackageID() PackageResourceID
	Kind() ResourceKind
	// References lists the unique IDs this resource points at.
	References() []UniqueID

	core() *base
}

type base struct {
	id    UniqueID
	pid   PackageResourceID
	seq   uint64
	model *Model
}

// ID returns the package-wide unique ID.
func (b *base) ID() UniqueID { return b.id }

// PackageID returns the part path and local ID.
func (b *base) PackageID() PackageResourceID { return b.pid }

func (b *base) core() *base { return b }

// definedBefore reports whether b was added to the model before other.
func (b *base) definedBefore(other *base) bool {
	return b.seq < other.seq
}

// entries is the property table shared by every property group. IDs come
// from a monotonic counter starting at 1 and are never reused.
type entries[T any] struct {
	next uint32
	ids  []uint32
	vals map[uint32]T
}

func (e *entries[T]) add(v T) uint32 {
	if e.vals == nil {
		e.vals = make(map[uint32]T)
	}
	e.next++
	e.ids = append(e.ids, e.next)
	e.vals[e.next] = v
	return e.next
}

// addWithID inserts v under a caller-chosen ID, keeping ids sorted.
func (e *entries[T]) addWithID(id uint32, v T) error {
	if id == 0 {
		return diag.New(diag.ErrInvalidPropertyIndex, "property ID 0")
	}
	if e.vals == nil {
		e.vals = make(map[uint32]T)
	}
	if _, ok := e.vals[id]; ok {
		return diag.New(diag.ErrInvalidPropertyIndex, "property ID %d exists", id)
	}
	e.vals[id] = v
	i := sort.Search(len(e.ids), func(i int) bool { return e.ids[i] > id })
	e.ids = append(e.ids, 0)
	copy(e.ids[i+1:], e.ids[i:])
	e.ids[i] = id
	if id > e.next {
		e.next = id
	}
	return nil
}

func (e *entries[T]) get(id uint32) (T, error) {
	v, ok := e.vals[id]
	if !ok {
		var zero T
		return zero, diag.New(diag.ErrInvalidPropertyIndex, "property ID %d", id)
	}
	return v, nil
}

func (e *entries[T]) set(id uint32, v T) error {
	if _, ok := e.vals[id]; !ok {
		return diag.New(diag.ErrInvalidPropertyIndex, "property ID %d", id)
	}
	e.vals[id] = v
	return nil
}

func (e *entries[T]) remove(id uint32) error {
	if _, ok := e.vals[id]; !ok {
		return diag.New(diag.ErrInvalidPropertyIndex, "property ID %d", id)
	}
	delete(e.vals, id)
	for i, v := range e.ids {
		if v == id {
			e.ids = append(e.ids[:i], e.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (e *entries[T]) has(id uint32) bool {
	_, ok := e.vals[id]
	return ok
}

// PropertyGroup is a resource whose entries can be referenced from faces.
type PropertyGroup interface {
	Resource
	// PropertyIDs returns the live property IDs in wire order.
	PropertyIDs() []uint32
	// HasProperty reports whether id is a live property ID.
	HasProperty(id uint32) bool
}
