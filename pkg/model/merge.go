package model

import (
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
)

type merger struct {
	src, dst *Model
	copied   map[UniqueID]UniqueID
}

// MergeToModel flattens the model: every leaf mesh reached from a build item
// becomes an independent mesh object with its accumulated transform baked
// into the vertices. Property groups referenced by those meshes are copied
// with their property IDs preserved. Attachments are copied; slice stacks,
// volumetric data and lattice clipping meshes are not carried over.
func (m *Model) MergeToModel() (*Model, error) {
	out := New()
	out.Unit = m.Unit
	out.Language = m.Language
	for k, v := range m.CustomContentTypes {
		out.CustomContentTypes[k] = v
	}
	if err := copyMetadata(&out.Metadata, &m.Metadata); err != nil {
		return nil, err
	}
	for _, a := range m.attachments {
		na, err := out.AddAttachment(a.Path, a.RelationshipType, a.Data)
		if err != nil {
			return nil, err
		}
		na.ContentType = a.ContentType
	}
	out.thumbnail = m.thumbnail

	mg := &merger{src: m, dst: out, copied: make(map[UniqueID]UniqueID)}
	for _, item := range m.build {
		if err := mg.place(item, item.Object, item.Transform); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func copyMetadata(dst, src *MetadataGroup) error {
	for _, md := range src.All() {
		var c Metadata
		if err := copier.Copy(&c, &md); err != nil {
			return err
		}
		if err := dst.Add(c); err != nil {
			return err
		}
	}
	return nil
}

func (mg *merger) place(item *BuildItem, id UniqueID, t math.Transform) error {
	obj, err := mg.src.Object(id)
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case *MeshObject:
		return mg.emitMesh(item, o, t)
	case *ComponentsObject:
		for _, c := range o.components {
			if err := mg.place(item, c.Object, t.Mul(c.Transform)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (mg *merger) emitMesh(item *BuildItem, o *MeshObject, t math.Transform) error {
	no, err := mg.dst.AddMeshObject("", 0)
	if err != nil {
		return err
	}
	no.Name = o.Name
	no.PartNumber = o.PartNumber
	no.Type = o.Type
	no.Thumbnail = o.Thumbnail
	if o.UUID != uuid.Nil {
		no.UUID = uuid.New()
	}
	if err := copyMetadata(&no.Metadata, &o.Metadata); err != nil {
		return err
	}

	no.mesh = o.mesh.Clone()
	no.mesh.ApplyTransform(t)

	mapping := make(map[uint32]uint32)
	for _, rid := range no.mesh.Properties().ResourceIDs() {
		nid, err := mg.copyGroup(UniqueID(rid))
		if err != nil {
			return err
		}
		mapping[rid] = uint32(nid)
	}
	no.mesh.Properties().RemapResources(mapping)

	if o.lattice != nil {
		l := no.BeamLattice()
		scale := mesh.RadiusScale(t)
		if scale == 0 {
			scale = 1
		}
		l.MinLength = o.lattice.MinLength * scale
		l.DefaultRadius = o.lattice.DefaultRadius * scale
		l.DefaultCap = o.lattice.DefaultCap
		l.BallMode = o.lattice.BallMode
		l.DefaultBallRadius = o.lattice.DefaultBallRadius * scale
	}

	if no.Type == ObjectOther {
		return nil
	}
	bi, err := mg.dst.AddBuildItem(no.id, math.IdentityTransform())
	if err != nil {
		return err
	}
	bi.PartNumber = item.PartNumber
	return copyMetadata(&bi.Metadata, &item.Metadata)
}

// copyGroup copies a property group and the resources it depends on, once.
func (mg *merger) copyGroup(id UniqueID) (UniqueID, error) {
	if nid, ok := mg.copied[id]; ok {
		return nid, nil
	}
	r, err := mg.src.Resource(id)
	if err != nil {
		return 0, err
	}

	var nr Resource
	switch g := r.(type) {
	case *BaseMaterialGroup:
		ng, err := mg.dst.AddBaseMaterialGroup("", 0)
		if err != nil {
			return 0, err
		}
		if err := copyEntries(&ng.entries, &g.entries); err != nil {
			return 0, err
		}
		nr = ng
	case *ColorGroup:
		ng, err := mg.dst.AddColorGroup("", 0)
		if err != nil {
			return 0, err
		}
		if err := copyEntries(&ng.entries, &g.entries); err != nil {
			return 0, err
		}
		nr = ng
	case *Texture2D:
		nt, err := mg.dst.AddTexture2D("", 0, g.Path, g.ContentType)
		if err != nil {
			return 0, err
		}
		nt.TileStyleU, nt.TileStyleV, nt.Filter = g.TileStyleU, g.TileStyleV, g.Filter
		nr = nt
	case *Texture2DGroup:
		tex, err := mg.copyGroup(g.texture)
		if err != nil {
			return 0, err
		}
		ng, err := mg.dst.AddTexture2DGroup("", 0, tex)
		if err != nil {
			return 0, err
		}
		if err := copyEntries(&ng.entries, &g.entries); err != nil {
			return 0, err
		}
		nr = ng
	case *CompositeMaterials:
		bm, err := mg.copyGroup(g.baseMaterials)
		if err != nil {
			return 0, err
		}
		ng, err := mg.dst.AddCompositeMaterials("", 0, bm, g.materialIDs)
		if err != nil {
			return 0, err
		}
		if err := copyEntries(&ng.entries, &g.entries); err != nil {
			return 0, err
		}
		nr = ng
	case *MultiPropertyGroup:
		layers := make([]MultiLayer, len(g.layers))
		for i, l := range g.layers {
			nid, err := mg.copyGroup(l.Group)
			if err != nil {
				return 0, err
			}
			layers[i] = MultiLayer{Group: nid, Blend: l.Blend}
		}
		ng, err := mg.dst.AddMultiPropertyGroup("", 0)
		if err != nil {
			return 0, err
		}
		for _, l := range layers {
			if err := ng.AddLayer(l); err != nil {
				return 0, err
			}
		}
		if err := copyEntries(&ng.entries, &g.entries); err != nil {
			return 0, err
		}
		nr = ng
	default:
		return 0, diag.New(diag.ErrResourceKindMismatch, "cannot merge %s", r.Kind())
	}
	mg.copied[id] = nr.ID()
	return nr.ID(), nil
}

// copyEntries deep-copies a property table keeping every property ID.
func copyEntries[T any](dst, src *entries[T]) error {
	for _, id := range src.ids {
		var v T
		if err := copier.CopyWithOption(&v, src.vals[id], copier.Option{DeepCopy: true}); err != nil {
			return err
		}
		if err := dst.addWithID(id, v); err != nil {
			return err
		}
	}
	if src.next > dst.next {
		dst.next = src.next
	}
	return nil
}
