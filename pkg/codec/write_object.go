package codec

import (
	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/props"
)

// writeObjectStart opens <object> with the attributes shared by mesh and
// components objects.
func (mw *modelWriter) writeObjectStart(local uint32, info *model.ObjectInfo) {
	x := mw.x
	x.open("object")
	x.attrUint("id", local)
	x.attr("type", info.Type.String())
	x.attrIf("name", info.Name)
	x.attrIf("partnumber", info.PartNumber)
	x.attrIf("thumbnail", info.Thumbnail)
}

func (mw *modelWriter) writeObjectUUID(info *model.ObjectInfo) {
	if info.UUID != uuid.Nil {
		mw.x.attr("p:UUID", info.UUID.String())
	}
}

// objectDefault returns the record written as the object's pid and pindex.
// Without an explicit default the first face stands in, but only when every
// face carries data: a bare triangle would otherwise read back with it.
func objectDefault(h *props.Handler, faces int) (props.FaceData, bool) {
	if _, d, ok := h.DefaultProperty(); ok {
		return d, true
	}
	if faces == 0 {
		return props.FaceData{}, false
	}
	for i := 0; i < faces; i++ {
		if _, d, ok := h.FaceProperties(i); !ok || !d.HasData() {
			return props.FaceData{}, false
		}
	}
	_, d, _ := h.FaceProperties(0)
	return props.Uniform(d.ResourceID, d.PropertyIDs[0]), true
}

func (mw *modelWriter) writeMeshObject(o *model.MeshObject) error {
	x := mw.x
	msh := o.Mesh()
	info := o.Info()
	h := msh.Properties()

	def, hasDef := objectDefault(h, msh.FaceCount())
	mw.writeObjectStart(o.PackageID().LocalID, info)
	if hasDef {
		group := model.UniqueID(def.ResourceID)
		pid, err := mw.ref(group)
		if err != nil {
			return err
		}
		idx, err := mw.w.indices.Index(group, def.PropertyIDs[0])
		if err != nil {
			return err
		}
		x.attrUint("pid", pid)
		x.attrUint("pindex", idx)
	}
	mw.writeObjectUUID(info)
	if o.SliceStack() != 0 {
		id, err := mw.ref(o.SliceStack())
		if err != nil {
			return err
		}
		x.attrUint("s:slicestackid", id)
		if o.MeshResolution == model.LowResolution {
			x.attr("s:meshresolution", o.MeshResolution.String())
		}
	}
	x.closeOpen()
	mw.writeMetadataGroup(&info.Metadata)

	x.raw("<mesh>\n")
	if err := mw.writeVertices(msh); err != nil {
		return err
	}
	if err := mw.writeTriangles(msh, def, hasDef); err != nil {
		return err
	}
	if msh.BeamCount() > 0 || msh.BallCount() > 0 {
		if err := mw.writeBeamLattice(o); err != nil {
			return err
		}
	}
	if !o.VolumeData().IsEmpty() {
		if err := mw.writeVolumeData(o.VolumeData()); err != nil {
			return err
		}
	}
	x.end("mesh")
	x.end("object")
	return x.err
}

func (mw *modelWriter) writeVertices(msh *mesh.Mesh) error {
	x := mw.x
	x.raw("<vertices>\n")
	for _, v := range msh.Vertices() {
		if err := mw.w.progress.tick(StageWriteVertices); err != nil {
			return err
		}
		x.open("vertex")
		x.attrFloat32("x", v.X)
		x.attrFloat32("y", v.Y)
		x.attrFloat32("z", v.Z)
		x.closeEmpty()
	}
	x.end("vertices")
	return x.err
}

// writeTriangles emits each face in the shortest form that reads back to
// the same properties: bare when it matches the object default, p1 alone
// when all corners agree, p1 to p3 otherwise. pid is omitted when the
// face uses the default's group.
func (mw *modelWriter) writeTriangles(msh *mesh.Mesh, def props.FaceData, hasDef bool) error {
	x := mw.x
	h := msh.Properties()
	groupLocal := make(map[uint32]uint32)

	x.raw("<triangles>\n")
	for i, f := range msh.Faces() {
		if err := mw.w.progress.tick(StageWriteTriangles); err != nil {
			return err
		}
		x.open("triangle")
		x.attrUint("v1", f.Nodes[0])
		x.attrUint("v2", f.Nodes[1])
		x.attrUint("v3", f.Nodes[2])

		kind, data, ok := h.FaceProperties(i)
		if ok && data.HasData() && !(hasDef && data.IsUniform() && data.ResourceID == def.ResourceID && data.PropertyIDs[0] == def.PropertyIDs[0]) {
			if !hasDef || data.ResourceID != def.ResourceID {
				local, seen := groupLocal[data.ResourceID]
				if !seen {
					var err error
					if local, err = mw.ref(model.UniqueID(data.ResourceID)); err != nil {
						return err
					}
					groupLocal[data.ResourceID] = local
				}
				x.attrUint("pid", local)
			}
			corners := 3
			if kind.SingleValued() || data.IsUniform() {
				corners = 1
			}
			for c := 0; c < corners; c++ {
				idx, err := mw.w.indices.Index(model.UniqueID(data.ResourceID), data.PropertyIDs[c])
				if err != nil {
					return err
				}
				x.attrUint(cornerAttr[c], idx)
			}
		}
		x.closeEmpty()
	}
	x.end("triangles")
	return x.err
}

var cornerAttr = [3]string{"p1", "p2", "p3"}

// writeBeamLattice omits per-beam values that read back to the lattice
// defaults. Radii are compared in their printed form so the omission
// survives rounding.
func (mw *modelWriter) writeBeamLattice(o *model.MeshObject) error {
	x := mw.x
	msh := o.Mesh()
	l := o.BeamLattice()

	x.open("b:beamlattice")
	x.attrFloat("minlength", l.MinLength)
	x.attrFloat("radius", l.DefaultRadius)
	if l.DefaultCap != mesh.CapSphere {
		x.attr("cap", l.DefaultCap.String())
	}
	if l.ClipMode != model.ClipNone {
		x.attr("clippingmode", l.ClipMode.String())
	}
	if l.ClippingMesh() != 0 {
		id, err := mw.ref(l.ClippingMesh())
		if err != nil {
			return err
		}
		x.attrUint("clippingmesh", id)
	}
	if l.RepresentationMesh() != 0 {
		id, err := mw.ref(l.RepresentationMesh())
		if err != nil {
			return err
		}
		x.attrUint("representationmesh", id)
	}
	if l.BallMode != model.BallNone {
		x.attr("b2:ballmode", l.BallMode.String())
	}
	if l.BallMode != model.BallNone || l.DefaultBallRadius != 0 {
		x.attrFloat("b2:ballradius", l.DefaultBallRadius)
	}
	x.closeOpen()

	format := func(v float64) string { return formatFloat(v, x.prec, 64) }
	defRadius := format(l.DefaultRadius)

	x.raw("<b:beams>\n")
	for _, b := range msh.Beams() {
		if err := mw.w.progress.tick(StageWriteBeams); err != nil {
			return err
		}
		x.open("b:beam")
		x.attrUint("v1", b.Nodes[0])
		x.attrUint("v2", b.Nodes[1])
		r1, r2 := format(b.Radius[0]), format(b.Radius[1])
		if r1 != defRadius {
			x.attr("r1", r1)
		}
		if r2 != r1 {
			x.attr("r2", r2)
		}
		if b.Cap[0] != l.DefaultCap {
			x.attr("cap1", b.Cap[0].String())
		}
		if b.Cap[1] != l.DefaultCap {
			x.attr("cap2", b.Cap[1].String())
		}
		x.closeEmpty()
	}
	x.end("b:beams")

	if msh.BallCount() > 0 {
		defBall := format(l.DefaultBallRadius)
		x.raw("<b2:balls>\n")
		for _, b := range msh.Balls() {
			x.open("b2:ball")
			x.attrUint("vindex", b.Node)
			if r := format(b.Radius); r != defBall {
				x.attr("r", r)
			}
			x.closeEmpty()
		}
		x.end("b2:balls")
	}

	if sets := msh.BeamSets(); len(sets) > 0 {
		x.raw("<b:beamsets>\n")
		for _, s := range sets {
			x.open("b:beamset")
			x.attrIf("name", s.Name)
			x.attrIf("identifier", s.Identifier)
			if len(s.Refs) == 0 && len(s.BallRefs) == 0 {
				x.closeEmpty()
				continue
			}
			x.closeOpen()
			for _, r := range s.Refs {
				x.open("b:ref")
				x.attrUint("index", r)
				x.closeEmpty()
			}
			for _, r := range s.BallRefs {
				x.open("b2:ballref")
				x.attrUint("index", r)
				x.closeEmpty()
			}
			x.end("b:beamset")
		}
		x.end("b:beamsets")
	}
	x.end("b:beamlattice")
	return x.err
}

func (mw *modelWriter) writeVolumeRef(name string, r *model.VolumeReference) error {
	id, err := mw.ref(r.Stack)
	if err != nil {
		return err
	}
	x := mw.x
	x.open(name)
	x.attrUint("volumetricstackid", id)
	x.attr("channel", r.Channel)
	mw.writeTransform(r.Transform)
	return nil
}

func (mw *modelWriter) writeVolumeData(v *model.VolumeData) error {
	x := mw.x
	x.raw("<v:volumedata>\n")
	if l := v.Levelset; l != nil {
		if err := mw.writeVolumeRef("v:levelset", &l.VolumeReference); err != nil {
			return err
		}
		x.attrFloat("solidthreshold", l.SolidThreshold)
		x.attrFloat("minfeaturesize", l.MinFeatureSize)
		x.closeEmpty()
	}
	refs := []struct {
		name string
		ref  *model.VolumeReference
	}{
		{"v:boundary", v.Boundary},
		{"v:composite", v.Composite},
		{"v:color", v.Color},
	}
	for _, r := range refs {
		if r.ref == nil {
			continue
		}
		if err := mw.writeVolumeRef(r.name, r.ref); err != nil {
			return err
		}
		x.closeEmpty()
	}
	for i := range v.Properties {
		p := &v.Properties[i]
		if err := mw.writeVolumeRef("v:property", &p.VolumeReference); err != nil {
			return err
		}
		x.attr("name", p.Name)
		if p.Required {
			x.attr("required", "1")
		}
		x.closeEmpty()
	}
	x.end("v:volumedata")
	return x.err
}

func (mw *modelWriter) writeComponentsObject(o *model.ComponentsObject) error {
	x := mw.x
	info := o.Info()
	mw.writeObjectStart(o.PackageID().LocalID, info)
	mw.writeObjectUUID(info)
	x.closeOpen()
	mw.writeMetadataGroup(&info.Metadata)

	x.raw("<components>\n")
	for _, c := range o.Components() {
		id, path, err := mw.pathRef(c.Object)
		if err != nil {
			return err
		}
		x.open("component")
		x.attrUint("objectid", id)
		x.attrIf("p:path", path)
		mw.writeTransform(c.Transform)
		if c.UUID != uuid.Nil {
			x.attr("p:UUID", c.UUID.String())
		}
		x.closeEmpty()
	}
	x.end("components")
	x.end("object")
	return x.err
}
