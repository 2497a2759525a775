package codec

import (
	"encoding/xml"
	"strings"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/props"
)

// objectNode reads an <object>. The resource is created once its first
// mesh or components child shows which kind it is.
type objectNode struct {
	p *parser

	id         uint32
	hasID      bool
	info       model.ObjectInfo
	resolution model.MeshResolution
	pid        uint32
	hasPID     bool
	pindex     uint32
	hasPIndex  bool
	sliceStack uint32

	object model.Object
}

func (n *objectNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "id"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.id, n.hasID = id, true
	case is(a.Name, "", "type"):
		t, ok := model.ParseObjectType(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "object type %q", a.Value)
		}
		n.info.Type = t
	case is(a.Name, "", "name"):
		n.info.Name = a.Value
	case is(a.Name, "", "partnumber"):
		n.info.PartNumber = a.Value
	case is(a.Name, "", "thumbnail"):
		n.info.Thumbnail = model.NormalizePath(a.Value)
	case is(a.Name, "", "pid"):
		v, err := parseID(a)
		if err != nil {
			return err
		}
		n.pid, n.hasPID = v, true
	case is(a.Name, "", "pindex"):
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.pindex, n.hasPIndex = v, true
	case is(a.Name, NSProduction, "UUID"):
		u, err := parseUUID(a)
		if err != nil {
			return err
		}
		n.info.UUID = u
	case is(a.Name, NSSlice, "slicestackid"):
		v, err := parseID(a)
		if err != nil {
			return err
		}
		n.sliceStack = v
	case is(a.Name, NSSlice, "meshresolution"):
		switch a.Value {
		case "fullres":
			n.resolution = model.FullResolution
		case "lowres":
			n.resolution = model.LowResolution
		default:
			return diag.New(diag.ErrInvalidAttributeValue, "meshresolution %q", a.Value)
		}
	}
	return nil
}

func (n *objectNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSCore, "metadatagroup"):
		return &metadataGroupNode{p: n.p, group: &n.info.Metadata}, nil
	case is(name, NSCore, "mesh"), is(name, NSCore, "components"):
		if !n.hasID {
			return nil, missing("id")
		}
		if n.object != nil {
			return nil, diag.New(diag.ErrInvalidAttributeValue, "object %d has more than one body", n.id)
		}
		if name.Local == "components" {
			return &componentsNode{p: n.p, owner: n}, nil
		}
		o, err := n.createMesh()
		if err != nil {
			return nil, err
		}
		return &meshNode{p: n.p, object: o}, nil
	}
	return n.p.unknown("object", name)
}

func (n *objectNode) createMesh() (*model.MeshObject, error) {
	r := n.p.r
	o, err := r.model.AddMeshObject(n.p.part, n.id)
	if err != nil {
		return nil, err
	}
	n.object = o
	o.MeshResolution = n.resolution

	if n.hasPID {
		if !n.hasPIndex {
			if err := r.sink.Report(missing("pindex")); err != nil {
				return nil, err
			}
		} else {
			g, err := r.model.FindResource(n.p.part, n.pid)
			if err != nil {
				return nil, err
			}
			kind, ok := model.ChannelKindFor(g.Kind())
			if !ok {
				return nil, diag.New(diag.ErrResourceKindMismatch, "object pid %d is %s", n.pid, g.Kind())
			}
			id, err := r.propertyID(g.ID(), n.pindex)
			if err != nil {
				return nil, err
			}
			if err := o.SetDefaultProperty(kind, props.Uniform(uint32(g.ID()), id)); err != nil {
				return nil, err
			}
		}
	}
	if n.sliceStack != 0 {
		s, err := r.model.FindResource(n.p.part, n.sliceStack)
		if err != nil {
			return nil, err
		}
		if err := o.SetSliceStack(s.ID()); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (n *objectNode) end() error {
	if !n.hasID {
		return missing("id")
	}
	if n.object == nil {
		return diag.New(diag.ErrMissingRequiredAttribute, "object %d has neither mesh nor components", n.id)
	}
	*n.object.Info() = n.info
	return nil
}

// meshNode reads a <mesh> body.
type meshNode struct {
	p      *parser
	object *model.MeshObject
}

func (n *meshNode) attr(xml.Attr) error { return nil }

func (n *meshNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSCore, "vertices"):
		return &verticesNode{p: n.p, object: n.object}, nil
	case is(name, NSCore, "triangles"):
		return newTrianglesNode(n.p, n.object), nil
	case is(name, NSBeamLattice, "beamlattice"):
		return newBeamLatticeNode(n.p, n.object), nil
	case is(name, NSVolumetric, "volumedata"):
		return &volumeDataNode{p: n.p, object: n.object}, nil
	}
	return n.p.unknown("mesh", name)
}

func (n *meshNode) end() error { return nil }

// verticesNode reuses one vertex node for every <vertex>.
type verticesNode struct {
	p      *parser
	object *model.MeshObject
	vertex vertexNode
}

func (n *verticesNode) attr(xml.Attr) error { return nil }

func (n *verticesNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "vertex") {
		n.vertex = vertexNode{p: n.p, object: n.object}
		return &n.vertex, nil
	}
	return n.p.unknown("vertices", name)
}

func (n *verticesNode) end() error { return nil }

type vertexNode struct {
	leaf
	p      *parser
	object *model.MeshObject
	v      math.Vec3
	seen   uint8
}

func (n *vertexNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	var dst *float32
	var bit uint8
	switch a.Name.Local {
	case "x":
		dst, bit = &n.v.X, 1
	case "y":
		dst, bit = &n.v.Y, 2
	case "z":
		dst, bit = &n.v.Z, 4
	default:
		return nil
	}
	n.seen |= bit
	v, err := parseFloat32(a)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (n *vertexNode) end() error {
	if n.seen != 7 {
		if err := n.p.r.sink.Report(missing("x", "y", "z")); err != nil {
			return err
		}
	}
	if _, err := n.object.Mesh().AddVertex(n.v); err != nil {
		return err
	}
	return n.p.r.progress.tick(StageReadVertices)
}

// trianglesNode reuses one triangle node for every <triangle>.
type trianglesNode struct {
	p        *parser
	object   *model.MeshObject
	triangle triangleNode

	defKind props.Kind
	defData props.FaceData
	hasDef  bool

	// last group looked up by local ID
	lastLocal uint32
	lastGroup model.Resource
}

func newTrianglesNode(p *parser, o *model.MeshObject) *trianglesNode {
	n := &trianglesNode{p: p, object: o}
	n.defKind, n.defData, n.hasDef = o.DefaultProperty()
	return n
}

func (n *trianglesNode) attr(xml.Attr) error { return nil }

func (n *trianglesNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "triangle") {
		n.triangle = triangleNode{parent: n}
		return &n.triangle, nil
	}
	return n.p.unknown("triangles", name)
}

func (n *trianglesNode) end() error { return nil }

func (n *trianglesNode) group(local uint32) (model.Resource, error) {
	if n.lastGroup != nil && n.lastLocal == local {
		return n.lastGroup, nil
	}
	g, err := n.p.r.model.FindResource(n.p.part, local)
	if err != nil {
		return nil, err
	}
	n.lastLocal, n.lastGroup = local, g
	return g, nil
}

type triangleNode struct {
	leaf
	parent *trianglesNode

	v      [3]uint32
	seen   uint8
	pid    uint32
	hasPID bool
	pidx   [3]uint32
	hasIdx [3]bool
}

func (n *triangleNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "v1", "v2", "v3":
		i := a.Name.Local[1] - '1'
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.v[i] = v
		n.seen |= 1 << i
	case "p1", "p2", "p3":
		i := a.Name.Local[1] - '1'
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.pidx[i], n.hasIdx[i] = v, true
	case "pid":
		v, err := parseID(a)
		if err != nil {
			return err
		}
		n.pid, n.hasPID = v, true
	}
	return nil
}

func (n *triangleNode) end() error {
	t := n.parent
	r := t.p.r
	if n.seen != 7 {
		// A triangle with unknown corners cannot be stored.
		return diag.New(diag.ErrInvalidIndex, "triangle without v1, v2 and v3")
	}
	face, err := t.object.Mesh().AddFace(n.v[0], n.v[1], n.v[2])
	if err != nil {
		return err
	}
	if err := n.properties(int(face)); err != nil {
		return err
	}
	return r.progress.tick(StageReadTriangles)
}

// properties stores the triangle's property attributes, falling back to
// the object default.
func (n *triangleNode) properties(face int) error {
	t := n.parent
	r := t.p.r
	o := t.object

	if !n.hasPID && !n.hasIdx[0] {
		if t.hasDef {
			return o.Mesh().Properties().SetFaceProperties(face, t.defKind, t.defData)
		}
		return nil
	}
	if !n.hasIdx[0] {
		// pid without p1 is only meaningful when it names the default group.
		if !t.hasDef || t.defData.ResourceID != n.groupID() {
			return r.sink.Report(missing("p1"))
		}
		return o.Mesh().Properties().SetFaceProperties(face, t.defKind, t.defData)
	}

	var g model.Resource
	if n.hasPID {
		var err error
		if g, err = t.group(n.pid); err != nil {
			return err
		}
	} else {
		if !t.hasDef {
			return r.sink.Report(missing("pid"))
		}
		var err error
		if g, err = r.model.Resource(model.UniqueID(t.defData.ResourceID)); err != nil {
			return err
		}
	}

	kind, ok := model.ChannelKindFor(g.Kind())
	if !ok {
		return diag.New(diag.ErrResourceKindMismatch, "triangle pid is %s", g.Kind())
	}
	idx := n.pidx
	for i := 1; i < 3; i++ {
		if !n.hasIdx[i] {
			idx[i] = idx[0]
		}
	}
	if kind == props.BaseMaterial {
		idx[1], idx[2] = idx[0], idx[0]
	}
	data := props.FaceData{ResourceID: uint32(g.ID())}
	for i := range idx {
		id, err := r.propertyID(g.ID(), idx[i])
		if err != nil {
			return err
		}
		data.PropertyIDs[i] = id
	}
	if kind == props.Color && !data.IsUniform() {
		kind = props.NodeColor
	}
	return o.SetFaceProperty(face, kind, data)
}

// groupID returns the unique ID of the triangle's pid group, or 0.
func (n *triangleNode) groupID() uint32 {
	g, err := n.parent.group(n.pid)
	if err != nil {
		return 0
	}
	return uint32(g.ID())
}

// componentsNode collects placements. The components object is created
// when the list closes, after any secondary part it names has been read,
// so that every target is defined before it.
type componentsNode struct {
	p       *parser
	owner   *objectNode
	pending []pendingComponent
}

type pendingComponent struct {
	objectID  uint32
	path      string
	transform math.Transform
	uuid      uuid.UUID
}

func (n *componentsNode) attr(xml.Attr) error { return nil }

func (n *componentsNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "component") {
		return &componentNode{parent: n}, nil
	}
	return n.p.unknown("components", name)
}

func (n *componentsNode) end() error {
	r := n.p.r
	targets := make([]model.UniqueID, len(n.pending))
	for i, c := range n.pending {
		samePart := c.path == "" || strings.EqualFold(model.NormalizePath(c.path), n.p.part)
		if !samePart && n.p.part != model.RootPath {
			return diag.New(diag.ErrReferenceTooDeep, "component path %s in %s", c.path, n.p.part)
		}
		res, err := r.resolve(n.p.part, c.path, c.objectID)
		if err != nil {
			return err
		}
		targets[i] = res.ID()
	}
	o, err := r.model.AddComponentsObject(n.p.part, n.owner.id)
	if err != nil {
		return err
	}
	n.owner.object = o
	for i, c := range n.pending {
		err := o.AddComponent(model.Component{Object: targets[i], Transform: c.transform, UUID: c.uuid})
		if err != nil {
			return err
		}
	}
	return nil
}

type componentNode struct {
	leaf
	parent *componentsNode
	c      pendingComponent
	hasID  bool
}

func (n *componentNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "objectid"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.c.objectID, n.hasID = id, true
	case is(a.Name, "", "transform"):
		t, err := parseTransform(a)
		if err != nil {
			return err
		}
		n.c.transform = t
	case is(a.Name, NSProduction, "path"):
		n.c.path = model.NormalizePath(a.Value)
	case is(a.Name, NSProduction, "UUID"):
		u, err := parseUUID(a)
		if err != nil {
			return err
		}
		n.c.uuid = u
	}
	return nil
}

func (n *componentNode) end() error {
	if !n.hasID {
		return missing("objectid")
	}
	n.parent.pending = append(n.parent.pending, n.c)
	return nil
}
