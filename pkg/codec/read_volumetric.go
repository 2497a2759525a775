package codec

import (
	"encoding/xml"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/model"
)

// functionNode reads <v:function> and its outputs.
type functionNode struct {
	p *parser
	groupID
	fn *model.VolumetricFunction
}

func (n *functionNode) attr(a xml.Attr) error {
	_, err := n.parse(a)
	return err
}

func (n *functionNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	fn, err := n.p.r.model.AddVolumetricFunction(n.p.part, n.id)
	if err != nil {
		return err
	}
	n.fn = fn
	return nil
}

func (n *functionNode) child(name xml.Name) (node, error) {
	if n.fn == nil {
		return nil, nil
	}
	if is(name, NSVolumetric, "output") {
		return &nameNode{add: n.fn.AddOutput}, nil
	}
	return n.p.unknown("function", name)
}

func (n *functionNode) end() error { return nil }

// nameNode passes the name attribute of a leaf element to add.
type nameNode struct {
	leaf
	add  func(string) error
	name string
}

func (n *nameNode) attr(a xml.Attr) error {
	if is(a.Name, "", "name") {
		n.name = a.Value
	}
	return nil
}

func (n *nameNode) end() error {
	if n.name == "" {
		return missing("name")
	}
	return n.add(n.name)
}

// volumetricStackNode reads <v:volumetricstack>.
type volumetricStackNode struct {
	p *parser
	groupID
	stack *model.VolumetricStack
}

func (n *volumetricStackNode) attr(a xml.Attr) error {
	_, err := n.parse(a)
	return err
}

func (n *volumetricStackNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	s, err := n.p.r.model.AddVolumetricStack(n.p.part, n.id)
	if err != nil {
		return err
	}
	n.stack = s
	return nil
}

func (n *volumetricStackNode) child(name xml.Name) (node, error) {
	if n.stack == nil {
		return nil, nil
	}
	switch {
	case is(name, NSVolumetric, "dstchannel"):
		return &dstChannelNode{stack: n.stack}, nil
	case is(name, NSVolumetric, "layer"):
		return &volumeLayerNode{p: n.p, stack: n.stack}, nil
	}
	return n.p.unknown("volumetricstack", name)
}

func (n *volumetricStackNode) end() error { return nil }

type dstChannelNode struct {
	leaf
	stack      *model.VolumetricStack
	name       string
	background *float64
}

func (n *dstChannelNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "name"):
		n.name = a.Value
	case is(a.Name, "", "background"):
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.background = &v
	}
	return nil
}

func (n *dstChannelNode) end() error {
	if n.name == "" {
		return missing("name")
	}
	return n.stack.AddDstChannel(n.name, n.background)
}

type volumeLayerNode struct {
	leaf
	p     *parser
	stack *model.VolumetricStack
	fnID  uint32
	layer model.VolumeLayer
}

func (n *volumeLayerNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "functionid":
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.fnID = id
	case "channel":
		n.layer.Channel = a.Value
	case "dstchannel":
		n.layer.DstChannel = a.Value
	case "blendmethod":
		b, ok := model.ParseBlendMethod(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "blendmethod %q", a.Value)
		}
		n.layer.Blend = b
	}
	return nil
}

func (n *volumeLayerNode) end() error {
	if n.fnID == 0 || n.layer.Channel == "" || n.layer.DstChannel == "" {
		return missing("functionid", "channel", "dstchannel")
	}
	fn, err := n.p.r.model.FindResource(n.p.part, n.fnID)
	if err != nil {
		return err
	}
	n.layer.Function = fn.ID()
	return n.stack.AddLayer(n.layer)
}

// volumeDataNode reads <v:volumedata> inside a mesh.
type volumeDataNode struct {
	p      *parser
	object *model.MeshObject
	seen   map[string]bool
}

func (n *volumeDataNode) attr(xml.Attr) error { return nil }

func (n *volumeDataNode) child(name xml.Name) (node, error) {
	if name.Space != NSVolumetric {
		return n.p.unknown("volumedata", name)
	}
	switch name.Local {
	case "levelset", "boundary", "composite", "color":
		if n.seen == nil {
			n.seen = make(map[string]bool)
		}
		if n.seen[name.Local] {
			return nil, diag.New(diag.ErrDuplicateVolumeDataAttribute, "second %s", name.Local)
		}
		n.seen[name.Local] = true
		return &volumeRefNode{p: n.p, object: n.object, kind: name.Local}, nil
	case "property":
		return &volumeRefNode{p: n.p, object: n.object, kind: name.Local}, nil
	}
	return n.p.unknown("volumedata", name)
}

func (n *volumeDataNode) end() error { return nil }

// volumeRefNode reads one volume data element. Every kind names a stack
// and a channel; levelset and property add their own scalars.
type volumeRefNode struct {
	leaf
	p      *parser
	object *model.MeshObject
	kind   string

	stackID  uint32
	ref      model.VolumeReference
	levelset model.Levelset
	property model.VolumeProperty
}

func (n *volumeRefNode) dupCode() *diag.Code { return diag.ErrDuplicateVolumeDataAttribute }

func (n *volumeRefNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "volumetricstackid":
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.stackID = id
	case "channel":
		n.ref.Channel = a.Value
	case "transform":
		t, err := parseTransform(a)
		if err != nil {
			return err
		}
		n.ref.Transform = t
	case "solidthreshold":
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.levelset.SolidThreshold = v
	case "minfeaturesize":
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.levelset.MinFeatureSize = v
	case "name":
		n.property.Name = a.Value
	case "required":
		v, err := parseBool(a)
		if err != nil {
			return err
		}
		n.property.Required = v
	}
	return nil
}

func (n *volumeRefNode) end() error {
	if n.stackID == 0 || n.ref.Channel == "" {
		return diag.New(diag.ErrMissingVolumeDataAttribute, "%s needs volumetricstackid and channel", n.kind)
	}
	if n.kind == "property" && n.property.Name == "" {
		return diag.New(diag.ErrMissingVolumeDataAttribute, "property needs name")
	}
	s, err := n.p.r.model.FindResource(n.p.part, n.stackID)
	if err != nil {
		return err
	}
	n.ref.Stack = s.ID()

	o := n.object
	switch n.kind {
	case "levelset":
		n.levelset.VolumeReference = n.ref
		return o.SetLevelset(n.levelset)
	case "boundary":
		return o.SetBoundary(n.ref)
	case "composite":
		return o.SetVolumeComposite(n.ref)
	case "color":
		return o.SetVolumeColor(n.ref)
	default:
		n.property.VolumeReference = n.ref
		return o.AddVolumeProperty(n.property)
	}
}
