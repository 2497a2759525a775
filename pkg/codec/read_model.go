package codec

import (
	"encoding/xml"
	"strings"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/model"
)

// modelNode is the <model> root of a model part.
type modelNode struct {
	p      *parser
	isRoot bool
}

func (n *modelNode) attr(a xml.Attr) error {
	m := n.p.r.model
	switch {
	case a.Name.Space == "" && a.Name.Local == "unit":
		if !n.isRoot {
			return nil
		}
		u, ok := model.ParseUnit(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "unit %q", a.Value)
		}
		m.Unit = u
	case a.Name.Space == nsXML && a.Name.Local == "lang":
		if n.isRoot {
			m.Language = a.Value
		}
	case a.Name.Space == "" && a.Name.Local == "requiredextensions":
		for _, prefix := range strings.Fields(a.Value) {
			ns, ok := n.p.prefixes[prefix]
			if !ok {
				return diag.New(diag.ErrRequiredExtensionUnsupported, "undeclared prefix %q", prefix)
			}
			if _, known := knownNamespaces[ns]; !known {
				return diag.New(diag.ErrRequiredExtensionUnsupported, "%s", ns)
			}
		}
	}
	return nil
}

func (n *modelNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSCore, "metadata"):
		if !n.isRoot {
			return nil, nil
		}
		return &metadataNode{p: n.p, group: &n.p.r.model.Metadata}, nil
	case is(name, NSCore, "resources"):
		return &resourcesNode{p: n.p}, nil
	case is(name, NSCore, "build"):
		if !n.isRoot {
			return nil, nil
		}
		return &buildNode{p: n.p}, nil
	}
	return n.p.unknown("model", name)
}

func (n *modelNode) end() error { return nil }

// metadataNode reads one <metadata> entry into group.
type metadataNode struct {
	p     *parser
	group *model.MetadataGroup
	md    model.Metadata
	value strings.Builder
}

func (n *metadataNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "name":
		name := a.Value
		if prefix, local, ok := strings.Cut(name, ":"); ok {
			ns, declared := n.p.prefixes[prefix]
			if !declared {
				return diag.New(diag.ErrInvalidAttributeValue, "metadata prefix %q", prefix)
			}
			n.md.Namespace = ns
			name = local
		}
		n.md.Name = name
	case "preserve":
		v, err := parseBool(a)
		if err != nil {
			return err
		}
		n.md.Preserve = v
	case "type":
		n.md.Type = a.Value
	}
	return nil
}

func (n *metadataNode) child(name xml.Name) (node, error) { return n.p.unknown("metadata", name) }

func (n *metadataNode) text(data []byte) { n.value.Write(data) }

func (n *metadataNode) end() error {
	if n.md.Name == "" {
		return missing("name")
	}
	n.md.Value = n.value.String()
	return n.group.Add(n.md)
}

// metadataGroupNode is a <metadatagroup> under an object or build item.
type metadataGroupNode struct {
	p     *parser
	group *model.MetadataGroup
}

func (n *metadataGroupNode) attr(xml.Attr) error { return nil }

func (n *metadataGroupNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "metadata") {
		return &metadataNode{p: n.p, group: n.group}, nil
	}
	return n.p.unknown("metadatagroup", name)
}

func (n *metadataGroupNode) end() error { return nil }

// resourcesNode dispatches resource definitions.
type resourcesNode struct {
	p *parser
}

func (n *resourcesNode) attr(xml.Attr) error { return nil }

func (n *resourcesNode) child(name xml.Name) (node, error) {
	p := n.p
	switch {
	case is(name, NSCore, "object"):
		return &objectNode{p: p}, nil
	case is(name, NSCore, "basematerials"):
		return &baseMaterialsNode{p: p}, nil
	case is(name, NSMaterial, "colorgroup"):
		return &colorGroupNode{p: p}, nil
	case is(name, NSMaterial, "texture2d"):
		return &texture2DNode{p: p, tex: texture2DAttrs{tileU: model.TileWrap, tileV: model.TileWrap}}, nil
	case is(name, NSMaterial, "texture2dgroup"):
		return &texture2DGroupNode{p: p}, nil
	case is(name, NSMaterial, "compositematerials"):
		return &compositeNode{p: p}, nil
	case is(name, NSMaterial, "multiproperties"):
		return &multiPropertiesNode{p: p}, nil
	case is(name, NSSlice, "slicestack"):
		return &sliceStackNode{p: p}, nil
	case is(name, NSVolumetric, "function"):
		return &functionNode{p: p}, nil
	case is(name, NSVolumetric, "volumetricstack"):
		return &volumetricStackNode{p: p}, nil
	}
	return p.unknown("resources", name)
}

func (n *resourcesNode) end() error { return nil }

// parseID reads a resource id attribute. Out of range IDs are fatal.
func parseID(a xml.Attr) (uint32, error) {
	return model.ParseLocalID(strings.TrimSpace(a.Value))
}

// buildNode is the <build> list of the root part.
type buildNode struct {
	p *parser
}

func (n *buildNode) attr(a xml.Attr) error {
	if is(a.Name, NSProduction, "UUID") {
		u, err := parseUUID(a)
		if err != nil {
			return err
		}
		n.p.r.model.BuildUUID = u
	}
	return nil
}

func (n *buildNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "item") {
		return &itemNode{p: n.p}, nil
	}
	return n.p.unknown("build", name)
}

func (n *buildNode) end() error { return nil }

// itemNode is one build <item>.
type itemNode struct {
	p          *parser
	objectID   uint32
	hasObject  bool
	transform  math.Transform
	partNumber string
	path       string
	uuid       uuid.UUID
	meta       model.MetadataGroup
}

func (n *itemNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "objectid"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.objectID, n.hasObject = id, true
	case is(a.Name, "", "transform"):
		t, err := parseTransform(a)
		if err != nil {
			return err
		}
		n.transform = t
	case is(a.Name, "", "partnumber"):
		n.partNumber = a.Value
	case is(a.Name, NSProduction, "path"):
		n.path = model.NormalizePath(a.Value)
	case is(a.Name, NSProduction, "UUID"):
		u, err := parseUUID(a)
		if err != nil {
			return err
		}
		n.uuid = u
	}
	return nil
}

func (n *itemNode) child(name xml.Name) (node, error) {
	if is(name, NSCore, "metadatagroup") {
		return &metadataGroupNode{p: n.p, group: &n.meta}, nil
	}
	return n.p.unknown("item", name)
}

func (n *itemNode) end() error {
	if !n.hasObject {
		return missing("objectid")
	}
	r := n.p.r
	res, err := r.resolve(n.p.part, n.path, n.objectID)
	if err != nil {
		return err
	}
	item, err := r.model.AddBuildItem(res.ID(), n.transform)
	if err != nil {
		return err
	}
	item.PartNumber = n.partNumber
	item.UUID = n.uuid
	item.Metadata = n.meta
	return nil
}
