package codec

import (
	"encoding/xml"
	"strings"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/model"
)

// groupID is embedded by property group nodes for their id attribute.
type groupID struct {
	id    uint32
	hasID bool
}

func (g *groupID) parse(a xml.Attr) (bool, error) {
	if !is(a.Name, "", "id") {
		return false, nil
	}
	id, err := parseID(a)
	if err != nil {
		return true, err
	}
	g.id, g.hasID = id, true
	return true, nil
}

func (g *groupID) check() error {
	if !g.hasID {
		return missing("id")
	}
	return nil
}

// baseMaterialsNode reads <basematerials>.
type baseMaterialsNode struct {
	p *parser
	groupID
	group *model.BaseMaterialGroup
}

func (n *baseMaterialsNode) attr(a xml.Attr) error {
	_, err := n.parse(a)
	return err
}

func (n *baseMaterialsNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	g, err := n.p.r.model.AddBaseMaterialGroup(n.p.part, n.id)
	if err != nil {
		return err
	}
	n.group = g
	return nil
}

func (n *baseMaterialsNode) child(name xml.Name) (node, error) {
	if n.group == nil {
		return nil, nil
	}
	if is(name, NSCore, "base") {
		return &baseNode{parent: n}, nil
	}
	return n.p.unknown("basematerials", name)
}

func (n *baseMaterialsNode) end() error { return nil }

type baseNode struct {
	leaf
	parent   *baseMaterialsNode
	mat      model.BaseMaterial
	hasName  bool
	hasColor bool
}

func (n *baseNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "name"):
		n.mat.Name, n.hasName = a.Value, true
	case is(a.Name, "", "displaycolor"):
		c, err := model.ParseColor(strings.TrimSpace(a.Value))
		if err != nil {
			return err
		}
		n.mat.Color, n.hasColor = c, true
	}
	return nil
}

func (n *baseNode) end() error {
	if !n.hasName || !n.hasColor {
		if err := n.parent.p.r.sink.Report(missing("name", "displaycolor")); err != nil {
			return err
		}
	}
	g := n.parent.group
	n.parent.p.r.addPropertyID(g.ID(), g.Add(n.mat))
	return nil
}

// colorGroupNode reads <m:colorgroup>.
type colorGroupNode struct {
	p *parser
	groupID
	group *model.ColorGroup
}

func (n *colorGroupNode) attr(a xml.Attr) error {
	_, err := n.parse(a)
	return err
}

func (n *colorGroupNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	g, err := n.p.r.model.AddColorGroup(n.p.part, n.id)
	if err != nil {
		return err
	}
	n.group = g
	return nil
}

func (n *colorGroupNode) child(name xml.Name) (node, error) {
	if n.group == nil {
		return nil, nil
	}
	if is(name, NSMaterial, "color") {
		return &colorNode{parent: n}, nil
	}
	return n.p.unknown("colorgroup", name)
}

func (n *colorGroupNode) end() error { return nil }

type colorNode struct {
	leaf
	parent *colorGroupNode
	value  string
}

func (n *colorNode) attr(a xml.Attr) error {
	if is(a.Name, "", "color") {
		n.value = strings.TrimSpace(a.Value)
	}
	return nil
}

func (n *colorNode) end() error {
	r := n.parent.p.r
	if n.value == "" {
		if err := r.sink.Report(missing("color")); err != nil {
			return err
		}
	}
	c, err := model.ParseColor(n.value)
	if err != nil && n.value != "" {
		if err := r.sink.Report(err); err != nil {
			return err
		}
	}
	g := n.parent.group
	r.addPropertyID(g.ID(), g.Add(c))
	return nil
}

type texture2DAttrs struct {
	path        string
	contentType string
	tileU       model.TileStyle
	tileV       model.TileStyle
	filter      model.TextureFilter
}

// texture2DNode reads <m:texture2d>.
type texture2DNode struct {
	leaf
	p *parser
	groupID
	tex texture2DAttrs
}

func (n *texture2DNode) attr(a xml.Attr) error {
	if ok, err := n.parse(a); ok {
		return err
	}
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "path":
		n.tex.path = model.NormalizePath(strings.TrimSpace(a.Value))
	case "contenttype":
		n.tex.contentType = strings.TrimSpace(a.Value)
	case "tilestyleu", "tilestylev":
		t, ok := model.ParseTileStyle(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "%s %q", a.Name.Local, a.Value)
		}
		if a.Name.Local == "tilestyleu" {
			n.tex.tileU = t
		} else {
			n.tex.tileV = t
		}
	case "filter":
		f, ok := model.ParseTextureFilter(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "filter %q", a.Value)
		}
		n.tex.filter = f
	}
	return nil
}

func (n *texture2DNode) end() error {
	if err := n.check(); err != nil {
		return err
	}
	if n.tex.path == "" || n.tex.contentType == "" {
		return missing("path", "contenttype")
	}
	r := n.p.r
	t, err := r.model.AddTexture2D(n.p.part, n.id, n.tex.path, n.tex.contentType)
	if err != nil {
		return err
	}
	t.TileStyleU, t.TileStyleV, t.Filter = n.tex.tileU, n.tex.tileV, n.tex.filter
	return r.checkTexture(t)
}

// texture2DGroupNode reads <m:texture2dgroup>.
type texture2DGroupNode struct {
	p *parser
	groupID
	texID uint32
	group *model.Texture2DGroup
	coord tex2CoordNode
}

func (n *texture2DGroupNode) attr(a xml.Attr) error {
	if ok, err := n.parse(a); ok {
		return err
	}
	if is(a.Name, "", "texid") {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.texID = id
	}
	return nil
}

func (n *texture2DGroupNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	if n.texID == 0 {
		return missing("texid")
	}
	r := n.p.r
	tex, err := r.model.FindResource(n.p.part, n.texID)
	if err != nil {
		return err
	}
	g, err := r.model.AddTexture2DGroup(n.p.part, n.id, tex.ID())
	if err != nil {
		return err
	}
	n.group = g
	return nil
}

func (n *texture2DGroupNode) child(name xml.Name) (node, error) {
	if n.group == nil {
		return nil, nil
	}
	if is(name, NSMaterial, "tex2coord") {
		n.coord = tex2CoordNode{parent: n}
		return &n.coord, nil
	}
	return n.p.unknown("texture2dgroup", name)
}

func (n *texture2DGroupNode) end() error { return nil }

type tex2CoordNode struct {
	leaf
	parent *texture2DGroupNode
	uv     math.Vec2
	seen   uint8
}

func (n *tex2CoordNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "u"):
		v, err := parseFloat32(a)
		if err != nil {
			return err
		}
		n.uv.X, n.seen = v, n.seen|1
	case is(a.Name, "", "v"):
		v, err := parseFloat32(a)
		if err != nil {
			return err
		}
		n.uv.Y, n.seen = v, n.seen|2
	}
	return nil
}

func (n *tex2CoordNode) end() error {
	r := n.parent.p.r
	if n.seen != 3 {
		if err := r.sink.Report(missing("u", "v")); err != nil {
			return err
		}
	}
	g := n.parent.group
	r.addPropertyID(g.ID(), g.Add(n.uv))
	return nil
}

// compositeNode reads <m:compositematerials>.
type compositeNode struct {
	p *parser
	groupID
	matID      uint32
	matIndices []uint32
	hasIndices bool
	group      *model.CompositeMaterials
}

func (n *compositeNode) attr(a xml.Attr) error {
	if ok, err := n.parse(a); ok {
		return err
	}
	switch {
	case is(a.Name, "", "matid"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.matID = id
	case is(a.Name, "", "matindices"):
		v, err := parseUintList(a)
		if err != nil {
			return err
		}
		n.matIndices, n.hasIndices = v, true
	}
	return nil
}

func (n *compositeNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	if n.matID == 0 || !n.hasIndices {
		return missing("matid", "matindices")
	}
	r := n.p.r
	base, err := r.model.FindResource(n.p.part, n.matID)
	if err != nil {
		return err
	}
	ids := make([]uint32, len(n.matIndices))
	for i, idx := range n.matIndices {
		if ids[i], err = r.propertyID(base.ID(), idx); err != nil {
			return err
		}
	}
	g, err := r.model.AddCompositeMaterials(n.p.part, n.id, base.ID(), ids)
	if err != nil {
		return err
	}
	n.group = g
	return nil
}

func (n *compositeNode) child(name xml.Name) (node, error) {
	if n.group == nil {
		return nil, nil
	}
	if is(name, NSMaterial, "composite") {
		return &compositeEntryNode{parent: n}, nil
	}
	return n.p.unknown("compositematerials", name)
}

func (n *compositeNode) end() error { return nil }

type compositeEntryNode struct {
	leaf
	parent *compositeNode
	values []float64
	has    bool
}

func (n *compositeEntryNode) attr(a xml.Attr) error {
	if is(a.Name, "", "values") {
		v, err := parseFloatList(a)
		if err != nil {
			return err
		}
		n.values, n.has = v, true
	}
	return nil
}

// end adds the entry. A tolerated bad entry becomes an equal mix so later
// wire indices keep their position.
func (n *compositeEntryNode) end() error {
	r := n.parent.p.r
	g := n.parent.group
	if !n.has {
		if err := r.sink.Report(missing("values")); err != nil {
			return err
		}
		n.values = equalRatios(len(g.MaterialIDs()))
	}
	id, err := g.Add(n.values)
	if err != nil {
		if err := r.sink.Report(diag.Wrap(diag.ErrInvalidAttributeValue, err, "composite values")); err != nil {
			return err
		}
		if id, err = g.Add(equalRatios(len(g.MaterialIDs()))); err != nil {
			return err
		}
	}
	r.addPropertyID(g.ID(), id)
	return nil
}

func equalRatios(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// multiPropertiesNode reads <m:multiproperties>.
type multiPropertiesNode struct {
	p *parser
	groupID
	pids   []uint32
	blends []model.BlendMethod
	group  *model.MultiPropertyGroup
	// layer groups in pids order
	layers []model.UniqueID
}

func (n *multiPropertiesNode) attr(a xml.Attr) error {
	if ok, err := n.parse(a); ok {
		return err
	}
	switch {
	case is(a.Name, "", "pids"):
		v, err := parseUintList(a)
		if err != nil {
			return err
		}
		n.pids = v
	case is(a.Name, "", "blendmethods"):
		for _, f := range strings.Fields(a.Value) {
			b, ok := model.ParseBlendMethod(f)
			if !ok {
				return diag.New(diag.ErrInvalidAttributeValue, "blend method %q", f)
			}
			n.blends = append(n.blends, b)
		}
	}
	return nil
}

func (n *multiPropertiesNode) start() error {
	if err := n.check(); err != nil {
		return err
	}
	if len(n.pids) == 0 {
		return missing("pids")
	}
	r := n.p.r
	g, err := r.model.AddMultiPropertyGroup(n.p.part, n.id)
	if err != nil {
		return err
	}
	for i, pid := range n.pids {
		res, err := r.model.FindResource(n.p.part, pid)
		if err != nil {
			return err
		}
		l := model.MultiLayer{Group: res.ID()}
		// blendmethods lists one entry per layer after the first
		if i > 0 && i-1 < len(n.blends) {
			l.Blend = n.blends[i-1]
		}
		if err := g.AddLayer(l); err != nil {
			return err
		}
		n.layers = append(n.layers, res.ID())
	}
	n.group = g
	return nil
}

func (n *multiPropertiesNode) child(name xml.Name) (node, error) {
	if n.group == nil {
		return nil, nil
	}
	if is(name, NSMaterial, "multi") {
		return &multiNode{parent: n}, nil
	}
	return n.p.unknown("multiproperties", name)
}

func (n *multiPropertiesNode) end() error { return nil }

type multiNode struct {
	leaf
	parent  *multiPropertiesNode
	indices []uint32
	has     bool
}

func (n *multiNode) attr(a xml.Attr) error {
	if is(a.Name, "", "pindices") {
		v, err := parseUintList(a)
		if err != nil {
			return err
		}
		n.indices, n.has = v, true
	}
	return nil
}

func (n *multiNode) end() error {
	parent := n.parent
	r := parent.p.r
	// A tolerated bad entry falls back to index 0 of each layer so later
	// wire indices keep their position.
	if !n.has {
		if err := r.sink.Report(missing("pindices")); err != nil {
			return err
		}
	}
	if len(n.indices) > len(parent.layers) {
		err := diag.New(diag.ErrInvalidAttributeValue, "multi has %d indices for %d layers", len(n.indices), len(parent.layers))
		if err := r.sink.Report(err); err != nil {
			return err
		}
		n.indices = n.indices[:len(parent.layers)]
	}
	ids := make([]uint32, len(parent.layers))
	for i, layer := range parent.layers {
		// missing trailing indices default to 0
		var idx uint32
		if i < len(n.indices) {
			idx = n.indices[i]
		}
		id, err := r.propertyID(layer, idx)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	id, err := parent.group.Add(ids)
	if err != nil {
		return err
	}
	r.addPropertyID(parent.group.ID(), id)
	return nil
}
