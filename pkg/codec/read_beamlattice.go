package codec

import (
	"encoding/xml"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/model"
)

// beamLatticeNode reads <b:beamlattice> inside a mesh.
type beamLatticeNode struct {
	p       *parser
	object  *model.MeshObject
	lattice *model.BeamLattice

	clipping       uint32
	representation uint32
	seen           uint8
}

func newBeamLatticeNode(p *parser, o *model.MeshObject) *beamLatticeNode {
	return &beamLatticeNode{p: p, object: o, lattice: o.BeamLattice()}
}

func (n *beamLatticeNode) attr(a xml.Attr) error {
	l := n.lattice
	switch {
	case is(a.Name, "", "minlength"):
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		l.MinLength, n.seen = v, n.seen|1
	case is(a.Name, "", "radius"):
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		l.DefaultRadius, n.seen = v, n.seen|2
	case is(a.Name, "", "cap"):
		c, ok := mesh.ParseCapMode(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "cap %q", a.Value)
		}
		l.DefaultCap = c
	case is(a.Name, "", "clippingmode"), is(a.Name, "", "clipping"):
		c, ok := model.ParseClipMode(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "clippingmode %q", a.Value)
		}
		l.ClipMode = c
	case is(a.Name, "", "clippingmesh"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.clipping = id
	case is(a.Name, "", "representationmesh"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.representation = id
	case is(a.Name, NSBalls, "ballmode"):
		b, ok := model.ParseBallMode(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "ballmode %q", a.Value)
		}
		l.BallMode = b
	case is(a.Name, NSBalls, "ballradius"):
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		l.DefaultBallRadius = v
	}
	return nil
}

func (n *beamLatticeNode) start() error {
	r := n.p.r
	if n.seen != 3 {
		if err := r.sink.Report(missing("minlength", "radius")); err != nil {
			return err
		}
	}
	if n.clipping != 0 {
		res, err := r.model.FindResource(n.p.part, n.clipping)
		if err != nil {
			return err
		}
		if err := n.lattice.SetClippingMesh(res.ID()); err != nil {
			return err
		}
	}
	if n.representation != 0 {
		res, err := r.model.FindResource(n.p.part, n.representation)
		if err != nil {
			return err
		}
		if err := n.lattice.SetRepresentationMesh(res.ID()); err != nil {
			return err
		}
	}
	return nil
}

func (n *beamLatticeNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSBeamLattice, "beams"):
		return &beamsNode{parent: n}, nil
	case is(name, NSBalls, "balls"):
		return &ballsNode{parent: n}, nil
	case is(name, NSBeamLattice, "beamsets"):
		return &beamSetsNode{parent: n}, nil
	}
	return n.p.unknown("beamlattice", name)
}

func (n *beamLatticeNode) end() error { return nil }

type beamsNode struct {
	parent *beamLatticeNode
	beam   beamNode
}

func (n *beamsNode) attr(xml.Attr) error { return nil }

func (n *beamsNode) child(name xml.Name) (node, error) {
	if is(name, NSBeamLattice, "beam") {
		l := n.parent.lattice
		n.beam = beamNode{parent: n.parent}
		n.beam.b.Cap = [2]mesh.CapMode{l.DefaultCap, l.DefaultCap}
		return &n.beam, nil
	}
	return n.parent.p.unknown("beams", name)
}

func (n *beamsNode) end() error { return nil }

type beamNode struct {
	leaf
	parent *beamLatticeNode
	b      mesh.Beam
	seen   uint8
	hasR   [2]bool
}

func (n *beamNode) attr(a xml.Attr) error {
	if a.Name.Space != "" {
		return nil
	}
	switch a.Name.Local {
	case "v1", "v2":
		i := a.Name.Local[1] - '1'
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.b.Nodes[i], n.seen = v, n.seen|1<<i
	case "r1", "r2":
		i := a.Name.Local[1] - '1'
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.b.Radius[i], n.hasR[i] = v, true
	case "cap1", "cap2":
		i := a.Name.Local[3] - '1'
		c, ok := mesh.ParseCapMode(a.Value)
		if !ok {
			return diag.New(diag.ErrInvalidAttributeValue, "%s %q", a.Name.Local, a.Value)
		}
		n.b.Cap[i] = c
	}
	return nil
}

func (n *beamNode) end() error {
	if n.seen != 3 {
		return diag.New(diag.ErrInvalidIndex, "beam without v1 and v2")
	}
	if !n.hasR[0] {
		n.b.Radius[0] = n.parent.lattice.DefaultRadius
	}
	if !n.hasR[1] {
		n.b.Radius[1] = n.b.Radius[0]
	}
	r := n.parent.p.r
	if _, err := n.parent.object.Mesh().AddBeam(n.b); err != nil {
		return err
	}
	return r.progress.tick(StageReadBeams)
}

type ballsNode struct {
	parent *beamLatticeNode
}

func (n *ballsNode) attr(xml.Attr) error { return nil }

func (n *ballsNode) child(name xml.Name) (node, error) {
	if is(name, NSBalls, "ball") {
		return &ballNode{parent: n.parent}, nil
	}
	return n.parent.p.unknown("balls", name)
}

func (n *ballsNode) end() error { return nil }

type ballNode struct {
	leaf
	parent  *beamLatticeNode
	ball    mesh.Ball
	hasNode bool
	hasR    bool
}

func (n *ballNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "vindex"):
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.ball.Node, n.hasNode = v, true
	case is(a.Name, "", "r"):
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.ball.Radius, n.hasR = v, true
	}
	return nil
}

func (n *ballNode) end() error {
	if !n.hasNode {
		return diag.New(diag.ErrInvalidIndex, "ball without vindex")
	}
	if !n.hasR {
		n.ball.Radius = n.parent.lattice.DefaultBallRadius
	}
	_, err := n.parent.object.Mesh().AddBall(n.ball)
	return err
}

type beamSetsNode struct {
	parent *beamLatticeNode
}

func (n *beamSetsNode) attr(xml.Attr) error { return nil }

func (n *beamSetsNode) child(name xml.Name) (node, error) {
	if is(name, NSBeamLattice, "beamset") {
		return &beamSetNode{parent: n.parent}, nil
	}
	return n.parent.p.unknown("beamsets", name)
}

func (n *beamSetsNode) end() error { return nil }

type beamSetNode struct {
	parent *beamLatticeNode
	set    mesh.BeamSet
}

func (n *beamSetNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "name"):
		n.set.Name = a.Value
	case is(a.Name, "", "identifier"):
		n.set.Identifier = a.Value
	}
	return nil
}

func (n *beamSetNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSBeamLattice, "ref"):
		return &indexRefNode{dst: &n.set.Refs, attrName: "index"}, nil
	case is(name, NSBalls, "ballref"):
		return &indexRefNode{dst: &n.set.BallRefs, attrName: "index"}, nil
	}
	return n.parent.p.unknown("beamset", name)
}

func (n *beamSetNode) end() error {
	_, err := n.parent.object.Mesh().AddBeamSet(n.set)
	return err
}

// indexRefNode appends one index attribute to dst: <ref index>,
// <ballref index> or <segment v2>.
type indexRefNode struct {
	leaf
	dst      *[]uint32
	attrName string
	has      bool
}

func (n *indexRefNode) attr(a xml.Attr) error {
	if is(a.Name, "", n.attrName) {
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		*n.dst = append(*n.dst, v)
		n.has = true
	}
	return nil
}

func (n *indexRefNode) end() error {
	if !n.has {
		return missing(n.attrName)
	}
	return nil
}
