package codec

import (
	"encoding/xml"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/model"
)

// sliceStackNode reads <s:slicestack>. A stack of slices is created at its
// first slice; a stack of references is created when it closes, after the
// parts its references name have been read.
type sliceStackNode struct {
	p *parser
	groupID
	bottomZ float64
	stack   *model.SliceStack
	refs    []pendingSliceRef
}

type pendingSliceRef struct {
	id   uint32
	path string
}

func (n *sliceStackNode) attr(a xml.Attr) error {
	if ok, err := n.parse(a); ok {
		return err
	}
	if is(a.Name, "", "zbottom") {
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.bottomZ = v
	}
	return nil
}

func (n *sliceStackNode) start() error { return n.check() }

func (n *sliceStackNode) create() error {
	if n.stack != nil {
		return nil
	}
	s, err := n.p.r.model.AddSliceStack(n.p.part, n.id, n.bottomZ)
	if err != nil {
		return err
	}
	n.stack = s
	return nil
}

func (n *sliceStackNode) child(name xml.Name) (node, error) {
	if !n.hasID {
		return nil, nil
	}
	switch {
	case is(name, NSSlice, "slice"):
		if err := n.create(); err != nil {
			return nil, err
		}
		return &sliceNode{p: n.p, stack: n.stack}, nil
	case is(name, NSSlice, "sliceref"):
		return &sliceRefNode{parent: n}, nil
	}
	return n.p.unknown("slicestack", name)
}

func (n *sliceStackNode) end() error {
	if !n.hasID {
		return nil
	}
	r := n.p.r
	targets := make([]model.UniqueID, len(n.refs))
	for i, ref := range n.refs {
		res, err := r.resolve(n.p.part, ref.path, ref.id)
		if err != nil {
			return err
		}
		targets[i] = res.ID()
	}
	if err := n.create(); err != nil {
		return err
	}
	for _, id := range targets {
		if err := n.stack.AddSliceRef(id); err != nil {
			return err
		}
	}
	return nil
}

type sliceRefNode struct {
	leaf
	parent *sliceStackNode
	ref    pendingSliceRef
}

func (n *sliceRefNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "slicestackid"):
		id, err := parseID(a)
		if err != nil {
			return err
		}
		n.ref.id = id
	case is(a.Name, "", "slicepath"):
		n.ref.path = model.NormalizePath(a.Value)
	}
	return nil
}

func (n *sliceRefNode) end() error {
	if n.ref.id == 0 {
		return missing("slicestackid")
	}
	n.parent.refs = append(n.parent.refs, n.ref)
	return nil
}

// sliceNode reads one <s:slice>.
type sliceNode struct {
	p     *parser
	stack *model.SliceStack
	topZ  float64
	hasZ  bool
	slice *model.Slice
}

func (n *sliceNode) attr(a xml.Attr) error {
	if is(a.Name, "", "ztop") {
		v, err := parseFloat(a)
		if err != nil {
			return err
		}
		n.topZ, n.hasZ = v, true
	}
	return nil
}

func (n *sliceNode) start() error {
	r := n.p.r
	if !n.hasZ {
		if err := r.sink.Report(missing("ztop")); err != nil {
			return err
		}
		n.topZ = n.stack.TopZ()
	}
	s, err := n.stack.AddSlice(n.topZ)
	if err != nil {
		if err := r.sink.Report(err); err != nil {
			return err
		}
		// keep parsing into a detached slice
		s = &model.Slice{TopZ: n.topZ}
	}
	n.slice = s
	return r.progress.step(StageReadSlices)
}

func (n *sliceNode) child(name xml.Name) (node, error) {
	switch {
	case is(name, NSSlice, "vertices"):
		return &sliceVerticesNode{p: n.p, slice: n.slice}, nil
	case is(name, NSSlice, "polygon"):
		return &polygonNode{p: n.p, slice: n.slice}, nil
	}
	return n.p.unknown("slice", name)
}

func (n *sliceNode) end() error { return nil }

type sliceVerticesNode struct {
	p     *parser
	slice *model.Slice
}

func (n *sliceVerticesNode) attr(xml.Attr) error { return nil }

func (n *sliceVerticesNode) child(name xml.Name) (node, error) {
	if is(name, NSSlice, "vertex") {
		return &sliceVertexNode{p: n.p, slice: n.slice}, nil
	}
	return n.p.unknown("vertices", name)
}

func (n *sliceVerticesNode) end() error { return nil }

type sliceVertexNode struct {
	leaf
	p     *parser
	slice *model.Slice
	v     math.Vec2
	seen  uint8
}

func (n *sliceVertexNode) attr(a xml.Attr) error {
	switch {
	case is(a.Name, "", "x"):
		v, err := parseFloat32(a)
		if err != nil {
			return err
		}
		n.v.X, n.seen = v, n.seen|1
	case is(a.Name, "", "y"):
		v, err := parseFloat32(a)
		if err != nil {
			return err
		}
		n.v.Y, n.seen = v, n.seen|2
	}
	return nil
}

func (n *sliceVertexNode) end() error {
	if n.seen != 3 {
		if err := n.p.r.sink.Report(missing("x", "y")); err != nil {
			return err
		}
	}
	n.slice.AddVertex(n.v)
	return nil
}

// polygonNode reads <s:polygon startv> and its segments.
type polygonNode struct {
	p        *parser
	slice    *model.Slice
	indices  []uint32
	hasStart bool
}

func (n *polygonNode) attr(a xml.Attr) error {
	if is(a.Name, "", "startv") {
		v, err := parseUint(a)
		if err != nil {
			return err
		}
		n.indices = append(n.indices[:0], v)
		n.hasStart = true
	}
	return nil
}

func (n *polygonNode) child(name xml.Name) (node, error) {
	if is(name, NSSlice, "segment") {
		return &indexRefNode{dst: &n.indices, attrName: "v2"}, nil
	}
	return n.p.unknown("polygon", name)
}

func (n *polygonNode) end() error {
	if !n.hasStart {
		return missing("startv")
	}
	i, err := n.slice.AddPolygon(n.indices)
	if err != nil {
		return err
	}
	if !n.slice.IsPolygonValid(i) {
		return n.p.r.sink.Report(diag.New(diag.ErrInvalidPolygon, "polygon %d of slice at %v", i, n.slice.TopZ))
	}
	return nil
}
