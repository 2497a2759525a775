package model

import (
	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
)

// Slice is one layer of a slice stack: 2D vertices and closed polygons.
type Slice struct {
	TopZ     float64
	Vertices []math.Vec2
	Polygons [][]uint32
}

// AddVertex appends a vertex and returns its index.
func (s *Slice) AddVertex(v math.Vec2) uint32 {
	s.Vertices = append(s.Vertices, v)
	return uint32(len(s.Vertices) - 1)
}

// AddPolygon appends a polygon given by vertex indices.
func (s *Slice) AddPolygon(indices []uint32) (int, error) {
	for _, i := range indices {
		if i >= uint32(len(s.Vertices)) {
			return 0, diag.New(diag.ErrInvalidIndex, "slice vertex %d of %d", i, len(s.Vertices))
		}
	}
	s.Polygons = append(s.Polygons, append([]uint32(nil), indices...))
	return len(s.Polygons) - 1, nil
}

// IsPolygonValid reports whether polygon i has at least three indices, or
// exactly two that differ.
func (s *Slice) IsPolygonValid(i int) bool {
	if i < 0 || i >= len(s.Polygons) {
		return false
	}
	p := s.Polygons[i]
	switch {
	case len(p) < 2:
		return false
	case len(p) == 2:
		return p[0] != p[1]
	default:
		return true
	}
}

// PolygonArea returns the signed area of polygon i, positive for a
// counter-clockwise outline. Open polygons are closed implicitly.
func (s *Slice) PolygonArea(i int) (float32, error) {
	if i < 0 || i >= len(s.Polygons) {
		return 0, diag.New(diag.ErrInvalidIndex, "polygon %d of %d", i, len(s.Polygons))
	}
	p := s.Polygons[i]
	pts := make([]math.Vec2, 0, len(p))
	for j, idx := range p {
		if j == len(p)-1 && j > 0 && idx == p[0] {
			break
		}
		pts = append(pts, s.Vertices[idx])
	}
	return math.SignedArea(pts), nil
}

// Bounds returns the extent of the slice vertices. ok is false for an
// empty slice.
func (s *Slice) Bounds() (lo, hi math.Vec2, ok bool) {
	if len(s.Vertices) == 0 {
		return lo, hi, false
	}
	lo, hi = s.Vertices[0], s.Vertices[0]
	for _, v := range s.Vertices[1:] {
		lo, hi = lo.Min(v), hi.Max(v)
	}
	return lo, hi, true
}

// SliceStack is an ordered list of slices with non-decreasing Z, or a list
// of references to other slice stacks. The two never mix.
type SliceStack struct {
	base
	BottomZ float64

	slices []*Slice
	refs   []UniqueID
}

func (s *SliceStack) Kind() ResourceKind { return KindSliceStack }

func (s *SliceStack) References() []UniqueID {
	return append([]UniqueID(nil), s.refs...)
}

// Slices returns the slices in Z order.
func (s *SliceStack) Slices() []*Slice { return s.slices }

// SliceRefs returns the referenced stacks.
func (s *SliceStack) SliceRefs() []UniqueID { return s.refs }

// TopZ returns the top of the last slice, or BottomZ for an empty stack.
func (s *SliceStack) TopZ() float64 {
	if len(s.slices) == 0 {
		return s.BottomZ
	}
	return s.slices[len(s.slices)-1].TopZ
}

// AddSlice appends a slice. Its top Z may equal but not be below the bottom
// of the stack or the previous slice.
func (s *SliceStack) AddSlice(topZ float64) (*Slice, error) {
	if len(s.refs) > 0 {
		return nil, diag.New(diag.ErrInvalidArgument, "slice stack %d holds references", s.pid.LocalID)
	}
	if topZ < s.BottomZ {
		return nil, diag.New(diag.ErrSlicesZNotIncreasing, "ztop %v below zbottom %v", topZ, s.BottomZ)
	}
	if n := len(s.slices); n > 0 && topZ < s.slices[n-1].TopZ {
		return nil, diag.New(diag.ErrSlicesZNotIncreasing, "ztop %v below previous %v", topZ, s.slices[n-1].TopZ)
	}
	sl := &Slice{TopZ: topZ}
	s.slices = append(s.slices, sl)
	return sl, nil
}

// AddSliceRef appends a reference to another slice stack that holds slices
// and was defined earlier.
func (s *SliceStack) AddSliceRef(id UniqueID) error {
	if len(s.slices) > 0 {
		return diag.New(diag.ErrInvalidArgument, "slice stack %d holds slices", s.pid.LocalID)
	}
	if id == s.id {
		return diag.New(diag.ErrCircularReference, "slice stack %d references itself", s.pid.LocalID)
	}
	target, err := As[*SliceStack](s.model, id)
	if err != nil {
		return err
	}
	if len(target.refs) > 0 {
		return diag.New(diag.ErrReferenceTooDeep, "slice stack %d holds references", target.pid.LocalID)
	}
	if !target.definedBefore(&s.base) {
		return diag.New(diag.ErrForwardReference, "slice stack %d", target.pid.LocalID)
	}
	if n := len(s.refs); n > 0 {
		prev, _ := As[*SliceStack](s.model, s.refs[n-1])
		if prev != nil && target.BottomZ < prev.TopZ() {
			return diag.New(diag.ErrSlicesZNotIncreasing, "sliceref %d starts below %v", target.pid.LocalID, prev.TopZ())
		}
	}
	s.refs = append(s.refs, id)
	return nil
}
