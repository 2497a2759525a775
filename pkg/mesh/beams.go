package mesh

import (
	stdmath "math"

	"github.com/Faultbox/threemf/pkg/diag"
)

func validRadius(r float64) bool {
	return r > 0 && !stdmath.IsInf(r, 0) && !stdmath.IsNaN(r)
}

func (m *Mesh) checkBeam(b Beam) error {
	n := uint32(len(m.vertices))
	if b.Nodes[0] >= n || b.Nodes[1] >= n {
		return diag.New(diag.ErrInvalidIndex, "beam vertex %v of %d", b.Nodes, n)
	}
	if b.Nodes[0] == b.Nodes[1] {
		return diag.New(diag.ErrInvalidIndex, "degenerate beam %v", b.Nodes)
	}
	if !validRadius(b.Radius[0]) || !validRadius(b.Radius[1]) {
		return diag.New(diag.ErrInvalidArgument, "beam radius %v", b.Radius)
	}
	if b.Cap[0] > CapButt || b.Cap[1] > CapButt {
		return diag.New(diag.ErrInvalidArgument, "beam cap mode %v", b.Cap)
	}
	return nil
}

// AddBeam appends a beam and returns its index.
func (m *Mesh) AddBeam(b Beam) (uint32, error) {
	if err := m.checkBeam(b); err != nil {
		return 0, err
	}
	if len(m.beams) >= MaxIndex {
		return 0, diag.New(diag.ErrInvalidIndex, "too many beams")
	}
	m.beams = append(m.beams, b)
	return uint32(len(m.beams) - 1), nil
}

// Beam returns the beam at index i.
func (m *Mesh) Beam(i uint32) (Beam, error) {
	if int64(i) >= int64(len(m.beams)) {
		return Beam{}, diag.New(diag.ErrInvalidIndex, "beam %d of %d", i, len(m.beams))
	}
	return m.beams[i], nil
}

// SetBeam replaces the beam at index i.
func (m *Mesh) SetBeam(i uint32, b Beam) error {
	if int64(i) >= int64(len(m.beams)) {
		return diag.New(diag.ErrInvalidIndex, "beam %d of %d", i, len(m.beams))
	}
	if err := m.checkBeam(b); err != nil {
		return err
	}
	m.beams[i] = b
	return nil
}

// Beams returns the beam array. The slice is owned by the mesh.
func (m *Mesh) Beams() []Beam {
	return m.beams
}

// AddBall appends a ball and returns its index.
func (m *Mesh) AddBall(b Ball) (uint32, error) {
	if b.Node >= uint32(len(m.vertices)) {
		return 0, diag.New(diag.ErrInvalidIndex, "ball vertex %d of %d", b.Node, len(m.vertices))
	}
	if !validRadius(b.Radius) {
		return 0, diag.New(diag.ErrInvalidArgument, "ball radius %v", b.Radius)
	}
	if len(m.balls) >= MaxIndex {
		return 0, diag.New(diag.ErrInvalidIndex, "too many balls")
	}
	m.balls = append(m.balls, b)
	return uint32(len(m.balls) - 1), nil
}

// Ball returns the ball at index i.
func (m *Mesh) Ball(i uint32) (Ball, error) {
	if int64(i) >= int64(len(m.balls)) {
		return Ball{}, diag.New(diag.ErrInvalidIndex, "ball %d of %d", i, len(m.balls))
	}
	return m.balls[i], nil
}

// SetBall replaces the ball at index i.
func (m *Mesh) SetBall(i uint32, b Ball) error {
	if int64(i) >= int64(len(m.balls)) {
		return diag.New(diag.ErrInvalidIndex, "ball %d of %d", i, len(m.balls))
	}
	if b.Node >= uint32(len(m.vertices)) {
		return diag.New(diag.ErrInvalidIndex, "ball vertex %d of %d", b.Node, len(m.vertices))
	}
	if !validRadius(b.Radius) {
		return diag.New(diag.ErrInvalidArgument, "ball radius %v", b.Radius)
	}
	m.balls[i] = b
	return nil
}

// Balls returns the ball array. The slice is owned by the mesh.
func (m *Mesh) Balls() []Ball {
	return m.balls
}

// AddBeamSet appends a beam set. Its references are validated against the
// current beam and ball arrays and copied.
func (m *Mesh) AddBeamSet(s BeamSet) (*BeamSet, error) {
	for _, r := range s.Refs {
		if r >= uint32(len(m.beams)) {
			return nil, diag.New(diag.ErrInvalidIndex, "beam set %q references beam %d of %d", s.Name, r, len(m.beams))
		}
	}
	for _, r := range s.BallRefs {
		if r >= uint32(len(m.balls)) {
			return nil, diag.New(diag.ErrInvalidIndex, "beam set %q references ball %d of %d", s.Name, r, len(m.balls))
		}
	}
	set := &BeamSet{
		Name:       s.Name,
		Identifier: s.Identifier,
		Refs:       append([]uint32(nil), s.Refs...),
		BallRefs:   append([]uint32(nil), s.BallRefs...),
	}
	m.beamSets = append(m.beamSets, set)
	return set, nil
}

// BeamSet returns the beam set at index i.
func (m *Mesh) BeamSet(i int) (*BeamSet, error) {
	if i < 0 || i >= len(m.beamSets) {
		return nil, diag.New(diag.ErrInvalidIndex, "beam set %d of %d", i, len(m.beamSets))
	}
	return m.beamSets[i], nil
}

// BeamSets returns all beam sets in insertion order.
func (m *Mesh) BeamSets() []*BeamSet {
	return m.beamSets
}

// ClearBeamLattice drops every beam, ball and beam set. Vertices and faces
// are kept.
func (m *Mesh) ClearBeamLattice() {
	m.beams = nil
	m.balls = nil
	m.beamSets = nil
}
