package model

import (
	"fmt"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/mesh"
)

// ClipMode selects how a clipping mesh trims the lattice.
type ClipMode uint8

// Clip modes.
const (
	ClipNone ClipMode = iota
	ClipInside
	ClipOutside
)

func (c ClipMode) String() string {
	switch c {
	case ClipNone:
		return "none"
	case ClipInside:
		return "inside"
	case ClipOutside:
		return "outside"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// ParseClipMode converts a wire clip mode.
func ParseClipMode(s string) (ClipMode, bool) {
	for c := ClipNone; c <= ClipOutside; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// BallMode selects where balls are placed.
type BallMode uint8

// Ball modes.
const (
	BallNone BallMode = iota
	BallMixed
	BallAll
)

func (b BallMode) String() string {
	switch b {
	case BallNone:
		return "none"
	case BallMixed:
		return "mixed"
	case BallAll:
		return "all"
	default:
		return fmt.Sprintf("Unknown(%d)", b)
	}
}

// ParseBallMode converts a wire ball mode.
func ParseBallMode(s string) (BallMode, bool) {
	for b := BallNone; b <= BallAll; b++ {
		if b.String() == s {
			return b, true
		}
	}
	return 0, false
}

// BeamLattice holds the lattice-wide attributes of a mesh object. Beams and
// balls themselves live in the object's mesh.
type BeamLattice struct {
	owner *MeshObject

	MinLength         float64
	DefaultRadius     float64
	DefaultCap        mesh.CapMode
	ClipMode          ClipMode
	BallMode          BallMode
	DefaultBallRadius float64

	clipping       UniqueID
	representation UniqueID
}

func newBeamLattice(owner *MeshObject) *BeamLattice {
	return &BeamLattice{
		owner:         owner,
		MinLength:     0.0001,
		DefaultRadius: 1,
		DefaultCap:    mesh.CapSphere,
	}
}

// ClippingMesh returns the clipping mesh, or 0.
func (l *BeamLattice) ClippingMesh() UniqueID { return l.clipping }

// RepresentationMesh returns the representation mesh, or 0.
func (l *BeamLattice) RepresentationMesh() UniqueID { return l.representation }

// SetClippingMesh links a mesh object defined before the lattice owner.
// Zero clears the link.
func (l *BeamLattice) SetClippingMesh(id UniqueID) error {
	if err := l.checkMesh(id); err != nil {
		return err
	}
	l.clipping = id
	return nil
}

// SetRepresentationMesh links a mesh object defined before the lattice owner.
// Zero clears the link.
func (l *BeamLattice) SetRepresentationMesh(id UniqueID) error {
	if err := l.checkMesh(id); err != nil {
		return err
	}
	l.representation = id
	return nil
}

func (l *BeamLattice) checkMesh(id UniqueID) error {
	if id == 0 {
		return nil
	}
	if id == l.owner.id {
		return diag.New(diag.ErrInvalidArgument, "lattice references its own object")
	}
	target, err := As[*MeshObject](l.owner.model, id)
	if err != nil {
		return diag.Wrap(diag.ErrInvalidArgument, err, "lattice mesh")
	}
	if !l.owner.model.CompareObjectsByResourceID(target, l.owner) {
		return diag.New(diag.ErrInvalidArgument, "lattice mesh %d is defined after object %d",
			target.pid.LocalID, l.owner.pid.LocalID)
	}
	return nil
}
