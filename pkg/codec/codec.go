// Package codec maps a model.Model to and from the 3MF package format: the
// XML model parts inside an OPC container plus their attachments.
//
// Reading walks each model part with a streaming XML decoder. Every element
// kind has its own node that consumes attributes first, dispatches children
// by (namespace, local name) and validates itself when the element closes.
// Writing walks the resource graph in part order and builds the dense
// property index table on the fly.
package codec

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/opc"
)

// XML namespaces understood by the codec.
const (
	NSCore        = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	NSMaterial    = "http://schemas.microsoft.com/3dmanufacturing/material/2015/02"
	NSProduction  = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
	NSBeamLattice = "http://schemas.microsoft.com/3dmanufacturing/beamlattice/2017/02"
	NSBalls       = "http://schemas.microsoft.com/3dmanufacturing/beamlattice/balls/2020/07"
	NSSlice       = "http://schemas.microsoft.com/3dmanufacturing/slice/2015/07"
	NSVolumetric  = "http://schemas.microsoft.com/3dmanufacturing/volumetric/2018/11"

	nsXML = "http://www.w3.org/XML/1998/namespace"
)

// knownNamespaces maps each supported namespace to the prefix the writer
// declares for it.
var knownNamespaces = map[string]string{
	NSCore:        "",
	NSMaterial:    "m",
	NSProduction:  "p",
	NSBeamLattice: "b",
	NSBalls:       "b2",
	NSSlice:       "s",
	NSVolumetric:  "v",
}

// DefaultPrecision is the number of decimals written for coordinates.
const DefaultPrecision = 6

// checkpointInterval is how many vertices, triangles or beams are processed
// between progress callbacks.
const checkpointInterval = 1024

// Stage names the phase a progress report belongs to.
type Stage int

// Progress stages.
const (
	StageReadModel Stage = iota
	StageReadVertices
	StageReadTriangles
	StageReadBeams
	StageReadSlices
	StageReadAttachments
	StageWriteModel
	StageWriteVertices
	StageWriteTriangles
	StageWriteBeams
	StageWriteSlices
	StageWriteAttachments
)

func (s Stage) String() string {
	switch s {
	case StageReadModel:
		return "ReadModel"
	case StageReadVertices:
		return "ReadVertices"
	case StageReadTriangles:
		return "ReadTriangles"
	case StageReadBeams:
		return "ReadBeams"
	case StageReadSlices:
		return "ReadSlices"
	case StageReadAttachments:
		return "ReadAttachments"
	case StageWriteModel:
		return "WriteModel"
	case StageWriteVertices:
		return "WriteVertices"
	case StageWriteTriangles:
		return "WriteTriangles"
	case StageWriteBeams:
		return "WriteBeams"
	case StageWriteSlices:
		return "WriteSlices"
	case StageWriteAttachments:
		return "WriteAttachments"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ProgressFunc receives coarse progress reports. Returning false aborts the
// running operation with diag.ErrUserAborted.
type ProgressFunc func(stage Stage, count int) bool

// Option configures a Reader or a Writer.
type Option func(*settings)

type settings struct {
	relaxed       bool
	precision     int
	logger        *zap.Logger
	progress      ProgressFunc
	attachmentRel []string
}

func newSettings(opts []Option) settings {
	s := settings{
		precision:     DefaultPrecision,
		logger:        zap.NewNop(),
		attachmentRel: []string{opc.RelTexture, opc.RelThumbnail, opc.RelPrintTicket},
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithRelaxed makes the reader record recoverable schema violations as
// warnings instead of failing.
func WithRelaxed(relaxed bool) Option {
	return func(s *settings) { s.relaxed = relaxed }
}

// WithPrecision sets the number of decimals the writer emits. Values outside
// 1..16 are ignored.
func WithPrecision(n int) Option {
	return func(s *settings) {
		if n >= 1 && n <= 16 {
			s.precision = n
		}
	}
}

// WithLogger routes debug output to l.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *settings) { s.progress = fn }
}

// WithAttachmentRelationships adds relationship types whose targets are
// loaded as attachments, on top of texture, thumbnail and print ticket.
func WithAttachmentRelationships(types ...string) Option {
	return func(s *settings) { s.attachmentRel = append(s.attachmentRel, types...) }
}

// progress tracks checkpoints for one read or write.
type progress struct {
	ctx      context.Context
	fn       ProgressFunc
	counters map[Stage]int
}

func newProgress(ctx context.Context, fn ProgressFunc) *progress {
	return &progress{ctx: ctx, fn: fn, counters: make(map[Stage]int)}
}

// tick counts one item and reports every checkpointInterval items.
func (p *progress) tick(stage Stage) error {
	p.counters[stage]++
	if p.counters[stage]%checkpointInterval != 0 {
		return nil
	}
	return p.report(stage)
}

// step reports unconditionally. Used for coarse items such as slices.
func (p *progress) step(stage Stage) error {
	p.counters[stage]++
	return p.report(stage)
}

func (p *progress) report(stage Stage) error {
	if err := p.ctx.Err(); err != nil {
		return diag.Wrap(diag.ErrUserAborted, err, stage.String())
	}
	if p.fn != nil && !p.fn(stage, p.counters[stage]) {
		return diag.New(diag.ErrUserAborted, "%s at %d", stage, p.counters[stage])
	}
	return nil
}
