package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
)

// ParseColor converts a "#RRGGBB" or "#RRGGBBAA" string.
func ParseColor(s string) (color.RGBA, error) {
	if !strings.HasPrefix(s, "#") || (len(s) != 7 && len(s) != 9) {
		return color.RGBA{}, diag.New(diag.ErrInvalidAttributeValue, "color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, diag.New(diag.ErrInvalidAttributeValue, "color %q", s)
	}
	if len(s) == 7 {
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatColor returns the wire form of c. Opaque colors omit the alpha byte.
func FormatColor(c color.RGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// BaseMaterial is one entry of a base material group.
type BaseMaterial struct {
	Name  string
	Color color.RGBA
}

// BaseMaterialGroup is a list of named materials with display colors.
type BaseMaterialGroup struct {
	base
	entries[BaseMaterial]
}

func (g *BaseMaterialGroup) Kind() ResourceKind { return KindBaseMaterials }
func (g *BaseMaterialGroup) References() []UniqueID { return nil }
func (g *BaseMaterialGroup) PropertyIDs() []uint32 { return g.ids }
func (g *BaseMaterialGroup) HasProperty(id uint32) bool { return g.has(id) }

// Add appends a material and returns its property ID.
func (g *BaseMaterialGroup) Add(m BaseMaterial) uint32 { return g.add(m) }

// Get returns the material with property ID id.
func (g *BaseMaterialGroup) Get(id uint32) (BaseMaterial, error) { return g.get(id) }

// Set replaces the material with property ID id.
func (g *BaseMaterialGroup) Set(id uint32, m BaseMaterial) error { return g.set(id, m) }

// Remove deletes a material. Its ID is not reused.
func (g *BaseMaterialGroup) Remove(id uint32) error { return g.remove(id) }

// Count returns the number of live materials.
func (g *BaseMaterialGroup) Count() int { return len(g.ids) }

// ColorGroup is a list of sRGB colors.
type ColorGroup struct {
	base
	entries[color.RGBA]
}

func (g *ColorGroup) Kind() ResourceKind { return KindColorGroup }
func (g *ColorGroup) References() []UniqueID { return nil }
func (g *ColorGroup) PropertyIDs() []uint32 { return g.ids }
func (g *ColorGroup) HasProperty(id uint32) bool { return g.has(id) }

func (g *ColorGroup) Add(c color.RGBA) uint32 { return g.add(c) }
func (g *ColorGroup) Get(id uint32) (color.RGBA, error) { return g.get(id) }
func (g *ColorGroup) Set(id uint32, c color.RGBA) error { return g.set(id, c) }
func (g *ColorGroup) Remove(id uint32) error { return g.remove(id) }
func (g *ColorGroup) Count() int { return len(g.ids) }

// TileStyle controls texture sampling outside [0,1].
type TileStyle uint8

// Tile styles.
const (
	TileWrap TileStyle = iota
	TileMirror
	TileClamp
	TileNone
)

func (t TileStyle) String() string {
	switch t {
	case TileWrap:
		return "wrap"
	case TileMirror:
		return "mirror"
	case TileClamp:
		return "clamp"
	case TileNone:
		return "none"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ParseTileStyle converts a wire tile style.
func ParseTileStyle(s string) (TileStyle, bool) {
	for t := TileWrap; t <= TileNone; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// TextureFilter selects texture interpolation.
type TextureFilter uint8

// Texture filters.
const (
	FilterAuto TextureFilter = iota
	FilterLinear
	FilterNearest
)

func (f TextureFilter) String() string {
	switch f {
	case FilterAuto:
		return "auto"
	case FilterLinear:
		return "linear"
	case FilterNearest:
		return "nearest"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// ParseTextureFilter converts a wire filter name.
func ParseTextureFilter(s string) (TextureFilter, bool) {
	for f := FilterAuto; f <= FilterNearest; f++ {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// Texture2D describes an image part. The image bytes are the attachment
// stored under Path.
type Texture2D struct {
	base
	Path        string
	ContentType string
	TileStyleU  TileStyle
	TileStyleV  TileStyle
	Filter      TextureFilter
}

func (t *Texture2D) Kind() ResourceKind { return KindTexture2D }
func (t *Texture2D) References() []UniqueID { return nil }

// Attachment returns the image payload, or nil when it is missing.
func (t *Texture2D) Attachment() *Attachment {
	return t.model.Attachment(t.Path)
}

// Texture2DGroup is a list of texture coordinates into one texture.
type Texture2DGroup struct {
	base
	entries[math.Vec2]
	texture UniqueID
}

func (g *Texture2DGroup) Kind() ResourceKind { return KindTexture2DGroup }
func (g *Texture2DGroup) References() []UniqueID { return []UniqueID{g.texture} }
func (g *Texture2DGroup) PropertyIDs() []uint32 { return g.ids }
func (g *Texture2DGroup) HasProperty(id uint32) bool { return g.has(id) }

// Texture returns the unique ID of the referenced texture.
func (g *Texture2DGroup) Texture() UniqueID { return g.texture }

func (g *Texture2DGroup) Add(uv math.Vec2) uint32 { return g.add(uv) }
func (g *Texture2DGroup) Get(id uint32) (math.Vec2, error) { return g.get(id) }
func (g *Texture2DGroup) Set(id uint32, uv math.Vec2) error { return g.set(id, uv) }
func (g *Texture2DGroup) Remove(id uint32) error { return g.remove(id) }
func (g *Texture2DGroup) Count() int { return len(g.ids) }

// CompositeMaterials mixes the materials of one base material group.
// Each entry holds one ratio per entry of MaterialIDs.
type CompositeMaterials struct {
	base
	entries[[]float64]
	baseMaterials UniqueID
	materialIDs   []uint32
}

func (g *CompositeMaterials) Kind() ResourceKind { return KindCompositeMaterials }
func (g *CompositeMaterials) References() []UniqueID { return []UniqueID{g.baseMaterials} }
func (g *CompositeMaterials) PropertyIDs() []uint32 { return g.ids }
func (g *CompositeMaterials) HasProperty(id uint32) bool { return g.has(id) }

// BaseMaterials returns the unique ID of the mixed base material group.
func (g *CompositeMaterials) BaseMaterials() UniqueID { return g.baseMaterials }

// MaterialIDs returns the base material property IDs being mixed.
func (g *CompositeMaterials) MaterialIDs() []uint32 { return g.materialIDs }

// Add appends a mix and returns its property ID.
func (g *CompositeMaterials) Add(ratios []float64) (uint32, error) {
	if err := g.check(ratios); err != nil {
		return 0, err
	}
	return g.add(append([]float64(nil), ratios...)), nil
}

func (g *CompositeMaterials) check(ratios []float64) error {
	if len(ratios) != len(g.materialIDs) {
		return diag.New(diag.ErrInvalidArgument, "composite has %d ratios for %d materials", len(ratios), len(g.materialIDs))
	}
	for _, r := range ratios {
		if r < 0 {
			return diag.New(diag.ErrInvalidArgument, "negative composite ratio %v", r)
		}
	}
	return nil
}

func (g *CompositeMaterials) Get(id uint32) ([]float64, error) { return g.get(id) }
func (g *CompositeMaterials) Remove(id uint32) error { return g.remove(id) }
func (g *CompositeMaterials) Count() int { return len(g.ids) }

// BlendMethod combines the layers of a multi-property group or volumetric
// stack.
type BlendMethod uint8

// Blend methods.
const (
	BlendMix BlendMethod = iota
	BlendMultiply
)

func (b BlendMethod) String() string {
	switch b {
	case BlendMix:
		return "mix"
	case BlendMultiply:
		return "multiply"
	default:
		return fmt.Sprintf("Unknown(%d)", b)
	}
}

// ParseBlendMethod converts a wire blend method.
func ParseBlendMethod(s string) (BlendMethod, bool) {
	switch s {
	case "mix":
		return BlendMix, true
	case "multiply":
		return BlendMultiply, true
	}
	return 0, false
}

// MultiLayer is one layer of a multi-property group.
type MultiLayer struct {
	Group UniqueID
	Blend BlendMethod
}

// MultiPropertyGroup combines properties of several groups. Each entry holds
// one property ID per layer.
type MultiPropertyGroup struct {
	base
	entries[[]uint32]
	layers []MultiLayer
}

func (g *MultiPropertyGroup) Kind() ResourceKind { return KindMultiProperties }
func (g *MultiPropertyGroup) PropertyIDs() []uint32 { return g.ids }
func (g *MultiPropertyGroup) HasProperty(id uint32) bool { return g.has(id) }

func (g *MultiPropertyGroup) References() []UniqueID {
	out := make([]UniqueID, len(g.layers))
	for i, l := range g.layers {
		out[i] = l.Group
	}
	return out
}

// Layers returns the layers in order.
func (g *MultiPropertyGroup) Layers() []MultiLayer { return g.layers }

// AddLayer appends a layer. Layers are fixed once entries exist. A group may
// hold at most one material layer (base or composite) and one color layer,
// and never another multi-property group.
func (g *MultiPropertyGroup) AddLayer(l MultiLayer) error {
	if len(g.ids) > 0 {
		return diag.New(diag.ErrInvalidArgument, "multiproperties %d already has entries", g.pid.LocalID)
	}
	r, err := g.model.Resource(l.Group)
	if err != nil {
		return err
	}
	if !r.core().definedBefore(&g.base) {
		return diag.New(diag.ErrForwardReference, "multiproperties layer %d", l.Group)
	}
	kind := r.Kind()
	switch kind {
	case KindBaseMaterials, KindCompositeMaterials, KindColorGroup, KindTexture2DGroup:
	default:
		return diag.New(diag.ErrResourceKindMismatch, "multiproperties layer is %s", kind)
	}
	for _, existing := range g.layers {
		ek := g.model.kindOf(existing.Group)
		if materialKind(ek) && materialKind(kind) {
			return diag.New(diag.ErrInvalidArgument, "multiproperties has two material layers")
		}
		if ek == KindColorGroup && kind == KindColorGroup {
			return diag.New(diag.ErrInvalidArgument, "multiproperties has two color layers")
		}
	}
	g.layers = append(g.layers, l)
	return nil
}

func materialKind(k ResourceKind) bool {
	return k == KindBaseMaterials || k == KindCompositeMaterials
}

// Add appends a combination and returns its property ID. Each value must be a
// live property of the corresponding layer.
func (g *MultiPropertyGroup) Add(pids []uint32) (uint32, error) {
	if err := g.check(pids); err != nil {
		return 0, err
	}
	return g.add(append([]uint32(nil), pids...)), nil
}

func (g *MultiPropertyGroup) check(pids []uint32) error {
	if len(pids) != len(g.layers) {
		return diag.New(diag.ErrInvalidArgument, "multi has %d values for %d layers", len(pids), len(g.layers))
	}
	for i, pid := range pids {
		pg, err := g.model.PropertyGroup(g.layers[i].Group)
		if err != nil {
			return err
		}
		if !pg.HasProperty(pid) {
			return diag.New(diag.ErrInvalidPropertyIndex, "layer %d property %d", i, pid)
		}
	}
	return nil
}

func (g *MultiPropertyGroup) Get(id uint32) ([]uint32, error) { return g.get(id) }
func (g *MultiPropertyGroup) Remove(id uint32) error { return g.remove(id) }
func (g *MultiPropertyGroup) Count() int { return len(g.ids) }
