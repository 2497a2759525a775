package codec

import (
	"strings"

	"github.com/Faultbox/threemf/pkg/model"
)

func (mw *modelWriter) writeBaseMaterials(g *model.BaseMaterialGroup) error {
	x := mw.x
	x.open("basematerials")
	x.attrUint("id", g.PackageID().LocalID)
	x.closeOpen()
	for _, pid := range g.PropertyIDs() {
		m, err := g.Get(pid)
		if err != nil {
			return err
		}
		mw.w.indices.Add(g.ID(), pid)
		x.open("base")
		x.attr("name", m.Name)
		x.attr("displaycolor", model.FormatColor(m.Color))
		x.closeEmpty()
	}
	x.end("basematerials")
	return x.err
}

func (mw *modelWriter) writeColorGroup(g *model.ColorGroup) error {
	x := mw.x
	x.open("m:colorgroup")
	x.attrUint("id", g.PackageID().LocalID)
	x.closeOpen()
	for _, pid := range g.PropertyIDs() {
		c, err := g.Get(pid)
		if err != nil {
			return err
		}
		mw.w.indices.Add(g.ID(), pid)
		x.open("m:color")
		x.attr("color", model.FormatColor(c))
		x.closeEmpty()
	}
	x.end("m:colorgroup")
	return x.err
}

func (mw *modelWriter) writeTexture2D(t *model.Texture2D) error {
	x := mw.x
	x.open("m:texture2d")
	x.attrUint("id", t.PackageID().LocalID)
	x.attr("path", t.Path)
	x.attr("contenttype", t.ContentType)
	if t.TileStyleU != model.TileWrap {
		x.attr("tilestyleu", t.TileStyleU.String())
	}
	if t.TileStyleV != model.TileWrap {
		x.attr("tilestylev", t.TileStyleV.String())
	}
	if t.Filter != model.FilterAuto {
		x.attr("filter", t.Filter.String())
	}
	x.closeEmpty()
	return x.err
}

func (mw *modelWriter) writeTexture2DGroup(g *model.Texture2DGroup) error {
	tex, err := mw.ref(g.Texture())
	if err != nil {
		return err
	}
	x := mw.x
	x.open("m:texture2dgroup")
	x.attrUint("id", g.PackageID().LocalID)
	x.attrUint("texid", tex)
	x.closeOpen()
	for _, pid := range g.PropertyIDs() {
		uv, err := g.Get(pid)
		if err != nil {
			return err
		}
		mw.w.indices.Add(g.ID(), pid)
		x.open("m:tex2coord")
		x.attrFloat32("u", uv.X)
		x.attrFloat32("v", uv.Y)
		x.closeEmpty()
	}
	x.end("m:texture2dgroup")
	return x.err
}

func (mw *modelWriter) writeComposite(g *model.CompositeMaterials) error {
	base, err := mw.ref(g.BaseMaterials())
	if err != nil {
		return err
	}
	matIndices := make([]uint32, len(g.MaterialIDs()))
	for i, id := range g.MaterialIDs() {
		if matIndices[i], err = mw.w.indices.Index(g.BaseMaterials(), id); err != nil {
			return err
		}
	}
	x := mw.x
	x.open("m:compositematerials")
	x.attrUint("id", g.PackageID().LocalID)
	x.attrUint("matid", base)
	x.attr("matindices", formatUintList(matIndices))
	x.closeOpen()
	for _, pid := range g.PropertyIDs() {
		ratios, err := g.Get(pid)
		if err != nil {
			return err
		}
		mw.w.indices.Add(g.ID(), pid)
		x.open("m:composite")
		x.attr("values", formatFloatList(ratios, x.prec))
		x.closeEmpty()
	}
	x.end("m:compositematerials")
	return x.err
}

func (mw *modelWriter) writeMultiProperties(g *model.MultiPropertyGroup) error {
	layers := g.Layers()
	pids := make([]uint32, len(layers))
	blend := make([]string, 0, len(layers))
	mixOnly := true
	for i, l := range layers {
		id, err := mw.ref(l.Group)
		if err != nil {
			return err
		}
		pids[i] = id
		if i > 0 {
			blend = append(blend, l.Blend.String())
			mixOnly = mixOnly && l.Blend == model.BlendMix
		}
	}

	x := mw.x
	x.open("m:multiproperties")
	x.attrUint("id", g.PackageID().LocalID)
	x.attr("pids", formatUintList(pids))
	if !mixOnly {
		x.attr("blendmethods", strings.Join(blend, " "))
	}
	x.closeOpen()
	indices := make([]uint32, 0, len(layers))
	for _, pid := range g.PropertyIDs() {
		entry, err := g.Get(pid)
		if err != nil {
			return err
		}
		indices = indices[:0]
		for i, v := range entry {
			idx, err := mw.w.indices.Index(layers[i].Group, v)
			if err != nil {
				return err
			}
			indices = append(indices, idx)
		}
		mw.w.indices.Add(g.ID(), pid)
		x.open("m:multi")
		x.attr("pindices", formatUintList(indices))
		x.closeEmpty()
	}
	x.end("m:multiproperties")
	return x.err
}

func (mw *modelWriter) writeSliceStack(s *model.SliceStack) error {
	x := mw.x
	x.open("s:slicestack")
	x.attrUint("id", s.PackageID().LocalID)
	x.attrFloat("zbottom", s.BottomZ)
	x.closeOpen()
	for _, sl := range s.Slices() {
		if err := mw.w.progress.step(StageWriteSlices); err != nil {
			return err
		}
		mw.writeSlice(sl)
	}
	for _, ref := range s.SliceRefs() {
		id, path, err := mw.pathRef(ref)
		if err != nil {
			return err
		}
		x.open("s:sliceref")
		x.attrUint("slicestackid", id)
		x.attrIf("slicepath", path)
		x.closeEmpty()
	}
	x.end("s:slicestack")
	return x.err
}

func (mw *modelWriter) writeSlice(sl *model.Slice) {
	x := mw.x
	x.open("s:slice")
	x.attrFloat("ztop", sl.TopZ)
	if len(sl.Vertices) == 0 {
		x.closeEmpty()
		return
	}
	x.closeOpen()
	x.raw("<s:vertices>\n")
	for _, v := range sl.Vertices {
		x.open("s:vertex")
		x.attrFloat32("x", v.X)
		x.attrFloat32("y", v.Y)
		x.closeEmpty()
	}
	x.end("s:vertices")
	for _, poly := range sl.Polygons {
		if len(poly) == 0 {
			continue
		}
		x.open("s:polygon")
		x.attrUint("startv", poly[0])
		x.closeOpen()
		for _, v := range poly[1:] {
			x.open("s:segment")
			x.attrUint("v2", v)
			x.closeEmpty()
		}
		x.end("s:polygon")
	}
	x.end("s:slice")
}

func (mw *modelWriter) writeFunction(f *model.VolumetricFunction) error {
	x := mw.x
	x.open("v:function")
	x.attrUint("id", f.PackageID().LocalID)
	if len(f.Outputs()) == 0 {
		x.closeEmpty()
		return x.err
	}
	x.closeOpen()
	for _, name := range f.Outputs() {
		x.open("v:output")
		x.attr("name", name)
		x.closeEmpty()
	}
	x.end("v:function")
	return x.err
}

func (mw *modelWriter) writeVolumetricStack(s *model.VolumetricStack) error {
	x := mw.x
	x.open("v:volumetricstack")
	x.attrUint("id", s.PackageID().LocalID)
	x.closeOpen()
	for _, c := range s.DstChannels() {
		x.open("v:dstchannel")
		x.attr("name", c.Name)
		if c.Background != nil {
			x.attrFloat("background", *c.Background)
		}
		x.closeEmpty()
	}
	for _, l := range s.Layers() {
		fn, err := mw.ref(l.Function)
		if err != nil {
			return err
		}
		x.open("v:layer")
		x.attrUint("functionid", fn)
		x.attr("channel", l.Channel)
		x.attr("dstchannel", l.DstChannel)
		if l.Blend != model.BlendMix {
			x.attr("blendmethod", l.Blend.String())
		}
		x.closeEmpty()
	}
	x.end("v:volumetricstack")
	return x.err
}
