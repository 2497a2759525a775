package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/model"
)

// modelWriter emits one model part.
type modelWriter struct {
	w      *Writer
	m      *model.Model
	part   string
	isRoot bool
	x      *xmlWriter

	// used holds the known namespaces this part needs.
	used map[string]bool
	// custom maps metadata namespaces outside the known set to their prefix.
	custom   map[string]string
	customNS []string
}

func newModelWriter(w *Writer, part string, isRoot bool, dst io.Writer) *modelWriter {
	return &modelWriter{
		w:      w,
		m:      w.model,
		part:   part,
		isRoot: isRoot,
		x:      newXMLWriter(dst, w.opts.precision),
		used:   make(map[string]bool),
		custom: make(map[string]string),
	}
}

// namespaceOrder is the order in which prefixes are declared.
var namespaceOrder = []string{NSMaterial, NSProduction, NSBeamLattice, NSBalls, NSSlice, NSVolumetric}

// scan records the namespaces the part needs before anything is written.
func (mw *modelWriter) scan() {
	if mw.isRoot {
		mw.scanMetadata(&mw.m.Metadata)
		if mw.m.BuildUUID != uuid.Nil || len(mw.m.Parts()) > 1 {
			mw.used[NSProduction] = true
		}
		for _, it := range mw.m.BuildItems() {
			mw.scanMetadata(&it.Metadata)
			if it.UUID != uuid.Nil || !mw.samePart(it.Object) {
				mw.used[NSProduction] = true
			}
		}
	}
	for _, r := range mw.m.ResourcesInPart(mw.part) {
		switch v := r.(type) {
		case *model.ColorGroup, *model.Texture2D, *model.Texture2DGroup, *model.CompositeMaterials, *model.MultiPropertyGroup:
			mw.used[NSMaterial] = true
		case *model.SliceStack:
			mw.used[NSSlice] = true
		case *model.VolumetricFunction, *model.VolumetricStack:
			mw.used[NSVolumetric] = true
		case *model.MeshObject:
			mw.scanObject(v.Info())
			msh := v.Mesh()
			if msh.BeamCount() > 0 || msh.BallCount() > 0 {
				mw.used[NSBeamLattice] = true
				if msh.BallCount() > 0 || v.BeamLattice().BallMode != model.BallNone {
					mw.used[NSBalls] = true
				}
			}
			if v.SliceStack() != 0 {
				mw.used[NSSlice] = true
			}
			if !v.VolumeData().IsEmpty() {
				mw.used[NSVolumetric] = true
			}
		case *model.ComponentsObject:
			mw.scanObject(v.Info())
			for _, c := range v.Components() {
				if c.UUID != uuid.Nil || !mw.samePart(c.Object) {
					mw.used[NSProduction] = true
				}
			}
		}
	}
}

func (mw *modelWriter) scanObject(info *model.ObjectInfo) {
	if info.UUID != uuid.Nil {
		mw.used[NSProduction] = true
	}
	mw.scanMetadata(&info.Metadata)
}

func (mw *modelWriter) scanMetadata(g *model.MetadataGroup) {
	for _, md := range g.All() {
		if md.Namespace == "" {
			continue
		}
		if _, known := knownNamespaces[md.Namespace]; known {
			mw.used[md.Namespace] = true
			continue
		}
		if _, ok := mw.custom[md.Namespace]; !ok {
			mw.custom[md.Namespace] = fmt.Sprintf("ns%d", len(mw.customNS))
			mw.customNS = append(mw.customNS, md.Namespace)
		}
	}
}

func (mw *modelWriter) samePart(id model.UniqueID) bool {
	r, err := mw.m.Resource(id)
	return err == nil && r.PackageID().Path == mw.part
}

// ref returns the local ID of a resource that must live in this part.
func (mw *modelWriter) ref(id model.UniqueID) (uint32, error) {
	r, err := mw.m.Resource(id)
	if err != nil {
		return 0, err
	}
	pid := r.PackageID()
	if pid.Path != mw.part {
		return 0, diag.New(diag.ErrReferenceTooDeep, "resource %d of %s referenced from %s", pid.LocalID, pid.Path, mw.part)
	}
	return pid.LocalID, nil
}

// pathRef returns the local ID of a resource and its part path when it
// lives in another part.
func (mw *modelWriter) pathRef(id model.UniqueID) (uint32, string, error) {
	r, err := mw.m.Resource(id)
	if err != nil {
		return 0, "", err
	}
	pid := r.PackageID()
	if pid.Path == mw.part {
		return pid.LocalID, "", nil
	}
	return pid.LocalID, pid.Path, nil
}

func (mw *modelWriter) writeModel() error {
	mw.scan()
	x := mw.x
	x.raw(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	x.open("model")
	x.attr("unit", mw.m.Unit.String())
	x.attrIf("xml:lang", mw.m.Language)
	x.attr("xmlns", NSCore)
	var required []string
	for _, ns := range namespaceOrder {
		if !mw.used[ns] {
			continue
		}
		prefix := knownNamespaces[ns]
		x.attr("xmlns:"+prefix, ns)
		switch ns {
		case NSBeamLattice, NSSlice, NSVolumetric:
			required = append(required, prefix)
		}
	}
	for _, ns := range mw.customNS {
		x.attr("xmlns:"+mw.custom[ns], ns)
	}
	if len(required) > 0 {
		x.attr("requiredextensions", strings.Join(required, " "))
	}
	x.closeOpen()

	if mw.isRoot {
		mw.writeMetadata(&mw.m.Metadata)
	}
	if err := mw.writeResources(); err != nil {
		return err
	}
	if mw.isRoot {
		if err := mw.writeBuild(); err != nil {
			return err
		}
	}
	x.end("model")
	return x.err
}

func (mw *modelWriter) metadataName(md model.Metadata) string {
	if md.Namespace == "" {
		return md.Name
	}
	if prefix, ok := knownNamespaces[md.Namespace]; ok {
		if prefix == "" {
			return md.Name
		}
		return prefix + ":" + md.Name
	}
	return mw.custom[md.Namespace] + ":" + md.Name
}

func (mw *modelWriter) writeMetadata(g *model.MetadataGroup) {
	x := mw.x
	for _, md := range g.All() {
		x.open("metadata")
		x.attr("name", mw.metadataName(md))
		if md.Preserve {
			x.attr("preserve", "1")
		}
		x.attrIf("type", md.Type)
		x.textBody("metadata", md.Value)
	}
}

func (mw *modelWriter) writeMetadataGroup(g *model.MetadataGroup) {
	if g.Len() == 0 {
		return
	}
	mw.x.raw("<metadatagroup>\n")
	mw.writeMetadata(g)
	mw.x.end("metadatagroup")
}

// writeResources emits property groups and other non-object resources
// first, then objects, each in definition order.
func (mw *modelWriter) writeResources() error {
	resources := mw.m.ResourcesInPart(mw.part)
	mw.x.raw("<resources>\n")
	for _, r := range resources {
		if isObject(r) {
			continue
		}
		if err := mw.writeResource(r); err != nil {
			return err
		}
	}
	for _, r := range resources {
		if !isObject(r) {
			continue
		}
		if err := mw.writeResource(r); err != nil {
			return err
		}
	}
	mw.x.end("resources")
	return mw.x.err
}

func isObject(r model.Resource) bool {
	k := r.Kind()
	return k == model.KindMeshObject || k == model.KindComponentsObject
}

func (mw *modelWriter) writeResource(r model.Resource) error {
	switch v := r.(type) {
	case *model.BaseMaterialGroup:
		return mw.writeBaseMaterials(v)
	case *model.ColorGroup:
		return mw.writeColorGroup(v)
	case *model.Texture2D:
		return mw.writeTexture2D(v)
	case *model.Texture2DGroup:
		return mw.writeTexture2DGroup(v)
	case *model.CompositeMaterials:
		return mw.writeComposite(v)
	case *model.MultiPropertyGroup:
		return mw.writeMultiProperties(v)
	case *model.SliceStack:
		return mw.writeSliceStack(v)
	case *model.VolumetricFunction:
		return mw.writeFunction(v)
	case *model.VolumetricStack:
		return mw.writeVolumetricStack(v)
	case *model.MeshObject:
		return mw.writeMeshObject(v)
	case *model.ComponentsObject:
		return mw.writeComponentsObject(v)
	}
	return diag.New(diag.ErrInvalidArgument, "cannot write %s resource", r.Kind())
}

func (mw *modelWriter) writeBuild() error {
	x := mw.x
	x.open("build")
	if mw.m.BuildUUID != uuid.Nil {
		x.attr("p:UUID", mw.m.BuildUUID.String())
	}
	x.closeOpen()
	for _, it := range mw.m.BuildItems() {
		id, path, err := mw.pathRef(it.Object)
		if err != nil {
			return err
		}
		x.open("item")
		x.attrUint("objectid", id)
		x.attrIf("p:path", path)
		mw.writeTransform(it.Transform)
		x.attrIf("partnumber", it.PartNumber)
		if it.UUID != uuid.Nil {
			x.attr("p:UUID", it.UUID.String())
		}
		if it.Metadata.Len() == 0 {
			x.closeEmpty()
			continue
		}
		x.closeOpen()
		mw.writeMetadataGroup(&it.Metadata)
		x.end("item")
	}
	x.end("build")
	return x.err
}

// writeTransform writes the transform attribute unless t is the identity.
// The zero transform also means identity.
func (mw *modelWriter) writeTransform(t math.Transform) {
	if t == (math.Transform{}) || t.IsIdentity() {
		return
	}
	mw.x.attr("transform", formatTransform(t, mw.x.prec))
}
