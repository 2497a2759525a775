package model

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/opc"
	"github.com/Faultbox/threemf/pkg/props"
)

// Relationship types an attachment may be registered under.
const (
	RelThumbnail = opc.RelThumbnail
	RelTexture   = opc.RelTexture
)

// ThumbnailPath is where SetThumbnail stores the package thumbnail.
const ThumbnailPath = "/Metadata/thumbnail.png"

// Unit is the length unit of model coordinates.
type Unit uint8

// Units.
const (
	UnitMillimeter Unit = iota
	UnitMicron
	UnitCentimeter
	UnitInch
	UnitFoot
	UnitMeter
)

func (u Unit) String() string {
	switch u {
	case UnitMillimeter:
		return "millimeter"
	case UnitMicron:
		return "micron"
	case UnitCentimeter:
		return "centimeter"
	case UnitInch:
		return "inch"
	case UnitFoot:
		return "foot"
	case UnitMeter:
		return "meter"
	default:
		return fmt.Sprintf("Unknown(%d)", u)
	}
}

// ParseUnit converts a wire unit name.
func ParseUnit(s string) (Unit, bool) {
	for u := UnitMillimeter; u <= UnitMeter; u++ {
		if u.String() == s {
			return u, true
		}
	}
	return 0, false
}

// BuildItem places an object on the build plate.
type BuildItem struct {
	Object     UniqueID
	Transform  math.Transform
	PartNumber string
	UUID       uuid.UUID
	Metadata   MetadataGroup
}

// Attachment is a binary part carried by the package.
type Attachment struct {
	Path             string
	RelationshipType string
	ContentType      string
	Data             []byte
}

// Model is an in-memory 3MF package.
type Model struct {
	Unit      Unit
	Language  string
	Metadata  MetadataGroup
	BuildUUID uuid.UUID

	// CustomContentTypes maps a lower-case file extension to a content type
	// for parts whose extension is not built in.
	CustomContentTypes map[string]string

	registry    *Registry
	seq         uint64
	resources   []Resource
	byID        map[UniqueID]Resource
	build       []*BuildItem
	attachments []*Attachment
	thumbnail   string
}

// New creates an empty model in millimeters.
func New() *Model {
	return &Model{
		Language:           "en-US",
		CustomContentTypes: make(map[string]string),
		registry:           NewRegistry(),
		byID:               make(map[UniqueID]Resource),
	}
}

// Registry returns the ID registry owned by the model.
func (m *Model) Registry() *Registry { return m.registry }

func (m *Model) newBase(partPath string, local uint32) (base, error) {
	partPath = NormalizePath(partPath)
	if local == 0 {
		local = m.registry.GenerateLocalID(partPath)
	}
	if local > MaxLocalID {
		return base{}, diag.New(diag.ErrInvalidResourceID, "%d", local)
	}
	id := m.registry.FindOrCreate(partPath, local)
	if _, ok := m.byID[id]; ok {
		return base{}, diag.New(diag.ErrDuplicateResourceID, "%s#%d", partPath, local)
	}
	m.seq++
	return base{
		id:    id,
		pid:   PackageResourceID{Path: partPath, LocalID: local},
		seq:   m.seq,
		model: m,
	}, nil
}

func (m *Model) register(r Resource) {
	m.resources = append(m.resources, r)
	m.byID[r.ID()] = r
}

// AddMeshObject defines an empty mesh object. An empty path means the root
// part; a zero local ID is generated.
func (m *Model) AddMeshObject(partPath string, local uint32) (*MeshObject, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	o := &MeshObject{base: b, mesh: mesh.New()}
	m.register(o)
	return o, nil
}

// AddComponentsObject defines an empty components object.
func (m *Model) AddComponentsObject(partPath string, local uint32) (*ComponentsObject, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	o := &ComponentsObject{base: b}
	m.register(o)
	return o, nil
}

// AddBaseMaterialGroup defines an empty base material group.
func (m *Model) AddBaseMaterialGroup(partPath string, local uint32) (*BaseMaterialGroup, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	g := &BaseMaterialGroup{base: b}
	m.register(g)
	return g, nil
}

// AddColorGroup defines an empty color group.
func (m *Model) AddColorGroup(partPath string, local uint32) (*ColorGroup, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	g := &ColorGroup{base: b}
	m.register(g)
	return g, nil
}

// AddTexture2D defines a texture whose image is the attachment at texPath.
func (m *Model) AddTexture2D(partPath string, local uint32, texPath, contentType string) (*Texture2D, error) {
	if texPath == "" {
		return nil, diag.New(diag.ErrInvalidArgument, "texture without path")
	}
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	t := &Texture2D{base: b, Path: NormalizePath(texPath), ContentType: contentType}
	m.register(t)
	return t, nil
}

// AddTexture2DGroup defines a coordinate group into an existing texture.
func (m *Model) AddTexture2DGroup(partPath string, local uint32, texture UniqueID) (*Texture2DGroup, error) {
	if _, err := As[*Texture2D](m, texture); err != nil {
		return nil, err
	}
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	g := &Texture2DGroup{base: b, texture: texture}
	m.register(g)
	return g, nil
}

// AddCompositeMaterials defines a composite group mixing the given
// materials of an existing base material group.
func (m *Model) AddCompositeMaterials(partPath string, local uint32, baseMaterials UniqueID, materialIDs []uint32) (*CompositeMaterials, error) {
	bg, err := As[*BaseMaterialGroup](m, baseMaterials)
	if err != nil {
		return nil, err
	}
	if len(materialIDs) == 0 {
		return nil, diag.New(diag.ErrInvalidArgument, "composite without materials")
	}
	for _, id := range materialIDs {
		if !bg.HasProperty(id) {
			return nil, diag.New(diag.ErrInvalidPropertyIndex, "base material %d", id)
		}
	}
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	g := &CompositeMaterials{base: b, baseMaterials: baseMaterials, materialIDs: append([]uint32(nil), materialIDs...)}
	m.register(g)
	return g, nil
}

// AddMultiPropertyGroup defines an empty multi-property group.
func (m *Model) AddMultiPropertyGroup(partPath string, local uint32) (*MultiPropertyGroup, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	g := &MultiPropertyGroup{base: b}
	m.register(g)
	return g, nil
}

// AddSliceStack defines an empty slice stack.
func (m *Model) AddSliceStack(partPath string, local uint32, bottomZ float64) (*SliceStack, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	s := &SliceStack{base: b, BottomZ: bottomZ}
	m.register(s)
	return s, nil
}

// AddVolumetricFunction defines a function without outputs.
func (m *Model) AddVolumetricFunction(partPath string, local uint32) (*VolumetricFunction, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	f := &VolumetricFunction{base: b}
	m.register(f)
	return f, nil
}

// AddVolumetricStack defines an empty volumetric stack.
func (m *Model) AddVolumetricStack(partPath string, local uint32) (*VolumetricStack, error) {
	b, err := m.newBase(partPath, local)
	if err != nil {
		return nil, err
	}
	s := &VolumetricStack{base: b}
	m.register(s)
	return s, nil
}

// Resource returns the resource with unique ID id.
func (m *Model) Resource(id UniqueID) (Resource, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, diag.New(diag.ErrResourceNotFound, "unique ID %d", id)
	}
	return r, nil
}

// FindResource returns the resource defined as local in partPath.
func (m *Model) FindResource(partPath string, local uint32) (Resource, error) {
	id, ok := m.registry.Find(partPath, local)
	if !ok {
		return nil, diag.New(diag.ErrResourceNotFound, "%s#%d", NormalizePath(partPath), local)
	}
	return m.Resource(id)
}

// As returns the resource id as type T.
func As[T Resource](m *Model, id UniqueID) (T, error) {
	var zero T
	r, err := m.Resource(id)
	if err != nil {
		return zero, err
	}
	t, ok := r.(T)
	if !ok {
		return zero, diag.New(diag.ErrResourceKindMismatch, "resource %d is %s", r.PackageID().LocalID, r.Kind())
	}
	return t, nil
}

// Object returns the mesh or components object id.
func (m *Model) Object(id UniqueID) (Object, error) {
	return As[Object](m, id)
}

// PropertyGroup returns the property group id.
func (m *Model) PropertyGroup(id UniqueID) (PropertyGroup, error) {
	return As[PropertyGroup](m, id)
}

func (m *Model) kindOf(id UniqueID) ResourceKind {
	if r, ok := m.byID[id]; ok {
		return r.Kind()
	}
	return -1
}

// Resources returns every resource in definition order.
func (m *Model) Resources() []Resource {
	return m.resources
}

// ResourcesInPart returns the resources defined in partPath, in order.
func (m *Model) ResourcesInPart(partPath string) []Resource {
	partPath = NormalizePath(partPath)
	var out []Resource
	for _, r := range m.resources {
		if r.PackageID().Path == partPath {
			out = append(out, r)
		}
	}
	return out
}

// Parts returns the model part paths in use: the root part first, then
// secondary parts in order of their first resource.
func (m *Model) Parts() []string {
	out := []string{RootPath}
	seen := map[string]bool{RootPath: true}
	for _, r := range m.resources {
		if p := r.PackageID().Path; !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// CompareObjectsByResourceID reports whether a was defined strictly before b.
func (m *Model) CompareObjectsByResourceID(a, b Resource) bool {
	return a.core().definedBefore(b.core())
}

// contains reports whether the object subtree rooted at root places target.
func (m *Model) contains(root, target UniqueID) bool {
	seen := make(map[UniqueID]bool)
	var walk func(UniqueID) bool
	walk = func(id UniqueID) bool {
		if id == target {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		co, ok := m.byID[id].(*ComponentsObject)
		if !ok {
			return false
		}
		for _, c := range co.components {
			if walk(c.Object) {
				return true
			}
		}
		return false
	}
	return walk(root)
}

// channelKinds lists which resource kinds each property channel may name.
var channelKinds = map[props.Kind][]ResourceKind{
	props.BaseMaterial: {KindBaseMaterials},
	props.Color:        {KindColorGroup},
	props.NodeColor:    {KindColorGroup},
	props.TexCoord:     {KindTexture2DGroup},
	props.Passthrough:  {KindCompositeMaterials, KindMultiProperties},
}

func (m *Model) checkFaceData(kind props.Kind, data props.FaceData) error {
	if !data.HasData() {
		return nil
	}
	pg, err := m.PropertyGroup(UniqueID(data.ResourceID))
	if err != nil {
		return err
	}
	if allowed, ok := channelKinds[kind]; ok {
		match := false
		for _, k := range allowed {
			match = match || k == pg.Kind()
		}
		if !match {
			return diag.New(diag.ErrResourceKindMismatch, "%s channel cannot reference %s", kind, pg.Kind())
		}
	}
	for _, id := range data.PropertyIDs {
		if !pg.HasProperty(id) {
			return diag.New(diag.ErrInvalidPropertyIndex, "group %d property %d", pg.PackageID().LocalID, id)
		}
	}
	return nil
}

// ChannelKindFor returns the property channel that stores references to a
// group of kind k.
func ChannelKindFor(k ResourceKind) (props.Kind, bool) {
	switch k {
	case KindBaseMaterials:
		return props.BaseMaterial, true
	case KindColorGroup:
		return props.Color, true
	case KindTexture2DGroup:
		return props.TexCoord, true
	case KindCompositeMaterials, KindMultiProperties:
		return props.Passthrough, true
	}
	return 0, false
}

// IsReferenced reports whether any resource or build item points at id.
func (m *Model) IsReferenced(id UniqueID) bool {
	for _, item := range m.build {
		if item.Object == id {
			return true
		}
	}
	for _, r := range m.resources {
		if r.ID() == id {
			continue
		}
		for _, ref := range r.References() {
			if ref == id {
				return true
			}
		}
	}
	return false
}

// RemoveResource deletes an unreferenced object. Property groups, textures,
// slice stacks and volumetric resources live as long as the model. The
// unique ID stays allocated and is never handed out again.
func (m *Model) RemoveResource(id UniqueID) error {
	r, err := m.Resource(id)
	if err != nil {
		return err
	}
	if k := r.Kind(); k != KindMeshObject && k != KindComponentsObject {
		return diag.New(diag.ErrInvalidArgument, "%s resources cannot be removed", k)
	}
	if m.IsReferenced(id) {
		return diag.New(diag.ErrInvalidArgument, "resource %d is referenced", r.PackageID().LocalID)
	}
	for i, e := range m.resources {
		if e.ID() == id {
			m.resources = append(m.resources[:i], m.resources[i+1:]...)
			break
		}
	}
	delete(m.byID, id)
	m.registry.Retire(id)
	return nil
}

// AddBuildItem places an object. Objects of type "other" cannot be built.
func (m *Model) AddBuildItem(object UniqueID, t math.Transform) (*BuildItem, error) {
	o, err := m.Object(object)
	if err != nil {
		return nil, err
	}
	if o.Info().Type == ObjectOther {
		return nil, diag.New(diag.ErrInvalidArgument, "object %d has type other", o.PackageID().LocalID)
	}
	if t == (math.Transform{}) {
		t = math.IdentityTransform()
	}
	item := &BuildItem{Object: object, Transform: t}
	m.build = append(m.build, item)
	return item, nil
}

// RemoveBuildItem deletes item from the build list.
func (m *Model) RemoveBuildItem(item *BuildItem) error {
	for i, b := range m.build {
		if b == item {
			m.build = append(m.build[:i], m.build[i+1:]...)
			return nil
		}
	}
	return diag.New(diag.ErrInvalidArgument, "build item not in model")
}

// BuildItems returns the build list in order.
func (m *Model) BuildItems() []*BuildItem {
	return m.build
}

// AddAttachment stores a binary part. The data is copied.
func (m *Model) AddAttachment(partPath, relType string, data []byte) (*Attachment, error) {
	partPath = NormalizePath(partPath)
	if partPath == RootPath || strings.HasSuffix(strings.ToLower(partPath), ".model") {
		return nil, diag.New(diag.ErrInvalidArgument, "attachment %s collides with a model part", partPath)
	}
	if m.Attachment(partPath) != nil {
		return nil, diag.New(diag.ErrInvalidArgument, "duplicate attachment %s", partPath)
	}
	a := &Attachment{
		Path:             partPath,
		RelationshipType: relType,
		ContentType:      m.ContentTypeFor(partPath),
		Data:             append([]byte(nil), data...),
	}
	m.attachments = append(m.attachments, a)
	return a, nil
}

// Attachment returns the attachment at partPath, or nil. Lookup ignores case.
func (m *Model) Attachment(partPath string) *Attachment {
	partPath = NormalizePath(partPath)
	for _, a := range m.attachments {
		if strings.EqualFold(a.Path, partPath) {
			return a
		}
	}
	return nil
}

// Attachments returns every attachment in insertion order, including the
// thumbnail.
func (m *Model) Attachments() []*Attachment {
	return m.attachments
}

// RemoveAttachment deletes the attachment at partPath. Attachments still
// used by a texture are kept.
func (m *Model) RemoveAttachment(partPath string) error {
	partPath = NormalizePath(partPath)
	for _, r := range m.resources {
		if t, ok := r.(*Texture2D); ok && strings.EqualFold(t.Path, partPath) {
			return diag.New(diag.ErrInvalidArgument, "attachment %s used by texture %d", partPath, t.pid.LocalID)
		}
	}
	for i, a := range m.attachments {
		if strings.EqualFold(a.Path, partPath) {
			m.attachments = append(m.attachments[:i], m.attachments[i+1:]...)
			if strings.EqualFold(m.thumbnail, partPath) {
				m.thumbnail = ""
			}
			return nil
		}
	}
	return diag.New(diag.ErrResourceNotFound, "attachment %s", partPath)
}

// SetThumbnail stores data as the package thumbnail, replacing any previous
// one. Empty data removes it.
func (m *Model) SetThumbnail(data []byte, contentType string) error {
	if m.thumbnail != "" {
		_ = m.RemoveAttachment(m.thumbnail)
	}
	if len(data) == 0 {
		return nil
	}
	p := ThumbnailPath
	if contentType == opc.ContentTypeJPEG {
		p = strings.TrimSuffix(p, path.Ext(p)) + ".jpg"
	}
	a, err := m.AddAttachment(p, RelThumbnail, data)
	if err != nil {
		return err
	}
	if contentType != "" {
		a.ContentType = contentType
	}
	m.thumbnail = a.Path
	return nil
}

// SetThumbnailPath designates an existing attachment as the thumbnail.
func (m *Model) SetThumbnailPath(partPath string) error {
	a := m.Attachment(partPath)
	if a == nil {
		return diag.New(diag.ErrResourceNotFound, "attachment %s", partPath)
	}
	a.RelationshipType = RelThumbnail
	m.thumbnail = a.Path
	return nil
}

// Thumbnail returns the thumbnail attachment, or nil.
func (m *Model) Thumbnail() *Attachment {
	if m.thumbnail == "" {
		return nil
	}
	return m.Attachment(m.thumbnail)
}

// ContentTypeFor returns the content type for a part name by extension.
func (m *Model) ContentTypeFor(partPath string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(partPath), "."))
	if ct, ok := m.CustomContentTypes[ext]; ok {
		return ct
	}
	if ct, ok := opc.DefaultContentType(ext); ok {
		return ct
	}
	return "application/octet-stream"
}
