package model

import (
	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
)

// VolumetricFunction is a named field source. Outputs are the channel names
// it provides.
type VolumetricFunction struct {
	base
	outputs []string
}

func (f *VolumetricFunction) Kind() ResourceKind { return KindVolumetricFunction }
func (f *VolumetricFunction) References() []UniqueID { return nil }

// Outputs returns the output channel names in order.
func (f *VolumetricFunction) Outputs() []string { return f.outputs }

// AddOutput declares an output channel. Names are unique.
func (f *VolumetricFunction) AddOutput(name string) error {
	if name == "" {
		return diag.New(diag.ErrInvalidArgument, "empty output name")
	}
	if f.HasOutput(name) {
		return diag.New(diag.ErrInvalidArgument, "duplicate output %q", name)
	}
	f.outputs = append(f.outputs, name)
	return nil
}

// HasOutput reports whether the function provides channel name.
func (f *VolumetricFunction) HasOutput(name string) bool {
	for _, o := range f.outputs {
		if o == name {
			return true
		}
	}
	return false
}

// DstChannel is a destination channel of a volumetric stack.
type DstChannel struct {
	Name       string
	Background *float64
}

// VolumeLayer blends one function output into a destination channel.
type VolumeLayer struct {
	Function   UniqueID
	Channel    string
	DstChannel string
	Blend      BlendMethod
}

// VolumetricStack composes function outputs into named channels.
type VolumetricStack struct {
	base
	channels []DstChannel
	layers   []VolumeLayer
}

func (s *VolumetricStack) Kind() ResourceKind { return KindVolumetricStack }

func (s *VolumetricStack) References() []UniqueID {
	var out []UniqueID
	for _, l := range s.layers {
		out = append(out, l.Function)
	}
	return out
}

// DstChannels returns the destination channels in order.
func (s *VolumetricStack) DstChannels() []DstChannel { return s.channels }

// Layers returns the layers in order.
func (s *VolumetricStack) Layers() []VolumeLayer { return s.layers }

// AddDstChannel declares a destination channel.
func (s *VolumetricStack) AddDstChannel(name string, background *float64) error {
	if name == "" {
		return diag.New(diag.ErrInvalidArgument, "empty channel name")
	}
	if s.HasDstChannel(name) {
		return diag.New(diag.ErrInvalidArgument, "duplicate channel %q", name)
	}
	if background != nil {
		v := *background
		background = &v
	}
	s.channels = append(s.channels, DstChannel{Name: name, Background: background})
	return nil
}

// HasDstChannel reports whether the stack declares channel name.
func (s *VolumetricStack) HasDstChannel(name string) bool {
	for _, c := range s.channels {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AddLayer appends a layer. The function must be defined earlier and provide
// the source channel; the destination channel must be declared.
func (s *VolumetricStack) AddLayer(l VolumeLayer) error {
	fn, err := As[*VolumetricFunction](s.model, l.Function)
	if err != nil {
		return err
	}
	if !fn.definedBefore(&s.base) {
		return diag.New(diag.ErrForwardReference, "function %d", fn.pid.LocalID)
	}
	if !fn.HasOutput(l.Channel) {
		return diag.New(diag.ErrInvalidArgument, "function %d has no output %q", fn.pid.LocalID, l.Channel)
	}
	if !s.HasDstChannel(l.DstChannel) {
		return diag.New(diag.ErrInvalidArgument, "stack %d has no channel %q", s.pid.LocalID, l.DstChannel)
	}
	s.layers = append(s.layers, l)
	return nil
}

// VolumeReference points a volume data element at a stack channel.
type VolumeReference struct {
	Stack     UniqueID
	Channel   string
	Transform math.Transform
}

// Levelset defines the object's shape from a field channel.
type Levelset struct {
	VolumeReference
	SolidThreshold float64
	MinFeatureSize float64
}

// VolumeProperty maps a channel to a named physical property.
type VolumeProperty struct {
	VolumeReference
	Name     string
	Required bool
}

// VolumeData is the volumetric payload of a mesh object. Nil members are
// absent.
type VolumeData struct {
	Levelset   *Levelset
	Boundary   *VolumeReference
	Composite  *VolumeReference
	Color      *VolumeReference
	Properties []VolumeProperty
}

// IsEmpty reports whether no element is set.
func (v *VolumeData) IsEmpty() bool {
	return v.Levelset == nil && v.Boundary == nil && v.Composite == nil && v.Color == nil && len(v.Properties) == 0
}

func (v *VolumeData) stacks() []UniqueID {
	var out []UniqueID
	add := func(r *VolumeReference) {
		if r != nil {
			out = append(out, r.Stack)
		}
	}
	if v.Levelset != nil {
		add(&v.Levelset.VolumeReference)
	}
	add(v.Boundary)
	add(v.Composite)
	add(v.Color)
	for i := range v.Properties {
		add(&v.Properties[i].VolumeReference)
	}
	return out
}

// VolumeData returns the object's volumetric payload.
func (o *MeshObject) VolumeData() *VolumeData { return &o.volume }

func (o *MeshObject) checkVolumeRef(r *VolumeReference) error {
	if r.Stack == 0 || r.Channel == "" {
		return diag.New(diag.ErrMissingVolumeDataAttribute, "object %d", o.pid.LocalID)
	}
	s, err := As[*VolumetricStack](o.model, r.Stack)
	if err != nil {
		return err
	}
	if !s.definedBefore(&o.base) {
		return diag.New(diag.ErrForwardReference, "volumetric stack %d", s.pid.LocalID)
	}
	if !s.HasDstChannel(r.Channel) {
		return diag.New(diag.ErrInvalidArgument, "stack %d has no channel %q", s.pid.LocalID, r.Channel)
	}
	if r.Transform == (math.Transform{}) {
		r.Transform = math.IdentityTransform()
	}
	return nil
}

// SetLevelset sets the levelset element.
func (o *MeshObject) SetLevelset(l Levelset) error {
	if err := o.checkVolumeRef(&l.VolumeReference); err != nil {
		return err
	}
	o.volume.Levelset = &l
	return nil
}

// SetBoundary sets the boundary element.
func (o *MeshObject) SetBoundary(r VolumeReference) error {
	if err := o.checkVolumeRef(&r); err != nil {
		return err
	}
	o.volume.Boundary = &r
	return nil
}

// SetVolumeComposite sets the composite element.
func (o *MeshObject) SetVolumeComposite(r VolumeReference) error {
	if err := o.checkVolumeRef(&r); err != nil {
		return err
	}
	o.volume.Composite = &r
	return nil
}

// SetVolumeColor sets the color element.
func (o *MeshObject) SetVolumeColor(r VolumeReference) error {
	if err := o.checkVolumeRef(&r); err != nil {
		return err
	}
	o.volume.Color = &r
	return nil
}

// AddVolumeProperty appends a property element. Names are unique per object.
func (o *MeshObject) AddVolumeProperty(p VolumeProperty) error {
	if p.Name == "" {
		return diag.New(diag.ErrMissingVolumeDataAttribute, "property without name")
	}
	for _, e := range o.volume.Properties {
		if e.Name == p.Name {
			return diag.New(diag.ErrInvalidArgument, "duplicate volume property %q", p.Name)
		}
	}
	if err := o.checkVolumeRef(&p.VolumeReference); err != nil {
		return err
	}
	o.volume.Properties = append(o.volume.Properties, p)
	return nil
}

// ClearVolumeData removes every volumetric element.
func (o *MeshObject) ClearVolumeData() {
	o.volume = VolumeData{}
}
