package props

import (
	"github.com/Faultbox/threemf/pkg/diag"
)

// Handler owns the channels attached to one mesh. Each kind has at most one
// channel, stored at the slot equal to its kind value. A face carries data in
// at most one channel at a time.
type Handler struct {
	channels  []Channel
	faceCount int
}

// NewHandler creates a handler for a mesh with faceCount faces.
func NewHandler(faceCount int) *Handler {
	return &Handler{faceCount: faceCount}
}

// FaceCount returns the number of faces every channel is sized to.
func (h *Handler) FaceCount() int {
	return h.faceCount
}

// Channel returns the channel of the given kind, or nil.
func (h *Handler) Channel(kind Kind) Channel {
	if int(kind) < 0 || int(kind) >= len(h.channels) {
		return nil
	}
	return h.channels[kind]
}

// Channels returns the non-nil channels in slot order.
func (h *Handler) Channels() []Channel {
	out := make([]Channel, 0, len(h.channels))
	for _, c := range h.channels {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// HasChannels reports whether any channel is attached.
func (h *Handler) HasChannels() bool {
	for _, c := range h.channels {
		if c != nil {
			return true
		}
	}
	return false
}

// AddChannel returns the channel of the given kind, creating it if needed.
func (h *Handler) AddChannel(kind Kind) Channel {
	if c := h.Channel(kind); c != nil {
		return c
	}
	c := New(kind, h.faceCount)
	h.setSlot(kind, c)
	return c
}

// RegisterChannel attaches a caller-supplied channel, replacing any channel
// of the same kind. The channel is resized to the handler's face count.
func (h *Handler) RegisterChannel(c Channel) error {
	if c == nil || c.Kind() < 0 {
		return diag.New(diag.ErrInvalidArgument, "invalid channel")
	}
	c.Resize(h.faceCount)
	h.setSlot(c.Kind(), c)
	return nil
}

// RemoveChannel detaches the channel of the given kind.
func (h *Handler) RemoveChannel(kind Kind) {
	if int(kind) >= 0 && int(kind) < len(h.channels) {
		h.channels[kind] = nil
	}
}

func (h *Handler) setSlot(kind Kind, c Channel) {
	for len(h.channels) <= int(kind) {
		h.channels = append(h.channels, nil)
	}
	h.channels[kind] = c
}

// AddFaces grows every channel by n faces. New slots carry no data.
func (h *Handler) AddFaces(n int) {
	h.Resize(h.faceCount + n)
}

// Resize sets the face count of every channel.
func (h *Handler) Resize(faceCount int) {
	h.faceCount = faceCount
	for _, c := range h.channels {
		if c != nil {
			c.Resize(faceCount)
		}
	}
}

// ResetFaces drops every face record and resizes to faceCount empty slots.
// Defaults are kept.
func (h *Handler) ResetFaces(faceCount int) {
	h.Resize(0)
	h.Resize(faceCount)
}

func (h *Handler) checkFace(face int) error {
	if face < 0 || face >= h.faceCount {
		return diag.New(diag.ErrInvalidIndex, "face %d of %d", face, h.faceCount)
	}
	return nil
}

// FaceProperties returns the kind and record of the first channel holding
// data for face. ok is false when no channel does.
func (h *Handler) FaceProperties(face int) (kind Kind, data FaceData, ok bool) {
	for _, c := range h.channels {
		if c != nil && c.FaceHasData(face) {
			d, err := c.FaceData(face)
			if err != nil {
				return 0, FaceData{}, false
			}
			return c.Kind(), d, true
		}
	}
	return 0, FaceData{}, false
}

// SetFaceProperties stores data for face in the channel of the given kind and
// clears the face in every other channel.
func (h *Handler) SetFaceProperties(face int, kind Kind, data FaceData) error {
	if err := h.checkFace(face); err != nil {
		return err
	}
	target := h.AddChannel(kind)
	if err := target.SetFaceData(face, data); err != nil {
		return err
	}
	for _, c := range h.channels {
		if c != nil && c != target {
			if err := c.InvalidateFace(face); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvalidateFace clears face in every channel.
func (h *Handler) InvalidateFace(face int) error {
	if err := h.checkFace(face); err != nil {
		return err
	}
	for _, c := range h.channels {
		if c != nil {
			if err := c.InvalidateFace(face); err != nil {
				return err
			}
		}
	}
	return nil
}

// PermuteFace reorders the corners of face in every channel.
func (h *Handler) PermuteFace(face int, perm [3]int) error {
	if err := h.checkFace(face); err != nil {
		return err
	}
	if !ValidPermutation(perm) {
		return diag.New(diag.ErrInvalidArgument, "invalid permutation %v", perm)
	}
	for _, c := range h.channels {
		if c != nil {
			if err := c.PermuteNodeInformation(face, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefaultProperty returns the first channel default that carries data.
func (h *Handler) DefaultProperty() (kind Kind, data FaceData, ok bool) {
	for _, c := range h.channels {
		if c != nil && c.DefaultData().HasData() {
			return c.Kind(), c.DefaultData(), true
		}
	}
	return 0, FaceData{}, false
}

// SetDefaultProperty stores the mesh-wide default in the channel of the given
// kind and clears the defaults of every other channel.
func (h *Handler) SetDefaultProperty(kind Kind, data FaceData) error {
	target := h.AddChannel(kind)
	if err := target.SetDefaultData(data); err != nil {
		return err
	}
	for _, c := range h.channels {
		if c != nil && c != target {
			if err := c.SetDefaultData(FaceData{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClearDefaultProperty removes the default from every channel.
func (h *Handler) ClearDefaultProperty() {
	for _, c := range h.channels {
		if c != nil {
			_ = c.SetDefaultData(FaceData{})
		}
	}
}

// Clone returns a deep copy sized to faceCount.
func (h *Handler) Clone(faceCount int) *Handler {
	out := &Handler{faceCount: faceCount, channels: make([]Channel, len(h.channels))}
	for i, c := range h.channels {
		if c != nil {
			out.channels[i] = c.CloneInstance(faceCount)
		}
	}
	return out
}

// MergeFrom appends other's face records after this handler's current faces.
// Channels missing on either side are created and padded with empty slots.
func (h *Handler) MergeFrom(other *Handler) error {
	oldCount := h.faceCount
	for _, oc := range other.channels {
		if oc != nil {
			h.AddChannel(oc.Kind())
		}
	}
	for _, c := range h.channels {
		if c == nil {
			continue
		}
		oc := other.Channel(c.Kind())
		if oc == nil {
			c.Resize(oldCount + other.faceCount)
			continue
		}
		c.Resize(oldCount)
		if err := c.MergeInformationFrom(oc); err != nil {
			return err
		}
		if !c.DefaultData().HasData() {
			if err := c.CloneDefaultInfosFrom(oc); err != nil {
				return err
			}
		}
	}
	h.faceCount = oldCount + other.faceCount
	return nil
}

// RemapResources rewrites resource IDs in every channel.
func (h *Handler) RemapResources(mapping map[uint32]uint32) {
	for _, c := range h.channels {
		if c != nil {
			c.RemapResources(mapping)
		}
	}
}

// ResourceIDs returns every resource ID referenced by any face or default,
// in order of first appearance by channel then face.
func (h *Handler) ResourceIDs() []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	add := func(d FaceData) {
		if d.HasData() && !seen[d.ResourceID] {
			seen[d.ResourceID] = true
			out = append(out, d.ResourceID)
		}
	}
	for _, c := range h.channels {
		if c == nil {
			continue
		}
		add(c.DefaultData())
		for i := 0; i < c.FaceCount(); i++ {
			if d, err := c.FaceData(i); err == nil {
				add(d)
			}
		}
	}
	return out
}
