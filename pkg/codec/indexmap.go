package codec

import (
	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/model"
)

type indexKey struct {
	resource model.UniqueID
	property uint32
}

// PropertyIndexMap assigns each live property of a group its dense wire
// index. It is rebuilt for every save: indices are only meaningful inside
// the package they were written to.
type PropertyIndexMap struct {
	index map[indexKey]uint32
	count map[model.UniqueID]uint32
}

// NewPropertyIndexMap creates an empty table.
func NewPropertyIndexMap() *PropertyIndexMap {
	return &PropertyIndexMap{
		index: make(map[indexKey]uint32),
		count: make(map[model.UniqueID]uint32),
	}
}

// Add assigns the next index of group resource to property and returns it.
// Adding the same pair twice returns the first index.
func (m *PropertyIndexMap) Add(resource model.UniqueID, property uint32) uint32 {
	k := indexKey{resource, property}
	if i, ok := m.index[k]; ok {
		return i
	}
	i := m.count[resource]
	m.index[k] = i
	m.count[resource] = i + 1
	return i
}

// Index returns the wire index of property in group resource.
func (m *PropertyIndexMap) Index(resource model.UniqueID, property uint32) (uint32, error) {
	i, ok := m.index[indexKey{resource, property}]
	if !ok {
		return 0, diag.New(diag.ErrInvalidPropertyIndex, "property %d of resource %d was not written", property, resource)
	}
	return i, nil
}

// Len returns the number of indices assigned in group resource.
func (m *PropertyIndexMap) Len(resource model.UniqueID) int {
	return int(m.count[resource])
}
