package model

import (
	"github.com/Faultbox/threemf/pkg/diag"
)

// Metadata is one key/value pair attached to the model, an object or a
// build item.
type Metadata struct {
	Namespace string
	Name      string
	Value     string
	Type      string
	Preserve  bool
}

// Key returns the qualified name used for duplicate detection.
func (m Metadata) Key() string {
	if m.Namespace == "" {
		return m.Name
	}
	return m.Namespace + ":" + m.Name
}

// MetadataGroup is an ordered set of metadata with unique keys.
// The zero value is ready to use.
type MetadataGroup struct {
	entries []Metadata
}

// Add appends an entry. An entry with the same key is rejected.
func (g *MetadataGroup) Add(m Metadata) error {
	if m.Name == "" {
		return diag.New(diag.ErrInvalidArgument, "metadata without name")
	}
	if _, ok := g.Get(m.Key()); ok {
		return diag.New(diag.ErrDuplicateMetadata, "%s", m.Key())
	}
	g.entries = append(g.entries, m)
	return nil
}

// Get returns the entry with the given qualified key.
func (g *MetadataGroup) Get(key string) (Metadata, bool) {
	for _, e := range g.entries {
		if e.Key() == key {
			return e, true
		}
	}
	return Metadata{}, false
}

// Remove deletes the entry with the given key and reports whether it existed.
func (g *MetadataGroup) Remove(key string) bool {
	for i, e := range g.entries {
		if e.Key() == key {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (g *MetadataGroup) Len() int {
	return len(g.entries)
}

// All returns the entries in insertion order.
func (g *MetadataGroup) All() []Metadata {
	return g.entries
}
