package model

import (
	"strconv"
	"strings"

	"github.com/Faultbox/threemf/pkg/diag"
)

// RootPath is the conventional part name of the primary model XML part.
const RootPath = "/3D/3dmodel.model"

// MaxLocalID is the largest local resource ID accepted on the wire.
const MaxLocalID = 1<<31 - 1

// UniqueID is the package-wide identifier of a resource. Zero is never
// assigned and means "no resource".
type UniqueID uint32

// PackageResourceID is the wire identity of a resource: the model part it is
// defined in plus its local ID inside that part.
type PackageResourceID struct {
	Path    string
	LocalID uint32
}

// NormalizePath returns the canonical form of a part name: forward slashes
// with a single leading slash. An empty path names the root model part.
func NormalizePath(p string) string {
	if p == "" {
		return RootPath
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Registry maps wire identities to unique IDs. A model owns exactly one
// registry; unique IDs are allocated monotonically and never reused.
type Registry struct {
	next     UniqueID
	byUnique map[UniqueID]PackageResourceID
	byPID    map[PackageResourceID]UniqueID
	maxLocal map[string]uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUnique: make(map[UniqueID]PackageResourceID),
		byPID:    make(map[PackageResourceID]UniqueID),
		maxLocal: make(map[string]uint32),
	}
}

// FindOrCreate returns the unique ID of (path, local), allocating one on
// first sight.
func (r *Registry) FindOrCreate(path string, local uint32) UniqueID {
	pid := PackageResourceID{Path: NormalizePath(path), LocalID: local}
	if id, ok := r.byPID[pid]; ok {
		return id
	}
	r.next++
	r.byPID[pid] = r.next
	r.byUnique[r.next] = pid
	if local > r.maxLocal[pid.Path] {
		r.maxLocal[pid.Path] = local
	}
	return r.next
}

// Find returns the unique ID of (path, local) without allocating.
func (r *Registry) Find(path string, local uint32) (UniqueID, bool) {
	id, ok := r.byPID[PackageResourceID{Path: NormalizePath(path), LocalID: local}]
	return id, ok
}

// Lookup returns the wire identity of a unique ID.
func (r *Registry) Lookup(id UniqueID) (PackageResourceID, bool) {
	pid, ok := r.byUnique[id]
	return pid, ok
}

// GenerateLocalID returns the next local ID not yet seen in path.
func (r *Registry) GenerateLocalID(path string) uint32 {
	return r.maxLocal[NormalizePath(path)] + 1
}

// Retire detaches id from its wire identity. The unique ID stays allocated,
// so a later resource with the same part and local ID gets a fresh one.
func (r *Registry) Retire(id UniqueID) {
	pid, ok := r.byUnique[id]
	if !ok {
		return
	}
	if cur, ok := r.byPID[pid]; ok && cur == id {
		delete(r.byPID, pid)
	}
}

// Len returns the number of allocated unique IDs.
func (r *Registry) Len() int {
	return len(r.byUnique)
}

// ParseLocalID converts a wire resource ID. Values outside 1..MaxLocalID are
// rejected rather than clamped.
func ParseLocalID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || v == 0 || v > MaxLocalID {
		return 0, diag.New(diag.ErrInvalidResourceID, "%q", s)
	}
	return uint32(v), nil
}

// FindPackageResourceID parses a local ID string from path and resolves it,
// allocating a fresh mapping entry on first sight.
func (r *Registry) FindPackageResourceID(path, s string) (UniqueID, error) {
	local, err := ParseLocalID(s)
	if err != nil {
		return 0, err
	}
	return r.FindOrCreate(path, local), nil
}
