package mesh

// edge is a directed edge between two vertex indices.
type edge struct {
	from, to uint32
}

// IsManifoldAndOriented reports whether every directed edge of the mesh is
// used by exactly one face and its reverse by exactly one other face. That
// holds for closed, consistently wound meshes. An empty mesh is not manifold.
func (m *Mesh) IsManifoldAndOriented() bool {
	if len(m.faces) == 0 || len(m.vertices) < 3 {
		return false
	}

	used := make(map[edge]int, len(m.faces)*3)
	for _, f := range m.faces {
		for k := 0; k < 3; k++ {
			e := edge{f.Nodes[k], f.Nodes[(k+1)%3]}
			used[e]++
			if used[e] > 1 {
				return false
			}
		}
	}

	for e := range used {
		if used[edge{e.to, e.from}] != 1 {
			return false
		}
	}
	return true
}

// BoundaryEdgeCount returns how many directed edges have no reverse partner.
func (m *Mesh) BoundaryEdgeCount() int {
	used := make(map[edge]bool, len(m.faces)*3)
	for _, f := range m.faces {
		for k := 0; k < 3; k++ {
			used[edge{f.Nodes[k], f.Nodes[(k+1)%3]}] = true
		}
	}
	count := 0
	for e := range used {
		if !used[edge{e.to, e.from}] {
			count++
		}
	}
	return count
}
