package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/threemf/pkg/encoding"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTL       = errors.New("invalid STL data")
)

const (
	stlHeaderSize = 80
	stlFacetSize  = 50
	// stlMaxFacets bounds the allocation for a corrupt facet count.
	stlMaxFacets = 1 << 26
)

// STLFacet is one triangle with its stored normal.
type STLFacet struct {
	Normal    math.Vec3
	Vertices  [3]math.Vec3
	Attribute uint16 // binary attribute byte count, usually 0
}

// STL is a parsed STL file.
type STL struct {
	Name   string // ASCII solid name or binary header text
	Binary bool
	Facets []STLFacet
}

// ParseSTL parses binary or ASCII STL data. A file is taken as binary when
// its size matches the facet count in the header, which also covers binary
// files whose header starts with "solid".
func ParseSTL(data []byte) (*STL, error) {
	if len(data) >= stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlFacetSize {
			return parseBinarySTL(data)
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSTLData, len(data))
	}
	s := &STL{
		Name:   strings.TrimSpace(encoding.TrimNullString(data[:stlHeaderSize])),
		Binary: true,
	}

	r := bytes.NewReader(data[stlHeaderSize:])
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading facet count", ErrTruncatedSTLData)
	}
	if count > stlMaxFacets {
		return nil, fmt.Errorf("%w: %d facets", ErrInvalidSTL, count)
	}
	if r.Len() < int(count)*stlFacetSize {
		return nil, fmt.Errorf("%w: %d facets need %d bytes, have %d",
			ErrTruncatedSTLData, count, int(count)*stlFacetSize, r.Len())
	}

	s.Facets = make([]STLFacet, count)
	for i := range s.Facets {
		f, err := parseSTLFacet(r)
		if err != nil {
			return nil, fmt.Errorf("parsing facet %d: %w", i, err)
		}
		s.Facets[i] = f
	}
	return s, nil
}

// parseSTLFacet reads normal, three vertices and the attribute count.
func parseSTLFacet(r *bytes.Reader) (STLFacet, error) {
	var raw struct {
		Normal    [3]float32
		Vertices  [3][3]float32
		Attribute uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return STLFacet{}, fmt.Errorf("%w: %v", ErrTruncatedSTLData, err)
	}
	f := STLFacet{Normal: math.Vec3FromArray(raw.Normal), Attribute: raw.Attribute}
	for i, v := range raw.Vertices {
		f.Vertices[i] = math.Vec3FromArray(v)
	}
	return f, nil
}

// parseASCIISTL reads "solid ... endsolid". Only the first solid is used.
func parseASCIISTL(data []byte) (*STL, error) {
	s := &STL{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var cur STLFacet
	nv := 0
	inFacet := false
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "solid":
			s.Name = strings.Join(fields[1:], " ")
		case "facet":
			if inFacet {
				return nil, fmt.Errorf("%w: line %d: nested facet", ErrInvalidSTL, line)
			}
			inFacet, nv = true, 0
			cur = STLFacet{}
			if len(fields) == 5 && strings.EqualFold(fields[1], "normal") {
				n, err := parseSTLVec(fields[2:])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
				}
				cur.Normal = n
			}
		case "vertex":
			if !inFacet || nv >= 3 || len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTL, line)
			}
			v, err := parseSTLVec(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
			}
			cur.Vertices[nv] = v
			nv++
		case "endfacet":
			if !inFacet || nv != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTL, line, nv)
			}
			s.Facets = append(s.Facets, cur)
			inFacet = false
		case "endsolid":
			return s, nil
		case "outer", "endloop":
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %q", ErrInvalidSTL, line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSTL, err)
	}
	return nil, fmt.Errorf("%w: missing endsolid", ErrTruncatedSTLData)
}

func parseSTLVec(fields []string) (math.Vec3, error) {
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return math.Vec3{}, err
		}
		out[i] = float32(v)
	}
	return math.Vec3FromArray(out), nil
}

// ParseSTLFile parses an STL file from disk.
func ParseSTLFile(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

// ToMesh builds an indexed mesh. With weld set, facets sharing a corner
// position share the vertex. Degenerate facets that collapse after welding
// are dropped.
func (s *STL) ToMesh(weld bool) (*mesh.Mesh, error) {
	m := mesh.New()
	index := make(map[math.Vec3]uint32)
	for i, f := range s.Facets {
		var nodes [3]uint32
		for j, v := range f.Vertices {
			if !v.IsFinite() {
				return nil, fmt.Errorf("%w: facet %d has a non-finite vertex", ErrInvalidSTL, i)
			}
			if weld {
				if idx, ok := index[v]; ok {
					nodes[j] = idx
					continue
				}
			}
			idx, err := m.AddVertex(v)
			if err != nil {
				return nil, fmt.Errorf("facet %d: %w", i, err)
			}
			if weld {
				index[v] = idx
			}
			nodes[j] = idx
		}
		if nodes[0] == nodes[1] || nodes[1] == nodes[2] || nodes[0] == nodes[2] {
			continue
		}
		if _, err := m.AddFace(nodes[0], nodes[1], nodes[2]); err != nil {
			return nil, fmt.Errorf("facet %d: %w", i, err)
		}
	}
	return m, nil
}

// EncodeSTL writes the faces of m as binary STL with computed normals.
// header is truncated to 80 bytes.
func EncodeSTL(w io.Writer, m *mesh.Mesh, header string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(encoding.FixedString(header, stlHeaderSize)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.FaceCount())); err != nil {
		return err
	}

	verts := m.Vertices()
	var raw struct {
		Normal    [3]float32
		Vertices  [3][3]float32
		Attribute uint16
	}
	for _, f := range m.Faces() {
		a, b, c := verts[f.Nodes[0]], verts[f.Nodes[1]], verts[f.Nodes[2]]
		raw.Normal = b.Sub(a).Cross(c.Sub(a)).Normalize().Array()
		raw.Vertices = [3][3]float32{a.Array(), b.Array(), c.Array()}
		if err := binary.Write(bw, binary.LittleEndian, &raw); err != nil {
			return err
		}
	}
	return bw.Flush()
}
