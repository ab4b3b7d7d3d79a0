package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// ParseOBJ parses a Wavefront OBJ buffer. Faces with more than three
// vertices are triangulated by fanning from the first listed vertex. When
// all three face corners carry per-vertex normals, the triangle normal is
// their arithmetic mean; otherwise it is recomputed from the vertices.
func ParseOBJ(data []byte) (*Mesh, error) {
	var (
		positions []math3d.Vec3
		normals   []math3d.Vec3
	)
	m := &Mesh{}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) >= 4 {
				if v, ok := parseVec3Fields(fields[1:4]); ok {
					positions = append(positions, v)
				}
			}
		case "vn":
			if len(fields) >= 4 {
				if v, ok := parseVec3Fields(fields[1:4]); ok {
					normals = append(normals, v)
				}
			}
		case "f":
			corners := fields[1:]
			if len(corners) < 3 {
				continue
			}
			refs := make([]objRef, 0, len(corners))
			for _, c := range corners {
				r, ok := parseObjRef(c, len(positions), len(normals))
				if !ok {
					refs = nil
					break
				}
				refs = append(refs, r)
			}
			if refs == nil {
				continue
			}
			// Fan triangulation from the first listed vertex.
			for i := 1; i+1 < len(refs); i++ {
				appendObjTriangle(m, positions, normals, refs[0], refs[i], refs[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("obj: scan: %w", err)
	}

	m.VertexCount = len(positions)
	m.FaceCount = len(m.Triangles)
	return m, nil
}

// objRef is one face corner: a position index and an optional normal index,
// both already resolved to zero-based values (-1 means absent).
type objRef struct {
	pos  int
	norm int
}

// parseObjRef resolves a "v", "v/vt", "v//vn" or "v/vt/vn" corner.
// OBJ indices are one-based; negative indices count from the end.
func parseObjRef(s string, numPos, numNorm int) (objRef, bool) {
	parts := strings.Split(s, "/")
	r := objRef{norm: -1}

	p, err := strconv.Atoi(parts[0])
	if err != nil {
		return r, false
	}
	r.pos = resolveObjIndex(p, numPos)
	if r.pos < 0 {
		return r, false
	}

	if len(parts) >= 3 && parts[2] != "" {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			r.norm = resolveObjIndex(n, numNorm)
		}
	}
	return r, true
}

func resolveObjIndex(idx, n int) int {
	switch {
	case idx > 0 && idx <= n:
		return idx - 1
	case idx < 0 && -idx <= n:
		return n + idx
	default:
		return -1
	}
}

func appendObjTriangle(m *Mesh, positions, normals []math3d.Vec3, a, b, c objRef) {
	v0, v1, v2 := positions[a.pos], positions[b.pos], positions[c.pos]

	var normal math3d.Vec3
	if a.norm >= 0 && b.norm >= 0 && c.norm >= 0 {
		normal = normals[a.norm].
			Add(normals[b.norm]).
			Add(normals[c.norm]).
			Scale(1.0 / 3.0).
			Normalize()
	}
	if normal.LenSq() == 0 {
		normal = math3d.TriangleNormal(v0, v1, v2)
	}

	m.Triangles = append(m.Triangles, Triangle{
		Normal: normal,
		V:      [3]math3d.Vec3{v0, v1, v2},
	})
}
