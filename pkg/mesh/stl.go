package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// ParseSTL parses an STL buffer, detecting the ASCII and binary variants.
//
// Detection sniffs the first 80 bytes for the literal "solid" token and
// additionally requires a "facet" token within the first 1000 bytes. The
// second check guards against binary files whose 80-byte header happens to
// start with "solid", which is common in exporter output.
func ParseSTL(data []byte) (*Mesh, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("stl: empty buffer")
	}

	head := data
	if len(head) > 80 {
		head = head[:80]
	}
	probe := data
	if len(probe) > 1000 {
		probe = probe[:1000]
	}

	lowerHead := strings.ToLower(string(head))
	lowerProbe := strings.ToLower(string(probe))
	if strings.HasPrefix(strings.TrimSpace(lowerHead), "solid") &&
		strings.Contains(lowerProbe, "facet") {
		return parseSTLASCII(data)
	}
	return parseSTLBinary(data)
}

// parseSTLASCII is line-oriented and case-insensitive. Facets with fewer
// than three vertices are silently dropped.
func parseSTLASCII(data []byte) (*Mesh, error) {
	m := &Mesh{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var normal math3d.Vec3
	var verts []math3d.Vec3

	for sc.Scan() {
		fields := strings.Fields(strings.ToLower(strings.TrimSpace(sc.Text())))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			// "facet normal nx ny nz"
			normal = math3d.Zero3()
			verts = verts[:0]
			if len(fields) >= 5 && fields[1] == "normal" {
				if v, ok := parseVec3Fields(fields[2:5]); ok {
					// Exporters sometimes write scaled normals; shading
					// expects unit length.
					normal = v.Normalize()
				}
			}
		case "vertex":
			if len(fields) >= 4 {
				if v, ok := parseVec3Fields(fields[1:4]); ok {
					verts = append(verts, v)
				}
			}
		case "endfacet":
			if len(verts) >= 3 {
				tri := Triangle{Normal: normal, V: [3]math3d.Vec3{verts[0], verts[1], verts[2]}}
				if tri.Normal.LenSq() == 0 {
					tri.Normal = math3d.TriangleNormal(verts[0], verts[1], verts[2])
				}
				m.Triangles = append(m.Triangles, tri)
			}
			verts = verts[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stl: scan ascii: %w", err)
	}

	m.FaceCount = len(m.Triangles)
	m.VertexCount = m.FaceCount * 3
	return m, nil
}

func parseVec3Fields(fields []string) (math3d.Vec3, bool) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) {
			return math3d.Vec3{}, false
		}
		c[i] = v
	}
	return math3d.V3(c[0], c[1], c[2]), true
}

// Binary STL layout: 80-byte header, little-endian uint32 triangle count,
// then 50-byte records (12 bytes normal + 36 bytes vertices + 2 attribute
// bytes, ignored).
const stlRecordSize = 50

func parseSTLBinary(data []byte) (*Mesh, error) {
	if len(data) < 84 {
		return nil, fmt.Errorf("stl: binary buffer too short: %d bytes", len(data))
	}
	declared := binary.LittleEndian.Uint32(data[80:84])

	// Stop early if the buffer is shorter than declared, dropping any
	// incomplete trailing triangle.
	avail := (len(data) - 84) / stlRecordSize
	count := int(declared)
	if avail < count {
		count = avail
	}

	m := &Mesh{Triangles: make([]Triangle, 0, count)}
	off := 84
	for i := 0; i < count; i++ {
		rec := data[off : off+stlRecordSize]
		normal := readVec3f32(rec[0:12])
		v0 := readVec3f32(rec[12:24])
		v1 := readVec3f32(rec[24:36])
		v2 := readVec3f32(rec[36:48])

		tri := Triangle{Normal: normal.Normalize(), V: [3]math3d.Vec3{v0, v1, v2}}
		if tri.Normal.LenSq() == 0 {
			tri.Normal = math3d.TriangleNormal(v0, v1, v2)
		}
		m.Triangles = append(m.Triangles, tri)
		off += stlRecordSize
	}

	m.FaceCount = len(m.Triangles)
	m.VertexCount = m.FaceCount * 3
	return m, nil
}

func readVec3f32(b []byte) math3d.Vec3 {
	return math3d.V3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
	)
}
