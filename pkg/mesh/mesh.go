// Package mesh parses uploaded design files into a shared triangle
// representation. Each parser is a total function from a byte buffer to a
// Mesh (or a parse error for structurally invalid input). A Mesh with zero
// triangles is a valid result; callers use it to report "no geometry found"
// instead of rendering a blank image.
package mesh

import (
	"github.com/psykeus/fabpreview/pkg/math3d"
)

// Triangle is a single face with its unit normal. The normal must be
// re-normalized after any transform; winding order determines the outward
// direction under the right-hand rule.
type Triangle struct {
	Normal math3d.Vec3
	V      [3]math3d.Vec3
}

// Mesh is the common parser output: a triangle soup plus the raw counts
// reported by the source file. It is never mutated after parsing; callers
// that need a subset build a new slice instead.
type Mesh struct {
	Triangles   []Triangle
	VertexCount int
	FaceCount   int
}

// Bounds folds the bounding box over every vertex of every triangle.
// An empty mesh yields a degenerate box at the origin.
func (m *Mesh) Bounds() math3d.Bounds {
	if len(m.Triangles) == 0 {
		return math3d.Bounds{}
	}
	b := math3d.Bounds{Min: m.Triangles[0].V[0], Max: m.Triangles[0].V[0]}
	for i := range m.Triangles {
		for _, v := range m.Triangles[i].V {
			b = b.Extend(v)
		}
	}
	return b
}

// newTriangle builds a triangle, recomputing the normal from the vertices.
func newTriangle(v0, v1, v2 math3d.Vec3) Triangle {
	return Triangle{
		Normal: math3d.TriangleNormal(v0, v1, v2),
		V:      [3]math3d.Vec3{v0, v1, v2},
	}
}
