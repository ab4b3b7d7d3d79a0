package geometry

import (
	"math"
	"testing"

	"github.com/psykeus/fabpreview/pkg/math3d"
	"github.com/psykeus/fabpreview/pkg/mesh"
)

// cubeMesh builds a watertight cube of the given side with outward-facing
// winding, spanning 0..side on each axis.
func cubeMesh(side float64) *mesh.Mesh {
	s := side
	p := func(x, y, z float64) math3d.Vec3 { return math3d.V3(x, y, z) }

	m := &mesh.Mesh{}
	quad := func(a, b, c, d math3d.Vec3) {
		for _, tri := range [][3]math3d.Vec3{{a, b, c}, {a, c, d}} {
			m.Triangles = append(m.Triangles, mesh.Triangle{
				Normal: math3d.TriangleNormal(tri[0], tri[1], tri[2]),
				V:      tri,
			})
		}
	}

	quad(p(0, 0, 0), p(0, s, 0), p(s, s, 0), p(s, 0, 0)) // bottom
	quad(p(0, 0, s), p(s, 0, s), p(s, s, s), p(0, s, s)) // top
	quad(p(0, 0, 0), p(s, 0, 0), p(s, 0, s), p(0, 0, s)) // front
	quad(p(0, s, 0), p(0, s, s), p(s, s, s), p(s, s, 0)) // back
	quad(p(0, 0, 0), p(0, 0, s), p(0, s, s), p(0, s, 0)) // left
	quad(p(s, 0, 0), p(s, s, 0), p(s, s, s), p(s, 0, s)) // right

	m.FaceCount = len(m.Triangles)
	m.VertexCount = m.FaceCount * 3
	return m
}

func TestAnalyzeCube(t *testing.T) {
	const side = 10.0
	metrics := Analyze(cubeMesh(side))

	if metrics.TriangleCount != 12 {
		t.Fatalf("triangle count = %d, want 12", metrics.TriangleCount)
	}
	if metrics.VertexCount != 8 {
		t.Fatalf("distinct vertex count = %d, want 8", metrics.VertexCount)
	}

	const eps = 1e-9
	if want := 6 * side * side; math.Abs(metrics.SurfaceArea-want) > eps {
		t.Errorf("surface area = %g, want %g", metrics.SurfaceArea, want)
	}
	if want := side * side * side; math.Abs(metrics.VolumeEstimate-want) > eps {
		t.Errorf("volume = %g, want %g", metrics.VolumeEstimate, want)
	}

	d := metrics.Dimensions
	if d.Width != side || d.Height != side || d.Depth != side {
		t.Errorf("dimensions = %+v, want %g per axis", d, side)
	}
	if metrics.AspectRatio != 1 {
		t.Errorf("aspect ratio = %g, want 1", metrics.AspectRatio)
	}
	if metrics.Complexity != ComplexitySimple {
		t.Errorf("complexity = %q, want simple", metrics.Complexity)
	}
}

func TestAnalyzeMaterialEstimate(t *testing.T) {
	// 10mm cube: 1000 mm³ = 1 cm³ of PLA at 1.24 g/cm³.
	metrics := Analyze(cubeMesh(10))
	if math.Abs(metrics.Material.VolumeCm3-1) > 1e-9 {
		t.Errorf("material volume = %g cm³, want 1", metrics.Material.VolumeCm3)
	}
	if math.Abs(metrics.Material.WeightGrams-1.24) > 1e-9 {
		t.Errorf("material weight = %g g, want 1.24", metrics.Material.WeightGrams)
	}
}

func TestAnalyzeTranslatedCubeVolume(t *testing.T) {
	// The tetrahedron sum is origin-relative per term but translation
	// invariant for a closed mesh.
	m := cubeMesh(10)
	offset := math3d.V3(100, -50, 30)
	for i := range m.Triangles {
		for j := range m.Triangles[i].V {
			m.Triangles[i].V[j] = m.Triangles[i].V[j].Add(offset)
		}
	}
	metrics := Analyze(m)
	if math.Abs(metrics.VolumeEstimate-1000) > 1e-6 {
		t.Fatalf("translated cube volume = %g, want 1000", metrics.VolumeEstimate)
	}
}

func TestDetectUnitTable(t *testing.T) {
	tests := []struct {
		side     float64
		wantUnit Unit
		wantConf Confidence
	}{
		{20, UnitMM, ConfidenceHigh},
		{10, UnitMM, ConfidenceHigh},
		{300, UnitMM, ConfidenceHigh},
		{2, UnitInches, ConfidenceMedium},
		{0.5, UnitInches, ConfidenceMedium},
		{9.99, UnitInches, ConfidenceMedium},
		{301, UnitMM, ConfidenceMedium},
		{1000, UnitMM, ConfidenceMedium},
		{0.4, UnitInches, ConfidenceLow},
		{1001, UnitUnknown, ConfidenceLow},
		{0.005, UnitUnknown, ConfidenceLow},
	}
	for _, tt := range tests {
		metrics := Analyze(cubeMesh(tt.side))
		if metrics.DetectedUnit != tt.wantUnit || metrics.UnitConfidence != tt.wantConf {
			t.Errorf("side %g: unit %q/%q, want %q/%q", tt.side,
				metrics.DetectedUnit, metrics.UnitConfidence, tt.wantUnit, tt.wantConf)
		}
	}
}

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		triangles int
		want      Complexity
	}{
		{0, ComplexitySimple},
		{499, ComplexitySimple},
		{500, ComplexityModerate},
		{4999, ComplexityModerate},
		{5000, ComplexityComplex},
		{49999, ComplexityComplex},
		{50000, ComplexityHighlyComplex},
	}
	for _, tt := range tests {
		if got := classifyComplexity(tt.triangles); got != tt.want {
			t.Errorf("classifyComplexity(%d) = %q, want %q", tt.triangles, got, tt.want)
		}
	}
}

func TestAnalyzeEmptyMesh(t *testing.T) {
	metrics := Analyze(&mesh.Mesh{})
	if metrics.TriangleCount != 0 {
		t.Fatalf("triangle count = %d, want 0", metrics.TriangleCount)
	}
	if metrics.DetectedUnit != UnitUnknown || metrics.UnitConfidence != ConfidenceLow {
		t.Fatalf("empty mesh unit = %q/%q, want unknown/low",
			metrics.DetectedUnit, metrics.UnitConfidence)
	}
}
