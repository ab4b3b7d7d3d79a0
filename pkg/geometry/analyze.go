// Package geometry computes derived metrics for a parsed triangle list:
// bounding box, surface area, volume estimate, unit detection and a
// complexity classification. Metrics are recomputed fresh per call and
// never cached across files.
package geometry

import (
	"fmt"
	"math"

	"github.com/psykeus/fabpreview/pkg/math3d"
	"github.com/psykeus/fabpreview/pkg/mesh"
)

// Unit is the detected measurement unit of a model.
type Unit string

// Confidence grades how trustworthy the unit guess is.
type Confidence string

// Complexity buckets a model purely by triangle count.
type Complexity string

const (
	UnitMM      Unit = "mm"
	UnitInches  Unit = "inches"
	UnitUnknown Unit = "unknown"

	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"

	ComplexitySimple        Complexity = "simple"
	ComplexityModerate      Complexity = "moderate"
	ComplexityComplex       Complexity = "complex"
	ComplexityHighlyComplex Complexity = "highly-complex"
)

// Dimensions holds the per-axis sizes of the bounding box.
type Dimensions struct {
	Width  float64 // X
	Height float64 // Y
	Depth  float64 // Z
}

// MaterialEstimate is a rough print-material figure derived from the
// volume estimate, assuming millimeter units and PLA density.
type MaterialEstimate struct {
	VolumeCm3   float64
	WeightGrams float64
}

// Metrics is the analyzer output. Read-only, derived per request.
type Metrics struct {
	BoundingBox   math3d.Bounds
	Dimensions    Dimensions
	TriangleCount int
	VertexCount   int
	SurfaceArea   float64
	// VolumeEstimate uses the divergence-theorem tetrahedron sum, which is
	// exact only for closed/watertight meshes; open meshes under- or
	// mis-estimate. This is a documented approximation, not a defect.
	VolumeEstimate float64
	DetectedUnit   Unit
	UnitConfidence Confidence
	Complexity     Complexity
	AspectRatio    float64
	Material       MaterialEstimate
}

const plaDensityGramsPerCm3 = 1.24

// Analyze folds once over all triangles. Vertex count is the number of
// distinct positions after rounding to 6 decimal places, an approximation
// of true mesh connectivity.
func Analyze(m *mesh.Mesh) Metrics {
	var metrics Metrics
	metrics.TriangleCount = len(m.Triangles)

	if len(m.Triangles) == 0 {
		metrics.DetectedUnit = UnitUnknown
		metrics.UnitConfidence = ConfidenceLow
		metrics.Complexity = ComplexitySimple
		return metrics
	}

	bounds := math3d.Bounds{Min: m.Triangles[0].V[0], Max: m.Triangles[0].V[0]}
	seen := make(map[[3]int64]struct{}, len(m.Triangles))
	var area, volume float64

	for i := range m.Triangles {
		t := &m.Triangles[i]
		v0, v1, v2 := t.V[0], t.V[1], t.V[2]

		for _, v := range t.V {
			bounds = bounds.Extend(v)
			seen[roundedKey(v)] = struct{}{}
		}

		// Half the cross-product magnitude of the two edge vectors.
		cross := v1.Sub(v0).Cross(v2.Sub(v0))
		area += cross.Len() / 2

		// Signed tetrahedron volume against the origin.
		volume += v0.Dot(v1.Cross(v2)) / 6
	}

	size := bounds.Size()
	metrics.BoundingBox = bounds
	metrics.Dimensions = Dimensions{Width: size.X, Height: size.Y, Depth: size.Z}
	metrics.VertexCount = len(seen)
	metrics.SurfaceArea = area
	metrics.VolumeEstimate = math.Abs(volume)
	metrics.DetectedUnit, metrics.UnitConfidence = detectUnit(bounds)
	metrics.Complexity = classifyComplexity(len(m.Triangles))
	metrics.AspectRatio = aspectRatio(size)
	metrics.Material = estimateMaterial(metrics.VolumeEstimate)
	return metrics
}

func roundedKey(v math3d.Vec3) [3]int64 {
	const scale = 1e6
	return [3]int64{
		int64(math.Round(v.X * scale)),
		int64(math.Round(v.Y * scale)),
		int64(math.Round(v.Z * scale)),
	}
}

// detectUnit is a heuristic decision table keyed on the maximum dimension.
// The ranges overlap deliberately and are resolved by check order; treat
// the thresholds as tunable, not as exact unit metadata.
//
//	d <= 0, d > 1000, d < 0.01  → unknown / low
//	10 ≤ d ≤ 300                → mm / high
//	0.5 ≤ d < 24                → inches / medium
//	300 < d ≤ 1000              → mm / medium
//	0.01 ≤ d < 0.5              → inches / low
//	otherwise                   → mm / low
func detectUnit(b math3d.Bounds) (Unit, Confidence) {
	d := b.MaxExtent()
	switch {
	case d <= 0, d > 1000, d < 0.01:
		return UnitUnknown, ConfidenceLow
	case d >= 10 && d <= 300:
		return UnitMM, ConfidenceHigh
	case d >= 0.5 && d < 24:
		return UnitInches, ConfidenceMedium
	case d > 300 && d <= 1000:
		return UnitMM, ConfidenceMedium
	case d >= 0.01 && d < 0.5:
		return UnitInches, ConfidenceLow
	default:
		return UnitMM, ConfidenceLow
	}
}

func classifyComplexity(triangles int) Complexity {
	switch {
	case triangles < 500:
		return ComplexitySimple
	case triangles < 5000:
		return ComplexityModerate
	case triangles < 50000:
		return ComplexityComplex
	default:
		return ComplexityHighlyComplex
	}
}

func aspectRatio(size math3d.Vec3) float64 {
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	minDim := math.Min(size.X, math.Min(size.Y, size.Z))
	if minDim <= 0 {
		return 0
	}
	return maxDim / minDim
}

// estimateMaterial converts the volume estimate (assumed mm³) into cm³ and
// grams of PLA.
func estimateMaterial(volumeMm3 float64) MaterialEstimate {
	cm3 := volumeMm3 / 1000
	return MaterialEstimate{
		VolumeCm3:   cm3,
		WeightGrams: cm3 * plaDensityGramsPerCm3,
	}
}

// Describe renders a short human-readable summary for diagnostics.
func (m Metrics) Describe() string {
	return fmt.Sprintf("%.2f x %.2f x %.2f %s (%s), %d triangles (%s), area %.2f, volume %.2f",
		m.Dimensions.Width, m.Dimensions.Height, m.Dimensions.Depth,
		m.DetectedUnit, m.UnitConfidence, m.TriangleCount, m.Complexity,
		m.SurfaceArea, m.VolumeEstimate)
}
