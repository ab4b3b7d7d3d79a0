// Package render turns parsed geometry into raster preview images on the
// CPU: a multi-view orthographic mesh renderer, a wireframe fallback, and
// 2D renderers for DXF entities and G-code toolpaths.
package render

import (
	"math"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// View is one named camera orientation in the preview grid. The rotation
// pair is applied about the shared scene center, Y axis first then X.
type View struct {
	Name string
	RotX float64 // radians
	RotY float64 // radians
	Col  int
	Row  int
}

const (
	deg         = math.Pi / 180
	isoTiltDeg  = 35.264 // atan(1/sqrt(2)), classic isometric elevation
	detailTilt  = 30 * deg
	detailTurn  = 30 * deg
	quarterTurn = 90 * deg
)

// fourViews is the default 2x2 preview grid.
var fourViews = []View{
	{Name: "Front", RotX: 0, RotY: 0, Col: 0, Row: 0},
	{Name: "Right", RotX: 0, RotY: -quarterTurn, Col: 1, Row: 0},
	{Name: "Top", RotX: quarterTurn, RotY: 0, Col: 0, Row: 1},
	{Name: "Isometric", RotX: isoTiltDeg * deg, RotY: 45 * deg, Col: 1, Row: 1},
}

// sixViews is the 3x2 grid used by the multi-angle entry point. The Bottom
// slot is replaced by a shallow-angle Detail view for relief models so flat
// or engraved objects show surface detail instead of a featureless
// underside.
var sixViews = []View{
	{Name: "Front", RotX: 0, RotY: 0, Col: 0, Row: 0},
	{Name: "Right", RotX: 0, RotY: -quarterTurn, Col: 1, Row: 0},
	{Name: "Back", RotX: 0, RotY: math.Pi, Col: 2, Row: 0},
	{Name: "Top", RotX: quarterTurn, RotY: 0, Col: 0, Row: 1},
	{Name: "Bottom", RotX: -quarterTurn, RotY: 0, Col: 1, Row: 1},
	{Name: "Isometric", RotX: isoTiltDeg * deg, RotY: 45 * deg, Col: 2, Row: 1},
}

var detailView = View{Name: "Detail", RotX: detailTilt, RotY: detailTurn, Col: 1, Row: 1}

// viewsFor selects the view set and grid shape for the given view count.
// relief swaps the Bottom view for the Detail view in 6-view mode.
func viewsFor(count int, relief bool) (views []View, cols, rows int) {
	if count == 6 {
		views = make([]View, len(sixViews))
		copy(views, sixViews)
		if relief {
			views[4] = detailView
		}
		return views, 3, 2
	}
	views = make([]View, len(fourViews))
	copy(views, fourViews)
	return views, 2, 2
}

// Relief classification thresholds: a per-axis flatness ratio under the
// strong threshold is a certain relief signal, under the weak threshold a
// partial one, with confidence interpolated linearly between the two.
const (
	reliefStrongRatio = 0.10
	reliefWeakRatio   = 0.20
	reliefMinConf     = 0.5
)

// reliefConfidence scores how thin/flat a model is. For each axis the
// flatness ratio is that axis's size divided by the larger of the other
// two; the smallest ratio drives the score.
func reliefConfidence(size math3d.Vec3) float64 {
	ratios := [3]float64{
		flatness(size.X, size.Y, size.Z),
		flatness(size.Y, size.X, size.Z),
		flatness(size.Z, size.X, size.Y),
	}
	minRatio := math.Min(ratios[0], math.Min(ratios[1], ratios[2]))

	switch {
	case minRatio <= reliefStrongRatio:
		return 1
	case minRatio >= reliefWeakRatio:
		return 0
	default:
		return (reliefWeakRatio - minRatio) / (reliefWeakRatio - reliefStrongRatio)
	}
}

func flatness(axis, other1, other2 float64) float64 {
	m := math.Max(other1, other2)
	if m <= 0 {
		return 1
	}
	return axis / m
}

// isRelief avoids misclassifying near-cubic objects by requiring the
// confidence to clear a majority threshold.
func isRelief(size math3d.Vec3) bool {
	return reliefConfidence(size) > reliefMinConf
}
