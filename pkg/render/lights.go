package render

import (
	"math"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// Light is a directional light in view space (after the per-view rotation
// has been applied to the scene, lights stay fixed relative to the camera).
type Light struct {
	Dir       math3d.Vec3 // direction from surface toward the light
	Intensity float64
	Color     [3]float64 // per-channel multiplier
}

const (
	ambientTerm      = 0.28
	specularExponent = 32
	specularWeight   = 0.25
	rimThreshold     = 0.55
)

// viewDir is the fixed orthographic view direction: the camera looks down
// the +Z axis toward the scene.
var viewDir = math3d.V3(0, 0, 1)

var (
	// Canonical top/bottom views flatten out under a single frontal key, so
	// their rig leans on side fill.
	topBottomRig = []Light{
		{Dir: math3d.V3(0.2, 0.3, 1).Normalize(), Intensity: 0.75, Color: [3]float64{1, 1, 1}},
		{Dir: math3d.V3(1, 0.2, 0.4).Normalize(), Intensity: 0.45, Color: [3]float64{1, 0.97, 0.92}},
		{Dir: math3d.V3(-1, 0.1, 0.4).Normalize(), Intensity: 0.40, Color: [3]float64{0.92, 0.96, 1}},
		{Dir: math3d.V3(0, -1, 0.3).Normalize(), Intensity: 0.25, Color: [3]float64{1, 1, 1}},
	}

	// Front/back views get a strong frontal key plus gentle side fill.
	frontBackRig = []Light{
		{Dir: math3d.V3(0.3, 0.5, 1).Normalize(), Intensity: 0.85, Color: [3]float64{1, 1, 1}},
		{Dir: math3d.V3(-0.8, 0.3, 0.5).Normalize(), Intensity: 0.35, Color: [3]float64{0.92, 0.96, 1}},
		{Dir: math3d.V3(0.6, -0.4, 0.4).Normalize(), Intensity: 0.25, Color: [3]float64{1, 0.97, 0.92}},
	}

	// Left/right views bias the key light to the side.
	sideRig = []Light{
		{Dir: math3d.V3(0.9, 0.45, 0.7).Normalize(), Intensity: 0.80, Color: [3]float64{1, 1, 1}},
		{Dir: math3d.V3(-0.5, 0.2, 0.8).Normalize(), Intensity: 0.40, Color: [3]float64{0.92, 0.96, 1}},
		{Dir: math3d.V3(0.2, -0.7, 0.4).Normalize(), Intensity: 0.25, Color: [3]float64{1, 0.97, 0.92}},
	}

	// Balanced rig for isometric and detail orientations.
	defaultRig = []Light{
		{Dir: math3d.V3(0.4, 0.6, 0.9).Normalize(), Intensity: 0.75, Color: [3]float64{1, 1, 1}},
		{Dir: math3d.V3(-0.7, 0.3, 0.6).Normalize(), Intensity: 0.40, Color: [3]float64{0.92, 0.96, 1}},
		{Dir: math3d.V3(0.3, -0.5, 0.5).Normalize(), Intensity: 0.30, Color: [3]float64{1, 0.97, 0.92}},
		{Dir: math3d.V3(0, 0.2, 1).Normalize(), Intensity: 0.20, Color: [3]float64{1, 1, 1}},
	}
)

// rigFor picks the light set for a view orientation.
func rigFor(v View) []Light {
	switch v.Name {
	case "Top", "Bottom":
		return topBottomRig
	case "Front", "Back":
		return frontBackRig
	case "Right", "Left":
		return sideRig
	default:
		return defaultRig
	}
}

// shading is the per-triangle lighting result.
type shading struct {
	r, g, b  float64 // per-channel brightness, ambient included
	specular float64
	rim      float64 // Fresnel-like edge factor
}

// shade sums each light's Lambertian contribution, adds a constant ambient
// term, a Blinn-Phong specular term from the primary light, and a
// (1-|n.z|)^2 rim factor for edge highlighting. A zero-length normal
// (degenerate triangle) receives ambient only.
func shade(normal math3d.Vec3, rig []Light) shading {
	s := shading{r: ambientTerm, g: ambientTerm, b: ambientTerm}
	if normal.LenSq() == 0 {
		return s
	}

	for _, l := range rig {
		lambert := normal.Dot(l.Dir)
		if lambert <= 0 {
			continue
		}
		c := lambert * l.Intensity
		s.r += c * l.Color[0]
		s.g += c * l.Color[1]
		s.b += c * l.Color[2]
	}

	// Blinn-Phong from the primary light against the fixed view direction.
	half := rig[0].Dir.Add(viewDir).Normalize()
	if nh := normal.Dot(half); nh > 0 {
		s.specular = specularWeight * math.Pow(nh, specularExponent)
	}

	edge := 1 - math.Abs(normal.Z)
	s.rim = edge * edge
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
