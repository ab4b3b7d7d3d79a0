package math3d

import "math"

// Rotation holds precomputed sines and cosines for a fixed (rotX, rotY)
// camera orientation. The renderer applies Y first, then X, matching the
// standard turntable composition.
type Rotation struct {
	sinX, cosX float64
	sinY, cosY float64
}

// NewRotation creates a rotation for the given angles in radians.
func NewRotation(rotX, rotY float64) Rotation {
	return Rotation{
		sinX: math.Sin(rotX), cosX: math.Cos(rotX),
		sinY: math.Sin(rotY), cosY: math.Cos(rotY),
	}
}

// Apply rotates v about the Y axis, then the X axis.
func (r Rotation) Apply(v Vec3) Vec3 {
	// Y axis
	x := v.X*r.cosY + v.Z*r.sinY
	z := -v.X*r.sinY + v.Z*r.cosY
	// X axis
	y := v.Y*r.cosX - z*r.sinX
	z = v.Y*r.sinX + z*r.cosX
	return Vec3{x, y, z}
}

// ApplyAbout rotates v about the Y then X axes around the given center.
func (r Rotation) ApplyAbout(v, center Vec3) Vec3 {
	return r.Apply(v.Sub(center)).Add(center)
}
