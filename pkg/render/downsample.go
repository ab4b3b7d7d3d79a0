package render

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// downsample scales src to the target size with the Catmull-Rom kernel.
// Rendering at supersampled resolution and filtering down is the
// anti-aliasing strategy; no multi-sample rasterization is performed.
func downsample(src image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("downsample: invalid target %dx%d", width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// toRGBA converts any image to RGBA without resampling.
func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}
