package render

import (
	"context"
	"image"

	"github.com/gogpu/gg"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// Line3D is one wireframe segment in scene space.
type Line3D struct {
	A, B math3d.Vec3
}

// WireframeMultiView renders line geometry from the same named camera
// angles as the mesh renderer, minus shading. It backs the 3D DXF path
// when no solid triangles can be formed from the entities.
func WireframeMultiView(ctx context.Context, lines []Line3D, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	if len(lines) == 0 {
		return nil, ErrNoGeometry
	}

	bounds := math3d.Bounds{Min: lines[0].A, Max: lines[0].A}
	for _, l := range lines {
		bounds = bounds.Extend(l.A).Extend(l.B)
	}
	center := bounds.Center()
	maxExtent := bounds.MaxExtent()

	views, cols, rows := viewsFor(opts.ViewCount, isRelief(bounds.Size()))
	panel := opts.PanelSize
	width, height := cols*panel, rows*panel

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(0.97, 0.97, 0.98))

	scale := 1.0
	if maxExtent > 0 {
		scale = float64(panel) * 0.8 / maxExtent
	}

	dc.SetRGB(0.20, 0.25, 0.35)
	dc.SetLineWidth(1.5)

	for _, v := range views {
		rot := math3d.NewRotation(v.RotX, v.RotY)
		ox := float64(v.Col*panel) + float64(panel)/2
		oy := float64(v.Row*panel) + float64(panel)/2

		for i, l := range lines {
			if i%cancelCheckStride == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			a := rot.Apply(l.A.Sub(center))
			b := rot.Apply(l.B.Sub(center))
			dc.DrawLine(ox+a.X*scale, oy-a.Y*scale, ox+b.X*scale, oy-b.Y*scale)
			if err := dc.Stroke(); err != nil {
				return nil, err
			}
		}
	}

	drawGridLines(dc, cols, rows, panel)

	finalW := int(float64(width) / supersample)
	finalH := int(float64(height) / supersample)
	final, err := downsample(dc.Image(), finalW, finalH)
	if err != nil {
		final = toRGBA(dc.Image())
		finalW, finalH = width, height
	}

	panelW := finalW / cols
	panelH := finalH / rows
	for _, v := range views {
		drawLabel(final, v.Col*panelW+10, v.Row*panelH+18, v.Name)
	}
	return final, nil
}
