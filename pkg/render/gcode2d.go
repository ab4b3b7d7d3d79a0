package render

import (
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/psykeus/fabpreview/pkg/mesh"
)

// Toolpath2D renders the XY projection of a toolpath: rapids as dashed gray
// lines, cuts as solid strokes, arcs swept about their center. A background
// grid scaled to the drawing extent gives a size reference.
func Toolpath2D(tp *mesh.Toolpath, size int) (*image.RGBA, error) {
	if size <= 0 {
		size = DefaultPanelSize
	}
	if len(tp.Segments) == 0 {
		return nil, ErrNoGeometry
	}

	w := tp.Bounds.Max.X - tp.Bounds.Min.X
	h := tp.Bounds.Max.Y - tp.Bounds.Min.Y
	extent := math.Max(w, h)

	super := int(float64(size) * supersample)
	margin := float64(super) * 0.06
	scale := 1.0
	if extent > 0 {
		scale = (float64(super) - 2*margin) / extent
	}
	offX := margin + (float64(super)-2*margin-w*scale)/2
	offY := margin + (float64(super)-2*margin-h*scale)/2

	px := func(x float64) float64 { return offX + (x-tp.Bounds.Min.X)*scale }
	py := func(y float64) float64 { return float64(super) - offY - (y-tp.Bounds.Min.Y)*scale }

	dc := gg.NewContext(super, super)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(1, 1, 1))

	if err := drawToolpathGrid(dc, super, extent, scale); err != nil {
		return nil, err
	}

	// Cuts and arcs first, rapids on top so travel moves stay visible.
	dc.SetRGB(0.13, 0.35, 0.70)
	dc.SetLineWidth(2)
	for i := range tp.Segments {
		s := &tp.Segments[i]
		switch s.Type {
		case mesh.MoveCut:
			dc.DrawLine(px(s.Start.X), py(s.Start.Y), px(s.End.X), py(s.End.Y))
		case mesh.MoveArc:
			if !s.HasCenter {
				dc.DrawLine(px(s.Start.X), py(s.Start.Y), px(s.End.X), py(s.End.Y))
				break
			}
			r := math.Hypot(s.Start.X-s.Center.X, s.Start.Y-s.Center.Y)
			// Canvas Y is flipped, so machine CCW appears clockwise; the
			// angles are negated to compensate.
			a1 := -math.Atan2(s.Start.Y-s.Center.Y, s.Start.X-s.Center.X)
			a2 := -math.Atan2(s.End.Y-s.Center.Y, s.End.X-s.Center.X)
			if s.Clockwise {
				for a2 < a1 {
					a2 += 2 * math.Pi
				}
			} else {
				for a2 > a1 {
					a2 -= 2 * math.Pi
				}
			}
			dc.DrawArc(px(s.Center.X), py(s.Center.Y), r*scale, a1, a2)
		default:
			continue
		}
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}

	dc.SetRGB(0.60, 0.62, 0.66)
	dc.SetLineWidth(1.5)
	dc.SetDash(6, 4)
	for i := range tp.Segments {
		s := &tp.Segments[i]
		if s.Type != mesh.MoveRapid {
			continue
		}
		dc.DrawLine(px(s.Start.X), py(s.Start.Y), px(s.End.X), py(s.End.Y))
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}
	dc.SetDash()

	final, err := downsample(dc.Image(), size, size)
	if err != nil {
		return toRGBA(dc.Image()), nil
	}
	return final, nil
}

// drawToolpathGrid strokes a light reference grid whose spacing is a round
// power of ten chosen from the drawing extent, roughly 10 cells across.
func drawToolpathGrid(dc *gg.Context, super int, extent, scale float64) error {
	if extent <= 0 {
		return nil
	}
	step := math.Pow(10, math.Floor(math.Log10(extent/10)))
	if step <= 0 {
		return nil
	}
	px := step * scale
	if px < 4 {
		return nil
	}

	dc.SetRGB(0.92, 0.93, 0.95)
	dc.SetLineWidth(1)
	for x := px; x < float64(super); x += px {
		dc.DrawLine(x, 0, x, float64(super))
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	for y := px; y < float64(super); y += px {
		dc.DrawLine(0, y, float64(super), y)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}
