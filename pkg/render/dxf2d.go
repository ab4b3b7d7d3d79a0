package render

import (
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/psykeus/fabpreview/pkg/math3d"
	"github.com/psykeus/fabpreview/pkg/mesh"
)

// aciPalette is the subset of the AutoCAD Color Index used for entity
// strokes. Index 7 ("white") is drawn dark since previews render on a
// light background.
var aciPalette = map[int][3]float64{
	1: {0.86, 0.20, 0.18}, // red
	2: {0.83, 0.72, 0.10}, // yellow
	3: {0.16, 0.62, 0.28}, // green
	4: {0.12, 0.65, 0.70}, // cyan
	5: {0.18, 0.35, 0.80}, // blue
	6: {0.70, 0.22, 0.68}, // magenta
	7: {0.15, 0.15, 0.18}, // white → dark on light background
	8: {0.45, 0.45, 0.48}, // dark gray
	9: {0.62, 0.62, 0.65}, // light gray
}

func aciColor(index int) (r, g, b float64) {
	if c, ok := aciPalette[index]; ok {
		return c[0], c[1], c[2]
	}
	c := aciPalette[7]
	return c[0], c[1], c[2]
}

// DXF2D rasterizes the 2D entities of a DXF document, stroking each entity
// type with its own geometric primitive, colored by its ACI layer color.
func DXF2D(doc *mesh.DXFDocument, size int) (*image.RGBA, error) {
	if size <= 0 {
		size = DefaultPanelSize
	}
	bounds, ok := dxfBounds(doc)
	if !ok {
		return nil, ErrNoGeometry
	}

	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y
	extent := math.Max(w, h)

	super := int(float64(size) * supersample)
	margin := float64(super) * 0.06
	scale := 1.0
	if extent > 0 {
		scale = (float64(super) - 2*margin) / extent
	}
	// Center the drawing in the canvas.
	offX := margin + (float64(super)-2*margin-w*scale)/2
	offY := margin + (float64(super)-2*margin-h*scale)/2

	px := func(x float64) float64 { return offX + (x-bounds.Min.X)*scale }
	py := func(y float64) float64 { return float64(super) - offY - (y-bounds.Min.Y)*scale }

	dc := gg.NewContext(super, super)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(1, 1, 1))
	dc.SetLineWidth(2)

	for i := range doc.Entities {
		e := &doc.Entities[i]
		dc.SetRGB(aciColor(e.Color))

		switch e.Type {
		case "LINE":
			dc.DrawLine(px(e.Start.X), py(e.Start.Y), px(e.End.X), py(e.End.Y))
		case "LWPOLYLINE", "POLYLINE", "SPLINE":
			if len(e.Points) < 2 {
				continue
			}
			dc.MoveTo(px(e.Points[0].X), py(e.Points[0].Y))
			for _, p := range e.Points[1:] {
				dc.LineTo(px(p.X), py(p.Y))
			}
			if e.Closed && e.Type != "SPLINE" {
				dc.ClosePath()
			}
		case "CIRCLE":
			dc.DrawCircle(px(e.Center.X), py(e.Center.Y), e.Radius*scale)
		case "ARC":
			// DXF angles are counter-clockwise degrees and may wrap past
			// zero; the Y flip mirrors them into clockwise canvas angles.
			start, end := e.StartAngle, e.EndAngle
			for end < start {
				end += 360
			}
			dc.DrawArc(px(e.Center.X), py(e.Center.Y), e.Radius*scale, -end*deg, -start*deg)
		case "ELLIPSE":
			major := e.MajorAxis.Len()
			if major <= 0 {
				continue
			}
			dc.DrawEllipse(px(e.Center.X), py(e.Center.Y),
				major*scale, major*e.AxisRatio*scale)
		case "POINT":
			dc.DrawCircle(px(e.Start.X), py(e.Start.Y), 2)
		default:
			continue
		}
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}

	final, err := downsample(dc.Image(), size, size)
	if err != nil {
		return toRGBA(dc.Image()), nil
	}
	return final, nil
}

// dxfBounds extracts per-entity-type representative points to derive the
// drawing extents. Circles and arcs contribute their axis-aligned bounding
// square; ellipses the major-axis extent; splines their control points.
func dxfBounds(doc *mesh.DXFDocument) (math3d.Bounds, bool) {
	var b math3d.Bounds
	have := false

	extend := func(p math3d.Vec3) {
		if !have {
			b = math3d.Bounds{Min: p, Max: p}
			have = true
			return
		}
		b = b.Extend(p)
	}

	for i := range doc.Entities {
		e := &doc.Entities[i]
		switch e.Type {
		case "LINE":
			extend(e.Start)
			extend(e.End)
		case "LWPOLYLINE", "POLYLINE", "SPLINE":
			for _, p := range e.Points {
				extend(p)
			}
		case "CIRCLE", "ARC":
			extend(math3d.V3(e.Center.X-e.Radius, e.Center.Y-e.Radius, 0))
			extend(math3d.V3(e.Center.X+e.Radius, e.Center.Y+e.Radius, 0))
		case "ELLIPSE":
			major := e.MajorAxis.Len()
			extend(math3d.V3(e.Center.X-major, e.Center.Y-major, 0))
			extend(math3d.V3(e.Center.X+major, e.Center.Y+major, 0))
		case "POINT":
			extend(e.Start)
		case "3DFACE", "SOLID":
			for c := 0; c < e.NumCorn; c++ {
				extend(e.Corners[c])
			}
		}
	}
	return b, have
}
