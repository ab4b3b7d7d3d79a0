package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/gogpu/gg"

	"github.com/psykeus/fabpreview/pkg/math3d"
	"github.com/psykeus/fabpreview/pkg/mesh"
)

const (
	// MaxTriangles is the hard cap: inputs above it fail immediately rather
	// than risk unbounded memory and CPU.
	MaxTriangles = 500_000
	// TargetTriangles is the subsampling target for oversized inputs.
	TargetTriangles = 100_000

	// DefaultPanelSize is the supersampled per-panel resolution; the final
	// image is this divided by the supersample factor.
	DefaultPanelSize = 600
	supersample      = 1.5

	// cancelCheckStride bounds how long the per-triangle loop can run
	// between context checks.
	cancelCheckStride = 4096
)

// Sentinel errors for the render failure taxonomy.
var (
	ErrNoGeometry = errors.New("no geometry found")
	ErrTooComplex = errors.New("model too complex to render")
)

// Options controls a multi-view render.
type Options struct {
	// ViewCount is 4 (2x2 grid) or 6 (3x2 grid). Defaults to 4.
	ViewCount int
	// PanelSize is the supersampled per-panel resolution. Defaults to
	// DefaultPanelSize.
	PanelSize int
}

func (o Options) withDefaults() Options {
	if o.ViewCount != 6 {
		o.ViewCount = 4
	}
	if o.PanelSize <= 0 {
		o.PanelSize = DefaultPanelSize
	}
	return o
}

// neutral base color modulated by the computed per-channel brightness.
const (
	baseR = 0.72
	baseG = 0.74
	baseB = 0.78
)

// projTri is a triangle after rotation, projection and shading, ready for
// the painter's pass.
type projTri struct {
	x, y  [3]float64
	depth float64
	sh    shading
}

// MultiView renders the triangle list from a fixed set of named camera
// angles into one grid image at supersampled resolution, then downsamples
// with a Catmull-Rom kernel. The returned image is deterministic for a
// given input: subsampling uses a positional hash, and nothing depends on
// the clock.
//
// Guards: an empty mesh fails with ErrNoGeometry; a mesh over MaxTriangles
// fails with ErrTooComplex before any canvas is allocated. The context is
// checked inside the per-triangle loops so a cancelled render stops doing
// work instead of merely being abandoned.
func MultiView(ctx context.Context, m *mesh.Mesh, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()

	if len(m.Triangles) == 0 {
		return nil, ErrNoGeometry
	}
	if len(m.Triangles) > MaxTriangles {
		return nil, fmt.Errorf("%w: %d triangles exceeds the maximum of %d",
			ErrTooComplex, len(m.Triangles), MaxTriangles)
	}

	tris := m.Triangles
	if len(tris) > TargetTriangles {
		tris = subsampleTriangles(tris, TargetTriangles)
	}

	// One shared scene transform keeps the scale consistent across panels.
	bounds := meshBounds(tris)
	center := bounds.Center()
	maxExtent := bounds.MaxExtent()
	relief := isRelief(bounds.Size())

	views, cols, rows := viewsFor(opts.ViewCount, relief)
	panel := opts.PanelSize
	width, height := cols*panel, rows*panel

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.RGB(0.97, 0.97, 0.98))

	scale := 1.0
	if maxExtent > 0 {
		scale = float64(panel) * 0.8 / maxExtent
	}

	for _, v := range views {
		if err := renderView(ctx, dc, tris, v, center, scale, panel); err != nil {
			return nil, err
		}
	}

	drawGridLines(dc, cols, rows, panel)

	// Downsample failure degrades to the supersampled buffer rather than
	// failing the whole render.
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

// renderView draws one panel: rotate, project, cull, shade, depth-sort,
// fill, then stroke silhouette edges and rim highlights.
func renderView(ctx context.Context, dc *gg.Context, tris []mesh.Triangle,
	v View, center math3d.Vec3, scale float64, panel int,
) error {
	rot := math3d.NewRotation(v.RotX, v.RotY)
	rig := rigFor(v)
	ox := float64(v.Col*panel) + float64(panel)/2
	oy := float64(v.Row*panel) + float64(panel)/2

	projected := make([]projTri, 0, len(tris)/2)
	edges := make(edgeMap, len(tris))

	for i := range tris {
		if i%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		t := &tris[i]

		// Rotate vertices about the shared center; rotate the normal
		// without the center offset.
		r0 := rot.Apply(t.V[0].Sub(center))
		r1 := rot.Apply(t.V[1].Sub(center))
		r2 := rot.Apply(t.V[2].Sub(center))
		n := rot.Apply(t.Normal)

		// Back-face cull: the camera looks along +Z.
		if n.Z <= 0 {
			continue
		}

		pt := projTri{
			x:     [3]float64{ox + r0.X*scale, ox + r1.X*scale, ox + r2.X*scale},
			y:     [3]float64{oy - r0.Y*scale, oy - r1.Y*scale, oy - r2.Y*scale},
			depth: (r0.Z + r1.Z + r2.Z) / 3,
			sh:    shade(n, rig),
		}
		projected = append(projected, pt)

		edges.add(r0, r1, pt.x[0], pt.y[0], pt.x[1], pt.y[1])
		edges.add(r1, r2, pt.x[1], pt.y[1], pt.x[2], pt.y[2])
		edges.add(r2, r0, pt.x[2], pt.y[2], pt.x[0], pt.y[0])
	}

	// Painter's algorithm: back-to-front by average rotated Z. Acceptable
	// for opaque, flat-shaded previews; no z-buffer is used.
	sort.SliceStable(projected, func(a, b int) bool {
		return projected[a].depth < projected[b].depth
	})

	for i := range projected {
		if i%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		pt := &projected[i]

		dc.MoveTo(pt.x[0], pt.y[0])
		dc.LineTo(pt.x[1], pt.y[1])
		dc.LineTo(pt.x[2], pt.y[2])
		dc.ClosePath()
		dc.SetRGB(
			clamp01(baseR*pt.sh.r+pt.sh.specular),
			clamp01(baseG*pt.sh.g+pt.sh.specular),
			clamp01(baseB*pt.sh.b+pt.sh.specular),
		)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("fill triangle: %w", err)
		}

		if pt.sh.rim > rimThreshold {
			dc.MoveTo(pt.x[0], pt.y[0])
			dc.LineTo(pt.x[1], pt.y[1])
			dc.LineTo(pt.x[2], pt.y[2])
			dc.ClosePath()
			dc.SetRGBA(1, 1, 1, 0.30*pt.sh.rim)
			dc.SetLineWidth(1)
			if err := dc.Stroke(); err != nil {
				return fmt.Errorf("stroke rim: %w", err)
			}
		}
	}

	// Silhouette pass: boundary edges (shared by exactly one front-facing
	// triangle) are stroked darker for shape definition.
	dc.SetRGBA(0.18, 0.19, 0.22, 0.85)
	dc.SetLineWidth(1.5)
	for _, e := range edges.silhouettes() {
		dc.DrawLine(e.ax, e.ay, e.bx, e.by)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke silhouette: %w", err)
		}
	}
	return nil
}

func drawGridLines(dc *gg.Context, cols, rows, panel int) {
	dc.SetRGB(0.78, 0.78, 0.82)
	dc.SetLineWidth(2)
	for c := 1; c < cols; c++ {
		dc.DrawLine(float64(c*panel), 0, float64(c*panel), float64(rows*panel))
		_ = dc.Stroke()
	}
	for r := 1; r < rows; r++ {
		dc.DrawLine(0, float64(r*panel), float64(cols*panel), float64(r*panel))
		_ = dc.Stroke()
	}
}

// subsampleTriangles deterministically reduces the list to about target
// triangles with a fixed-stride walk plus a small positional-hash jitter.
// The jitter breaks up the periodic aliasing a naive fixed stride causes
// on regular meshes; it depends only on the index, never on a clock or a
// random source. Subsampling is lossy by design and used only for
// previews, never for geometric analysis.
func subsampleTriangles(tris []mesh.Triangle, target int) []mesh.Triangle {
	n := len(tris)
	if n <= target {
		out := make([]mesh.Triangle, n)
		copy(out, tris)
		return out
	}

	stride := float64(n) / float64(target)
	jitterRange := int(stride)
	out := make([]mesh.Triangle, 0, target)
	for i := 0; i < target; i++ {
		idx := int(float64(i) * stride)
		if jitterRange > 1 {
			idx += positionalHash(i) % jitterRange
		}
		if idx >= n {
			idx = n - 1
		}
		out = append(out, tris[idx])
	}
	return out
}

// positionalHash is a small integer hash (xorshift-multiply) used for
// deterministic subsampling jitter.
func positionalHash(i int) int {
	h := uint32(i)
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return int(h & 0x7fffffff)
}

func meshBounds(tris []mesh.Triangle) math3d.Bounds {
	if len(tris) == 0 {
		return math3d.Bounds{}
	}
	b := math3d.Bounds{Min: tris[0].V[0], Max: tris[0].V[0]}
	for i := range tris {
		for _, v := range tris[i].V {
			b = b.Extend(v)
		}
	}
	return b
}
