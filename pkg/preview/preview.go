// Package preview is the public entry point of the pipeline: it dispatches
// raw file bytes by format tag to the right parser and renderer, races the
// work against a wall-clock budget, and folds every internal failure into a
// plain Result so nothing escapes the boundary.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // registered for image.Decode
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/psykeus/fabpreview/pkg/geometry"
	"github.com/psykeus/fabpreview/pkg/mesh"
	"github.com/psykeus/fabpreview/pkg/phash"
	"github.com/psykeus/fabpreview/pkg/render"
)

var (
	// ErrUnsupportedFormat reports a file-type tag outside the supported
	// set. It is returned before any parsing work is attempted.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrTimeout reports that a generation exceeded its wall-clock budget.
	ErrTimeout = errors.New("preview timed out")
)

// DefaultTimeout bounds one preview generation end to end.
const DefaultTimeout = 30 * time.Second

// Result is the terminal artifact of a preview request. On success Image
// holds the encoded preview (PNG, or the original bytes for SVG
// passthrough) and PHash the optional perceptual hash; on failure Err holds
// a human-readable message. Never both.
type Result struct {
	Success bool
	Image   []byte
	PHash   string
	Err     string
}

func failure(err error) Result {
	return Result{Err: err.Error()}
}

// Generator produces previews. The zero value is not usable; construct
// with New.
type Generator struct {
	log       *slog.Logger
	timeout   time.Duration
	panelSize int
	converter Converter
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger injects a structured logger for non-fatal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithTimeout overrides the wall-clock budget for one generation.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithPanelSize overrides the supersampled per-panel resolution.
func WithPanelSize(px int) Option {
	return func(g *Generator) { g.panelSize = px }
}

// WithConverter installs a legacy-format conversion capability.
func WithConverter(c Converter) Option {
	return func(g *Generator) { g.converter = c }
}

// New builds a Generator with the default budget and panel size. Logging
// is silent unless a logger is injected.
func New(opts ...Option) *Generator {
	g := &Generator{
		log:     slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// meshParsers is the closed dispatch table for triangle-soup formats.
var meshParsers = map[string]func([]byte) (*mesh.Mesh, error){
	"stl":  mesh.ParseSTL,
	"obj":  mesh.ParseOBJ,
	"gltf": mesh.ParseGLTF,
	"glb":  mesh.ParseGLTF,
	"3mf":  mesh.Parse3MF,
}

var rasterFormats = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
}

// normalizeType lowercases a file-type tag and strips a leading dot.
func normalizeType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}

// Generate produces the default 4-view preview (or format-appropriate 2D
// rendering) for the given bytes. The filename is used for diagnostics
// only. All failures, including panics and timeouts, come back as a
// Result with Success false; Generate never returns an error value.
func (g *Generator) Generate(ctx context.Context, data []byte, fileType, filename string) Result {
	return g.run(ctx, fileType, filename, func(ctx context.Context, ft string) (Result, error) {
		return g.dispatch(ctx, data, ft, 4)
	})
}

// GenerateMultiView produces the 6-angle grid used for model analysis. It
// accepts mesh formats only.
func (g *Generator) GenerateMultiView(ctx context.Context, data []byte, fileType, filename string) Result {
	return g.run(ctx, fileType, filename, func(ctx context.Context, ft string) (Result, error) {
		if _, ok := meshParsers[ft]; !ok {
			return Result{}, fmt.Errorf("%w: %q has no multi-view rendering", ErrUnsupportedFormat, ft)
		}
		return g.dispatch(ctx, data, ft, 6)
	})
}

// run wraps a generation function with the timeout race and the panic
// barrier. The work runs on its own goroutine with a deadline context; the
// rasterizer checks that context cooperatively, so a timed-out render stops
// burning CPU instead of merely being abandoned.
func (g *Generator) run(ctx context.Context, fileType, filename string,
	fn func(context.Context, string) (Result, error),
) Result {
	ft := normalizeType(fileType)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		res, err := fn(ctx, ft)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				out.err = fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
			}
			g.log.Warn("preview failed",
				"file", filename, "type", ft, "error", out.err)
			return failure(out.err)
		}
		return out.res
	case <-ctx.Done():
		g.log.Warn("preview timed out",
			"file", filename, "type", ft, "budget", g.timeout)
		return failure(fmt.Errorf("%w after %s", ErrTimeout, g.timeout))
	}
}

// dispatch is the closed per-format switch. Adding a format means adding
// one case here plus its parser or renderer.
func (g *Generator) dispatch(ctx context.Context, data []byte, ft string, viewCount int) (Result, error) {
	switch {
	case meshParsers[ft] != nil:
		m, err := meshParsers[ft](data)
		if err != nil {
			return Result{}, err
		}
		img, err := render.MultiView(ctx, m, render.Options{
			ViewCount: viewCount,
			PanelSize: g.panelSize,
		})
		if err != nil {
			return Result{}, err
		}
		return g.finish(img)

	case ft == "gcode" || ft == "nc" || ft == "tap":
		tp, err := mesh.ParseGcode(data)
		if err != nil {
			return Result{}, err
		}
		img, err := render.Toolpath2D(tp, g.panelSize)
		if err != nil {
			return Result{}, err
		}
		return g.finish(img)

	case ft == "dxf":
		return g.previewDXF(ctx, data, viewCount)

	case ft == "svg":
		// Vector input passes through untouched; browsers render it
		// natively and rasterizing it here would only lose fidelity.
		return Result{Success: true, Image: data}, nil

	case rasterFormats[ft]:
		return g.previewRaster(data)

	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ft)
	}
}

// previewDXF renders 3D documents as shaded triangles when solid faces
// exist, as a wireframe grid otherwise, and 2D documents with the flat
// entity renderer.
func (g *Generator) previewDXF(ctx context.Context, data []byte, viewCount int) (Result, error) {
	doc, err := mesh.ParseDXF(data)
	if err != nil {
		return Result{}, err
	}

	if doc.Is3D() {
		opts := render.Options{ViewCount: viewCount, PanelSize: g.panelSize}
		if m := doc.Triangles(); len(m.Triangles) > 0 {
			img, err := render.MultiView(ctx, m, opts)
			if err != nil {
				return Result{}, err
			}
			return g.finish(img)
		}
		segs := doc.Segments()
		lines := make([]render.Line3D, len(segs))
		for i, s := range segs {
			lines[i] = render.Line3D{A: s[0], B: s[1]}
		}
		img, err := render.WireframeMultiView(ctx, lines, opts)
		if err != nil {
			return Result{}, err
		}
		return g.finish(img)
	}

	img, err := render.DXF2D(doc, g.panelSize)
	if err != nil {
		return Result{}, err
	}
	return g.finish(img)
}

// previewRaster decodes an uploaded image, fits it into the preview box
// with the same Catmull-Rom kernel the rasterizer uses, and re-encodes as
// PNG.
func (g *Generator) previewRaster(data []byte) (Result, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	box := g.panelSize
	if box <= 0 {
		box = render.DefaultPanelSize
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Result{}, render.ErrNoGeometry
	}
	if w > box || h > box {
		if w >= h {
			h = h * box / w
			w = box
		} else {
			w = w * box / h
			h = box
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
		src = dst
	}
	return g.finish(src)
}

// finish encodes the rendered image and attaches the perceptual hash. Hash
// failure degrades to an empty hash, never to a failed preview.
func (g *Generator) finish(img image.Image) (Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encode png: %w", err)
	}

	hash, err := phash.Hash(img)
	if err != nil {
		g.log.Warn("perceptual hash failed", "error", err)
		hash = ""
	}
	return Result{Success: true, Image: buf.Bytes(), PHash: hash}, nil
}

// AnalyzeMesh parses a mesh-format buffer and returns geometry metrics
// without rendering anything.
func (g *Generator) AnalyzeMesh(data []byte, fileType string) (geometry.Metrics, error) {
	ft := normalizeType(fileType)
	parse, ok := meshParsers[ft]
	if !ok {
		return geometry.Metrics{}, fmt.Errorf("%w: %q is not a mesh format", ErrUnsupportedFormat, ft)
	}
	m, err := parse(data)
	if err != nil {
		return geometry.Metrics{}, err
	}
	if len(m.Triangles) == 0 {
		return geometry.Metrics{}, render.ErrNoGeometry
	}
	return geometry.Analyze(m), nil
}

// ConvertAndGenerate converts a legacy-format buffer with the installed
// Converter, then generates a preview from the converted bytes. A missing
// converter surfaces ErrConverterUnavailable in the result.
func (g *Generator) ConvertAndGenerate(ctx context.Context, data []byte, fromExt, toExt, filename string) Result {
	return g.run(ctx, toExt, filename, func(ctx context.Context, ft string) (Result, error) {
		if g.converter == nil || !g.converter.Available() {
			return Result{}, ErrConverterUnavailable
		}
		converted, err := g.converter.Convert(ctx, data, normalizeType(fromExt), ft)
		if err != nil {
			return Result{}, err
		}
		return g.dispatch(ctx, converted, ft, 4)
	})
}
