package preview

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// binarySTLCube builds a binary STL cube of the given side.
func binarySTLCube(side float64) []byte {
	s := side
	p := func(x, y, z float64) math3d.Vec3 { return math3d.V3(x, y, z) }

	var tris [][3]math3d.Vec3
	quad := func(a, b, c, d math3d.Vec3) {
		tris = append(tris, [3]math3d.Vec3{a, b, c}, [3]math3d.Vec3{a, c, d})
	}
	quad(p(0, 0, 0), p(0, s, 0), p(s, s, 0), p(s, 0, 0))
	quad(p(0, 0, s), p(s, 0, s), p(s, s, s), p(0, s, s))
	quad(p(0, 0, 0), p(s, 0, 0), p(s, 0, s), p(0, 0, s))
	quad(p(0, s, 0), p(0, s, s), p(s, s, s), p(s, s, 0))
	quad(p(0, 0, 0), p(0, 0, s), p(0, s, s), p(0, s, 0))
	quad(p(s, 0, 0), p(s, s, 0), p(s, s, s), p(s, 0, s))

	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	writeVec := func(v math3d.Vec3) {
		binary.Write(&buf, binary.LittleEndian, float32(v.X))
		binary.Write(&buf, binary.LittleEndian, float32(v.Y))
		binary.Write(&buf, binary.LittleEndian, float32(v.Z))
	}
	for _, t := range tris {
		writeVec(math3d.TriangleNormal(t[0], t[1], t[2]))
		for _, v := range t {
			writeVec(v)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	return New(WithPanelSize(90))
}

func TestGenerateSTL(t *testing.T) {
	res := testGenerator(t).Generate(context.Background(), binarySTLCube(20), "stl", "cube.stl")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
	img, err := png.Decode(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	if img.Bounds().Empty() {
		t.Fatal("empty preview image")
	}
	if len(res.PHash) != 16 {
		t.Fatalf("phash = %q, want 16 hex chars", res.PHash)
	}
}

func TestGenerateUppercaseExtension(t *testing.T) {
	res := testGenerator(t).Generate(context.Background(), binarySTLCube(20), ".STL", "cube.STL")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
}

func TestGenerateUnsupportedFormat(t *testing.T) {
	res := testGenerator(t).Generate(context.Background(), []byte("data"), "docx", "a.docx")
	if res.Success {
		t.Fatal("expected failure for unsupported format")
	}
	if !strings.Contains(res.Err, "unsupported") {
		t.Fatalf("error %q should name the unsupported format class", res.Err)
	}
}

func TestGenerateNoGeometry(t *testing.T) {
	// Valid binary STL header declaring zero triangles.
	empty := make([]byte, 84)
	res := testGenerator(t).Generate(context.Background(), empty, "stl", "empty.stl")
	if res.Success {
		t.Fatal("expected failure for zero-triangle mesh")
	}
	if !strings.Contains(res.Err, "no geometry") {
		t.Fatalf("error %q should be a no-geometry failure", res.Err)
	}
	if len(res.Image) != 0 {
		t.Fatal("failure result must not carry an image")
	}
}

func TestGenerateCorruptInput(t *testing.T) {
	res := testGenerator(t).Generate(context.Background(), []byte("not a zip"), "3mf", "bad.3mf")
	if res.Success {
		t.Fatal("expected failure for corrupt archive")
	}
	if res.Err == "" {
		t.Fatal("failure must carry an error message")
	}
}

func TestGenerateTimeout(t *testing.T) {
	gen := New(WithPanelSize(90), WithTimeout(time.Nanosecond))
	res := gen.Generate(context.Background(), binarySTLCube(20), "stl", "cube.stl")
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Err, "timed out") {
		t.Fatalf("error %q should report the timeout", res.Err)
	}
}

func TestGenerateSVGPassthrough(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="10" height="10"/></svg>`)
	res := testGenerator(t).Generate(context.Background(), svg, "svg", "box.svg")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
	if !bytes.Equal(res.Image, svg) {
		t.Fatal("svg bytes must pass through unmodified")
	}
}

func TestGenerateRasterPassthrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			src.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	res := testGenerator(t).Generate(context.Background(), buf.Bytes(), "png", "photo.png")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
	out, err := png.Decode(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	// 300x200 fits into the 90px box preserving aspect ratio.
	if out.Bounds().Dx() != 90 || out.Bounds().Dy() != 60 {
		t.Fatalf("resized to %dx%d, want 90x60", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestGenerateGcode(t *testing.T) {
	src := []byte("G90 G21\nG0 X0 Y0\nG1 X50 Y0\nG1 X50 Y30\nG1 X0 Y30\nG1 X0 Y0\n")
	res := testGenerator(t).Generate(context.Background(), src, "gcode", "part.gcode")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
	if _, err := png.Decode(bytes.NewReader(res.Image)); err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
}

func TestGenerateDXF2D(t *testing.T) {
	src := []byte("0\nSECTION\n2\nENTITIES\n0\nLINE\n10\n0\n20\n0\n11\n100\n21\n50\n0\nCIRCLE\n10\n50\n20\n25\n40\n10\n0\nENDSEC\n0\nEOF\n")
	res := testGenerator(t).Generate(context.Background(), src, "dxf", "plate.dxf")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.Err)
	}
}

func TestGenerateMultiViewMeshOnly(t *testing.T) {
	gen := testGenerator(t)

	res := gen.GenerateMultiView(context.Background(), binarySTLCube(20), "stl", "cube.stl")
	if !res.Success {
		t.Fatalf("multi-view generate failed: %s", res.Err)
	}

	res = gen.GenerateMultiView(context.Background(), []byte("0\nEOF\n"), "dxf", "a.dxf")
	if res.Success {
		t.Fatal("multi-view must reject non-mesh formats")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := testGenerator(t)
	data := binarySTLCube(15)
	a := gen.Generate(context.Background(), data, "stl", "a.stl")
	b := gen.Generate(context.Background(), data, "stl", "a.stl")
	if !a.Success || !b.Success {
		t.Fatalf("generate failed: %s / %s", a.Err, b.Err)
	}
	if !bytes.Equal(a.Image, b.Image) {
		t.Fatal("identical input produced different previews")
	}
	if a.PHash != b.PHash {
		t.Fatalf("hashes differ: %q vs %q", a.PHash, b.PHash)
	}
}

func TestAnalyzeMesh(t *testing.T) {
	gen := testGenerator(t)

	m, err := gen.AnalyzeMesh(binarySTLCube(20), "stl")
	if err != nil {
		t.Fatalf("AnalyzeMesh: %v", err)
	}
	if m.TriangleCount != 12 {
		t.Fatalf("triangle count = %d, want 12", m.TriangleCount)
	}
	if m.DetectedUnit != "mm" || m.UnitConfidence != "high" {
		t.Fatalf("unit = %s/%s, want mm/high", m.DetectedUnit, m.UnitConfidence)
	}

	if _, err := gen.AnalyzeMesh([]byte("x"), "gcode"); err == nil {
		t.Fatal("AnalyzeMesh must reject non-mesh formats")
	}
}

func TestConvertAndGenerateWithoutConverter(t *testing.T) {
	res := testGenerator(t).ConvertAndGenerate(context.Background(), []byte("x"), "dwg", "dxf", "a.dwg")
	if res.Success {
		t.Fatal("expected failure without a converter")
	}
	if !strings.Contains(res.Err, "not available") {
		t.Fatalf("error %q should report converter unavailability", res.Err)
	}
}

func TestExecConverterUnavailable(t *testing.T) {
	c := &ExecConverter{Tool: "definitely-not-a-real-tool-xyz"}
	if c.Available() {
		t.Fatal("nonexistent tool reported available")
	}
	if _, err := c.Convert(context.Background(), []byte("x"), "dwg", "dxf"); err == nil {
		t.Fatal("expected error from unavailable converter")
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct{ in, want string }{
		{"STL", "stl"},
		{".GCode", "gcode"},
		{"  obj ", "obj"},
	}
	for _, tt := range tests {
		if got := normalizeType(tt.in); got != tt.want {
			t.Errorf("normalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
