package mesh

import (
	"strings"
	"testing"
)

// dxfDoc joins group-code pairs into a minimal DXF buffer.
func dxfDoc(pairs ...string) []byte {
	return []byte(strings.Join(pairs, "\n") + "\n")
}

func TestParseDXFLine(t *testing.T) {
	doc, err := ParseDXF(dxfDoc(
		"0", "SECTION", "2", "ENTITIES",
		"0", "LINE", "8", "cut", "62", "1",
		"10", "0", "20", "0", "11", "100", "21", "50",
		"0", "ENDSEC", "0", "EOF",
	))
	if err != nil {
		t.Fatalf("ParseDXF: %v", err)
	}
	if len(doc.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(doc.Entities))
	}
	e := doc.Entities[0]
	if e.Type != "LINE" || e.Layer != "cut" || e.Color != 1 {
		t.Fatalf("entity = %+v", e)
	}
	if e.End.X != 100 || e.End.Y != 50 {
		t.Fatalf("line end = %+v, want (100,50,0)", e.End)
	}
	if doc.Is3D() {
		t.Fatal("flat line classified as 3D")
	}
}

func TestParseDXFIgnoresOtherSections(t *testing.T) {
	doc, err := ParseDXF(dxfDoc(
		"0", "SECTION", "2", "HEADER",
		"0", "LINE", "10", "0", "20", "0", "11", "1", "21", "1",
		"0", "ENDSEC",
		"0", "SECTION", "2", "ENTITIES",
		"0", "CIRCLE", "10", "5", "20", "5", "40", "2.5",
		"0", "ENDSEC", "0", "EOF",
	))
	if err != nil {
		t.Fatalf("ParseDXF: %v", err)
	}
	if len(doc.Entities) != 1 || doc.Entities[0].Type != "CIRCLE" {
		t.Fatalf("entities = %+v, want one CIRCLE", doc.Entities)
	}
	if doc.Entities[0].Radius != 2.5 {
		t.Fatalf("radius = %g, want 2.5", doc.Entities[0].Radius)
	}
}

func TestParseDXFPolylineVertices(t *testing.T) {
	doc, err := ParseDXF(dxfDoc(
		"0", "SECTION", "2", "ENTITIES",
		"0", "POLYLINE", "8", "outline", "70", "1",
		"0", "VERTEX", "10", "0", "20", "0",
		"0", "VERTEX", "10", "10", "20", "0",
		"0", "VERTEX", "10", "10", "20", "10",
		"0", "SEQEND",
		"0", "ENDSEC", "0", "EOF",
	))
	if err != nil {
		t.Fatalf("ParseDXF: %v", err)
	}
	if len(doc.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(doc.Entities))
	}
	p := doc.Entities[0]
	if p.Type != "POLYLINE" || len(p.Points) != 3 {
		t.Fatalf("polyline = %+v, want 3 vertices", p)
	}
	if !p.Closed {
		t.Fatal("flag 1 should mark the polyline closed")
	}
	// Closed three-point polyline fans into one triangle.
	if m := doc.Triangles(); m.FaceCount != 1 {
		t.Fatalf("triangles = %d, want 1", m.FaceCount)
	}
}

func TestParseDXFIs3D(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  bool
	}{
		{
			name: "z coordinate",
			pairs: []string{
				"0", "SECTION", "2", "ENTITIES",
				"0", "LINE", "10", "0", "20", "0", "30", "5",
				"11", "1", "21", "1", "31", "5",
				"0", "ENDSEC",
			},
			want: true,
		},
		{
			name: "3dface entity",
			pairs: []string{
				"0", "SECTION", "2", "ENTITIES",
				"0", "3DFACE",
				"10", "0", "20", "0", "30", "0",
				"11", "1", "21", "0", "31", "0",
				"12", "0", "22", "1", "32", "0",
				"0", "ENDSEC",
			},
			want: true,
		},
		{
			name: "flat circle",
			pairs: []string{
				"0", "SECTION", "2", "ENTITIES",
				"0", "CIRCLE", "10", "5", "20", "5", "40", "1",
				"0", "ENDSEC",
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDXF(dxfDoc(tt.pairs...))
			if err != nil {
				t.Fatalf("ParseDXF: %v", err)
			}
			if got := doc.Is3D(); got != tt.want {
				t.Fatalf("Is3D() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDXFTrianglesFrom3DFace(t *testing.T) {
	doc, err := ParseDXF(dxfDoc(
		"0", "SECTION", "2", "ENTITIES",
		"0", "3DFACE",
		"10", "0", "20", "0", "30", "0",
		"11", "1", "21", "0", "31", "0",
		"12", "1", "22", "1", "32", "0",
		"13", "0", "23", "1", "33", "0",
		"0", "ENDSEC",
	))
	if err != nil {
		t.Fatalf("ParseDXF: %v", err)
	}
	// Quad face with a distinct fourth corner splits into two triangles.
	if m := doc.Triangles(); m.FaceCount != 2 {
		t.Fatalf("triangles = %d, want 2", m.FaceCount)
	}
}

func TestDXFSegments(t *testing.T) {
	doc, err := ParseDXF(dxfDoc(
		"0", "SECTION", "2", "ENTITIES",
		"0", "LINE", "10", "0", "20", "0", "11", "1", "21", "0",
		"0", "LWPOLYLINE", "70", "1",
		"10", "0", "20", "0",
		"10", "1", "20", "0",
		"10", "1", "20", "1",
		"0", "ENDSEC",
	))
	if err != nil {
		t.Fatalf("ParseDXF: %v", err)
	}
	// One line segment plus two polyline runs plus the closing edge.
	if segs := doc.Segments(); len(segs) != 4 {
		t.Fatalf("segments = %d, want 4", len(segs))
	}
}

func TestParseDXFTooShort(t *testing.T) {
	if _, err := ParseDXF([]byte("0")); err == nil {
		t.Fatal("expected error for truncated buffer")
	}
}
