package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// DXFEntity is a single parsed entity from the ENTITIES section. Fields
// are populated according to the entity type; Points carries polyline
// vertices, spline control points, or the single point of a POINT entity.
type DXFEntity struct {
	Type  string // LINE, LWPOLYLINE, POLYLINE, CIRCLE, ARC, ELLIPSE, SPLINE, 3DFACE, POINT
	Layer string
	Color int // ACI color index (62), 0 when unset

	Points  []math3d.Vec3
	Start   math3d.Vec3 // LINE start (10/20/30)
	End     math3d.Vec3 // LINE end (11/21/31)
	Center  math3d.Vec3 // CIRCLE/ARC/ELLIPSE center
	Corners [4]math3d.Vec3
	NumCorn int // populated 3DFACE corners

	Radius     float64 // CIRCLE/ARC
	StartAngle float64 // ARC, degrees
	EndAngle   float64 // ARC, degrees
	MajorAxis  math3d.Vec3
	AxisRatio  float64 // ELLIPSE minor/major ratio
	Closed     bool
	Flags      int // group 70
}

// DXFDocument is the parser output for DXF buffers.
type DXFDocument struct {
	Entities []DXFEntity
}

// dxfEntityTypes lists the entity names the preview path understands.
var dxfEntityTypes = map[string]bool{
	"LINE": true, "LWPOLYLINE": true, "POLYLINE": true, "CIRCLE": true,
	"ARC": true, "ELLIPSE": true, "SPLINE": true, "3DFACE": true,
	"POINT": true, "SOLID": true,
}

// ParseDXF scans the group-code pairs of a DXF buffer and collects typed
// entities from the ENTITIES section. Unknown entity types are skipped.
func ParseDXF(data []byte) (*DXFDocument, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dxf: scan: %w", err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("dxf: buffer too short")
	}

	doc := &DXFDocument{}
	var (
		inEntities bool
		cur        *DXFEntity
		inPolyline bool
		poly       *DXFEntity
	)

	flush := func() {
		if cur == nil {
			return
		}
		switch cur.Type {
		case "POLYLINE":
			// Vertices arrive as separate VERTEX entities until SEQEND.
			inPolyline = true
			poly = cur
		case "VERTEX":
			if poly != nil {
				poly.Points = append(poly.Points, cur.Start)
			}
		default:
			doc.Entities = append(doc.Entities, *cur)
		}
		cur = nil
	}

	for i := 0; i+1 < len(lines); i += 2 {
		code, err := strconv.Atoi(lines[i])
		if err != nil {
			continue
		}
		value := lines[i+1]

		if code == 0 {
			switch value {
			case "SECTION":
				// Section name follows as a (2, name) pair.
			case "ENDSEC":
				flush()
				if inPolyline && poly != nil {
					doc.Entities = append(doc.Entities, *poly)
					inPolyline, poly = false, nil
				}
				inEntities = false
			case "VERTEX":
				flush()
				if inPolyline && poly != nil {
					cur = &DXFEntity{Type: "VERTEX"}
				}
			case "SEQEND":
				flush()
				if inPolyline && poly != nil {
					doc.Entities = append(doc.Entities, *poly)
					inPolyline, poly = false, nil
				}
			default:
				flush()
				if inEntities && dxfEntityTypes[value] {
					cur = &DXFEntity{Type: value, AxisRatio: 1}
				}
			}
			continue
		}

		if code == 2 && value == "ENTITIES" {
			inEntities = true
			continue
		}
		if cur == nil {
			continue
		}

		f := func() float64 {
			v, _ := strconv.ParseFloat(value, 64)
			return v
		}
		switch code {
		case 8:
			cur.Layer = value
		case 62:
			if n, err := strconv.Atoi(value); err == nil {
				cur.Color = n
			}
		case 70:
			if n, err := strconv.Atoi(value); err == nil {
				cur.Flags = n
				cur.Closed = n&1 != 0
			}
		case 40:
			// Radius for circles/arcs, axis ratio for ellipses.
			if cur.Type == "ELLIPSE" {
				cur.AxisRatio = f()
			} else {
				cur.Radius = f()
			}
		case 50:
			cur.StartAngle = f()
		case 51:
			cur.EndAngle = f()
		case 10:
			switch cur.Type {
			case "LWPOLYLINE", "SPLINE":
				cur.Points = append(cur.Points, math3d.V3(f(), 0, 0))
			case "CIRCLE", "ARC", "ELLIPSE":
				cur.Center.X = f()
			default:
				cur.Start.X = f()
				cur.Corners[0].X = f()
			}
		case 20:
			switch cur.Type {
			case "LWPOLYLINE", "SPLINE":
				if n := len(cur.Points); n > 0 {
					cur.Points[n-1].Y = f()
				}
			case "CIRCLE", "ARC", "ELLIPSE":
				cur.Center.Y = f()
			default:
				cur.Start.Y = f()
				cur.Corners[0].Y = f()
			}
		case 30:
			switch cur.Type {
			case "LWPOLYLINE", "SPLINE":
				if n := len(cur.Points); n > 0 {
					cur.Points[n-1].Z = f()
				}
			case "CIRCLE", "ARC", "ELLIPSE":
				cur.Center.Z = f()
			default:
				cur.Start.Z = f()
				cur.Corners[0].Z = f()
			}
		case 11:
			if cur.Type == "ELLIPSE" {
				cur.MajorAxis.X = f()
			} else {
				cur.End.X = f()
				cur.Corners[1].X = f()
			}
		case 21:
			if cur.Type == "ELLIPSE" {
				cur.MajorAxis.Y = f()
			} else {
				cur.End.Y = f()
				cur.Corners[1].Y = f()
			}
		case 31:
			if cur.Type == "ELLIPSE" {
				cur.MajorAxis.Z = f()
			} else {
				cur.End.Z = f()
				cur.Corners[1].Z = f()
			}
		case 12:
			cur.Corners[2].X = f()
		case 22:
			cur.Corners[2].Y = f()
		case 32:
			cur.Corners[2].Z = f()
		case 13:
			cur.Corners[3].X = f()
		case 23:
			cur.Corners[3].Y = f()
		case 33:
			cur.Corners[3].Z = f()
		}
		if cur.Type == "3DFACE" || cur.Type == "SOLID" {
			switch code {
			case 10, 20, 30:
				cur.NumCorn = maxInt(cur.NumCorn, 1)
			case 11, 21, 31:
				cur.NumCorn = maxInt(cur.NumCorn, 2)
			case 12, 22, 32:
				cur.NumCorn = maxInt(cur.NumCorn, 3)
			case 13, 23, 33:
				cur.NumCorn = maxInt(cur.NumCorn, 4)
			}
		}
	}
	flush()
	if inPolyline && poly != nil {
		doc.Entities = append(doc.Entities, *poly)
	}

	return doc, nil
}

const dxfZEpsilon = 1e-6

// dxf3DTypes are entity types that imply 3D content regardless of their
// coordinate values.
var dxf3DTypes = map[string]bool{
	"3DFACE": true, "3DSOLID": true, "MESH": true, "BODY": true,
	"SURFACE": true,
}

// Is3D classifies a DXF document as 3D when it contains explicit 3D entity
// types, a 3D polyline, or any vertex/corner/center/control point with a Z
// component beyond a small epsilon.
func (d *DXFDocument) Is3D() bool {
	for i := range d.Entities {
		e := &d.Entities[i]
		if dxf3DTypes[e.Type] {
			return true
		}
		if e.Type == "POLYLINE" && e.Flags&8 != 0 {
			return true
		}
		for _, p := range e.Points {
			if math.Abs(p.Z) > dxfZEpsilon {
				return true
			}
		}
		if math.Abs(e.Start.Z) > dxfZEpsilon || math.Abs(e.End.Z) > dxfZEpsilon ||
			math.Abs(e.Center.Z) > dxfZEpsilon {
			return true
		}
		for c := 0; c < e.NumCorn; c++ {
			if math.Abs(e.Corners[c].Z) > dxfZEpsilon {
				return true
			}
		}
	}
	return false
}

// Triangles extracts solid faces from 3DFACE entities and closed polylines.
// A 3DFACE whose fourth corner differs from the third contributes two
// triangles. The result may be empty, in which case the caller falls back
// to wireframe rendering.
func (d *DXFDocument) Triangles() *Mesh {
	m := &Mesh{}
	for i := range d.Entities {
		e := &d.Entities[i]
		switch e.Type {
		case "3DFACE":
			if e.NumCorn < 3 {
				continue
			}
			m.Triangles = append(m.Triangles,
				newTriangle(e.Corners[0], e.Corners[1], e.Corners[2]))
			if e.NumCorn == 4 && e.Corners[3].Sub(e.Corners[2]).LenSq() > 0 {
				m.Triangles = append(m.Triangles,
					newTriangle(e.Corners[0], e.Corners[2], e.Corners[3]))
			}
		case "POLYLINE", "LWPOLYLINE":
			if !e.Closed || len(e.Points) < 3 {
				continue
			}
			for j := 1; j+1 < len(e.Points); j++ {
				m.Triangles = append(m.Triangles,
					newTriangle(e.Points[0], e.Points[j], e.Points[j+1]))
			}
		}
	}
	m.FaceCount = len(m.Triangles)
	m.VertexCount = m.FaceCount * 3
	return m
}

// Segments flattens line-like entities into endpoint pairs for wireframe
// rendering: lines, polyline runs, spline control polygons, and 3DFACE
// edges. Curved entities contribute nothing here; the 2D renderer handles
// them natively.
func (d *DXFDocument) Segments() [][2]math3d.Vec3 {
	var segs [][2]math3d.Vec3
	for i := range d.Entities {
		e := &d.Entities[i]
		switch e.Type {
		case "LINE":
			segs = append(segs, [2]math3d.Vec3{e.Start, e.End})
		case "LWPOLYLINE", "POLYLINE", "SPLINE":
			for j := 0; j+1 < len(e.Points); j++ {
				segs = append(segs, [2]math3d.Vec3{e.Points[j], e.Points[j+1]})
			}
			if e.Closed && len(e.Points) > 2 {
				segs = append(segs, [2]math3d.Vec3{e.Points[len(e.Points)-1], e.Points[0]})
			}
		case "3DFACE", "SOLID":
			for c := 0; c < e.NumCorn; c++ {
				next := (c + 1) % e.NumCorn
				segs = append(segs, [2]math3d.Vec3{e.Corners[c], e.Corners[next]})
			}
		}
	}
	return segs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
