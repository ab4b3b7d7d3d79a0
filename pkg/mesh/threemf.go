package mesh

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// Conventional locations of the model XML inside a 3MF archive, tried in
// order before falling back to a scan for any ".model" entry.
var threemfModelPaths = []string{
	"3D/3dmodel.model",
	"3D/model.model",
	"3dmodel.model",
}

// Primary patterns assume the conventional x,y,z / v1,v2,v3 attribute
// order; the fallback patterns tolerate any attribute order.
var (
	reVertexOrdered = regexp.MustCompile(
		`<vertex[^>]*\sx="([^"]+)"[^>]*\sy="([^"]+)"[^>]*\sz="([^"]+)"`)
	reVertexAnyAttr = regexp.MustCompile(`<vertex([^>]*)/?>`)
	reTriOrdered    = regexp.MustCompile(
		`<triangle[^>]*\sv1="(\d+)"[^>]*\sv2="(\d+)"[^>]*\sv3="(\d+)"`)
	reTriAnyAttr = regexp.MustCompile(`<triangle([^>]*)/?>`)
	reAttr       = regexp.MustCompile(`([a-z0-9]+)="([^"]*)"`)
)

// Parse3MF unzips the archive, locates the model XML and extracts vertex
// and triangle elements. Triangle indices are positional into the vertex
// list; out-of-range indices are silently skipped.
func Parse3MF(data []byte) (*Mesh, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("3mf: open archive: %w", err)
	}

	model, err := read3MFModelXML(zr)
	if err != nil {
		return nil, err
	}

	vertices := extract3MFVertices(model)
	return build3MFMesh(model, vertices), nil
}

func read3MFModelXML(zr *zip.Reader) (string, error) {
	open := func(f *zip.File) (string, error) {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("3mf: open %q: %w", f.Name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("3mf: read %q: %w", f.Name, err)
		}
		return string(b), nil
	}

	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}
	for _, path := range threemfModelPaths {
		if f, ok := byName[path]; ok {
			return open(f)
		}
	}
	// Fall back to any entry with a .model suffix.
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".model") {
			return open(f)
		}
	}
	return "", fmt.Errorf("3mf: no model XML found in archive")
}

func extract3MFVertices(model string) []math3d.Vec3 {
	matches := reVertexOrdered.FindAllStringSubmatch(model, -1)
	if len(matches) > 0 {
		verts := make([]math3d.Vec3, 0, len(matches))
		for _, m := range matches {
			if v, ok := parseVec3Fields(m[1:4]); ok {
				verts = append(verts, v)
			}
		}
		return verts
	}

	// Attribute-order-tolerant fallback.
	var verts []math3d.Vec3
	for _, m := range reVertexAnyAttr.FindAllStringSubmatch(model, -1) {
		attrs := parse3MFAttrs(m[1])
		x, okX := attrs["x"]
		y, okY := attrs["y"]
		z, okZ := attrs["z"]
		if !okX || !okY || !okZ {
			continue
		}
		if v, ok := parseVec3Fields([]string{x, y, z}); ok {
			verts = append(verts, v)
		}
	}
	return verts
}

func build3MFMesh(model string, vertices []math3d.Vec3) *Mesh {
	m := &Mesh{VertexCount: len(vertices)}

	addTri := func(i1, i2, i3 int) {
		if i1 < 0 || i2 < 0 || i3 < 0 ||
			i1 >= len(vertices) || i2 >= len(vertices) || i3 >= len(vertices) {
			return
		}
		m.Triangles = append(m.Triangles,
			newTriangle(vertices[i1], vertices[i2], vertices[i3]))
	}

	matches := reTriOrdered.FindAllStringSubmatch(model, -1)
	if len(matches) > 0 {
		for _, t := range matches {
			i1, e1 := strconv.Atoi(t[1])
			i2, e2 := strconv.Atoi(t[2])
			i3, e3 := strconv.Atoi(t[3])
			if e1 != nil || e2 != nil || e3 != nil {
				continue
			}
			addTri(i1, i2, i3)
		}
	} else {
		for _, t := range reTriAnyAttr.FindAllStringSubmatch(model, -1) {
			attrs := parse3MFAttrs(t[1])
			i1, e1 := strconv.Atoi(attrs["v1"])
			i2, e2 := strconv.Atoi(attrs["v2"])
			i3, e3 := strconv.Atoi(attrs["v3"])
			if e1 != nil || e2 != nil || e3 != nil {
				continue
			}
			addTri(i1, i2, i3)
		}
	}

	m.FaceCount = len(m.Triangles)
	return m
}

func parse3MFAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range reAttr.FindAllStringSubmatch(s, -1) {
		attrs[kv[1]] = kv[2]
	}
	return attrs
}
