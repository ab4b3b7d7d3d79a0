package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// ParseGLTF parses a glTF or GLB buffer by walking the document's
// mesh→primitive→accessor structure. Primitives without a POSITION
// attribute are skipped. When an index buffer is present it is walked in
// triples; otherwise the position buffer is treated as already-ordered
// triangle triples. Triangle normals are the average of the three
// referenced vertex normals when present, else recomputed.
func ParseGLTF(data []byte) (*Mesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf: decode: %w", err)
	}

	m := &Mesh{}
	for _, gm := range doc.Meshes {
		if err := appendGLTFMesh(doc, gm, m); err != nil {
			return nil, fmt.Errorf("gltf: mesh %q: %w", gm.Name, err)
		}
	}
	m.FaceCount = len(m.Triangles)
	return m, nil
}

func appendGLTFMesh(doc *gltf.Document, gm *gltf.Mesh, m *Mesh) error {
	for _, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Lines, points and strips do not contribute preview faces.
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readGLTFVec3(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}
		m.VertexCount += len(positions)

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readGLTFVec3(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		if prim.Indices != nil {
			indices, err := readGLTFIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for i := 0; i+2 < len(indices); i += 3 {
				appendGLTFTriangle(m, positions, normals, indices[i], indices[i+1], indices[i+2])
			}
		} else {
			for i := 0; i+2 < len(positions); i += 3 {
				appendGLTFTriangle(m, positions, normals, i, i+1, i+2)
			}
		}
	}
	return nil
}

func appendGLTFTriangle(m *Mesh, positions, normals []math3d.Vec3, a, b, c int) {
	if a >= len(positions) || b >= len(positions) || c >= len(positions) {
		return
	}
	v0, v1, v2 := positions[a], positions[b], positions[c]

	var normal math3d.Vec3
	if a < len(normals) && b < len(normals) && c < len(normals) {
		normal = normals[a].Add(normals[b]).Add(normals[c]).Scale(1.0 / 3.0).Normalize()
	}
	if normal.LenSq() == 0 {
		normal = math3d.TriangleNormal(v0, v1, v2)
	}

	m.Triangles = append(m.Triangles, Triangle{
		Normal: normal,
		V:      [3]math3d.Vec3{v0, v1, v2},
	})
}

// readGLTFVec3 reads a VEC3 float accessor into Vec3 values.
func readGLTFVec3(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	bufData, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = 12 // 3 floats * 4 bytes
	}

	result := make([]math3d.Vec3, 0, accessor.Count)
	for i := 0; i < accessor.Count; i++ {
		off := start + i*stride
		if off+12 > len(bufData) {
			return nil, fmt.Errorf("accessor %d overruns buffer", accessorIdx)
		}
		result = append(result, math3d.V3(
			float64(math.Float32frombits(binary.LittleEndian.Uint32(bufData[off:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(bufData[off+4:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(bufData[off+8:]))),
		))
	}
	return result, nil
}

// readGLTFIndices reads a scalar index accessor (ubyte/ushort/uint).
func readGLTFIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR, got %v", accessor.Type)
	}

	bufData, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	var width int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		width = 1
	case gltf.ComponentUshort:
		width = 2
	case gltf.ComponentUint:
		width = 4
	default:
		return nil, fmt.Errorf("unsupported index component type: %v", accessor.ComponentType)
	}
	if stride == 0 {
		stride = width
	}

	result := make([]int, 0, accessor.Count)
	for i := 0; i < accessor.Count; i++ {
		off := start + i*stride
		if off+width > len(bufData) {
			return nil, fmt.Errorf("index accessor %d overruns buffer", accessorIdx)
		}
		switch width {
		case 1:
			result = append(result, int(bufData[off]))
		case 2:
			result = append(result, int(binary.LittleEndian.Uint16(bufData[off:])))
		case 4:
			result = append(result, int(binary.LittleEndian.Uint32(bufData[off:])))
		}
	}
	return result, nil
}

// accessorBytes resolves an accessor to its backing byte slice, start
// offset and stride. Only embedded (GLB) buffers are supported; external
// URI buffers are a structural error for an upload pipeline that receives
// a single byte buffer.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}
	if *accessor.BufferView >= len(doc.BufferViews) {
		return nil, 0, 0, fmt.Errorf("buffer view %d out of range", *accessor.BufferView)
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.Buffer >= len(doc.Buffers) {
		return nil, 0, 0, fmt.Errorf("buffer %d out of range", bufferView.Buffer)
	}
	buffer := doc.Buffers[bufferView.Buffer]

	if buffer.URI != "" && len(buffer.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("external buffer %q not supported", buffer.URI)
	}
	if len(buffer.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	return buffer.Data, start, bufferView.ByteStride, nil
}
