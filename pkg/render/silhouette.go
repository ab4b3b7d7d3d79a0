package render

import (
	"math"
	"sort"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// edgeKey is a canonical, orientation-independent edge identifier: both
// endpoints rounded to 1e-4 in rotated scene space and ordered so (a,b)
// and (b,a) collapse to the same key.
type edgeKey [6]int64

// edgeRecord tracks how many front-facing triangles share an edge, plus
// the projected screen endpoints for stroking.
type edgeRecord struct {
	count          int
	ax, ay, bx, by float64
}

// edgeMap accumulates edges of front-facing triangles within one view.
// Edges appearing exactly once are boundary/silhouette edges; stroking
// them darker is what gives shapes a crisp outline despite flat
// per-triangle shading.
type edgeMap map[edgeKey]*edgeRecord

func roundCoord(v float64) int64 {
	return int64(math.Round(v * 1e4))
}

func canonicalEdgeKey(a, b math3d.Vec3) (edgeKey, bool) {
	ka := [3]int64{roundCoord(a.X), roundCoord(a.Y), roundCoord(a.Z)}
	kb := [3]int64{roundCoord(b.X), roundCoord(b.Y), roundCoord(b.Z)}
	swapped := false
	for i := 0; i < 3; i++ {
		if ka[i] != kb[i] {
			swapped = ka[i] > kb[i]
			break
		}
	}
	if swapped {
		ka, kb = kb, ka
	}
	return edgeKey{ka[0], ka[1], ka[2], kb[0], kb[1], kb[2]}, swapped
}

// add records one edge occurrence. The screen endpoints from the first
// occurrence win; later duplicates only bump the count.
func (em edgeMap) add(a, b math3d.Vec3, ax, ay, bx, by float64) {
	key, swapped := canonicalEdgeKey(a, b)
	if rec, ok := em[key]; ok {
		rec.count++
		return
	}
	if swapped {
		ax, ay, bx, by = bx, by, ax, ay
	}
	em[key] = &edgeRecord{count: 1, ax: ax, ay: ay, bx: bx, by: by}
}

// silhouettes returns the edges shared by exactly one front-facing
// triangle, ordered by canonical key. Overlapping translucent strokes
// composite order-sensitively, so map iteration order would make the
// output differ run to run.
func (em edgeMap) silhouettes() []*edgeRecord {
	keys := make([]edgeKey, 0, len(em))
	for key, rec := range em {
		if rec.count == 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	out := make([]*edgeRecord, len(keys))
	for i, key := range keys {
		out[i] = em[key]
	}
	return out
}
