// Package phash computes difference hashes of preview images so visually
// similar previews can be matched without comparing pixels. The hash is a
// 64-bit gradient fingerprint encoded as 16 hex characters.
package phash

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"

	xdraw "golang.org/x/image/draw"
)

const (
	hashCols = 9
	hashRows = 8

	// HashBits is the fingerprint width; each bit compares one pixel to its
	// right neighbor on the reduced grayscale grid.
	HashBits = hashCols*hashRows - hashRows

	// DefaultThreshold is the similarity percentage at or above which two
	// hashes are considered a match.
	DefaultThreshold = 90.0
)

// Hash computes the dHash of an image. The image is reduced to a 9x8
// grayscale grid with a Catmull-Rom kernel and each cell is compared to its
// right neighbor, brightest-first, most significant bit first.
func Hash(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("phash: nil image")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return "", fmt.Errorf("phash: empty image %dx%d", b.Dx(), b.Dy())
	}

	small := image.NewGray(image.Rect(0, 0, hashCols, hashRows))
	xdraw.CatmullRom.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)

	var bits uint64
	for y := 0; y < hashRows; y++ {
		for x := 0; x < hashCols-1; x++ {
			bits <<= 1
			if small.GrayAt(x, y).Y > small.GrayAt(x+1, y).Y {
				bits |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", bits), nil
}

// HammingDistance counts differing bits between two hex hashes. Hashes of
// different lengths, or with non-hex characters, are incomparable and
// return +Inf.
func HammingDistance(a, b string) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	dist := 0.0
	for i := 0; i < len(a); i++ {
		na, errA := strconv.ParseUint(string(a[i]), 16, 8)
		nb, errB := strconv.ParseUint(string(b[i]), 16, 8)
		if errA != nil || errB != nil {
			return math.Inf(1)
		}
		dist += float64(popcount4(uint8(na ^ nb)))
	}
	return dist
}

func popcount4(v uint8) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// Similarity maps a Hamming distance to a 0..100 percentage. Incomparable
// hashes score 0.
func Similarity(a, b string) float64 {
	d := HammingDistance(a, b)
	if math.IsInf(d, 1) {
		return 0
	}
	return math.Round((1 - d/float64(HashBits)) * 100)
}

// IsSimilar reports whether two hashes meet the threshold. A non-positive
// threshold falls back to DefaultThreshold.
func IsSimilar(a, b string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Similarity(a, b) >= threshold
}

// Match is one candidate ranked against a query hash.
type Match struct {
	Hash       string
	Similarity float64
}

// FindSimilarHashes ranks candidates by similarity to the query, dropping
// those below the threshold. Ties keep candidate order.
func FindSimilarHashes(query string, candidates []string, threshold float64) []Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var matches []Match
	for _, c := range candidates {
		if s := Similarity(query, c); s >= threshold {
			matches = append(matches, Match{Hash: c, Similarity: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
