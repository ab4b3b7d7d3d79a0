package phash

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestHashFormat(t *testing.T) {
	h, err := Hash(gradientImage(64, 64))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(h) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h))
	}
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("hash %q contains non-hex rune %q", h, r)
		}
	}
}

func TestHashDeterministic(t *testing.T) {
	img := gradientImage(128, 96)
	h1, err := Hash(img)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(img)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hashes differ: %q vs %q", h1, h2)
	}
}

func TestHashSolidIsZero(t *testing.T) {
	// A flat image has no gradient anywhere, so every comparison is false.
	h, err := Hash(solidImage(32, 32, color.RGBA{128, 128, 128, 255}))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h != "0000000000000000" {
		t.Fatalf("solid image hash = %q, want all zeros", h)
	}
}

func TestHashScaleInvariant(t *testing.T) {
	small, err := Hash(gradientImage(32, 32))
	if err != nil {
		t.Fatalf("Hash small: %v", err)
	}
	large, err := Hash(gradientImage(256, 256))
	if err != nil {
		t.Fatalf("Hash large: %v", err)
	}
	if d := HammingDistance(small, large); d > 4 {
		t.Fatalf("hashes of resized gradient differ by %v bits", d)
	}
}

func TestHashEmptyImage(t *testing.T) {
	if _, err := Hash(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatal("expected error for empty image")
	}
	if _, err := Hash(nil); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"0000000000000000", "0000000000000000", 0},
		{"0000000000000000", "0000000000000001", 1},
		{"0000000000000000", "000000000000000f", 4},
		{"ffffffffffffffff", "0000000000000000", 64},
	}
	for _, tt := range tests {
		if got := HammingDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HammingDistance(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHammingDistanceIncomparable(t *testing.T) {
	for _, pair := range [][2]string{
		{"abc", "abcd"},
		{"", ""},
		{"000000000000000g", "0000000000000000"},
	} {
		if d := HammingDistance(pair[0], pair[1]); !math.IsInf(d, 1) {
			t.Errorf("HammingDistance(%q, %q) = %v, want +Inf", pair[0], pair[1], d)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("0000000000000000", "0000000000000000"); s != 100 {
		t.Errorf("identical hashes score %v, want 100", s)
	}
	if s := Similarity("ffffffffffffffff", "0000000000000000"); s != 0 {
		t.Errorf("opposite hashes score %v, want 0", s)
	}
	// 3 bits differ: round((1 - 3/64) * 100) = 95.
	if s := Similarity("0000000000000000", "0000000000000007"); s != 95 {
		t.Errorf("3-bit difference scores %v, want 95", s)
	}
	if s := Similarity("abc", "abcd"); s != 0 {
		t.Errorf("incomparable hashes score %v, want 0", s)
	}
}

func TestIsSimilar(t *testing.T) {
	a := "0000000000000000"
	near := "0000000000000003" // 2 bits, 97%
	far := "00000000ffffffff"  // 32 bits, 50%

	if !IsSimilar(a, near, 0) {
		t.Error("near hash should match at default threshold")
	}
	if IsSimilar(a, far, 0) {
		t.Error("far hash should not match at default threshold")
	}
	if !IsSimilar(a, far, 50) {
		t.Error("far hash should match at threshold 50")
	}
}

func TestFindSimilarHashes(t *testing.T) {
	query := "0000000000000000"
	candidates := []string{
		"00000000ffffffff", // 50%, dropped
		"0000000000000001", // 98%
		"0000000000000000", // 100%
		"000000000000001f", // 92%
	}
	matches := FindSimilarHashes(query, candidates, 90)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].Hash != "0000000000000000" || matches[0].Similarity != 100 {
		t.Errorf("first match = %+v, want exact hash at 100", matches[0])
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches not sorted: %v before %v",
				matches[i-1].Similarity, matches[i].Similarity)
		}
	}
}
