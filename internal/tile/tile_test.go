package tile

import (
	"strings"
	"testing"
)

func TestKey_Valid(t *testing.T) {
	cases := []struct {
		k  Key
		ok bool
	}{
		{New(0, 0, 0, "png"), true},
		{New(3, 7, 7, "png"), true},
		{New(3, 8, 0, "png"), false},
		{New(3, 0, -1, "png"), false},
		{New(-1, 0, 0, "png"), false},
		{New(31, 0, 0, "png"), false},
	}
	for _, c := range cases {
		if got := c.k.Valid(); got != c.ok {
			t.Fatalf("Valid(%v) = %v, want %v", c.k, got, c.ok)
		}
	}
}

func TestStoreKey_CollisionFree(t *testing.T) {
	// Concatenation without delimiters would confuse these pairs.
	a := New(1, 23, 4, "png").StoreKey()
	b := New(12, 3, 4, "png").StoreKey()
	if a == b {
		t.Fatalf("distinct triples collided: %s", a)
	}
	if !strings.HasPrefix(a, "tiles:png:") {
		t.Fatalf("unexpected store key form: %s", a)
	}
}

func TestFillTemplate(t *testing.T) {
	k := New(12, 3370, 1556, "webp")
	got := k.FillTemplate("https://tiles.example.com/{z}/{x}/{y}.{format}")
	want := "https://tiles.example.com/12/3370/1556.webp"
	if got != want {
		t.Fatalf("FillTemplate = %q, want %q", got, want)
	}
}

func TestContentType(t *testing.T) {
	if ct := ContentType("png"); ct != "image/png" {
		t.Fatalf("png: %s", ct)
	}
	if ct := ContentType("JPEG"); ct != "image/jpeg" {
		t.Fatalf("jpeg: %s", ct)
	}
	if ct := ContentType("bin"); ct != "application/octet-stream" {
		t.Fatalf("fallback: %s", ct)
	}
}

func TestCoverage_SingleTileAndGrowth(t *testing.T) {
	// A small box around Shanghai.
	keys := Coverage(121.4, 31.2, 121.5, 31.3, 10, 10, "png")
	if len(keys) == 0 {
		t.Fatalf("expected at least one covering tile")
	}
	for _, k := range keys {
		if k.Z != 10 {
			t.Fatalf("unexpected zoom %d", k.Z)
		}
		if !k.Valid() {
			t.Fatalf("invalid covering key %v", k)
		}
		if k.Format != "png" {
			t.Fatalf("format not carried: %v", k)
		}
	}

	deeper := Coverage(121.4, 31.2, 121.5, 31.3, 10, 12, "png")
	if len(deeper) <= len(keys) {
		t.Fatalf("zoom range 10-12 should cover more tiles than zoom 10 alone (%d vs %d)", len(deeper), len(keys))
	}
}

func TestCoverage_EmptyForInvertedZoomRange(t *testing.T) {
	if keys := Coverage(0, 0, 1, 1, 5, 3, "png"); keys != nil {
		t.Fatalf("inverted zoom range should yield nil, got %d keys", len(keys))
	}
}
