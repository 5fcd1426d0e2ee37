package noise

import (
	"math"
	"testing"

	"worldforge.ai/internal/gen/rng"
)

func TestNoise2D_Bounds(t *testing.T) {
	f := New(rng.New(12345))
	for y := -20.0; y < 20.0; y += 0.173 {
		for x := -20.0; x < 20.0; x += 0.191 {
			v := f.Noise2D(x, y)
			if v < -1 || v > 1 || math.IsNaN(v) {
				t.Fatalf("Noise2D(%.3f,%.3f) = %v out of [-1,1]", x, y, v)
			}
		}
	}
}

func TestNoise2D_SameSeedAgrees(t *testing.T) {
	a := New(rng.New(777))
	b := New(rng.New(777))
	for y := -5.0; y < 5.0; y += 0.37 {
		for x := -5.0; x < 5.0; x += 0.41 {
			if a.Noise2D(x, y) != b.Noise2D(x, y) {
				t.Fatalf("fields disagree at (%.2f,%.2f)", x, y)
			}
		}
	}
}

func TestNoise2D_DifferentSeedsDiverge(t *testing.T) {
	a := New(rng.New(1))
	b := New(rng.New(2))
	differ := false
	for i := 1; i <= 64 && !differ; i++ {
		x := float64(i) * 0.73
		y := float64(i) * 0.29
		if a.Noise2D(x, y) != b.Noise2D(x, y) {
			differ = true
		}
	}
	if !differ {
		t.Fatalf("fields built from different seeds agree at every sampled non-origin coordinate")
	}
}

func TestNoise2D_Continuous(t *testing.T) {
	f := New(rng.New(42))
	const eps = 1e-4
	for i := 0; i < 500; i++ {
		x := float64(i) * 0.0917
		y := float64(i) * 0.0533
		d := math.Abs(f.Noise2D(x, y) - f.Noise2D(x+eps, y+eps))
		if d > 0.01 {
			t.Fatalf("jump of %v at (%.3f,%.3f)", d, x, y)
		}
	}
}

func TestNew_ConsumesFixedDraws(t *testing.T) {
	src := rng.New(5)
	New(src)
	if src.Draws() != 257 {
		t.Fatalf("construction consumed %d draws, want 257", src.Draws())
	}
}

func TestFBM_Bounds(t *testing.T) {
	f := New(rng.New(9))
	for i := 0; i < 2000; i++ {
		v := f.FBM(float64(i)*0.031, float64(i)*0.017, 6, 0.5, 2.0)
		if v < -1 || v > 1 {
			t.Fatalf("FBM out of range: %v", v)
		}
	}
	if f.FBM(1, 1, 0, 0.5, 2) != 0 {
		t.Fatalf("zero octaves should yield 0")
	}
}

// The field must be bit-identical on every GOARCH. These values are the
// unfused IEEE results for seed 12345.
func TestNoise2D_PinnedBits(t *testing.T) {
	f := New(rng.New(12345))
	cases := []struct {
		x, y float64
		bits uint64
	}{
		{0.5, 0.25, 0xbfde28f16e42376c},
		{3.7, 1.1, 0x3f80c21dbde46f80},
		{10.3, 7.9, 0x3fd4dd15c9de93f1},
		{0.125, 42.0, 0x3fb8559b469a88ec},
	}
	for _, c := range cases {
		got := f.Noise2D(c.x, c.y)
		if math.Float64bits(got) != c.bits {
			t.Fatalf("Noise2D(%v,%v) = %v (%#x), want %#x", c.x, c.y, got, math.Float64bits(got), c.bits)
		}
	}
}

func TestFade_Endpoints(t *testing.T) {
	for _, c := range []struct{ t, want float64 }{{0, 0}, {0.5, 0.5}, {1, 1}} {
		if got := fade(c.t); got != c.want {
			t.Fatalf("fade(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}
