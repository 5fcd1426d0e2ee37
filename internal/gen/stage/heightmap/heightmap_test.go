package heightmap

import (
	"testing"

	"worldforge.ai/internal/gen/rng"
)

var defaults = Params{Octaves: 5, Persistence: 0.5, Lacunarity: 2, Scale: 40}

func TestGenerate_NormalizedRange(t *testing.T) {
	g := Generate(48, 32, rng.New(3), defaults)
	if g.W != 48 || g.H != 32 {
		t.Fatalf("shape: %dx%d", g.W, g.H)
	}
	sawLo, sawHi := false, false
	for _, v := range g.Values() {
		if v < 0 || v > 1 {
			t.Fatalf("elevation out of range: %v", v)
		}
		sawLo = sawLo || v == 0
		sawHi = sawHi || v == 1
	}
	if !sawLo || !sawHi {
		t.Fatalf("min-max normalization should reach both ends")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(32, 32, rng.New(99), defaults).Values()
	b := Generate(32, 32, rng.New(99), defaults).Values()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerate_SingleCellIsFlat(t *testing.T) {
	g := Generate(1, 1, rng.New(1), defaults)
	if g.At(0, 0) != 0.5 {
		t.Fatalf("single cell should normalize to 0.5, got %v", g.At(0, 0))
	}
}

func TestGenerate_ConsumesOnlyNoiseDraws(t *testing.T) {
	src := rng.New(8)
	Generate(16, 16, src, defaults)
	if src.Draws() != 257 {
		t.Fatalf("draws: got %d want 257", src.Draws())
	}
}
