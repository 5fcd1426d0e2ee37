package resources

import (
	"testing"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/biome"
)

func fixture(w, h int, b biome.Biome) (*model.Grid[biome.Biome], *model.Grid[float64]) {
	bg := model.NewGrid[biome.Biome](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bg.Set(x, y, b)
		}
	}
	return bg, model.NewGrid[float64](w, h)
}

func TestAnchors_SpacingAndOrder(t *testing.T) {
	_, stress := fixture(30, 30, biome.Rock)
	stress.Set(2, 2, 0.9)
	stress.Set(3, 3, 0.95)
	stress.Set(20, 2, 0.8)
	stress.Set(2, 20, 0.7)
	stress.Set(25, 25, 0.44)
	got := Anchors(stress, 6)
	want := []model.Point{{X: 3, Y: 3}, {X: 20, Y: 2}, {X: 2, Y: 20}}
	if len(got) != len(want) {
		t.Fatalf("anchors: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("anchor %d: got %v want %v", i, got[i], want[i])
		}
	}
	if n := len(Anchors(stress, 2)); n != 2 {
		t.Fatalf("limit ignored: %d anchors", n)
	}
}

func TestPlace_LeyLinesJoinAnchors(t *testing.T) {
	bg, stress := fixture(30, 30, biome.Rock)
	stress.Set(3, 3, 0.95)
	stress.Set(20, 2, 0.8)
	stress.Set(2, 20, 0.7)
	res, err := Place(Input{Biomes: bg, Stress: stress}, rng.New(4), catalogs.MustDefault().Resources, Params{LeyAnchors: 6})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if len(res.LeyLines) != 2 {
		t.Fatalf("three anchors make two lines, got %d", len(res.LeyLines))
	}
	for i, l := range res.LeyLines {
		if l.From != res.Anchors[i] || l.To != res.Anchors[i+1] {
			t.Fatalf("line %d does not join consecutive anchors", i)
		}
		if l.Path[0] != l.From || l.Path[len(l.Path)-1] != l.To {
			t.Fatalf("line %d path endpoints wrong", i)
		}
		for _, p := range l.Path {
			if !res.OnLey(p) {
				t.Fatalf("path cell %v not marked", p)
			}
		}
	}
}

func TestPlace_ManaCrystalsOnlyOnLeyCells(t *testing.T) {
	bg, stress := fixture(40, 40, biome.Rock)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			stress.Set(x, y, 0.5)
		}
	}
	stress.Set(5, 5, 0.9)
	stress.Set(34, 34, 0.9)
	stress.Set(5, 34, 0.9)
	res, err := Place(Input{Biomes: bg, Stress: stress}, rng.New(9), catalogs.MustDefault().Resources, Params{LeyAnchors: 3})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if res.Resources.Len() == 0 {
		t.Fatalf("expected deposits on a stressed rock world")
	}
	res.Resources.Each(func(p model.Point, r Resource) {
		if r.Kind == "MANA_CRYSTAL" && !res.OnLey(p) {
			t.Fatalf("mana crystal off the ley network at %v", p)
		}
		if r.Abundance <= 0 || r.Abundance > 1 {
			t.Fatalf("abundance out of range: %v", r.Abundance)
		}
	})
}

func TestPlace_NothingInTheOcean(t *testing.T) {
	bg, stress := fixture(16, 16, biome.Ocean)
	src := rng.New(1)
	res, err := Place(Input{Biomes: bg, Stress: stress}, src, catalogs.MustDefault().Resources, Params{LeyAnchors: 6})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if res.Resources.Len() != 0 || src.Draws() != 0 {
		t.Fatalf("ocean world got %d deposits using %d draws", res.Resources.Len(), src.Draws())
	}
}

func TestWeights_OreBoostAndLey(t *testing.T) {
	table := catalogs.MustDefault().Resources
	base := table.Biomes["ROCK"].Weights
	ws := weights(base, table, 1, true)
	if len(ws) != len(base)+1 || ws[len(ws)-1].ID != "MANA_CRYSTAL" {
		t.Fatalf("ley kind should be appended: %v", ws)
	}
	for i, w := range base {
		want := w.Weight
		if table.ByID[w.ID].Ore {
			want = w.Weight * 5
		}
		if ws[i].Weight != want {
			t.Fatalf("%s weight: got %v want %v", w.ID, ws[i].Weight, want)
		}
	}
	if base[1].Weight != 3 {
		t.Fatalf("catalog weights mutated")
	}
}

func TestPlace_Deterministic(t *testing.T) {
	bg, stress := fixture(24, 24, biome.Grassland)
	for i := 0; i < stress.Len(); i++ {
		p := stress.PointOf(i)
		stress.Set(p.X, p.Y, float64(i%10)/10)
	}
	table := catalogs.MustDefault().Resources
	a, _ := Place(Input{Biomes: bg, Stress: stress}, rng.New(77), table, Params{LeyAnchors: 4})
	b, _ := Place(Input{Biomes: bg, Stress: stress}, rng.New(77), table, Params{LeyAnchors: 4})
	if a.Resources.Len() != b.Resources.Len() {
		t.Fatalf("deposit counts differ")
	}
	a.Resources.Each(func(p model.Point, r Resource) {
		if o, ok := b.Resources.Get(p); !ok || o != r {
			t.Fatalf("deposit at %v differs", p)
		}
	})
}
