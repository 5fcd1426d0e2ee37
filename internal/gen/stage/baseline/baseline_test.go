package baseline

import (
	"testing"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/life"
)

func TestCompute_RegionsAndTotals(t *testing.T) {
	bg := model.NewGrid[biome.Biome](5, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			bg.Set(x, y, biome.Grassland)
		}
	}
	bg.Set(0, 0, biome.Ocean)
	bg.Set(1, 0, biome.Ocean)
	bg.Set(0, 1, biome.Ocean)

	table := catalogs.LifeCatalog{ByID: map[string]catalogs.SpeciesDef{
		"DEER": {ID: "DEER", BasePopulation: 10},
		"WOLF": {ID: "WOLF", BasePopulation: 4},
	}}
	fauna := life.Result{Presence: model.NewSparse[[]life.Presence]()}
	fauna.Presence.Set(model.Point{X: 1, Y: 1}, []life.Presence{{Species: "DEER", Density: 0.5}, {Species: "WOLF", Density: 0.6}})
	fauna.Presence.Set(model.Point{X: 3, Y: 0}, []life.Presence{{Species: "DEER", Density: 0.26}})
	flora := life.Result{Presence: model.NewSparse[[]life.Presence]()}
	flora.Presence.Set(model.Point{X: 1, Y: 1}, []life.Presence{{Species: "OAK", Density: 0.5}})

	regions, err := Compute(bg, fauna, flora, table, 3)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("regions: got %d want 2", len(regions))
	}
	r0, r1 := regions[0], regions[1]
	if r0.W != 3 || r0.H != 3 || r1.W != 2 || r1.Origin != (model.Point{X: 3, Y: 0}) {
		t.Fatalf("region geometry: %+v %+v", r0, r1)
	}
	if r0.Dominant != biome.Grassland || r0.LandCells != 6 {
		t.Fatalf("region 0: dominant %v land %d", r0.Dominant, r0.LandCells)
	}
	if len(r0.Population) != 2 || r0.Population[0] != (Population{Species: "DEER", Count: 5}) || r0.Population[1] != (Population{Species: "WOLF", Count: 2}) {
		t.Fatalf("region 0 population: %+v", r0.Population)
	}
	if r1.Total() != 3 {
		t.Fatalf("region 1 total: got %d want 3", r1.Total())
	}
	prod := biome.Grassland.Traits().Productivity
	want := 5*prod*CapacityPerCell + prod*1.5*CapacityPerCell
	if diff := r0.Capacity - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("capacity: got %v want %v", r0.Capacity, want)
	}
}

func TestCompute_DominantTieGoesToLowerID(t *testing.T) {
	bg, _ := model.GridFrom(2, 1, []biome.Biome{biome.Desert, biome.Taiga})
	regions, err := Compute(bg, life.Result{}, life.Result{}, catalogs.LifeCatalog{}, 4)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if regions[0].Dominant != biome.Taiga {
		t.Fatalf("tie should go to the lower id, got %v", regions[0].Dominant)
	}
}

func TestCompute_RejectsBadSize(t *testing.T) {
	if _, err := Compute(model.NewGrid[biome.Biome](2, 2), life.Result{}, life.Result{}, catalogs.LifeCatalog{}, 0); err == nil {
		t.Fatalf("expected size error")
	}
}
