// Package baseline aggregates biomes and life into per-region starting
// stock, the hand-off product for a live simulation.
package baseline

import (
	"fmt"
	"math"
	"sort"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/life"
)

// CapacityPerCell scales productivity into carrying capacity.
const CapacityPerCell = 10.0

type Population struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

type Region struct {
	ID     int         `json:"id"`
	Origin model.Point `json:"origin"`
	W      int         `json:"w"`
	H      int         `json:"h"`

	LandCells  int          `json:"land_cells"`
	Dominant   biome.Biome  `json:"dominant"`
	Population []Population `json:"population"`
	Capacity   float64      `json:"capacity"`
}

// Total is the summed population over all species.
func (r Region) Total() int {
	n := 0
	for _, p := range r.Population {
		n += p.Count
	}
	return n
}

// Compute splits the map into size×size regions in row-major order. Edge
// regions are clipped to the map.
func Compute(biomes *model.Grid[biome.Biome], fauna, flora life.Result, table catalogs.LifeCatalog, size int) ([]Region, error) {
	if biomes == nil {
		return nil, fmt.Errorf("baseline: missing biome grid")
	}
	if size <= 0 {
		return nil, fmt.Errorf("baseline: region size must be > 0 (got %d)", size)
	}
	var out []Region
	for oy := 0; oy < biomes.H; oy += size {
		for ox := 0; ox < biomes.W; ox += size {
			r := Region{
				ID:     len(out),
				Origin: model.Point{X: ox, Y: oy},
				W:      mathx.MinInt(size, biomes.W-ox),
				H:      mathx.MinInt(size, biomes.H-oy),
			}
			var counts [biome.Count]int
			pop := map[string]int{}
			for y := oy; y < oy+r.H; y++ {
				for x := ox; x < ox+r.W; x++ {
					p := model.Point{X: x, Y: y}
					b := biomes.At(x, y)
					counts[b]++
					if !b.Land() {
						continue
					}
					r.LandCells++
					r.Capacity += float64(float64(b.Traits().Productivity*float64(1+flora.TotalDensity(p))) * CapacityPerCell)
					if fauna.Presence == nil {
						continue
					}
					cell, _ := fauna.Presence.Get(p)
					for _, pr := range cell {
						base := table.ByID[pr.Species].BasePopulation
						pop[pr.Species] += int(math.Round(float64(pr.Density * float64(base))))
					}
				}
			}
			for b, n := range counts {
				if n > counts[r.Dominant] {
					r.Dominant = biome.Biome(b)
				}
			}
			r.Population = sortedPopulation(pop)
			out = append(out, r)
		}
	}
	return out, nil
}

func sortedPopulation(m map[string]int) []Population {
	out := make([]Population, 0, len(m))
	for s, n := range m {
		out = append(out, Population{Species: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Species < out[j].Species })
	return out
}
