// Package life distributes flora and fauna species over land cells. The same
// code serves both kingdoms; only the catalog differs.
package life

import (
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/biome"
)

type Params struct {
	MaxSpecies int
	// DensityScale is the cell span of one noise unit.
	DensityScale float64
}

type Presence struct {
	Species string
	Density float64
}

type Result struct {
	Kingdom  string
	Presence *model.Sparse[[]Presence]
}

// Density returns the density of species at p, 0 when absent.
func (r Result) Density(p model.Point, species string) float64 {
	for _, pr := range r.at(p) {
		if pr.Species == species {
			return pr.Density
		}
	}
	return 0
}

// TotalDensity sums every species present at p.
func (r Result) TotalDensity(p model.Point) float64 {
	total := 0.0
	for _, pr := range r.at(p) {
		total += pr.Density
	}
	return total
}

func (r Result) at(p model.Point) []Presence {
	if r.Presence == nil {
		return nil
	}
	v, _ := r.Presence.Get(p)
	return v
}

// Distribute seeds an OpenSimplex field from one draw, then visits land cells
// in row-major order. Occupied cells receive 1..MaxSpecies distinct species.
func Distribute(kingdom string, biomes *model.Grid[biome.Biome], src *rng.Source, table catalogs.LifeCatalog, p Params) (Result, error) {
	if biomes == nil {
		return Result{}, fmt.Errorf("life %s: missing biome grid", kingdom)
	}
	if p.MaxSpecies <= 0 || p.DensityScale <= 0 {
		return Result{}, fmt.Errorf("life %s: max species and density scale must be > 0", kingdom)
	}
	field := opensimplex.NewNormalized(int64(src.Uint64()))
	inv := 1 / p.DensityScale

	res := Result{Kingdom: kingdom, Presence: model.NewSparse[[]Presence]()}
	for y := 0; y < biomes.H; y++ {
		for x := 0; x < biomes.W; x++ {
			b := biomes.At(x, y)
			if !b.Land() {
				continue
			}
			entry, ok := table.Biomes[b.String()]
			if !ok || len(entry.Weights) == 0 {
				continue
			}
			n := quantize(mathx.Clamp01(field.Eval2(float64(float64(x)*inv), float64(float64(y)*inv))))
			if !src.Bool(float64(entry.Coverage * float64(0.35+float64(0.65*n)))) {
				continue
			}
			ws := append([]catalogs.Weighted(nil), entry.Weights...)
			count := src.IntRange(1, mathx.MinInt(p.MaxSpecies, len(ws)))
			cell := make([]Presence, 0, count)
			for i := 0; i < count; i++ {
				k := catalogs.Pick(ws, src.Float())
				density := float64(n * float64(0.5+float64(0.5*src.Float())))
				cell = append(cell, Presence{Species: ws[k].ID, Density: density})
				ws = append(ws[:k], ws[k+1:]...)
			}
			res.Presence.Set(model.Point{X: x, Y: y}, cell)
		}
	}
	return res, nil
}

// densityStep is the grid the OpenSimplex sample is snapped to. The library
// may fuse multiply-adds on some GOARCHes; snapping absorbs last-bit
// differences except for samples sitting on a step midpoint.
const densityStep = 1 << 24

func quantize(v float64) float64 {
	return math.Round(v*densityStep) / densityStep
}
