// Package heightmap builds the base elevation layer from fractal noise.
package heightmap

import (
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/noise"
	"worldforge.ai/internal/gen/rng"
)

type Params struct {
	Octaves     int
	Persistence float64
	Lacunarity  float64
	// Scale is the number of cells spanned by one noise unit at the first
	// octave.
	Scale float64
}

// Generate builds a noise field from src and samples fBm at every cell, then
// min-max normalizes to [0,1]. A field with no spread normalizes to 0.5.
func Generate(width, height int, src *rng.Source, p Params) *model.Grid[float64] {
	field := noise.New(src)
	g := model.NewGrid[float64](width, height)
	if g.Len() == 0 {
		return g
	}
	inv := 1 / p.Scale
	lo, hi := 0.0, 0.0
	for y := 0; y < height; y++ {
		row := g.Row(y)
		for x := range row {
			v := field.FBM(float64(float64(x)*inv), float64(float64(y)*inv), p.Octaves, p.Persistence, p.Lacunarity)
			row[x] = v
			if (x == 0 && y == 0) || v < lo {
				lo = v
			}
			if (x == 0 && y == 0) || v > hi {
				hi = v
			}
		}
	}
	span := hi - lo
	for y := 0; y < height; y++ {
		row := g.Row(y)
		for x, v := range row {
			if span <= 0 {
				row[x] = 0.5
				continue
			}
			row[x] = (v - lo) / span
		}
	}
	return g
}
