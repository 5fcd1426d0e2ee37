// Package resources places mineral and organic deposits and traces ley lines
// between the most stressed points of the crust.
package resources

import (
	"errors"
	"sort"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/biome"
)

const (
	// AnchorStress is the minimum stress of a ley anchor.
	AnchorStress = 0.45
	// AnchorSpacing is the minimum Chebyshev distance between anchors.
	AnchorSpacing = 8

	stressChance = 0.25
	oreBoost     = 4.0
)

type Params struct {
	LeyAnchors int
}

type Input struct {
	Biomes *model.Grid[biome.Biome]
	Stress *model.Grid[float64]
}

type Resource struct {
	Kind string
	// Abundance is in (0,1].
	Abundance float64
}

type LeyLine struct {
	From, To model.Point
	Path     []model.Point
}

type Result struct {
	Resources *model.Sparse[Resource]
	Anchors   []model.Point
	LeyLines  []LeyLine
	// Ley marks every cell on at least one ley line.
	Ley *model.Grid[bool]
}

// OnLey reports whether p lies on a ley line.
func (r Result) OnLey(p model.Point) bool {
	return r.Ley != nil && r.Ley.InBounds(p.X, p.Y) && r.Ley.AtPoint(p)
}

var ErrShape = errors.New("resources: biome and stress layers differ in shape")

// Place traces ley lines first, then rolls every land cell in row-major order.
func Place(in Input, src *rng.Source, table catalogs.ResourceCatalog, p Params) (Result, error) {
	if !model.SameShape(in.Biomes, in.Stress) {
		return Result{}, ErrShape
	}
	res := Result{
		Resources: model.NewSparse[Resource](),
		Ley:       model.NewGrid[bool](in.Biomes.W, in.Biomes.H),
	}
	res.Anchors = Anchors(in.Stress, p.LeyAnchors)
	shuffle(res.Anchors, src)
	for i := 1; i < len(res.Anchors); i++ {
		a, b := res.Anchors[i-1], res.Anchors[i]
		path := mathx.Line(a.X, a.Y, b.X, b.Y)
		for _, pt := range path {
			res.Ley.Set(pt.X, pt.Y, true)
		}
		res.LeyLines = append(res.LeyLines, LeyLine{From: a, To: b, Path: path})
	}

	for y := 0; y < in.Biomes.H; y++ {
		for x := 0; x < in.Biomes.W; x++ {
			b := in.Biomes.At(x, y)
			if !b.Land() {
				continue
			}
			entry, ok := table.Biomes[b.String()]
			if !ok {
				continue
			}
			stress := in.Stress.At(x, y)
			chance := mathx.Clamp01(entry.Chance + float64(stressChance*stress))
			if !src.Bool(chance) {
				continue
			}
			ws := weights(entry.Weights, table, stress, res.Ley.At(x, y))
			k := catalogs.Pick(ws, src.Float())
			abundance := 1 - src.Float()
			if k < 0 {
				continue
			}
			res.Resources.Set(model.Point{X: x, Y: y}, Resource{Kind: ws[k].ID, Abundance: abundance})
		}
	}
	return res, nil
}

// Anchors returns up to limit cells with stress >= AnchorStress, strongest
// first (row-major on ties), at least AnchorSpacing apart.
func Anchors(stress *model.Grid[float64], limit int) []model.Point {
	if limit <= 0 {
		return nil
	}
	var cands []model.Point
	for y := 0; y < stress.H; y++ {
		for x := 0; x < stress.W; x++ {
			if stress.At(x, y) >= AnchorStress {
				cands = append(cands, model.Point{X: x, Y: y})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return stress.AtPoint(cands[i]) > stress.AtPoint(cands[j])
	})
	var out []model.Point
	for _, c := range cands {
		if len(out) == limit {
			break
		}
		ok := true
		for _, a := range out {
			if mathx.Chebyshev(a.X, a.Y, c.X, c.Y) < AnchorSpacing {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func shuffle(pts []model.Point, src *rng.Source) {
	for i := len(pts) - 1; i > 0; i-- {
		j := src.IntRange(0, i)
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// weights copies the biome table with ore boosted by stress and the ley kind
// appended on ley cells.
func weights(base []catalogs.Weighted, table catalogs.ResourceCatalog, stress float64, ley bool) []catalogs.Weighted {
	out := make([]catalogs.Weighted, 0, len(base)+1)
	for _, w := range base {
		if table.ByID[w.ID].Ore {
			w.Weight = float64(w.Weight * float64(1+float64(oreBoost*stress)))
		}
		out = append(out, w)
	}
	if ley && table.Ley.ID != "" {
		out = append(out, table.Ley)
	}
	return out
}
