// Package tectonics partitions the map into drifting plates and raises or
// lowers terrain along their boundaries.
package tectonics

import (
	"errors"
	"fmt"
	"math"

	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
)

type PlateKind uint8

const (
	Oceanic PlateKind = iota
	Continental
)

func (k PlateKind) String() string {
	if k == Continental {
		return "continental"
	}
	return "oceanic"
}

type BoundaryKind uint8

const (
	Transform BoundaryKind = iota
	Convergent
	Divergent
)

func (k BoundaryKind) String() string {
	switch k {
	case Convergent:
		return "convergent"
	case Divergent:
		return "divergent"
	default:
		return "transform"
	}
}

type Vec struct{ X, Y float64 }

type Plate struct {
	ID     int
	Center model.Point
	Drift  Vec
	Kind   PlateKind
}

// Boundary describes one cell with at least one 4-neighbour on another plate.
type Boundary struct {
	Cell  model.Point
	Plate int
	Other int
	Kind  BoundaryKind
	// Intensity is the normal component of relative drift scaled to [0,1].
	Intensity float64
}

type Params struct {
	PlateCount       int
	ContinentalRatio float64
}

type Result struct {
	Plates     []Plate
	Partition  *model.Grid[int]
	Boundaries []Boundary
	// Stress is the boundary intensity spread with distance falloff.
	Stress    *model.Grid[float64]
	Elevation *model.Grid[float64]
}

const (
	// ClassifyThreshold separates convergent/divergent from transform.
	ClassifyThreshold = 0.1
	// SpreadRadius is the Chebyshev reach of a boundary's influence.
	SpreadRadius = 3

	deltaContCont    = 0.30
	deltaContOcean   = 0.18
	deltaOceanTrench = -0.22
	deltaIslandArc   = 0.08
	deltaRift        = -0.12
)

var ErrEmptyHeightmap = errors.New("tectonics: empty heightmap")

// Simulate draws plate centers, drifts and kinds from src, then adjusts a copy
// of heightmap. heightmap itself is never written.
func Simulate(heightmap *model.Grid[float64], src *rng.Source, p Params) (Result, error) {
	if heightmap == nil || heightmap.Len() == 0 {
		return Result{}, ErrEmptyHeightmap
	}
	n := heightmap.Len()
	if p.PlateCount <= 0 || p.PlateCount > n {
		return Result{}, fmt.Errorf("tectonics: plate count %d outside [1,%d]", p.PlateCount, n)
	}

	plates := seedPlates(heightmap, src, p)
	part := partition(heightmap.W, heightmap.H, plates)
	bounds := classify(part, plates)
	stress, delta := spread(part, plates, bounds)

	elev := heightmap.Clone()
	for i := 0; i < elev.Len(); i++ {
		pt := elev.PointOf(i)
		elev.Set(pt.X, pt.Y, mathx.Clamp01(elev.AtPoint(pt)+delta.AtPoint(pt)))
	}
	return Result{
		Plates:     plates,
		Partition:  part,
		Boundaries: bounds,
		Stress:     stress,
		Elevation:  elev,
	}, nil
}

// seedPlates draws distinct centers first, then drift x, drift y and kind per
// plate in id order.
func seedPlates(g *model.Grid[float64], src *rng.Source, p Params) []Plate {
	n := g.Len()
	taken := make(map[int]bool, p.PlateCount)
	plates := make([]Plate, 0, p.PlateCount)
	for len(plates) < p.PlateCount {
		i := src.IntRange(0, n-1)
		if taken[i] {
			continue
		}
		taken[i] = true
		plates = append(plates, Plate{ID: len(plates), Center: g.PointOf(i)})
	}
	for i := range plates {
		plates[i].Drift = Vec{X: src.Float()*2 - 1, Y: src.Float()*2 - 1}
		if src.Bool(p.ContinentalRatio) {
			plates[i].Kind = Continental
		}
	}
	return plates
}

// partition assigns every cell to the nearest center by squared Euclidean
// distance; ties go to the lower plate id.
func partition(w, h int, plates []Plate) *model.Grid[int] {
	part := model.NewGrid[int](w, h)
	for y := 0; y < h; y++ {
		row := part.Row(y)
		for x := range row {
			best, bestD := 0, -1
			for _, pl := range plates {
				dx := x - pl.Center.X
				dy := y - pl.Center.Y
				d := dx*dx + dy*dy
				if bestD < 0 || d < bestD {
					best, bestD = pl.ID, d
				}
			}
			row[x] = best
		}
	}
	return part
}

// classify scans cells row-major. Against each foreign 4-neighbour (right,
// down, left, up) the relative drift is projected on the unit normal toward
// that neighbour; the neighbour with the strongest projection decides.
func classify(part *model.Grid[int], plates []Plate) []Boundary {
	var out []Boundary
	for y := 0; y < part.H; y++ {
		for x := 0; x < part.W; x++ {
			a := part.At(x, y)
			found := false
			var best Boundary
			bestAbs := 0.0
			for _, o := range model.Offsets4 {
				nx, ny := x+o.X, y+o.Y
				if !part.InBounds(nx, ny) {
					continue
				}
				b := part.At(nx, ny)
				if b == a {
					continue
				}
				da, db := plates[a].Drift, plates[b].Drift
				c := float64((da.X-db.X)*float64(o.X)) + float64((da.Y-db.Y)*float64(o.Y))
				abs := math.Abs(c)
				if found && abs <= bestAbs {
					continue
				}
				found = true
				bestAbs = abs
				kind := Transform
				if c > ClassifyThreshold {
					kind = Convergent
				} else if c < -ClassifyThreshold {
					kind = Divergent
				}
				best = Boundary{
					Cell:      model.Point{X: x, Y: y},
					Plate:     a,
					Other:     b,
					Kind:      kind,
					Intensity: mathx.Clamp01(abs / 2),
				}
			}
			if found {
				out = append(out, best)
			}
		}
	}
	return out
}

// Delta is the elevation change per unit intensity on the boundary's own
// side.
func Delta(kind BoundaryKind, self, other PlateKind) float64 {
	switch kind {
	case Convergent:
		switch {
		case self == Continental && other == Continental:
			return deltaContCont
		case self == Continental:
			return deltaContOcean
		case other == Continental:
			return deltaOceanTrench
		default:
			return deltaIslandArc
		}
	case Divergent:
		return deltaRift
	default:
		return 0
	}
}

// spread applies linear falloff 1 - d/(R+1) around every boundary cell. The
// elevation delta only reaches cells of the same plate; stress reaches all.
// Per cell the largest magnitude wins, first found on ties.
func spread(part *model.Grid[int], plates []Plate, bounds []Boundary) (*model.Grid[float64], *model.Grid[float64]) {
	stress := model.NewGrid[float64](part.W, part.H)
	delta := model.NewGrid[float64](part.W, part.H)
	for _, b := range bounds {
		base := float64(Delta(b.Kind, plates[b.Plate].Kind, plates[b.Other].Kind) * b.Intensity)
		for dy := -SpreadRadius; dy <= SpreadRadius; dy++ {
			for dx := -SpreadRadius; dx <= SpreadRadius; dx++ {
				x, y := b.Cell.X+dx, b.Cell.Y+dy
				if !part.InBounds(x, y) {
					continue
				}
				d := mathx.MaxInt(mathx.AbsInt(dx), mathx.AbsInt(dy))
				fall := 1 - float64(d)/float64(SpreadRadius+1)
				if s := float64(b.Intensity * fall); s > stress.At(x, y) {
					stress.Set(x, y, s)
				}
				if base == 0 || part.At(x, y) != b.Plate {
					continue
				}
				c := float64(base * fall)
				if math.Abs(c) > math.Abs(delta.At(x, y)) {
					delta.Set(x, y, c)
				}
			}
		}
	}
	return stress, delta
}
