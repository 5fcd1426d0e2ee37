// Package hydrology traces rivers downhill from high sources and carves their
// beds into a new elevation layer.
package hydrology

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
)

type Terminus uint8

const (
	Sea Terminus = iota
	Edge
	Merge
	Lake
	// ForcedLake ends a river that hit the step bound.
	ForcedLake
)

func (t Terminus) String() string {
	switch t {
	case Sea:
		return "sea"
	case Edge:
		return "edge"
	case Merge:
		return "merge"
	case Lake:
		return "lake"
	case ForcedLake:
		return "forced_lake"
	default:
		return fmt.Sprintf("terminus(%d)", uint8(t))
	}
}

type River struct {
	ID     int
	Points []model.Point
	// Elevations holds the carved elevation of each point.
	Elevations []float64
	Flow       float64
	Terminus   Terminus
	// MergesInto is the id of the river joined at the last point, or -1.
	MergesInto int
}

type LakeSite struct {
	Cell   model.Point
	River  int
	Forced bool
}

type Params struct {
	SourcePercentile float64
	Sources          int
	MaxSteps         int
	CarveDepth       float64
	SeaLevel         float64
}

type Result struct {
	Rivers    []River
	Lakes     []LakeSite
	Elevation *model.Grid[float64]
}

var ErrEmptyElevation = errors.New("hydrology: empty elevation grid")

// Generate picks sources with src and traces one river per source. precip may
// be nil; when present it weights source selection and adds to flow.
func Generate(elev, precip *model.Grid[float64], src *rng.Source, p Params) (Result, error) {
	if elev == nil || elev.Len() == 0 {
		return Result{}, ErrEmptyElevation
	}
	if precip != nil && !model.SameShape(elev, precip) {
		return Result{}, fmt.Errorf("hydrology: precipitation %dx%d does not match elevation %dx%d", precip.W, precip.H, elev.W, elev.H)
	}
	if p.MaxSteps <= 0 {
		return Result{}, fmt.Errorf("hydrology: max steps must be > 0 (got %d)", p.MaxSteps)
	}

	sources := pickSources(elev, precip, src, p)

	owner := model.NewGrid[int](elev.W, elev.H)
	for i := 0; i < owner.Len(); i++ {
		pt := owner.PointOf(i)
		owner.Set(pt.X, pt.Y, -1)
	}

	var res Result
	for _, s := range sources {
		if owner.AtPoint(s) >= 0 {
			continue
		}
		r := trace(elev, precip, owner, s, p)
		r.ID = len(res.Rivers)
		last := r.Points[len(r.Points)-1]
		for i, pt := range r.Points {
			if i == len(r.Points)-1 && r.Terminus == Merge {
				break
			}
			owner.Set(pt.X, pt.Y, r.ID)
		}
		switch r.Terminus {
		case Merge:
			for j := r.MergesInto; j >= 0; j = res.Rivers[j].MergesInto {
				res.Rivers[j].Flow += r.Flow
			}
		case Lake, ForcedLake:
			res.Lakes = append(res.Lakes, LakeSite{Cell: last, River: r.ID, Forced: r.Terminus == ForcedLake})
		}
		res.Rivers = append(res.Rivers, r)
	}

	res.Elevation = carve(elev, res.Rivers, p.CarveDepth)
	for i := range res.Rivers {
		r := &res.Rivers[i]
		r.Elevations = make([]float64, len(r.Points))
		for k, pt := range r.Points {
			r.Elevations[k] = res.Elevation.AtPoint(pt)
		}
	}
	return res, nil
}

// Threshold returns the elevation at index floor(pct*(n-1)) of the sorted
// land elevations, or +Inf when there is no land.
func Threshold(elev *model.Grid[float64], seaLevel, pct float64) float64 {
	var land []float64
	for _, v := range elev.Values() {
		if v >= seaLevel {
			land = append(land, v)
		}
	}
	if len(land) == 0 {
		return math.Inf(1)
	}
	sort.Float64s(land)
	return land[int(math.Floor(pct*float64(len(land)-1)))]
}

// pickSources draws up to p.Sources candidates without replacement, one draw
// per pick. Candidates are kept in row-major order.
func pickSources(elev, precip *model.Grid[float64], src *rng.Source, p Params) []model.Point {
	if p.Sources <= 0 {
		return nil
	}
	th := Threshold(elev, p.SeaLevel, p.SourcePercentile)
	var cands []model.Point
	var weights []float64
	for y := 0; y < elev.H; y++ {
		for x := 0; x < elev.W; x++ {
			v := elev.At(x, y)
			if v < p.SeaLevel || v < th {
				continue
			}
			cands = append(cands, model.Point{X: x, Y: y})
			if precip != nil {
				weights = append(weights, precip.At(x, y))
			}
		}
	}

	out := make([]model.Point, 0, p.Sources)
	for len(out) < p.Sources && len(cands) > 0 {
		k := -1
		if weights != nil {
			k = weightedIndex(weights, src)
		}
		if k < 0 {
			k = src.IntRange(0, len(cands)-1)
		}
		out = append(out, cands[k])
		cands = append(cands[:k], cands[k+1:]...)
		if weights != nil {
			weights = append(weights[:k], weights[k+1:]...)
		}
	}
	return out
}

// weightedIndex consumes one draw when the weights sum above zero and
// returns -1 without drawing otherwise.
func weightedIndex(ws []float64, src *rng.Source) int {
	total := 0.0
	for _, w := range ws {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := float64(src.Float() * total)
	acc := 0.0
	last := -1
	for i, w := range ws {
		if w <= 0 {
			continue
		}
		last = i
		acc += w
		if target < acc {
			return i
		}
	}
	return last
}

func trace(elev, precip *model.Grid[float64], owner *model.Grid[int], start model.Point, p Params) River {
	r := River{MergesInto: -1}
	cur := start
	for {
		r.Points = append(r.Points, cur)
		r.Flow++
		if precip != nil {
			r.Flow += precip.AtPoint(cur)
		}
		if elev.AtPoint(cur) < p.SeaLevel {
			r.Terminus = Sea
			return r
		}
		if o := owner.AtPoint(cur); o >= 0 {
			r.Terminus = Merge
			r.MergesInto = o
			return r
		}
		if elev.OnEdge(cur.X, cur.Y) {
			r.Terminus = Edge
			return r
		}
		if len(r.Points) >= p.MaxSteps {
			r.Terminus = ForcedLake
			return r
		}
		next, ok := Downhill(elev, cur)
		if !ok {
			r.Terminus = Lake
			return r
		}
		cur = next
	}
}

// Downhill returns the lowest 8-neighbour strictly below p, scanning N, NE,
// E, SE, S, SW, W, NW; the first of equal candidates wins.
func Downhill(elev *model.Grid[float64], p model.Point) (model.Point, bool) {
	best := elev.AtPoint(p)
	var out model.Point
	found := false
	for _, o := range model.Offsets8 {
		x, y := p.X+o.X, p.Y+o.Y
		if !elev.InBounds(x, y) {
			continue
		}
		if v := elev.At(x, y); v < best {
			best = v
			out = model.Point{X: x, Y: y}
			found = true
		}
	}
	return out, found
}

// carve lowers every river cell once by depth, then relaxes running minima
// along each river until nothing changes. Values only ever drop to a value
// already present in the grid, so the loop terminates.
func carve(elev *model.Grid[float64], rivers []River, depth float64) *model.Grid[float64] {
	out := elev.Clone()
	lowered := model.NewGrid[bool](elev.W, elev.H)
	for _, r := range rivers {
		for _, pt := range r.Points {
			if lowered.AtPoint(pt) {
				continue
			}
			lowered.Set(pt.X, pt.Y, true)
			out.Set(pt.X, pt.Y, mathx.Clamp01(out.AtPoint(pt)-depth))
		}
	}
	for changed := true; changed; {
		changed = false
		for _, r := range rivers {
			run := math.Inf(1)
			for _, pt := range r.Points {
				v := out.AtPoint(pt)
				if v > run {
					out.Set(pt.X, pt.Y, run)
					changed = true
					v = run
				}
				run = v
			}
		}
	}
	return out
}
