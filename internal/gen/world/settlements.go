package world

import (
	"errors"
	"sort"

	"worldforge.ai/internal/gen/mathx"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/resources"
)

const (
	SettlementThreshold = 0.5
	SettlementSpacing   = 4
	// ResourceRadius is the Chebyshev radius summed for resource density.
	ResourceRadius = 2

	weightHabitability = 0.40
	weightRiver        = 0.35
	weightResources    = 0.25
)

type Settlement struct {
	Cell            model.Point `json:"cell"`
	Habitability    float64     `json:"habitability"`
	RiverProximity  float64     `json:"river_proximity"`
	ResourceDensity float64     `json:"resource_density"`
	Score           float64     `json:"score"`
}

// Settlements scores land cells, keeps those at or above
// SettlementThreshold, and picks greedily by score (row-major on ties) with
// SettlementSpacing between picks.
func Settlements(w World) ([]Settlement, error) {
	if w.Biomes == nil || w.Hydrology.Elevation == nil {
		return nil, errors.New("settlements: biome or elevation layer missing")
	}
	radius := w.Config.Settlements.RiverRadius
	var riverPts []model.Point
	for _, r := range w.Hydrology.Rivers {
		riverPts = append(riverPts, r.Points...)
	}
	dist := model.DistanceField(w.Biomes.W, w.Biomes.H, riverPts)

	var cands []Settlement
	for y := 0; y < w.Biomes.H; y++ {
		for x := 0; x < w.Biomes.W; x++ {
			b := w.Biomes.At(x, y)
			if !b.Land() {
				continue
			}
			s := Settlement{Cell: model.Point{X: x, Y: y}, Habitability: b.Traits().Habitability}
			if d := dist.At(x, y); d != model.Unreachable && d <= radius {
				s.RiverProximity = 1 - float64(d)/float64(radius+1)
			}
			s.ResourceDensity = resourceDensity(w.Resources, x, y)
			s.Score = float64(weightHabitability*s.Habitability) + float64(weightRiver*s.RiverProximity) + float64(weightResources*s.ResourceDensity)
			if s.Score >= SettlementThreshold {
				cands = append(cands, s)
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	var out []Settlement
	for _, c := range cands {
		if len(out) >= w.Config.Settlements.MaxSites {
			break
		}
		ok := true
		for _, o := range out {
			if mathx.Chebyshev(o.Cell.X, o.Cell.Y, c.Cell.X, c.Cell.Y) < SettlementSpacing {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// resourceDensity sums abundance within ResourceRadius, divided by 9 and
// capped at 1.
func resourceDensity(r resources.Result, x, y int) float64 {
	if r.Resources == nil {
		return 0
	}
	sum := 0.0
	for dy := -ResourceRadius; dy <= ResourceRadius; dy++ {
		for dx := -ResourceRadius; dx <= ResourceRadius; dx++ {
			if v, ok := r.Resources.Get(model.Point{X: x + dx, Y: y + dy}); ok {
				sum += v.Abundance
			}
		}
	}
	return mathx.Clamp01(sum / 9)
}
