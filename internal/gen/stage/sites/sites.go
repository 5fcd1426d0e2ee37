// Package sites selects dungeon and magical-creature locations. A cell holds
// at most one site and a dungeon always takes precedence.
package sites

import (
	"fmt"

	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/biome"
)

const (
	weightLey       = 0.45
	weightRarity    = 0.30
	weightExtremity = 0.25
)

type Kind uint8

const (
	Dungeon Kind = iota + 1
	Creature
)

func (k Kind) String() string {
	switch k {
	case Dungeon:
		return "dungeon"
	case Creature:
		return "creature"
	default:
		return fmt.Sprintf("site(%d)", uint8(k))
	}
}

type Input struct {
	Elevation *model.Grid[float64]
	Biomes    *model.Grid[biome.Biome]
	Ley       *model.Grid[bool]
}

type Candidate struct {
	Cell      model.Point
	Biome     biome.Biome
	Elevation float64

	LeyProximity float64
	Rarity       float64
	Extremity    float64
	Score        float64
}

type Site struct {
	Kind    Kind
	Variant string
	Score   float64
}

type Params struct {
	DungeonSpawnProb  float64
	CreatureSpawnProb float64
}

type Result struct {
	Sites *model.Sparse[Site]
}

// Count returns how many sites of kind k were placed.
func (r Result) Count(k Kind) int {
	n := 0
	r.Sites.Each(func(_ model.Point, s Site) {
		if s.Kind == k {
			n++
		}
	})
	return n
}

// Candidates scores every land cell and keeps those at or above threshold,
// in row-major order. Rarity is relative to the most common land biome of
// this world.
func Candidates(in Input, threshold float64) ([]Candidate, error) {
	if !model.SameShape(in.Elevation, in.Biomes) || !model.SameShape(in.Elevation, in.Ley) {
		return nil, fmt.Errorf("sites: input layer shapes differ")
	}
	hist := biome.Histogram(in.Biomes)
	maxCount := 0
	for b, n := range hist {
		if biome.Biome(b).Land() && n > maxCount {
			maxCount = n
		}
	}

	var ley []model.Point
	for i := 0; i < in.Ley.Len(); i++ {
		p := in.Ley.PointOf(i)
		if in.Ley.AtPoint(p) {
			ley = append(ley, p)
		}
	}
	dist := model.DistanceField(in.Ley.W, in.Ley.H, ley)

	var out []Candidate
	for y := 0; y < in.Biomes.H; y++ {
		for x := 0; x < in.Biomes.W; x++ {
			b := in.Biomes.At(x, y)
			if !b.Land() {
				continue
			}
			c := Candidate{Cell: model.Point{X: x, Y: y}, Biome: b, Elevation: in.Elevation.At(x, y)}
			if d := dist.At(x, y); d != model.Unreachable {
				c.LeyProximity = 1 / (1 + float64(d))
			}
			c.Rarity = 1 - float64(hist[b])/float64(maxCount)
			c.Extremity = abs(c.Elevation-0.5) * 2
			c.Score = float64(weightLey*c.LeyProximity) + float64(weightRarity*c.Rarity) + float64(weightExtremity*c.Extremity)
			if c.Score >= threshold {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// Place rolls dungeons over all candidates, then creatures. Every candidate
// consumes exactly one draw per pass, so the draw count does not depend on
// how many dungeons landed.
func Place(cands []Candidate, src *rng.Source, p Params) Result {
	res := Result{Sites: model.NewSparse[Site]()}
	for _, c := range cands {
		if src.Bool(p.DungeonSpawnProb) {
			res.Sites.Set(c.Cell, Site{Kind: Dungeon, Variant: DungeonVariant(c.Biome, c.Elevation), Score: c.Score})
		}
	}
	for _, c := range cands {
		if !src.Bool(p.CreatureSpawnProb) {
			continue
		}
		if res.Sites.Has(c.Cell) {
			continue
		}
		res.Sites.Set(c.Cell, Site{Kind: Creature, Variant: CreatureVariant(c.Biome, c.Elevation), Score: c.Score})
	}
	return res
}

func DungeonVariant(b biome.Biome, elev float64) string {
	if elev >= biome.RockLine {
		return "MOUNTAIN_HALL"
	}
	switch b {
	case biome.Swamp:
		return "SUNKEN_CRYPT"
	case biome.Desert, biome.Savanna:
		return "BURIED_TOMB"
	case biome.Taiga, biome.TemperateForest, biome.Rainforest:
		return "OVERGROWN_RUIN"
	default:
		return "BARROW"
	}
}

func CreatureVariant(b biome.Biome, elev float64) string {
	switch b {
	case biome.Snow, biome.Rock, biome.Tundra:
		return "FROST_WYRM"
	case biome.Taiga, biome.TemperateForest:
		return "DRYAD"
	case biome.Rainforest, biome.Swamp:
		return "BASILISK"
	case biome.Desert, biome.Savanna:
		return "SAND_DJINN"
	}
	if elev < 0.45 {
		return "SELKIE"
	}
	return "UNICORN"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
