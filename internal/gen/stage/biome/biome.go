// Package biome classifies cells against the versioned biome-v1 table.
package biome

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"worldforge.ai/internal/gen/model"
)

const TableVersion = "biome-v1"

type Biome uint8

const (
	Ocean Biome = iota
	Snow
	Rock
	Tundra
	Taiga
	Grassland
	TemperateForest
	Desert
	Swamp
	Savanna
	Rainforest

	Count = int(Rainforest) + 1
)

const (
	// SeaLevel is the elevation below which every cell is ocean.
	SeaLevel = 0.40
	SnowLine = 0.88
	RockLine = 0.78
)

var names = [Count]string{
	"OCEAN", "SNOW", "ROCK", "TUNDRA", "TAIGA", "GRASSLAND",
	"TEMPERATE_FOREST", "DESERT", "SWAMP", "SAVANNA", "RAINFOREST",
}

func (b Biome) String() string {
	if int(b) < Count {
		return names[b]
	}
	return fmt.Sprintf("BIOME_%d", uint8(b))
}

func Parse(name string) (Biome, bool) {
	for i, n := range names {
		if n == name {
			return Biome(i), true
		}
	}
	return 0, false
}

func All() []Biome {
	out := make([]Biome, Count)
	for i := range out {
		out[i] = Biome(i)
	}
	return out
}

var (
	tempBands   = [3]float64{0.25, 0.45, 0.70}
	precipBands = [3]float64{0.30, 0.55, 0.75}

	// table[temperature band][precipitation band]
	table = [4][4]Biome{
		{Tundra, Tundra, Taiga, Taiga},
		{Grassland, Grassland, TemperateForest, TemperateForest},
		{Desert, Grassland, TemperateForest, Swamp},
		{Desert, Savanna, Rainforest, Rainforest},
	}
)

// Traits are the per-biome weights later stages score with.
type Traits struct {
	Habitability float64
	Productivity float64
}

var traits = [Count]Traits{
	Ocean:           {0, 0},
	Snow:            {0.05, 0.02},
	Rock:            {0.15, 0.05},
	Tundra:          {0.25, 0.15},
	Taiga:           {0.45, 0.40},
	Grassland:       {0.90, 0.70},
	TemperateForest: {0.80, 0.80},
	Desert:          {0.20, 0.10},
	Swamp:           {0.35, 0.60},
	Savanna:         {0.70, 0.55},
	Rainforest:      {0.55, 1.00},
}

func (b Biome) Traits() Traits {
	if int(b) < Count {
		return traits[b]
	}
	return Traits{}
}

func (b Biome) Land() bool { return b != Ocean }

func band(v float64, edges [3]float64) int {
	for i, e := range edges {
		if v < e {
			return i
		}
	}
	return len(edges)
}

// Classify is a pure table lookup.
func Classify(elev, temp, precip float64) Biome {
	switch {
	case elev < SeaLevel:
		return Ocean
	case elev >= SnowLine:
		return Snow
	case elev >= RockLine:
		return Rock
	}
	return table[band(temp, tempBands)][band(precip, precipBands)]
}

// ClassifyGrid applies Classify per cell, spreading rows over workers.
func ClassifyGrid(elev, temp, precip *model.Grid[float64], workers int) (*model.Grid[Biome], error) {
	if elev == nil || temp == nil || precip == nil {
		return nil, fmt.Errorf("biome: missing input layer")
	}
	if !model.SameShape(elev, temp) || !model.SameShape(elev, precip) {
		return nil, fmt.Errorf("biome: layer shapes differ")
	}
	out := model.NewGrid[Biome](elev.W, elev.H)
	row := func(y int) {
		dst := out.Row(y)
		e, t, p := elev.Row(y), temp.Row(y), precip.Row(y)
		for x := range dst {
			dst[x] = Classify(e[x], t[x], p[x])
		}
	}
	if workers <= 1 {
		for y := 0; y < out.H; y++ {
			row(y)
		}
		return out, nil
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for y := 0; y < out.H; y++ {
		g.Go(func() error {
			row(y)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Histogram counts cells per biome, indexed by Biome.
func Histogram(g *model.Grid[Biome]) [Count]int {
	var h [Count]int
	for _, b := range g.Values() {
		h[b]++
	}
	return h
}
