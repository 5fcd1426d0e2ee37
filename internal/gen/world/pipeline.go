package world

import (
	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/baseline"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/climate"
	"worldforge.ai/internal/gen/stage/heightmap"
	"worldforge.ai/internal/gen/stage/hydrology"
	"worldforge.ai/internal/gen/stage/life"
	"worldforge.ai/internal/gen/stage/resources"
	"worldforge.ai/internal/gen/stage/sites"
	"worldforge.ai/internal/gen/stage/tectonics"
)

// Draft is the world under construction. Each stage returns a copy with its
// own layer filled in and never writes layers it did not produce.
type Draft struct {
	World

	src      *rng.Source
	catalogs *catalogs.Catalogs
}

type Stage struct {
	Name string
	Run  func(Draft) (Draft, error)
}

// Pipeline returns the stages in their fixed order.
func Pipeline() []Stage {
	return []Stage{
		{Name: "heightmap", Run: stageHeightmap},
		{Name: "tectonics", Run: stageTectonics},
		{Name: "hydrology", Run: stageHydrology},
		{Name: "climate", Run: stageClimate},
		{Name: "biome", Run: stageBiome},
		{Name: "resources", Run: stageResources},
		{Name: "flora", Run: stageFlora},
		{Name: "fauna", Run: stageFauna},
		{Name: "sites", Run: stageSites},
		{Name: "baseline", Run: stageBaseline},
		{Name: "settlements", Run: stageSettlements},
	}
}

// StageNames lists the pipeline order.
func StageNames() []string {
	var out []string
	for _, s := range Pipeline() {
		out = append(out, s.Name)
	}
	return out
}

func stageHeightmap(d Draft) (Draft, error) {
	h := d.Config.Heightmap
	d.Heightmap = heightmap.Generate(d.Width, d.Height, d.src, heightmap.Params{
		Octaves:     h.Octaves,
		Persistence: h.Persistence,
		Lacunarity:  h.Lacunarity,
		Scale:       h.Scale,
	})
	return d, nil
}

func stageTectonics(d Draft) (Draft, error) {
	res, err := tectonics.Simulate(d.Heightmap, d.src, tectonics.Params{
		PlateCount:       d.Config.Tectonics.PlateCount,
		ContinentalRatio: d.Config.Tectonics.ContinentalRatio,
	})
	if err != nil {
		return d, err
	}
	d.Tectonics = res
	return d, nil
}

// Hydrology runs before climate, so sources are drawn uniformly.
func stageHydrology(d Draft) (Draft, error) {
	h := d.Config.Hydrology
	res, err := hydrology.Generate(d.Tectonics.Elevation, nil, d.src, hydrology.Params{
		SourcePercentile: h.SourcePercentile,
		Sources:          h.Sources,
		MaxSteps:         h.MaxSteps,
		CarveDepth:       h.CarveDepth,
		SeaLevel:         biome.SeaLevel,
	})
	if err != nil {
		return d, err
	}
	d.Hydrology = res
	return d, nil
}

func stageClimate(d Draft) (Draft, error) {
	f, err := climate.Generate(climate.Input{
		Elevation: d.Hydrology.Elevation,
		Rivers:    d.Hydrology.Rivers,
		SeaLevel:  biome.SeaLevel,
		Latitude:  climate.Equatorial,
		Wind:      d.Config.Climate.PrevailingWind,
		Workers:   d.Config.Workers,
	})
	if err != nil {
		return d, err
	}
	d.Climate = f
	return d, nil
}

func stageBiome(d Draft) (Draft, error) {
	g, err := biome.ClassifyGrid(d.Hydrology.Elevation, d.Climate.Temperature, d.Climate.Precipitation, d.Config.Workers)
	if err != nil {
		return d, err
	}
	d.Biomes = g
	return d, nil
}

func stageResources(d Draft) (Draft, error) {
	res, err := resources.Place(resources.Input{Biomes: d.Biomes, Stress: d.Tectonics.Stress}, d.src, d.catalogs.Resources, resources.Params{
		LeyAnchors: d.Config.Resources.LeyAnchors,
	})
	if err != nil {
		return d, err
	}
	d.Resources = res
	return d, nil
}

func lifeParams(d Draft) life.Params {
	return life.Params{MaxSpecies: d.Config.Life.MaxSpecies, DensityScale: d.Config.Life.DensityScale}
}

func stageFlora(d Draft) (Draft, error) {
	res, err := life.Distribute("flora", d.Biomes, d.src, d.catalogs.Flora, lifeParams(d))
	if err != nil {
		return d, err
	}
	d.Flora = res
	return d, nil
}

func stageFauna(d Draft) (Draft, error) {
	res, err := life.Distribute("fauna", d.Biomes, d.src, d.catalogs.Fauna, lifeParams(d))
	if err != nil {
		return d, err
	}
	d.Fauna = res
	return d, nil
}

func stageSites(d Draft) (Draft, error) {
	cands, err := sites.Candidates(sites.Input{
		Elevation: d.Hydrology.Elevation,
		Biomes:    d.Biomes,
		Ley:       d.Resources.Ley,
	}, d.Config.Sites.SiteThreshold)
	if err != nil {
		return d, err
	}
	d.Sites = sites.Place(cands, d.src, sites.Params{
		DungeonSpawnProb:  d.Config.Sites.DungeonSpawnProb,
		CreatureSpawnProb: d.Config.Sites.CreatureSpawnProb,
	})
	return d, nil
}

func stageBaseline(d Draft) (Draft, error) {
	regions, err := baseline.Compute(d.Biomes, d.Fauna, d.Flora, d.catalogs.Fauna, d.Config.Baseline.RegionSize)
	if err != nil {
		return d, err
	}
	d.Regions = regions
	return d, nil
}

func stageSettlements(d Draft) (Draft, error) {
	s, err := Settlements(d.World)
	if err != nil {
		return d, err
	}
	d.Settlements = s
	return d, nil
}
