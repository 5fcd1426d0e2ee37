// Package tuning holds the generation configuration. A Config is validated as
// a whole before any stage runs; every violation is reported at once.
package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Heightmap   Heightmap   `yaml:"heightmap" json:"heightmap"`
	Tectonics   Tectonics   `yaml:"tectonics" json:"tectonics"`
	Hydrology   Hydrology   `yaml:"hydrology" json:"hydrology"`
	Climate     Climate     `yaml:"climate" json:"climate"`
	Life        Life        `yaml:"life" json:"life"`
	Resources   Resources   `yaml:"resources" json:"resources"`
	Sites       Sites       `yaml:"sites" json:"sites"`
	Baseline    Baseline    `yaml:"baseline" json:"baseline"`
	Settlements Settlements `yaml:"settlements" json:"settlements"`

	// Workers bounds row parallelism in the climate and biome stages.
	Workers int `yaml:"workers" json:"workers"`
}

type Heightmap struct {
	Octaves     int     `yaml:"octaves" json:"octaves"`
	Persistence float64 `yaml:"persistence" json:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity" json:"lacunarity"`
	Scale       float64 `yaml:"scale" json:"scale"`
}

type Tectonics struct {
	PlateCount       int     `yaml:"plate_count" json:"plate_count"`
	ContinentalRatio float64 `yaml:"continental_ratio" json:"continental_ratio"`
}

type Hydrology struct {
	SourcePercentile float64 `yaml:"source_percentile" json:"source_percentile"`
	Sources          int     `yaml:"sources" json:"sources"`
	MaxSteps         int     `yaml:"max_steps" json:"max_steps"`
	CarveDepth       float64 `yaml:"carve_depth" json:"carve_depth"`
}

type Climate struct {
	PrevailingWind string `yaml:"prevailing_wind" json:"prevailing_wind"`
}

type Life struct {
	MaxSpecies int `yaml:"max_species" json:"max_species"`
	// DensityScale is the cell span of one auxiliary noise unit; larger
	// values give larger clumps.
	DensityScale float64 `yaml:"density_scale" json:"density_scale"`
}

type Resources struct {
	LeyAnchors int `yaml:"ley_anchors" json:"ley_anchors"`
}

type Sites struct {
	SiteThreshold     float64 `yaml:"site_threshold" json:"site_threshold"`
	DungeonSpawnProb  float64 `yaml:"dungeon_spawn_prob" json:"dungeon_spawn_prob"`
	CreatureSpawnProb float64 `yaml:"creature_spawn_prob" json:"creature_spawn_prob"`
}

type Baseline struct {
	RegionSize int `yaml:"region_size" json:"region_size"`
}

type Settlements struct {
	RiverRadius int `yaml:"river_radius" json:"river_radius"`
	MaxSites    int `yaml:"max_sites" json:"max_sites"`
}

// Winds lists the accepted prevailing-wind values, the direction the wind
// blows from.
var Winds = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func Defaults() Config {
	return Config{
		Heightmap: Heightmap{Octaves: 5, Persistence: 0.5, Lacunarity: 2.0, Scale: 40},
		Tectonics: Tectonics{PlateCount: 8, ContinentalRatio: 0.5},
		Hydrology: Hydrology{SourcePercentile: 0.85, Sources: 12, MaxSteps: 256, CarveDepth: 0.01},
		Climate:   Climate{PrevailingWind: "W"},
		Life:      Life{MaxSpecies: 3, DensityScale: 12},
		Resources: Resources{LeyAnchors: 6},
		Sites:     Sites{SiteThreshold: 0.55, DungeonSpawnProb: 0.08, CreatureSpawnProb: 0.12},
		Baseline:  Baseline{RegionSize: 16},
		Settlements: Settlements{
			RiverRadius: 3,
			MaxSites:    24,
		},
		Workers: 1,
	}
}

// Load overlays the YAML file at path on Defaults. An empty path yields the
// defaults. The result is normalized but dimensions are not known yet, so
// callers still run Validate.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize canonicalizes spellings. It never fixes out-of-range numbers;
// those are Validate's job.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Climate.PrevailingWind = strings.ToUpper(strings.TrimSpace(c.Climate.PrevailingWind))
	if c.Climate.PrevailingWind == "" {
		c.Climate.PrevailingWind = "W"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// ValidationError lists every problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid generation config: " + strings.Join(e.Problems, "; ")
}

// Validate checks the config against the grid dimensions. It returns nil or a
// *ValidationError.
func (c Config) Validate(width, height int) error {
	var p []string
	add := func(format string, args ...any) { p = append(p, fmt.Sprintf(format, args...)) }

	if width <= 0 {
		add("width must be > 0 (got %d)", width)
	}
	if height <= 0 {
		add("height must be > 0 (got %d)", height)
	}

	h := c.Heightmap
	if h.Octaves <= 0 {
		add("heightmap.octaves must be > 0 (got %d)", h.Octaves)
	}
	if !(h.Persistence > 0) {
		add("heightmap.persistence must be > 0 (got %g)", h.Persistence)
	}
	if !(h.Lacunarity > 0) {
		add("heightmap.lacunarity must be > 0 (got %g)", h.Lacunarity)
	}
	if !(h.Scale > 0) {
		add("heightmap.scale must be > 0 (got %g)", h.Scale)
	}

	if c.Tectonics.PlateCount <= 0 {
		add("tectonics.plate_count must be > 0 (got %d)", c.Tectonics.PlateCount)
	} else if width > 0 && height > 0 && c.Tectonics.PlateCount > width*height {
		add("tectonics.plate_count %d exceeds cell count %d", c.Tectonics.PlateCount, width*height)
	}
	checkProb(add, "tectonics.continental_ratio", c.Tectonics.ContinentalRatio)

	hy := c.Hydrology
	if !(hy.SourcePercentile >= 0 && hy.SourcePercentile < 1) {
		add("hydrology.source_percentile must be in [0,1) (got %g)", hy.SourcePercentile)
	}
	if hy.Sources < 0 {
		add("hydrology.sources must be >= 0 (got %d)", hy.Sources)
	}
	if hy.MaxSteps <= 0 {
		add("hydrology.max_steps must be > 0 (got %d)", hy.MaxSteps)
	}
	checkProb(add, "hydrology.carve_depth", hy.CarveDepth)

	if !validWind(c.Climate.PrevailingWind) {
		add("climate.prevailing_wind %q is not one of %s", c.Climate.PrevailingWind, strings.Join(Winds, ","))
	}

	if c.Life.MaxSpecies <= 0 {
		add("life.max_species must be > 0 (got %d)", c.Life.MaxSpecies)
	}
	if !(c.Life.DensityScale > 0) {
		add("life.density_scale must be > 0 (got %g)", c.Life.DensityScale)
	}
	if c.Resources.LeyAnchors < 0 {
		add("resources.ley_anchors must be >= 0 (got %d)", c.Resources.LeyAnchors)
	}

	checkProb(add, "sites.site_threshold", c.Sites.SiteThreshold)
	checkProb(add, "sites.dungeon_spawn_prob", c.Sites.DungeonSpawnProb)
	checkProb(add, "sites.creature_spawn_prob", c.Sites.CreatureSpawnProb)

	if c.Baseline.RegionSize <= 0 {
		add("baseline.region_size must be > 0 (got %d)", c.Baseline.RegionSize)
	}
	if c.Settlements.RiverRadius < 0 {
		add("settlements.river_radius must be >= 0 (got %d)", c.Settlements.RiverRadius)
	}
	if c.Settlements.MaxSites < 0 {
		add("settlements.max_sites must be >= 0 (got %d)", c.Settlements.MaxSites)
	}
	if c.Workers <= 0 {
		add("workers must be > 0 (got %d)", c.Workers)
	}

	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func checkProb(add func(string, ...any), name string, v float64) {
	if !(v >= 0 && v <= 1) {
		add("%s must be in [0,1] (got %g)", name, v)
	}
}

func validWind(w string) bool {
	for _, v := range Winds {
		if v == w {
			return true
		}
	}
	return false
}

// Digest identifies the config for snapshot headers and the run index.
// Workers is excluded: it never changes the output.
func (c Config) Digest() string {
	c.Workers = 0
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
