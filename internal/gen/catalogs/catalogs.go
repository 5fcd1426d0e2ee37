// Package catalogs holds the versioned weight tables the resource and life
// stages draw from. The tables are part of the generation contract: the
// digest of the embedded JSON is recorded with every snapshot, so a table
// edit is visible as a different world.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
)

//go:embed data/*.json
var embedded embed.FS

type Catalogs struct {
	Flora     LifeCatalog
	Fauna     LifeCatalog
	Resources ResourceCatalog

	// Digest covers all three tables.
	Digest string
}

type Weighted struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

type SpeciesDef struct {
	ID             string `json:"id"`
	BasePopulation int    `json:"base_population"`
	Magical        bool   `json:"magical,omitempty"`
}

type LifeBiome struct {
	Coverage float64    `json:"coverage"`
	Weights  []Weighted `json:"weights"`
}

type LifeCatalog struct {
	Version string               `json:"version"`
	Species []SpeciesDef         `json:"species"`
	Biomes  map[string]LifeBiome `json:"biomes"`

	ByID   map[string]SpeciesDef `json:"-"`
	Digest string                `json:"-"`
}

type ResourceDef struct {
	ID      string `json:"id"`
	Ore     bool   `json:"ore,omitempty"`
	Fertile bool   `json:"fertile,omitempty"`
	LeyOnly bool   `json:"ley_only,omitempty"`
}

type ResourceBiome struct {
	Chance  float64    `json:"chance"`
	Weights []Weighted `json:"weights"`
}

type ResourceCatalog struct {
	Version string        `json:"version"`
	Kinds   []ResourceDef `json:"kinds"`
	// Ley is appended to a biome's weights on ley-line cells.
	Ley    Weighted                 `json:"ley"`
	Biomes map[string]ResourceBiome `json:"biomes"`

	ByID   map[string]ResourceDef `json:"-"`
	Digest string                 `json:"-"`
}

var (
	defaultOnce sync.Once
	defaultCats *Catalogs
	defaultErr  error
)

// Default parses the embedded tables once.
func Default() (*Catalogs, error) {
	defaultOnce.Do(func() {
		defaultCats, defaultErr = load(embedded, "data")
	})
	return defaultCats, defaultErr
}

// MustDefault panics if the embedded tables are malformed, which only a bad
// build can cause.
func MustDefault() *Catalogs {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadDir reads flora.json, fauna.json and resources.json from dir.
func LoadDir(dir string) (*Catalogs, error) {
	return load(os.DirFS(dir), ".")
}

func load(fsys fs.FS, dir string) (*Catalogs, error) {
	read := func(name string) ([]byte, error) {
		b, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}

	floraRaw, err := read("flora.json")
	if err != nil {
		return nil, err
	}
	faunaRaw, err := read("fauna.json")
	if err != nil {
		return nil, err
	}
	resRaw, err := read("resources.json")
	if err != nil {
		return nil, err
	}

	flora, err := parseLife("flora.json", floraRaw)
	if err != nil {
		return nil, err
	}
	fauna, err := parseLife("fauna.json", faunaRaw)
	if err != nil {
		return nil, err
	}
	res, err := parseResources(resRaw)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write([]byte(flora.Digest))
	h.Write([]byte(fauna.Digest))
	h.Write([]byte(res.Digest))

	return &Catalogs{
		Flora:     flora,
		Fauna:     fauna,
		Resources: res,
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func parseLife(name string, raw []byte) (LifeCatalog, error) {
	var c LifeCatalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", name, err)
	}
	c.ByID = make(map[string]SpeciesDef, len(c.Species))
	for _, s := range c.Species {
		if s.ID == "" {
			return c, fmt.Errorf("%s: species with empty id", name)
		}
		if _, dup := c.ByID[s.ID]; dup {
			return c, fmt.Errorf("%s: duplicate species %s", name, s.ID)
		}
		if s.BasePopulation < 0 {
			return c, fmt.Errorf("%s: species %s base_population must be >= 0", name, s.ID)
		}
		c.ByID[s.ID] = s
	}
	for _, biome := range sortedKeys(c.Biomes) {
		b := c.Biomes[biome]
		if b.Coverage < 0 || b.Coverage > 1 {
			return c, fmt.Errorf("%s: biome %s coverage must be in [0,1]", name, biome)
		}
		if err := checkWeights(b.Weights, func(id string) bool { _, ok := c.ByID[id]; return ok }); err != nil {
			return c, fmt.Errorf("%s: biome %s: %w", name, biome, err)
		}
	}
	c.Digest = digestJSON(raw)
	return c, nil
}

func parseResources(raw []byte) (ResourceCatalog, error) {
	var c ResourceCatalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("resources.json: %w", err)
	}
	c.ByID = make(map[string]ResourceDef, len(c.Kinds))
	for _, k := range c.Kinds {
		if k.ID == "" {
			return c, fmt.Errorf("resources.json: kind with empty id")
		}
		if _, dup := c.ByID[k.ID]; dup {
			return c, fmt.Errorf("resources.json: duplicate kind %s", k.ID)
		}
		c.ByID[k.ID] = k
	}
	for _, biome := range sortedKeys(c.Biomes) {
		b := c.Biomes[biome]
		if b.Chance < 0 || b.Chance > 1 {
			return c, fmt.Errorf("resources.json: biome %s chance must be in [0,1]", biome)
		}
		if err := checkWeights(b.Weights, func(id string) bool { k, ok := c.ByID[id]; return ok && !k.LeyOnly }); err != nil {
			return c, fmt.Errorf("resources.json: biome %s: %w", biome, err)
		}
	}
	if c.Ley.ID != "" {
		if k, ok := c.ByID[c.Ley.ID]; !ok || !k.LeyOnly || c.Ley.Weight <= 0 {
			return c, fmt.Errorf("resources.json: ley entry must name a ley_only kind with weight > 0")
		}
	}
	c.Digest = digestJSON(raw)
	return c, nil
}

func checkWeights(ws []Weighted, known func(string) bool) error {
	for _, w := range ws {
		if !known(w.ID) {
			return fmt.Errorf("unknown id %q", w.ID)
		}
		if w.Weight <= 0 {
			return fmt.Errorf("weight for %s must be > 0", w.ID)
		}
	}
	return nil
}

// digestJSON hashes the compacted document so whitespace edits do not change
// the digest.
func digestJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
