package world

import (
	"crypto/sha256"
	"encoding/hex"

	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/sites"
)

// Summary is the compact, JSON-friendly description of a world used for
// golden fixtures, the run index and the inspection bootstrap.
type Summary struct {
	Seed          int64  `json:"seed"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Digest        string `json:"digest"`
	ConfigDigest  string `json:"config_digest"`
	CatalogDigest string `json:"catalog_digest"`
	BiomeTable    string `json:"biome_table"`

	// ElevationDigest covers the final carved elevation layer.
	ElevationDigest string `json:"elevation_digest"`

	Plates      int `json:"plates"`
	Boundaries  int `json:"boundaries"`
	Rivers      int `json:"rivers"`
	Lakes       int `json:"lakes"`
	Deposits    int `json:"deposits"`
	LeyLines    int `json:"ley_lines"`
	FloraCells  int `json:"flora_cells"`
	FaunaCells  int `json:"fauna_cells"`
	Dungeons    int `json:"dungeons"`
	Creatures   int `json:"creatures"`
	Regions     int `json:"regions"`
	Settlements int `json:"settlements"`

	// Biomes maps biome name to cell count; zero counts are included so the
	// key set is fixed.
	Biomes map[string]int `json:"biomes"`
}

func (w *World) Summary() Summary {
	s := Summary{
		Seed:          w.Seed,
		Width:         w.Width,
		Height:        w.Height,
		Digest:        w.Digest(),
		ConfigDigest:  w.Config.Digest(),
		CatalogDigest: w.CatalogDigest,
		BiomeTable:    biome.TableVersion,
		Plates:        len(w.Tectonics.Plates),
		Boundaries:    len(w.Tectonics.Boundaries),
		Rivers:        len(w.Hydrology.Rivers),
		Lakes:         len(w.Hydrology.Lakes),
		LeyLines:      len(w.Resources.LeyLines),
		Regions:       len(w.Regions),
		Settlements:   len(w.Settlements),
		Biomes:        map[string]int{},
	}
	h := sha256.New()
	var tmp [8]byte
	writeFloatGrid(h, &tmp, w.Elevation())
	s.ElevationDigest = hex.EncodeToString(h.Sum(nil))

	if w.Resources.Resources != nil {
		s.Deposits = w.Resources.Resources.Len()
	}
	if w.Flora.Presence != nil {
		s.FloraCells = w.Flora.Presence.Len()
	}
	if w.Fauna.Presence != nil {
		s.FaunaCells = w.Fauna.Presence.Len()
	}
	if w.Sites.Sites != nil {
		s.Dungeons = w.Sites.Count(sites.Dungeon)
		s.Creatures = w.Sites.Count(sites.Creature)
	}
	if w.Biomes != nil {
		hist := biome.Histogram(w.Biomes)
		for _, b := range biome.All() {
			s.Biomes[b.String()] = hist[b]
		}
	}
	return s
}
