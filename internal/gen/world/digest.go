package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/life"
	"worldforge.ai/internal/gen/stage/resources"
	"worldforge.ai/internal/gen/stage/sites"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest is a SHA-256 over every layer in a fixed order. Two worlds with the
// same digest are bit-identical.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp)
	w.digestTerrain(h, &tmp)
	w.digestWater(h, &tmp)
	w.digestClimate(h, &tmp)
	w.digestOverlays(h, &tmp)
	w.digestBaseline(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte) {
	h.Write([]byte("worldforge/world/v1"))
	writeI64(h, tmp, w.Seed)
	writeI64(h, tmp, int64(w.Width))
	writeI64(h, tmp, int64(w.Height))
	writeString(h, tmp, w.Config.Digest())
	writeString(h, tmp, w.CatalogDigest)
	writeString(h, tmp, biome.TableVersion)
}

func (w *World) digestTerrain(h hashWriter, tmp *[8]byte) {
	writeFloatGrid(h, tmp, w.Heightmap)
	writeU64(h, tmp, uint64(len(w.Tectonics.Plates)))
	for _, p := range w.Tectonics.Plates {
		writePoint(h, tmp, p.Center)
		writeF64(h, tmp, p.Drift.X)
		writeF64(h, tmp, p.Drift.Y)
		h.Write([]byte{byte(p.Kind)})
	}
	writeIntGrid(h, tmp, w.Tectonics.Partition)
	writeU64(h, tmp, uint64(len(w.Tectonics.Boundaries)))
	for _, b := range w.Tectonics.Boundaries {
		writePoint(h, tmp, b.Cell)
		writeI64(h, tmp, int64(b.Other))
		h.Write([]byte{byte(b.Kind)})
		writeF64(h, tmp, b.Intensity)
	}
	writeFloatGrid(h, tmp, w.Tectonics.Stress)
	writeFloatGrid(h, tmp, w.Tectonics.Elevation)
}

func (w *World) digestWater(h hashWriter, tmp *[8]byte) {
	writeU64(h, tmp, uint64(len(w.Hydrology.Rivers)))
	for _, r := range w.Hydrology.Rivers {
		writeU64(h, tmp, uint64(len(r.Points)))
		for i, p := range r.Points {
			writePoint(h, tmp, p)
			writeF64(h, tmp, r.Elevations[i])
		}
		writeF64(h, tmp, r.Flow)
		h.Write([]byte{byte(r.Terminus)})
		writeI64(h, tmp, int64(r.MergesInto))
	}
	writeU64(h, tmp, uint64(len(w.Hydrology.Lakes)))
	for _, l := range w.Hydrology.Lakes {
		writePoint(h, tmp, l.Cell)
		writeI64(h, tmp, int64(l.River))
	}
	writeFloatGrid(h, tmp, w.Hydrology.Elevation)
}

func (w *World) digestClimate(h hashWriter, tmp *[8]byte) {
	writeFloatGrid(h, tmp, w.Climate.Temperature)
	writeFloatGrid(h, tmp, w.Climate.Precipitation)
	writeFloatGrid(h, tmp, w.Climate.Moisture)
	if w.Biomes != nil {
		for _, b := range w.Biomes.Values() {
			h.Write([]byte{byte(b)})
		}
	}
}

func (w *World) digestOverlays(h hashWriter, tmp *[8]byte) {
	if w.Resources.Resources != nil {
		writeU64(h, tmp, uint64(w.Resources.Resources.Len()))
		w.Resources.Resources.Each(func(p model.Point, r resources.Resource) {
			writePoint(h, tmp, p)
			writeString(h, tmp, r.Kind)
			writeF64(h, tmp, r.Abundance)
		})
	}
	writeU64(h, tmp, uint64(len(w.Resources.LeyLines)))
	for _, l := range w.Resources.LeyLines {
		writeU64(h, tmp, uint64(len(l.Path)))
		for _, p := range l.Path {
			writePoint(h, tmp, p)
		}
	}
	writeLife(h, tmp, w.Flora)
	writeLife(h, tmp, w.Fauna)
	if w.Sites.Sites != nil {
		writeU64(h, tmp, uint64(w.Sites.Sites.Len()))
		w.Sites.Sites.Each(func(p model.Point, s sites.Site) {
			writePoint(h, tmp, p)
			h.Write([]byte{byte(s.Kind)})
			writeString(h, tmp, s.Variant)
		})
	}
}

func (w *World) digestBaseline(h hashWriter, tmp *[8]byte) {
	writeU64(h, tmp, uint64(len(w.Regions)))
	for _, r := range w.Regions {
		writePoint(h, tmp, r.Origin)
		writeI64(h, tmp, int64(r.W))
		writeI64(h, tmp, int64(r.H))
		h.Write([]byte{byte(r.Dominant)})
		writeF64(h, tmp, r.Capacity)
		for _, p := range r.Population {
			writeString(h, tmp, p.Species)
			writeI64(h, tmp, int64(p.Count))
		}
	}
	writeU64(h, tmp, uint64(len(w.Settlements)))
	for _, s := range w.Settlements {
		writePoint(h, tmp, s.Cell)
		writeF64(h, tmp, s.Score)
	}
}

func writeLife(h hashWriter, tmp *[8]byte, r life.Result) {
	if r.Presence == nil {
		writeU64(h, tmp, 0)
		return
	}
	writeU64(h, tmp, uint64(r.Presence.Len()))
	r.Presence.Each(func(p model.Point, ps []life.Presence) {
		writePoint(h, tmp, p)
		writeU64(h, tmp, uint64(len(ps)))
		for _, pr := range ps {
			writeString(h, tmp, pr.Species)
			writeF64(h, tmp, pr.Density)
		}
	})
}

func writeU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeI64(h hashWriter, tmp *[8]byte, v int64) {
	writeU64(h, tmp, uint64(v))
}

func writeF64(h hashWriter, tmp *[8]byte, v float64) {
	writeU64(h, tmp, math.Float64bits(v))
}

func writeString(h hashWriter, tmp *[8]byte, s string) {
	writeU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func writePoint(h hashWriter, tmp *[8]byte, p model.Point) {
	writeI64(h, tmp, int64(p.X))
	writeI64(h, tmp, int64(p.Y))
}

func writeFloatGrid(h hashWriter, tmp *[8]byte, g *model.Grid[float64]) {
	if g == nil {
		writeU64(h, tmp, 0)
		return
	}
	writeU64(h, tmp, uint64(g.Len()))
	for _, v := range g.Values() {
		writeF64(h, tmp, v)
	}
}

func writeIntGrid(h hashWriter, tmp *[8]byte, g *model.Grid[int]) {
	if g == nil {
		writeU64(h, tmp, 0)
		return
	}
	writeU64(h, tmp, uint64(g.Len()))
	for _, v := range g.Values() {
		writeI64(h, tmp, int64(v))
	}
}
