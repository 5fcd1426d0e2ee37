package encoding

import (
	"fmt"
	"math"
	"sort"

	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/sites"
	"worldforge.ai/internal/gen/world"
)

// UnitScale maps [0,1] floats onto the uint16 range.
const UnitScale = 65535

// Quantize maps values in [0,1] to uint16, rounding half away from zero.
func Quantize(vals []float64) []uint16 {
	out := make([]uint16, len(vals))
	for i, v := range vals {
		if v <= 0 {
			continue
		}
		if v >= 1 {
			out[i] = UnitScale
			continue
		}
		out[i] = uint16(math.Round(v * UnitScale))
	}
	return out
}

func Dequantize(vals []uint16) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v) / UnitScale
	}
	return out
}

// Layer kinds reported to clients.
const (
	KindUnit     = "unit"     // quantized [0,1]
	KindCategory = "category" // small integer ids
	KindMask     = "mask"     // 0 or 1
)

type layerDef struct {
	kind    string
	extract func(w *world.World) []uint16
}

var layers = map[string]layerDef{
	"heightmap":     {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Heightmap.Values()) }},
	"elevation":     {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Elevation().Values()) }},
	"stress":        {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Tectonics.Stress.Values()) }},
	"temperature":   {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Climate.Temperature.Values()) }},
	"precipitation": {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Climate.Precipitation.Values()) }},
	"moisture":      {KindUnit, func(w *world.World) []uint16 { return Quantize(w.Climate.Moisture.Values()) }},
	"plates":        {KindCategory, plates},
	"biomes":        {KindCategory, biomes},
	"rivers":        {KindMask, rivers},
	"ley":           {KindMask, ley},
	"sites":         {KindCategory, sitesLayer},
}

// LayerNames returns the available layer names, sorted.
func LayerNames() []string {
	out := make([]string, 0, len(layers))
	for k := range layers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LayerKind reports how a named layer's values are to be read.
func LayerKind(name string) (string, bool) {
	d, ok := layers[name]
	return d.kind, ok
}

// Layer extracts the named layer as row-major uint16 values.
func Layer(w *world.World, name string) ([]uint16, error) {
	d, ok := layers[name]
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", name)
	}
	return d.extract(w), nil
}

func plates(w *world.World) []uint16 {
	ids := w.Tectonics.Partition.Values()
	out := make([]uint16, len(ids))
	for i, id := range ids {
		out[i] = uint16(id)
	}
	return out
}

func biomes(w *world.World) []uint16 {
	bs := w.Biomes.Values()
	out := make([]uint16, len(bs))
	for i, b := range bs {
		out[i] = uint16(b)
	}
	return out
}

func rivers(w *world.World) []uint16 {
	g := model.NewGrid[uint16](w.Width, w.Height)
	for _, r := range w.Hydrology.Rivers {
		for _, p := range r.Points {
			g.Set(p.X, p.Y, 1)
		}
	}
	return g.Values()
}

func ley(w *world.World) []uint16 {
	out := make([]uint16, w.Width*w.Height)
	for i, on := range w.Resources.Ley.Values() {
		if on {
			out[i] = 1
		}
	}
	return out
}

// sitesLayer marks dungeons with 1 and creatures with 2.
func sitesLayer(w *world.World) []uint16 {
	g := model.NewGrid[uint16](w.Width, w.Height)
	w.Sites.Sites.Each(func(p model.Point, s sites.Site) {
		g.Set(p.X, p.Y, uint16(s.Kind))
	})
	return g.Values()
}
