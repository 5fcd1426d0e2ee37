package snapshot

import (
	"context"
	"fmt"

	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/stage/baseline"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/hydrology"
	"worldforge.ai/internal/gen/stage/life"
	"worldforge.ai/internal/gen/stage/resources"
	"worldforge.ai/internal/gen/stage/sites"
	"worldforge.ai/internal/gen/stage/tectonics"
	"worldforge.ai/internal/gen/tuning"
	"worldforge.ai/internal/gen/world"
)

// DigestMismatchError reports a restored world that is not the world that
// was saved.
type DigestMismatchError struct {
	Want, Got string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("restored world digest %s does not match snapshot %s", e.Got, e.Want)
}

// Export captures w. In ModeSeed only the header and config are kept.
func Export(w *world.World, mode Mode) WorldSnapshotV1 {
	snap := WorldSnapshotV1{
		Header: Header{
			Version:       Version,
			Mode:          mode,
			Seed:          w.Seed,
			Width:         w.Width,
			Height:        w.Height,
			Digest:        w.Digest(),
			ConfigDigest:  w.Config.Digest(),
			CatalogDigest: w.CatalogDigest,
			BiomeTable:    biome.TableVersion,
		},
		Config: w.Config,
	}
	if mode == ModeFull {
		snap.Layers = exportLayers(w)
	}
	return snap
}

// Restore rebuilds the world. Seed snapshots are regenerated with opts;
// full snapshots are rebuilt from their layers. Either way the result must
// reproduce the recorded digest.
func Restore(ctx context.Context, snap WorldSnapshotV1, opts ...world.Option) (*world.World, error) {
	h := snap.Header
	if h.BiomeTable != biome.TableVersion {
		return nil, fmt.Errorf("snapshot uses biome table %s, this build has %s", h.BiomeTable, biome.TableVersion)
	}
	var (
		w   *world.World
		err error
	)
	switch h.Mode {
	case ModeSeed:
		w, err = world.Generate(ctx, h.Seed, h.Width, h.Height, snap.Config, opts...)
	case ModeFull:
		if snap.Layers == nil {
			return nil, fmt.Errorf("full snapshot has no layers")
		}
		w, err = importLayers(h, snap.Config, snap.Layers)
	default:
		return nil, fmt.Errorf("unknown snapshot mode %q", h.Mode)
	}
	if err != nil {
		return nil, err
	}
	if got := w.Digest(); got != h.Digest {
		return nil, &DigestMismatchError{Want: h.Digest, Got: got}
	}
	return w, nil
}

func pt(p model.Point) PointV1   { return PointV1{X: p.X, Y: p.Y} }
func unpt(p PointV1) model.Point { return model.Point{X: p.X, Y: p.Y} }

func pts(in []model.Point) []PointV1 {
	out := make([]PointV1, len(in))
	for i, p := range in {
		out[i] = pt(p)
	}
	return out
}

func unpts(in []PointV1) []model.Point {
	out := make([]model.Point, len(in))
	for i, p := range in {
		out[i] = unpt(p)
	}
	return out
}

func exportLayers(w *world.World) *LayersV1 {
	l := &LayersV1{
		Heightmap:     w.Heightmap.Values(),
		Uplifted:      w.Tectonics.Elevation.Values(),
		Stress:        w.Tectonics.Stress.Values(),
		Elevation:     w.Hydrology.Elevation.Values(),
		Temperature:   w.Climate.Temperature.Values(),
		Precipitation: w.Climate.Precipitation.Values(),
		Moisture:      w.Climate.Moisture.Values(),
		Ley:           w.Resources.Ley.Values(),
		LeyAnchors:    pts(w.Resources.Anchors),
	}
	for _, id := range w.Tectonics.Partition.Values() {
		l.Partition = append(l.Partition, int32(id))
	}
	for _, b := range w.Biomes.Values() {
		l.Biomes = append(l.Biomes, uint8(b))
	}
	for _, p := range w.Tectonics.Plates {
		l.Plates = append(l.Plates, PlateV1{Center: pt(p.Center), DriftX: p.Drift.X, DriftY: p.Drift.Y, Kind: uint8(p.Kind)})
	}
	for _, b := range w.Tectonics.Boundaries {
		l.Boundaries = append(l.Boundaries, BoundaryV1{Cell: pt(b.Cell), Plate: b.Plate, Other: b.Other, Kind: uint8(b.Kind), Intensity: b.Intensity})
	}
	for _, r := range w.Hydrology.Rivers {
		l.Rivers = append(l.Rivers, RiverV1{Points: pts(r.Points), Elevations: r.Elevations, Flow: r.Flow, Terminus: uint8(r.Terminus), MergesInto: r.MergesInto})
	}
	for _, k := range w.Hydrology.Lakes {
		l.Lakes = append(l.Lakes, LakeV1{Cell: pt(k.Cell), River: k.River, Forced: k.Forced})
	}
	w.Resources.Resources.Each(func(p model.Point, r resources.Resource) {
		l.Deposits = append(l.Deposits, DepositV1{Cell: pt(p), Kind: r.Kind, Abundance: r.Abundance})
	})
	for _, ll := range w.Resources.LeyLines {
		l.LeyLines = append(l.LeyLines, LeyLineV1{Path: pts(ll.Path)})
	}
	l.Flora = exportLife(w.Flora)
	l.Fauna = exportLife(w.Fauna)
	w.Sites.Sites.Each(func(p model.Point, s sites.Site) {
		l.Sites = append(l.Sites, SiteV1{Cell: pt(p), Kind: uint8(s.Kind), Variant: s.Variant, Score: s.Score})
	})
	for _, r := range w.Regions {
		rv := RegionV1{Origin: pt(r.Origin), W: r.W, H: r.H, LandCells: r.LandCells, Dominant: uint8(r.Dominant), Capacity: r.Capacity}
		for _, p := range r.Population {
			rv.Population = append(rv.Population, PopulationV1{Species: p.Species, Count: p.Count})
		}
		l.Regions = append(l.Regions, rv)
	}
	for _, s := range w.Settlements {
		l.Settlements = append(l.Settlements, SettlementV1{
			Cell:            pt(s.Cell),
			Habitability:    s.Habitability,
			RiverProximity:  s.RiverProximity,
			ResourceDensity: s.ResourceDensity,
			Score:           s.Score,
		})
	}
	return l
}

func exportLife(r life.Result) []LifeCellV1 {
	var out []LifeCellV1
	r.Presence.Each(func(p model.Point, ps []life.Presence) {
		c := LifeCellV1{Cell: pt(p)}
		for _, pr := range ps {
			c.Species = append(c.Species, PresenceV1{Species: pr.Species, Density: pr.Density})
		}
		out = append(out, c)
	})
	return out
}

func importLife(kingdom string, cells []LifeCellV1) life.Result {
	r := life.Result{Kingdom: kingdom, Presence: model.NewSparse[[]life.Presence]()}
	for _, c := range cells {
		ps := make([]life.Presence, 0, len(c.Species))
		for _, s := range c.Species {
			ps = append(ps, life.Presence{Species: s.Species, Density: s.Density})
		}
		r.Presence.Set(unpt(c.Cell), ps)
	}
	return r
}

func importLayers(h Header, cfg tuning.Config, l *LayersV1) (*world.World, error) {
	w, ht := h.Width, h.Height
	grid := func(name string, vals []float64) (*model.Grid[float64], error) {
		g, err := model.GridFrom(w, ht, vals)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", name, err)
		}
		return g, nil
	}
	out := &world.World{Seed: h.Seed, Width: w, Height: ht, Config: cfg, CatalogDigest: h.CatalogDigest}

	var err error
	if out.Heightmap, err = grid("heightmap", l.Heightmap); err != nil {
		return nil, err
	}
	if out.Tectonics.Elevation, err = grid("uplifted", l.Uplifted); err != nil {
		return nil, err
	}
	if out.Tectonics.Stress, err = grid("stress", l.Stress); err != nil {
		return nil, err
	}
	if out.Hydrology.Elevation, err = grid("elevation", l.Elevation); err != nil {
		return nil, err
	}
	if out.Climate.Temperature, err = grid("temperature", l.Temperature); err != nil {
		return nil, err
	}
	if out.Climate.Precipitation, err = grid("precipitation", l.Precipitation); err != nil {
		return nil, err
	}
	if out.Climate.Moisture, err = grid("moisture", l.Moisture); err != nil {
		return nil, err
	}

	part := make([]int, len(l.Partition))
	for i, id := range l.Partition {
		part[i] = int(id)
	}
	if out.Tectonics.Partition, err = model.GridFrom(w, ht, part); err != nil {
		return nil, fmt.Errorf("layer partition: %w", err)
	}
	bs := make([]biome.Biome, len(l.Biomes))
	for i, b := range l.Biomes {
		bs[i] = biome.Biome(b)
	}
	if out.Biomes, err = model.GridFrom(w, ht, bs); err != nil {
		return nil, fmt.Errorf("layer biomes: %w", err)
	}
	ley := l.Ley
	if len(ley) == 0 {
		ley = make([]bool, w*ht)
	}
	if out.Resources.Ley, err = model.GridFrom(w, ht, ley); err != nil {
		return nil, fmt.Errorf("layer ley: %w", err)
	}

	for i, p := range l.Plates {
		out.Tectonics.Plates = append(out.Tectonics.Plates, tectonics.Plate{
			ID:     i,
			Center: unpt(p.Center),
			Drift:  tectonics.Vec{X: p.DriftX, Y: p.DriftY},
			Kind:   tectonics.PlateKind(p.Kind),
		})
	}
	for _, b := range l.Boundaries {
		out.Tectonics.Boundaries = append(out.Tectonics.Boundaries, tectonics.Boundary{
			Cell:      unpt(b.Cell),
			Plate:     b.Plate,
			Other:     b.Other,
			Kind:      tectonics.BoundaryKind(b.Kind),
			Intensity: b.Intensity,
		})
	}
	for i, r := range l.Rivers {
		if len(r.Elevations) != len(r.Points) {
			return nil, fmt.Errorf("river %d: %d elevations for %d points", i, len(r.Elevations), len(r.Points))
		}
		out.Hydrology.Rivers = append(out.Hydrology.Rivers, hydrology.River{
			ID:         i,
			Points:     unpts(r.Points),
			Elevations: r.Elevations,
			Flow:       r.Flow,
			Terminus:   hydrology.Terminus(r.Terminus),
			MergesInto: r.MergesInto,
		})
	}
	for _, k := range l.Lakes {
		out.Hydrology.Lakes = append(out.Hydrology.Lakes, hydrology.LakeSite{Cell: unpt(k.Cell), River: k.River, Forced: k.Forced})
	}

	out.Resources.Resources = model.NewSparse[resources.Resource]()
	for _, d := range l.Deposits {
		out.Resources.Resources.Set(unpt(d.Cell), resources.Resource{Kind: d.Kind, Abundance: d.Abundance})
	}
	out.Resources.Anchors = unpts(l.LeyAnchors)
	for _, ll := range l.LeyLines {
		path := unpts(ll.Path)
		if len(path) == 0 {
			return nil, fmt.Errorf("empty ley line")
		}
		out.Resources.LeyLines = append(out.Resources.LeyLines, resources.LeyLine{From: path[0], To: path[len(path)-1], Path: path})
	}
	out.Flora = importLife("flora", l.Flora)
	out.Fauna = importLife("fauna", l.Fauna)

	out.Sites.Sites = model.NewSparse[sites.Site]()
	for _, s := range l.Sites {
		out.Sites.Sites.Set(unpt(s.Cell), sites.Site{Kind: sites.Kind(s.Kind), Variant: s.Variant, Score: s.Score})
	}
	for i, r := range l.Regions {
		reg := baseline.Region{
			ID:        i,
			Origin:    unpt(r.Origin),
			W:         r.W,
			H:         r.H,
			LandCells: r.LandCells,
			Dominant:  biome.Biome(r.Dominant),
			Capacity:  r.Capacity,
		}
		for _, p := range r.Population {
			reg.Population = append(reg.Population, baseline.Population{Species: p.Species, Count: p.Count})
		}
		out.Regions = append(out.Regions, reg)
	}
	for _, s := range l.Settlements {
		out.Settlements = append(out.Settlements, world.Settlement{
			Cell:            unpt(s.Cell),
			Habitability:    s.Habitability,
			RiverProximity:  s.RiverProximity,
			ResourceDensity: s.ResourceDensity,
			Score:           s.Score,
		})
	}
	return out, nil
}
