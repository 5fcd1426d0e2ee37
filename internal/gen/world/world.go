// Package world runs the generation pipeline and owns the finished snapshot.
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/model"
	"worldforge.ai/internal/gen/rng"
	"worldforge.ai/internal/gen/stage/baseline"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/stage/climate"
	"worldforge.ai/internal/gen/stage/hydrology"
	"worldforge.ai/internal/gen/stage/life"
	"worldforge.ai/internal/gen/stage/resources"
	"worldforge.ai/internal/gen/stage/sites"
	"worldforge.ai/internal/gen/stage/tectonics"
	"worldforge.ai/internal/gen/tuning"
)

// World is the finished snapshot. Every layer is read-only; callers that need
// to change a layer clone it first.
type World struct {
	Seed          int64
	Width, Height int
	Config        tuning.Config
	CatalogDigest string

	// Heightmap is the raw fBm layer before tectonics.
	Heightmap *model.Grid[float64]
	Tectonics tectonics.Result
	Hydrology hydrology.Result
	Climate   climate.Field
	Biomes    *model.Grid[biome.Biome]
	Resources resources.Result
	Flora     life.Result
	Fauna     life.Result
	Sites     sites.Result
	Regions   []baseline.Region

	Settlements []Settlement
}

// Elevation is the final carved elevation layer.
func (w *World) Elevation() *model.Grid[float64] {
	return w.Hydrology.Elevation
}

// StageError identifies the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageReport is passed to the stage hook after each successful stage.
type StageReport struct {
	Index    int
	Stage    string
	Draws    uint64
	Duration time.Duration

	// ConfigDigest and CatalogDigest identify the inputs the draws depend on.
	ConfigDigest  string
	CatalogDigest string
}

type options struct {
	logger   *log.Logger
	hook     func(StageReport)
	catalogs *catalogs.Catalogs
	stages   []Stage
}

type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStageHook registers fn to observe each completed stage.
func WithStageHook(fn func(StageReport)) Option {
	return func(o *options) { o.hook = fn }
}

// WithCatalogs replaces the embedded species and resource tables.
func WithCatalogs(c *catalogs.Catalogs) Option {
	return func(o *options) { o.catalogs = c }
}

// withStages swaps the pipeline; tests use it to inject failures.
func withStages(stages []Stage) Option {
	return func(o *options) { o.stages = stages }
}

// Generate builds the world for seed. The configuration is validated before
// the random source is created.
func Generate(ctx context.Context, seed int64, width, height int, cfg tuning.Config, opts ...Option) (*World, error) {
	cfg.Normalize()
	if err := cfg.Validate(width, height); err != nil {
		return nil, err
	}
	w, err := run(ctx, rng.New(seed), width, height, cfg, opts)
	if err != nil {
		return nil, err
	}
	w.Seed = seed
	return w, nil
}

// GenerateFrom runs the pipeline against an externally owned source. On a
// validation error src is left untouched.
func GenerateFrom(ctx context.Context, src *rng.Source, width, height int, cfg tuning.Config, opts ...Option) (*World, error) {
	if src == nil {
		return nil, errors.New("world: nil random source")
	}
	cfg.Normalize()
	if err := cfg.Validate(width, height); err != nil {
		return nil, err
	}
	return run(ctx, src, width, height, cfg, opts)
}

func run(ctx context.Context, src *rng.Source, width, height int, cfg tuning.Config, opts []Option) (*World, error) {
	o := options{logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(&o)
	}
	cats := o.catalogs
	if cats == nil {
		c, err := catalogs.Default()
		if err != nil {
			return nil, fmt.Errorf("load catalogs: %w", err)
		}
		cats = c
	}
	stages := o.stages
	if stages == nil {
		stages = Pipeline()
	}

	d := Draft{
		World: World{
			Width:         width,
			Height:        height,
			Config:        cfg,
			CatalogDigest: cats.Digest,
		},
		src:      src,
		catalogs: cats,
	}
	cfgDigest := cfg.Digest()
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled before %s: %w", st.Name, err)
		}
		start := time.Now()
		before := src.Draws()
		next, err := st.Run(d)
		if err != nil {
			o.logger.Printf("stage %s failed: %v", st.Name, err)
			return nil, &StageError{Stage: st.Name, Err: err}
		}
		d = next
		rep := StageReport{
			Index:         i,
			Stage:         st.Name,
			Draws:         src.Draws() - before,
			Duration:      time.Since(start),
			ConfigDigest:  cfgDigest,
			CatalogDigest: cats.Digest,
		}
		o.logger.Printf("stage %s done draws=%d took=%s", rep.Stage, rep.Draws, rep.Duration)
		if o.hook != nil {
			o.hook(rep)
		}
	}
	w := d.World
	return &w, nil
}
