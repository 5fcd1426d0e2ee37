package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ConfigsWorldgenYAML(t *testing.T) {
	cfg, err := Load("../../../configs/worldgen.yaml")
	if err != nil {
		t.Fatalf("load worldgen.yaml: %v", err)
	}
	if err := cfg.Validate(64, 64); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("workers: got %d want 4", cfg.Workers)
	}
	if cfg.Digest() != Defaults().Digest() {
		t.Fatalf("shipped config should generate the same worlds as the defaults")
	}
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.yaml")
	if err := os.WriteFile(path, []byte("tectonics:\n  plate_count: 3\nclimate:\n  prevailing_wind: ne\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tectonics.PlateCount != 3 {
		t.Fatalf("plate_count: got %d", cfg.Tectonics.PlateCount)
	}
	if cfg.Tectonics.ContinentalRatio != 0.5 || cfg.Heightmap.Octaves != 5 {
		t.Fatalf("omitted keys should keep defaults: %+v", cfg)
	}
	if cfg.Climate.PrevailingWind != "NE" {
		t.Fatalf("wind should normalize to upper case: %q", cfg.Climate.PrevailingWind)
	}
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Digest() != Defaults().Digest() {
		t.Fatalf("empty path should yield defaults")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Heightmap.Octaves = 0
	cfg.Tectonics.PlateCount = -1
	cfg.Sites.DungeonSpawnProb = 1.5
	cfg.Climate.PrevailingWind = "UP"
	err := cfg.Validate(0, 10)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	want := []string{"width", "heightmap.octaves", "tectonics.plate_count", "prevailing_wind", "dungeon_spawn_prob"}
	if len(ve.Problems) != len(want) {
		t.Fatalf("problems: got %d want %d: %v", len(ve.Problems), len(want), ve.Problems)
	}
	for i, w := range want {
		if !strings.Contains(ve.Problems[i], w) {
			t.Fatalf("problem %d = %q, want mention of %s", i, ve.Problems[i], w)
		}
	}
}

func TestValidate_PlateCountAboveCells(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(2, 2); err == nil {
		t.Fatalf("8 plates on 4 cells should fail")
	}
	cfg.Tectonics.PlateCount = 4
	if err := cfg.Validate(2, 2); err != nil {
		t.Fatalf("4 plates on 4 cells: %v", err)
	}
}

func TestValidate_PercentileIsHalfOpen(t *testing.T) {
	cfg := Defaults()
	cfg.Hydrology.SourcePercentile = 1
	if err := cfg.Validate(8, 8); err == nil {
		t.Fatalf("percentile 1 should be rejected")
	}
}

func TestDigest_IgnoresWorkers(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Workers = 8
	if a.Digest() != b.Digest() {
		t.Fatalf("workers should not affect the digest")
	}
	b.Tectonics.PlateCount++
	if a.Digest() == b.Digest() {
		t.Fatalf("plate count should affect the digest")
	}
}

func TestValidate_RejectsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.yaml")
	raw := "heightmap:\n  persistence: .nan\n  lacunarity: .nan\n  scale: .nan\n" +
		"hydrology:\n  source_percentile: .nan\n  carve_depth: .nan\n" +
		"life:\n  density_scale: .nan\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var ve *ValidationError
	if !errors.As(cfg.Validate(16, 16), &ve) {
		t.Fatalf("NaN config passed validation")
	}
	want := []string{"heightmap.persistence", "heightmap.lacunarity", "heightmap.scale", "hydrology.source_percentile", "hydrology.carve_depth", "life.density_scale"}
	if len(ve.Problems) != len(want) {
		t.Fatalf("problems: got %v", ve.Problems)
	}
	for i, w := range want {
		if !strings.Contains(ve.Problems[i], w) {
			t.Fatalf("problem %d = %q, want mention of %s", i, ve.Problems[i], w)
		}
	}
}
