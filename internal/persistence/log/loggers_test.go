package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"worldforge.ai/internal/gen/tuning"
	"worldforge.ai/internal/gen/world"
)

func TestTraceLogger_RecordsEveryStage(t *testing.T) {
	dir := t.TempDir()
	l := NewTraceLogger(dir)
	_, err := world.Generate(context.Background(), 99, 24, 24, tuning.Defaults(), world.WithStageHook(l.Hook(99, 24, 24)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := l.Err(); err != nil {
		t.Fatalf("hook error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadTraces(filepath.Join(dir, "trace"))
	if err != nil {
		t.Fatalf("ReadTraces: %v", err)
	}
	names := world.StageNames()
	if len(got) != len(names) {
		t.Fatalf("got %d traces want %d", len(got), len(names))
	}
	var draws uint64
	for i, tr := range got {
		if tr.Stage != names[i] || tr.Index != i || tr.Seed != 99 || tr.Width != 24 {
			t.Fatalf("trace %d: %+v", i, tr)
		}
		draws += tr.Draws
	}
	if got[0].Draws != 257 {
		t.Fatalf("heightmap draws=%d want 257", got[0].Draws)
	}
	if draws == 0 {
		t.Fatalf("expected draws to be recorded")
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "trace")
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	if err := w.Write(StageTrace{Stage: "a"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(StageTrace{Stage: "b"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(StageTrace{Stage: "c"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"trace-2024-05-01-10.jsonl.zst", "trace-2024-05-01-11.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	got, err := ReadTraces(dir)
	if err != nil {
		t.Fatalf("ReadTraces: %v", err)
	}
	if len(got) != 3 || got[0].Stage != "a" || got[2].Stage != "c" {
		t.Fatalf("unexpected traces: %+v", got)
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC) }
	for _, stage := range []string{"first", "second"} {
		w := NewJSONLZstdWriter(dir, "trace")
		w.now = fixed
		if err := w.Write(StageTrace{Stage: stage}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	got, err := ReadTraces(dir)
	if err != nil {
		t.Fatalf("ReadTraces: %v", err)
	}
	if len(got) != 2 || got[1].Stage != "second" {
		t.Fatalf("unexpected traces: %+v", got)
	}
}

func TestRuns_SeparatesConfigs(t *testing.T) {
	dir := t.TempDir()
	l := NewTraceLogger(dir)

	base := tuning.Defaults()
	other := tuning.Defaults()
	other.Tectonics.PlateCount = 3

	var want []world.StageReport
	w, err := world.Generate(context.Background(), 7, 24, 24, base, world.WithStageHook(func(r world.StageReport) {
		want = append(want, r)
		l.Hook(7, 24, 24)(r)
	}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := world.Generate(context.Background(), 7, 24, 24, other, world.WithStageHook(l.Hook(7, 24, 24))); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	traces, err := ReadTraces(filepath.Join(dir, "trace"))
	if err != nil {
		t.Fatalf("ReadTraces: %v", err)
	}
	if len(traces) != 2*len(want) {
		t.Fatalf("got %d traces want %d", len(traces), 2*len(want))
	}
	key := RunKey{Seed: 7, Width: 24, Height: 24, ConfigDigest: w.Config.Digest(), CatalogDigest: w.CatalogDigest}
	runs := Runs(traces, key)
	if len(runs) != 1 || len(runs[0]) != len(want) {
		t.Fatalf("runs for base config: %d", len(runs))
	}
	for i, tr := range runs[0] {
		if tr.Stage != want[i].Stage || tr.Draws != want[i].Draws {
			t.Fatalf("stage %d: traced %s/%d want %s/%d", i, tr.Stage, tr.Draws, want[i].Stage, want[i].Draws)
		}
	}

	key.ConfigDigest = other.Digest()
	if got := Runs(traces, key); len(got) != 1 {
		t.Fatalf("runs for other config: %d", len(got))
	}
	key.Seed = 8
	if got := Runs(traces, key); len(got) != 0 {
		t.Fatalf("runs for unseen seed: %d", len(got))
	}
}
