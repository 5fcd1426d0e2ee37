package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/world"
	persistlog "worldforge.ai/internal/persistence/log"
	"worldforge.ai/internal/persistence/snapshot"
)

func main() {
	var (
		snapPath    = flag.String("snapshot", "", "path to .wsnap.zst")
		catalogsDir = flag.String("catalogs", "", "catalog directory the world was generated with (empty: embedded tables)")
		regenerate  = flag.Bool("regenerate", true, "also regenerate full snapshots from their seed and compare digests")
		traceDir    = flag.String("trace", "", "trace dir containing trace-*.jsonl.zst (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	h := snap.Header
	fmt.Printf("snapshot v%d mode=%s seed=%d size=%dx%d digest=%s config=%s catalogs=%s biome_table=%s\n",
		h.Version, h.Mode, h.Seed, h.Width, h.Height, h.Digest, h.ConfigDigest, h.CatalogDigest, h.BiomeTable)

	var opts []world.Option
	if strings.TrimSpace(*catalogsDir) != "" {
		cats, err := catalogs.LoadDir(*catalogsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		opts = append(opts, world.WithCatalogs(cats))
	}

	ctx := context.Background()
	w, err := snapshot.Restore(ctx, snap, opts...)
	if err != nil {
		var mm *snapshot.DigestMismatchError
		if errors.As(err, &mm) {
			fmt.Fprintf(os.Stderr, "digest mismatch: snapshot=%s restored=%s\n", mm.Want, mm.Got)
		} else {
			fmt.Fprintln(os.Stderr, "restore:", err)
		}
		os.Exit(1)
	}
	if w.CatalogDigest != h.CatalogDigest {
		fmt.Fprintf(os.Stderr, "catalog digest mismatch: snapshot=%s build=%s\n", h.CatalogDigest, w.CatalogDigest)
		os.Exit(1)
	}
	fmt.Printf("restore ok (%s)\n", h.Mode)

	var stages []world.StageReport
	hook := world.WithStageHook(func(r world.StageReport) { stages = append(stages, r) })
	if h.Mode == snapshot.ModeFull && *regenerate {
		regen, err := world.Generate(ctx, h.Seed, h.Width, h.Height, snap.Config, append(opts, hook)...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "regenerate:", err)
			os.Exit(1)
		}
		if got := regen.Digest(); got != h.Digest {
			fmt.Fprintf(os.Stderr, "regenerated digest %s differs from snapshot %s\n", got, h.Digest)
			os.Exit(1)
		}
		fmt.Println("regenerate ok")
	}

	if *traceDir == "" {
		return
	}
	if len(stages) == 0 {
		if _, err := world.Generate(ctx, h.Seed, h.Width, h.Height, snap.Config, append(opts, hook)...); err != nil {
			fmt.Fprintln(os.Stderr, "regenerate:", err)
			os.Exit(1)
		}
	}
	checked, err := verifyTrace(*traceDir, h, stages)
	if err != nil {
		fmt.Fprintln(os.Stderr, "trace:", err)
		os.Exit(1)
	}
	fmt.Printf("trace ok: checked=%d runs\n", checked)
}

// verifyTrace compares the per-stage draw counts of every traced run of the
// snapshot's seed, size, config and catalogs against a fresh generation.
func verifyTrace(dir string, h snapshot.Header, stages []world.StageReport) (int, error) {
	traces, err := persistlog.ReadTraces(dir)
	if err != nil {
		return 0, err
	}
	key := persistlog.RunKey{
		Seed:          h.Seed,
		Width:         h.Width,
		Height:        h.Height,
		ConfigDigest:  h.ConfigDigest,
		CatalogDigest: h.CatalogDigest,
	}
	runs := persistlog.Runs(traces, key)
	if len(runs) == 0 {
		return 0, fmt.Errorf("no traced runs for seed=%d size=%dx%d config=%s in %s", h.Seed, h.Width, h.Height, h.ConfigDigest, dir)
	}
	for n, run := range runs {
		if len(run) != len(stages) {
			return n, fmt.Errorf("traced run has %d stages, want %d", len(run), len(stages))
		}
		for i, tr := range run {
			if tr.Stage != stages[i].Stage || tr.Draws != stages[i].Draws {
				return n, fmt.Errorf("stage %d: traced %s draws=%d, regenerated %s draws=%d",
					i, tr.Stage, tr.Draws, stages[i].Stage, stages[i].Draws)
			}
		}
	}
	return len(runs), nil
}
