package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"worldforge.ai/internal/gen/catalogs"
	"worldforge.ai/internal/gen/tuning"
	"worldforge.ai/internal/gen/world"
	"worldforge.ai/internal/persistence/indexdb"
	persistlog "worldforge.ai/internal/persistence/log"
	"worldforge.ai/internal/persistence/snapshot"
)

type options struct {
	seed        int64
	width       int
	height      int
	configPath  string
	catalogsDir string
	outDir      string
	mode        string
	disableDB   bool
	noTrace     bool
	printSum    bool
}

func main() {
	var o options
	flag.Int64Var(&o.seed, "seed", 1337, "world seed")
	flag.IntVar(&o.width, "width", 128, "grid width in cells")
	flag.IntVar(&o.height, "height", 128, "grid height in cells")
	flag.StringVar(&o.configPath, "config", "", "path to worldgen.yaml (empty: built-in defaults)")
	flag.StringVar(&o.catalogsDir, "catalogs", "", "directory with flora.json, fauna.json, resources.json (empty: embedded tables)")
	flag.StringVar(&o.outDir, "out", "./data", "output directory")
	flag.StringVar(&o.mode, "mode", "full", "snapshot mode: full or seed")
	flag.BoolVar(&o.disableDB, "disable_db", false, "do not record the run in the sqlite index")
	flag.BoolVar(&o.noTrace, "no_trace", false, "do not write the stage trace log")
	flag.BoolVar(&o.printSum, "summary", false, "print the world summary as JSON")
	timeout := flag.Duration("timeout", 0, "abort generation after this long (0: no limit)")
	flag.Parse()

	logger := log.New(os.Stdout, "[worldgen] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	if *timeout > 0 {
		var cancelT context.CancelFunc
		ctx, cancelT = context.WithTimeout(ctx, *timeout)
		defer cancelT()
	}
	err := run(ctx, logger, o)
	cancel()
	if err != nil {
		logger.Fatalf("%v", err)
	}
}

// run generates one world and writes its artifacts. Every opened writer is
// closed before it returns, including on failure.
func run(ctx context.Context, logger *log.Logger, o options) error {
	cfg, err := tuning.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	snapMode := snapshot.Mode(strings.ToLower(strings.TrimSpace(o.mode)))
	if snapMode != snapshot.ModeFull && snapMode != snapshot.ModeSeed {
		return fmt.Errorf("unknown -mode %q (want full or seed)", o.mode)
	}

	opts := []world.Option{world.WithLogger(logger)}
	if strings.TrimSpace(o.catalogsDir) != "" {
		cats, err := catalogs.LoadDir(o.catalogsDir)
		if err != nil {
			return fmt.Errorf("load catalogs: %w", err)
		}
		opts = append(opts, world.WithCatalogs(cats))
	}

	var trace *persistlog.TraceLogger
	var stages []world.StageReport
	if !o.noTrace {
		trace = persistlog.NewTraceLogger(o.outDir)
		defer func() {
			if err := trace.Close(); err != nil {
				logger.Printf("close trace: %v", err)
			}
		}()
	}
	traceHook := func(r world.StageReport) {}
	if trace != nil {
		traceHook = trace.Hook(o.seed, o.width, o.height)
	}
	opts = append(opts, world.WithStageHook(func(r world.StageReport) {
		stages = append(stages, r)
		traceHook(r)
	}))

	start := time.Now()
	w, err := world.Generate(ctx, o.seed, o.width, o.height, cfg, opts...)
	if err != nil {
		var verr *tuning.ValidationError
		var serr *world.StageError
		switch {
		case errors.As(err, &verr):
			for _, p := range verr.Problems {
				logger.Printf("config: %s", p)
			}
			return fmt.Errorf("invalid configuration (%d problems)", len(verr.Problems))
		case errors.As(err, &serr):
			return fmt.Errorf("stage %s failed: %w", serr.Stage, serr.Err)
		default:
			return fmt.Errorf("generate: %w", err)
		}
	}
	sum := w.Summary()
	logger.Printf("generated seed=%d %dx%d in %s digest=%s", o.seed, o.width, o.height, time.Since(start).Round(time.Millisecond), sum.Digest)
	if trace != nil {
		if err := trace.Err(); err != nil {
			logger.Printf("trace: %v", err)
		}
	}

	snapPath := filepath.Join(o.outDir, "snapshots", fmt.Sprintf("%d-%dx%d-%s%s", o.seed, o.width, o.height, sum.Digest[:12], snapshot.Ext))
	if err := snapshot.WriteSnapshot(snapPath, snapshot.Export(w, snapMode)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Printf("snapshot (%s) written to %s", snapMode, snapPath)

	if !o.disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(o.outDir, "index", "worldgen.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		abs, _ := filepath.Abs(snapPath)
		idx.RecordRun(indexdb.RunRecord{Summary: sum, Regions: w.Regions, Stages: stages, SnapshotPath: abs})
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
		if st := idx.Stats(); st.DropTotal > 0 || st.FailTotal > 0 {
			logger.Printf("index: dropped=%d failed=%d", st.DropTotal, st.FailTotal)
		}
	}

	if o.printSum {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
