package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"worldforge.ai/internal/gen/tuning"
	"worldforge.ai/internal/gen/world"
	"worldforge.ai/internal/persistence/snapshot"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		dataDir    = flag.String("data", "./data", "worldgen output directory")
		snapPath   = flag.String("snapshot", "", "snapshot to serve (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "serve the newest snapshot under <data>/snapshots when -snapshot is empty")
		seed       = flag.Int64("seed", 1337, "seed for a fresh world when no snapshot is loaded")
		width      = flag.Int("width", 128, "fresh world width")
		height     = flag.Int("height", 128, "fresh world height")
		configPath = flag.String("config", "", "path to worldgen.yaml for a fresh world")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	defer cancel()

	toLoad := strings.TrimSpace(*snapPath)
	if toLoad == "" && *loadLatest {
		toLoad = latestSnapshot(filepath.Join(*dataDir, "snapshots"))
	}

	var w *world.World
	if toLoad != "" {
		snap, err := snapshot.ReadSnapshot(toLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		w, err = snapshot.Restore(ctx, snap, world.WithLogger(logger))
		if err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("loaded snapshot=%s mode=%s seed=%d", filepath.Base(toLoad), snap.Header.Mode, w.Seed)
	} else {
		cfg, err := tuning.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		w, err = world.Generate(ctx, *seed, *width, *height, cfg, world.WithLogger(logger))
		if err != nil {
			logger.Fatalf("generate: %v", err)
		}
		logger.Printf("generated fresh world seed=%d %dx%d", w.Seed, w.Width, w.Height)
	}

	mux := newMux(w, logger, muxOptions{
		AllowRemote: envBool("WF_ALLOW_REMOTE_OBSERVER", false),
		Pprof:       envBool("WF_ENABLE_PPROF_HTTP", false),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s digest=%s", *addr, w.Digest())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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

// latestSnapshot picks the most recently modified snapshot file in dir.
func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		path string
		mod  time.Time
	}
	var cands []cand
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshot.Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cands = append(cands, cand{path: filepath.Join(dir, e.Name()), mod: info.ModTime()})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		return cands[i].path > cands[j].path
	})
	return cands[0].path
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
