package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"

	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/world"
	"worldforge.ai/internal/transport/observer"
)

type muxOptions struct {
	AllowRemote bool
	Pprof       bool
}

func newMux(w *world.World, logger *log.Logger, opts muxOptions) *http.ServeMux {
	obs := observer.NewServer(w, logger)
	obs.AllowRemote = opts.AllowRemote

	mux := obs.Routes()
	sum := w.Summary()

	mux.HandleFunc("/v1/summary", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(sum)
	})
	mux.HandleFunc("/v1/regions", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Regions)
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "worldforge_world_cells{seed=\"%d\"} %d\n", sum.Seed, sum.Width*sum.Height)
		fmt.Fprintf(rw, "worldforge_world_rivers{seed=\"%d\"} %d\n", sum.Seed, sum.Rivers)
		fmt.Fprintf(rw, "worldforge_world_lakes{seed=\"%d\"} %d\n", sum.Seed, sum.Lakes)
		fmt.Fprintf(rw, "worldforge_world_deposits{seed=\"%d\"} %d\n", sum.Seed, sum.Deposits)
		fmt.Fprintf(rw, "worldforge_world_sites{seed=\"%d\",kind=\"dungeon\"} %d\n", sum.Seed, sum.Dungeons)
		fmt.Fprintf(rw, "worldforge_world_sites{seed=\"%d\",kind=\"creature\"} %d\n", sum.Seed, sum.Creatures)
		fmt.Fprintf(rw, "worldforge_world_settlements{seed=\"%d\"} %d\n", sum.Seed, sum.Settlements)
		for _, b := range biome.All() {
			fmt.Fprintf(rw, "worldforge_biome_cells{seed=\"%d\",biome=%q} %d\n", sum.Seed, b.String(), sum.Biomes[b.String()])
		}
	})
	if opts.Pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (WF_ENABLE_PPROF_HTTP=false)")
	}
	return mux
}
