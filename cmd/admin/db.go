package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"worldforge.ai/internal/persistence/indexdb"
)

// dbCmd queries the run index: runs | run <digest> | seed <seed> | biome <name>.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "worldgen output directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/worldgen.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	minCells := fs.Int("min_cells", 1, "minimum cell count (biome query)")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	arg := ""
	if fs.NArg() > 1 {
		arg = strings.TrimSpace(fs.Arg(1))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "worldgen.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()
	ctx := context.Background()

	switch q {
	case "runs":
		rows, err := r.ListRuns(ctx, *limit)
		if err != nil {
			fail("query", err)
		}
		for _, row := range rows {
			printJSON(row)
		}

	case "run":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: admin db run <digest>")
			os.Exit(2)
		}
		d, err := r.RunByDigest(ctx, arg)
		if err != nil {
			fail("query", err)
		}
		printJSON(d)

	case "seed":
		seed, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "usage: admin db seed <seed>")
			os.Exit(2)
		}
		rows, err := r.RunsBySeed(ctx, seed)
		if err != nil {
			fail("query", err)
		}
		for _, row := range rows {
			printJSON(row)
		}

	case "biome":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: admin db biome <NAME> [-min_cells N]")
			os.Exit(2)
		}
		rows, err := r.RunsWithBiome(ctx, strings.ToUpper(arg), *minCells)
		if err != nil {
			fail("query", err)
		}
		for i, row := range rows {
			if *limit > 0 && i >= *limit {
				break
			}
			printJSON(row)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want runs, run, seed or biome)\n", q)
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
