package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrRunNotFound = errors.New("run not found")

type RunRow struct {
	ID            int64  `json:"id"`
	Digest        string `json:"digest"`
	Seed          int64  `json:"seed"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ConfigDigest  string `json:"config_digest"`
	CatalogDigest string `json:"catalog_digest"`
	BiomeTable    string `json:"biome_table"`
	Rivers        int    `json:"rivers"`
	Lakes         int    `json:"lakes"`
	Deposits      int    `json:"deposits"`
	Dungeons      int    `json:"dungeons"`
	Creatures     int    `json:"creatures"`
	Settlements   int    `json:"settlements"`
	SnapshotPath  string `json:"snapshot_path"`
	RecordedAt    string `json:"recorded_at"`
}

type RegionRow struct {
	Region     int     `json:"region"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	LandCells  int     `json:"land_cells"`
	Dominant   string  `json:"dominant"`
	Population int     `json:"population"`
	Capacity   float64 `json:"capacity"`
}

// RunDetail is a run together with its per-biome and per-region rows.
type RunDetail struct {
	RunRow
	Biomes  map[string]int `json:"biomes"`
	Regions []RegionRow    `json:"regions"`
}

// Reader queries an index database. It does not start a writer.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

const runColumns = `id,digest,seed,width,height,config_digest,catalog_digest,biome_table,rivers,lakes,deposits,dungeons,creatures,settlements,snapshot_path,recorded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRow, error) {
	var row RunRow
	err := sc.Scan(
		&row.ID, &row.Digest, &row.Seed, &row.Width, &row.Height,
		&row.ConfigDigest, &row.CatalogDigest, &row.BiomeTable,
		&row.Rivers, &row.Lakes, &row.Deposits, &row.Dungeons, &row.Creatures, &row.Settlements,
		&row.SnapshotPath, &row.RecordedAt,
	)
	return row, err
}

// ListRuns returns the newest runs first. A non-positive limit means 50.
func (r *Reader) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RunsBySeed returns every recorded run of seed, oldest first.
func (r *Reader) RunsBySeed(ctx context.Context, seed int64) ([]RunRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE seed=? ORDER BY id ASC`, seed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RunByDigest loads the latest run with the given world digest.
func (r *Reader) RunByDigest(ctx context.Context, digest string) (RunDetail, error) {
	row, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE digest=? ORDER BY id DESC LIMIT 1`, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return RunDetail{}, fmt.Errorf("digest %s: %w", digest, ErrRunNotFound)
	}
	if err != nil {
		return RunDetail{}, err
	}
	return r.detail(ctx, row)
}

func (r *Reader) detail(ctx context.Context, row RunRow) (RunDetail, error) {
	d := RunDetail{RunRow: row, Biomes: map[string]int{}}

	brows, err := r.db.QueryContext(ctx, `SELECT biome,cells FROM run_biomes WHERE run_id=?`, row.ID)
	if err != nil {
		return d, err
	}
	for brows.Next() {
		var name string
		var cells int
		if err := brows.Scan(&name, &cells); err != nil {
			brows.Close()
			return d, err
		}
		d.Biomes[name] = cells
	}
	if err := brows.Close(); err != nil {
		return d, err
	}

	rrows, err := r.db.QueryContext(ctx, `SELECT region,x,y,w,h,land_cells,dominant,population,capacity FROM run_regions WHERE run_id=? ORDER BY region ASC`, row.ID)
	if err != nil {
		return d, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var g RegionRow
		if err := rrows.Scan(&g.Region, &g.X, &g.Y, &g.W, &g.H, &g.LandCells, &g.Dominant, &g.Population, &g.Capacity); err != nil {
			return d, err
		}
		d.Regions = append(d.Regions, g)
	}
	return d, rrows.Err()
}

// BiomeShare is a run's cell count for one biome.
type BiomeShare struct {
	RunID  int64  `json:"run_id"`
	Digest string `json:"digest"`
	Seed   int64  `json:"seed"`
	Cells  int    `json:"cells"`
}

// RunsWithBiome lists runs having at least minCells of biome, largest first.
func (r *Reader) RunsWithBiome(ctx context.Context, biome string, minCells int) ([]BiomeShare, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT r.id,r.digest,r.seed,b.cells FROM run_biomes b JOIN runs r ON r.id=b.run_id WHERE b.biome=? AND b.cells>=? ORDER BY b.cells DESC, r.id ASC`, biome, minCells)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BiomeShare
	for rows.Next() {
		var b BiomeShare
		if err := rows.Scan(&b.RunID, &b.Digest, &b.Seed, &b.Cells); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
