package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"worldforge.ai/internal/gen/stage/baseline"
	"worldforge.ai/internal/gen/world"
)

// SQLiteIndex records generation runs. Writes go through a single writer
// goroutine; the snapshot files stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan RunRecord
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch).
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// RunRecord is one finished generation.
type RunRecord struct {
	Summary      world.Summary
	Regions      []baseline.Region
	Stages       []world.StageReport
	SnapshotPath string
	RecordedAt   time.Time
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	FailTotal     uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan RunRecord, 256),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			digest TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			config_digest TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			biome_table TEXT NOT NULL,
			rivers INTEGER NOT NULL,
			lakes INTEGER NOT NULL,
			deposits INTEGER NOT NULL,
			dungeons INTEGER NOT NULL,
			creatures INTEGER NOT NULL,
			settlements INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);`,
		`CREATE TABLE IF NOT EXISTS run_biomes (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			biome TEXT NOT NULL,
			cells INTEGER NOT NULL,
			PRIMARY KEY (run_id, biome)
		);`,
		`CREATE TABLE IF NOT EXISTS run_regions (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			region INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			w INTEGER NOT NULL,
			h INTEGER NOT NULL,
			land_cells INTEGER NOT NULL,
			dominant TEXT NOT NULL,
			population INTEGER NOT NULL,
			capacity REAL NOT NULL,
			PRIMARY KEY (run_id, region)
		);`,
		`CREATE TABLE IF NOT EXISTS run_stages (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			stage TEXT NOT NULL,
			draws INTEGER NOT NULL,
			duration_us INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRun queues rec. It never blocks: when the writer falls behind the
// record is dropped and counted.
func (s *SQLiteIndex) RecordRun(rec RunRecord) {
	if s == nil {
		return
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- rec:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
		FailTotal:     s.failed.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	for rec := range s.ch {
		if err := s.insert(ctx, rec); err != nil {
			s.failed.Add(1)
		}
	}
}

func (s *SQLiteIndex) insert(ctx context.Context, rec RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sum := rec.Summary
	res, err := tx.Exec(`INSERT INTO runs(digest,seed,width,height,config_digest,catalog_digest,biome_table,rivers,lakes,deposits,dungeons,creatures,settlements,snapshot_path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sum.Digest,
		sum.Seed,
		sum.Width,
		sum.Height,
		sum.ConfigDigest,
		sum.CatalogDigest,
		sum.BiomeTable,
		sum.Rivers,
		sum.Lakes,
		sum.Deposits,
		sum.Dungeons,
		sum.Creatures,
		sum.Settlements,
		rec.SnapshotPath,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(sum.Biomes))
	for name := range sum.Biomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tx.Exec(`INSERT INTO run_biomes(run_id,biome,cells) VALUES(?,?,?)`, runID, name, sum.Biomes[name]); err != nil {
			return err
		}
	}
	for _, r := range rec.Regions {
		if _, err := tx.Exec(`INSERT INTO run_regions(run_id,region,x,y,w,h,land_cells,dominant,population,capacity) VALUES(?,?,?,?,?,?,?,?,?,?)`,
			runID, r.ID, r.Origin.X, r.Origin.Y, r.W, r.H, r.LandCells, r.Dominant.String(), r.Total(), r.Capacity,
		); err != nil {
			return err
		}
	}
	for _, st := range rec.Stages {
		if _, err := tx.Exec(`INSERT INTO run_stages(run_id,idx,stage,draws,duration_us) VALUES(?,?,?,?,?)`,
			runID, st.Index, st.Stage, int64(st.Draws), st.Duration.Microseconds(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
