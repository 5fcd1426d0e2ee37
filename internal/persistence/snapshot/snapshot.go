// Package snapshot stores generated worlds on disk. A file is zstd-compressed:
// one JSON header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"worldforge.ai/internal/gen/tuning"
)

const Version = 1

// Ext is the conventional file extension.
const Ext = ".wsnap.zst"

type Mode string

const (
	// ModeSeed stores only seed and config; loading regenerates the world.
	ModeSeed Mode = "seed"
	// ModeFull stores every layer for fast reload.
	ModeFull Mode = "full"
)

type Header struct {
	Version       int    `json:"version"`
	Mode          Mode   `json:"mode"`
	Seed          int64  `json:"seed"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Digest        string `json:"digest"`
	ConfigDigest  string `json:"config_digest"`
	CatalogDigest string `json:"catalog_digest"`
	BiomeTable    string `json:"biome_table"`
}

type WorldSnapshotV1 struct {
	Header Header        `json:"header"`
	Config tuning.Config `json:"config"`

	// Layers is nil in seed mode.
	Layers *LayersV1 `json:"layers,omitempty"`
}

type PointV1 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type LayersV1 struct {
	Heightmap     []float64 `json:"heightmap"`
	Uplifted      []float64 `json:"uplifted"`
	Stress        []float64 `json:"stress"`
	Partition     []int32   `json:"partition"`
	Elevation     []float64 `json:"elevation"`
	Temperature   []float64 `json:"temperature"`
	Precipitation []float64 `json:"precipitation"`
	Moisture      []float64 `json:"moisture"`
	Biomes        []uint8   `json:"biomes"`
	Ley           []bool    `json:"ley"`

	Plates      []PlateV1      `json:"plates"`
	Boundaries  []BoundaryV1   `json:"boundaries"`
	Rivers      []RiverV1      `json:"rivers"`
	Lakes       []LakeV1       `json:"lakes"`
	Deposits    []DepositV1    `json:"deposits"`
	LeyAnchors  []PointV1      `json:"ley_anchors"`
	LeyLines    []LeyLineV1    `json:"ley_lines"`
	Flora       []LifeCellV1   `json:"flora"`
	Fauna       []LifeCellV1   `json:"fauna"`
	Sites       []SiteV1       `json:"sites"`
	Regions     []RegionV1     `json:"regions"`
	Settlements []SettlementV1 `json:"settlements"`
}

type PlateV1 struct {
	Center PointV1 `json:"center"`
	DriftX float64 `json:"drift_x"`
	DriftY float64 `json:"drift_y"`
	Kind   uint8   `json:"kind"`
}

type BoundaryV1 struct {
	Cell      PointV1 `json:"cell"`
	Plate     int     `json:"plate"`
	Other     int     `json:"other"`
	Kind      uint8   `json:"kind"`
	Intensity float64 `json:"intensity"`
}

type RiverV1 struct {
	Points     []PointV1 `json:"points"`
	Elevations []float64 `json:"elevations"`
	Flow       float64   `json:"flow"`
	Terminus   uint8     `json:"terminus"`
	MergesInto int       `json:"merges_into"`
}

type LakeV1 struct {
	Cell   PointV1 `json:"cell"`
	River  int     `json:"river"`
	Forced bool    `json:"forced"`
}

type DepositV1 struct {
	Cell      PointV1 `json:"cell"`
	Kind      string  `json:"kind"`
	Abundance float64 `json:"abundance"`
}

type LeyLineV1 struct {
	Path []PointV1 `json:"path"`
}

type PresenceV1 struct {
	Species string  `json:"species"`
	Density float64 `json:"density"`
}

type LifeCellV1 struct {
	Cell    PointV1      `json:"cell"`
	Species []PresenceV1 `json:"species"`
}

type SiteV1 struct {
	Cell    PointV1 `json:"cell"`
	Kind    uint8   `json:"kind"`
	Variant string  `json:"variant"`
	Score   float64 `json:"score"`
}

type PopulationV1 struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

type RegionV1 struct {
	Origin     PointV1        `json:"origin"`
	W          int            `json:"w"`
	H          int            `json:"h"`
	LandCells  int            `json:"land_cells"`
	Dominant   uint8          `json:"dominant"`
	Population []PopulationV1 `json:"population"`
	Capacity   float64        `json:"capacity"`
}

type SettlementV1 struct {
	Cell            PointV1 `json:"cell"`
	Habitability    float64 `json:"habitability"`
	RiverProximity  float64 `json:"river_proximity"`
	ResourceDensity float64 `json:"resource_density"`
	Score           float64 `json:"score"`
}

func WriteSnapshot(path string, snap WorldSnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, snap)
}

// Encode writes the compressed header line and gob body to w.
func Encode(w io.Writer, snap WorldSnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (WorldSnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorldSnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a snapshot and checks that the header line agrees with the
// header inside the body.
func Decode(r io.Reader) (WorldSnapshotV1, error) {
	var snap WorldSnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header != h {
		return snap, errors.New("snapshot header line does not match body")
	}
	return snap, nil
}

// ReadHeader decodes only the header line, for listings.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}
