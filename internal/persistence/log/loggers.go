package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"worldforge.ai/internal/gen/world"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files
// <baseDir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// StageTrace is one line of the stage trace log.
type StageTrace struct {
	Seed          int64  `json:"seed"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ConfigDigest  string `json:"config_digest"`
	CatalogDigest string `json:"catalog_digest"`
	Index         int    `json:"index"`
	Stage         string `json:"stage"`
	Draws         uint64 `json:"draws"`
	DurationUS    int64  `json:"duration_us"`
	At            string `json:"at"`
}

// RunKey selects the traced runs that must reproduce the same draws.
type RunKey struct {
	Seed          int64
	Width         int
	Height        int
	ConfigDigest  string
	CatalogDigest string
}

func (t StageTrace) Key() RunKey {
	return RunKey{Seed: t.Seed, Width: t.Width, Height: t.Height, ConfigDigest: t.ConfigDigest, CatalogDigest: t.CatalogDigest}
}

// Runs filters traces by key and splits them into runs, each starting at
// stage index 0. Traces are expected in write order.
func Runs(traces []StageTrace, key RunKey) [][]StageTrace {
	var out [][]StageTrace
	for _, tr := range traces {
		if tr.Key() != key {
			continue
		}
		if tr.Index == 0 || len(out) == 0 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], tr)
	}
	return out
}

// TraceLogger writes one JSONL entry per completed stage (compressed).
type TraceLogger struct {
	w *JSONLZstdWriter

	mu  sync.Mutex
	err error
}

func NewTraceLogger(outDir string) *TraceLogger {
	return &TraceLogger{w: NewJSONLZstdWriter(filepath.Join(outDir, "trace"), "trace")}
}

func (l *TraceLogger) WriteStage(v StageTrace) error { return l.w.Write(v) }

// Hook adapts the logger to world.WithStageHook. The first write error is
// kept and returned by Err.
func (l *TraceLogger) Hook(seed int64, width, height int) func(world.StageReport) {
	return func(r world.StageReport) {
		err := l.WriteStage(StageTrace{
			Seed:          seed,
			Width:         width,
			Height:        height,
			ConfigDigest:  r.ConfigDigest,
			CatalogDigest: r.CatalogDigest,
			Index:         r.Index,
			Stage:         r.Stage,
			Draws:         r.Draws,
			DurationUS:    r.Duration.Microseconds(),
			At:            l.w.now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			l.mu.Lock()
			if l.err == nil {
				l.err = err
			}
			l.mu.Unlock()
		}
	}
}

func (l *TraceLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *TraceLogger) Close() error { return l.w.Close() }

// ReadTraces decodes every trace file under dir, in file name order.
func ReadTraces(dir string) ([]StageTrace, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "trace-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []StageTrace
	for _, p := range paths {
		got, err := readTraceFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, got...)
	}
	return out, nil
}

func readTraceFile(path string) ([]StageTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []StageTrace
	jd := json.NewDecoder(dec)
	for {
		var t StageTrace
		if err := jd.Decode(&t); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, t)
	}
}
