// Package report persists simulation output: compressed JSONL traces of the
// SimLog and per-run summaries in SQLite.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Garsondee/Unit-Commander/internal/sim"
)

// TraceRecord is one line of a trace file.
type TraceRecord struct {
	Tick     int     `json:"tick"`
	Unit     string  `json:"unit"`
	Team     string  `json:"team"`
	Group    string  `json:"group"`
	Category string  `json:"cat"`
	Key      string  `json:"key"`
	Value    string  `json:"value,omitempty"`
	NumVal   float64 `json:"num,omitempty"`
}

func recordOf(e sim.SimLogEntry) TraceRecord {
	return TraceRecord{
		Tick:     e.Tick,
		Unit:     e.Unit,
		Team:     e.Team,
		Group:    e.Group,
		Category: e.Category,
		Key:      e.Key,
		Value:    e.Value,
		NumVal:   e.NumVal,
	}
}

// TraceWriter appends JSON lines to a zstd-compressed file.
type TraceWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
	err error
}

// NewTraceWriter creates (or truncates) path.
func NewTraceWriter(path string) (*TraceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TraceWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Write appends v as one JSON line.
func (t *TraceWriter) Write(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return fmt.Errorf("report: trace writer closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	t.n++
	return nil
}

// WriteEntry appends a SimLog entry. Failures are kept and reported by Err
// and Close so it can be used directly as a SimLog sink.
func (t *TraceWriter) WriteEntry(e sim.SimLogEntry) {
	if err := t.Write(recordOf(e)); err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}
}

// Err is the first error hit by WriteEntry.
func (t *TraceWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Lines is the number of records written.
func (t *TraceWriter) Lines() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Close flushes and closes the file.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return t.err
	}
	var first error
	if err := t.w.Flush(); err != nil {
		first = err
	}
	if err := t.enc.Close(); err != nil && first == nil {
		first = err
	}
	if err := t.f.Close(); err != nil && first == nil {
		first = err
	}
	t.w, t.enc, t.f = nil, nil, nil
	if first == nil {
		first = t.err
	}
	return first
}

// ReadTrace decodes every record of a trace file.
func ReadTrace(path string) ([]TraceRecord, error) {
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
	return decodeLines(dec)
}

func decodeLines(r io.Reader) ([]TraceRecord, error) {
	var out []TraceRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec TraceRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
