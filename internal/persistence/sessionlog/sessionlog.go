// Package sessionlog records one client session as compressed JSONL: every
// frame crossing the wire plus periodic prediction checkpoints. The log is
// the raw material for cmd/replay.
package sessionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"chunkborne.gg/internal/engine"
)

// Record directions.
const (
	DirIn         = "in"
	DirOut        = "out"
	DirCheckpoint = "cp"
)

// Record is one JSONL line. Frame is set for in/out records, Checkpoint for
// cp records.
type Record struct {
	At         string             `json:"at"`
	Dir        string             `json:"dir"`
	Frame      json.RawMessage    `json:"frame,omitempty"`
	Checkpoint *engine.Checkpoint `json:"checkpoint,omitempty"`
}

// Recorder implements engine.Recorder on top of a rotating zstd JSONL file.
type Recorder struct {
	baseDir   string
	sessionID string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// New creates a recorder writing under baseDir. Each process run gets a
// fresh session id; files rotate hourly like the rest of the persistence
// layer.
func New(baseDir string) *Recorder {
	return &Recorder{
		baseDir:   baseDir,
		sessionID: uuid.NewString(),
	}
}

// SessionID is the unique id of this recording, used to key the session in
// the index database.
func (r *Recorder) SessionID() string { return r.sessionID }

func (r *Recorder) RecordInbound(at time.Time, raw []byte) error {
	return r.write(Record{At: stamp(at), Dir: DirIn, Frame: append([]byte(nil), raw...)})
}

func (r *Recorder) RecordOutbound(at time.Time, raw []byte) error {
	return r.write(Record{At: stamp(at), Dir: DirOut, Frame: append([]byte(nil), raw...)})
}

func (r *Recorder) RecordCheckpoint(at time.Time, cp engine.Checkpoint) error {
	return r.write(Record{At: stamp(at), Dir: DirCheckpoint, Checkpoint: &cp})
}

func stamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339Nano)
}

func (r *Recorder) write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != r.curHour {
		if err := r.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Recorder) rotateLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	path := r.pathForHour(hour)
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
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 128*1024)
	r.curHour = hour
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	var err1 error
	if r.w != nil {
		_ = r.w.Flush()
	}
	if r.enc != nil {
		err1 = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.w = nil
	return err1
}

func (r *Recorder) pathForHour(hour string) string {
	return filepath.Join(r.baseDir, fmt.Sprintf("session-%s-%s.jsonl.zst", r.sessionID, hour))
}

// ReadFile streams every record of one session log file through fn, in file
// order. fn returning an error stops the scan.
func ReadFile(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ListFiles returns the session log files under dir, sorted by name so
// hourly rotation keeps them in time order.
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "session-") && strings.HasSuffix(name, ".jsonl.zst") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out, nil
}
