package recorder

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

	"InstabilitySentinel/internal/model"
)

// ArchiveRecorder appends observations as JSON lines to a single file.
// With compression on, every line is written as its own zstd frame; the
// decoder reads concatenated frames as one stream.
type ArchiveRecorder struct {
	mu       sync.Mutex
	path     string
	compress bool
	encoder  *zstd.Encoder
}

// NewArchiveRecorder creates the parent directory of path if needed.
func NewArchiveRecorder(path string, compress bool) (*ArchiveRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	a := &ArchiveRecorder{path: path, compress: compress}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, fmt.Errorf("create encoder: %w", err)
		}
		a.encoder = enc
	}
	return a, nil
}

func (a *ArchiveRecorder) RecordObservation(obs *model.Observation) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	line, err := a.encodeLine(obs)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	return f.Close()
}

func (a *ArchiveRecorder) encodeLine(obs *model.Observation) ([]byte, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return nil, fmt.Errorf("marshal observation: %w", err)
	}
	data = append(data, '\n')
	if a.compress {
		return a.encoder.EncodeAll(data, nil), nil
	}
	return data, nil
}

func (a *ArchiveRecorder) LoadObservations(since time.Time) ([]model.Observation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	all, err := a.readAll()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, obs := range all {
		if !obs.Timestamp.Before(since) {
			out = append(out, obs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (a *ArchiveRecorder) readAll() ([]model.Observation, error) {
	f, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if a.compress {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var out []model.Observation
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var obs model.Observation
		if err := json.Unmarshal(scanner.Bytes(), &obs); err != nil {
			return nil, fmt.Errorf("decode archive line: %w", err)
		}
		out = append(out, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return out, nil
}

// Prune rewrites the archive without observations older than before.
func (a *ArchiveRecorder) Prune(before time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	all, err := a.readAll()
	if err != nil {
		return 0, err
	}

	tmp := a.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	var removed int64
	for i := range all {
		if all[i].Timestamp.Before(before) {
			removed++
			continue
		}
		line, err := a.encodeLine(&all[i])
		if err == nil {
			_, err = f.Write(line)
		}
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return 0, fmt.Errorf("replace archive: %w", err)
	}
	return removed, nil
}

func (a *ArchiveRecorder) Close() error {
	if a.encoder != nil {
		return a.encoder.Close()
	}
	return nil
}
