package history

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	corehistory "github.com/kilianp07/squadopt/core/history"
)

// Rotation configures size-based rotation of a JSONL store. A zero MaxSizeMB
// disables rotation.
type Rotation struct {
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// JSONLStore stores run records in a JSONL file, one record per line.
type JSONLStore struct {
	path string
	mu   sync.Mutex
	rot  *lumberjack.Logger
}

// NewJSONLStore creates the file and its directory when missing.
func NewJSONLStore(path string, rot Rotation) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	s := &JSONLStore{path: path}
	if rot.MaxSizeMB > 0 {
		s.rot = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
		}
	}
	return s, nil
}

func (s *JSONLStore) Append(ctx context.Context, rec corehistory.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rot != nil {
		return json.NewEncoder(s.rot).Encode(rec)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(rec)
}

// Query reads the live file and any rotated backups. Lines that fail to
// decode are skipped.
func (s *JSONLStore) Query(ctx context.Context, q corehistory.Query) ([]corehistory.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var res []corehistory.RunRecord
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readJSONL(name, q)
		if err != nil {
			return nil, err
		}
		res = append(res, recs...)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	return q.Tail(res), nil
}

// files lists rotated backups oldest first, then the live file. Backups are
// named <base>-<timestamp><ext> next to the live file.
func (s *JSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	backups, err := filepath.Glob(strings.TrimSuffix(s.path, ext) + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	return append(backups, s.path), nil
}

func readJSONL(name string, q corehistory.Query) ([]corehistory.RunRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []corehistory.RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var r corehistory.RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, scanner.Err()
}

// Close releases the rotating writer, if any.
func (s *JSONLStore) Close() error {
	if s.rot != nil {
		return s.rot.Close()
	}
	return nil
}
