package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/af-corp/aireader-gateway/internal/types"
)

// FileStore keeps routing state in a JSON file. The file is re-read on every
// operation so edits made by other processes (routectl) are picked up, and
// replaced atomically on every write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) read() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", f.path, err)
	}
	snap := NewSnapshot()
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	if snap.Cursors == nil {
		snap.Cursors = make(map[types.Kind]map[string]int)
	}
	return snap, nil
}

func (f *FileStore) write(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".routing-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state file %s: %w", f.path, err)
	}
	return nil
}

// update applies fn to the current snapshot and writes the result.
func (f *FileStore) update(fn func(*Snapshot)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, err := f.read()
	if err != nil {
		return err
	}
	fn(snap)
	return f.write(snap)
}

func (f *FileStore) Load(_ context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) Active(ctx context.Context) (int, error) {
	snap, err := f.Load(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Active, nil
}

func (f *FileStore) SetActive(_ context.Context, index int) error {
	return f.update(func(s *Snapshot) { s.Active = index })
}

func (f *FileStore) Cursor(ctx context.Context, kind types.Kind, key string) (int, error) {
	snap, err := f.Load(ctx)
	if err != nil {
		return 0, err
	}
	idx, _ := snap.Cursor(kind, key)
	return idx, nil
}

func (f *FileStore) SetCursor(_ context.Context, kind types.Kind, key string, index int) error {
	return f.update(func(s *Snapshot) { s.SetCursor(kind, key, index) })
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(NewSnapshot())
}
