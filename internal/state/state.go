// Package state persists routing state: the active-credential pointer and
// the per-credential, per-kind model cursors.
//
// Every Store write touches a single key and is atomic on its own. There are
// no multi-key transactions; concurrent writers are last-writer-wins.
package state

import (
	"context"

	"github.com/af-corp/aireader-gateway/internal/types"
)

// Store persists routing state. Cursor keys are opaque credential
// identifiers (fingerprints), never raw credentials.
type Store interface {
	// Load returns a point-in-time copy of the whole state.
	Load(ctx context.Context) (*Snapshot, error)
	Active(ctx context.Context) (int, error)
	SetActive(ctx context.Context, index int) error
	// Cursor returns 0 for keys that were never written.
	Cursor(ctx context.Context, kind types.Kind, key string) (int, error)
	SetCursor(ctx context.Context, kind types.Kind, key string, index int) error
	Clear(ctx context.Context) error
}

// Snapshot is the full routing state, as persisted by file-backed stores
// and reported by Load.
type Snapshot struct {
	Active  int                           `json:"active"`
	Cursors map[types.Kind]map[string]int `json:"cursors"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{Cursors: make(map[types.Kind]map[string]int)}
}

// Cursor returns the stored cursor and whether one was set.
func (s *Snapshot) Cursor(kind types.Kind, key string) (int, bool) {
	idx, ok := s.Cursors[kind][key]
	return idx, ok
}

func (s *Snapshot) SetCursor(kind types.Kind, key string, index int) {
	if s.Cursors == nil {
		s.Cursors = make(map[types.Kind]map[string]int)
	}
	m, ok := s.Cursors[kind]
	if !ok {
		m = make(map[string]int)
		s.Cursors[kind] = m
	}
	m[key] = index
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{Active: s.Active, Cursors: make(map[types.Kind]map[string]int, len(s.Cursors))}
	for kind, m := range s.Cursors {
		cp := make(map[string]int, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.Cursors[kind] = cp
	}
	return out
}
