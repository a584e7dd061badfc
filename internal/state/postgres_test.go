package state

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/af-corp/aireader-gateway/internal/types"
)

// fakePG emulates the route_active and route_cursors tables for the exact
// statements PostgresStore issues.
type fakePG struct {
	active  *int
	cursors map[[2]string]int
	err     error
	queries []string
}

func newFakePG() *fakePG {
	return &fakePG{cursors: make(map[[2]string]int)}
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.queries = append(f.queries, sql)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	switch {
	case strings.Contains(sql, "INSERT INTO route_active"):
		idx := args[0].(int)
		f.active = &idx
	case strings.Contains(sql, "INSERT INTO route_cursors"):
		f.cursors[[2]string{args[0].(string), args[1].(string)}] = args[2].(int)
	case strings.Contains(sql, "DELETE FROM route_cursors"):
		f.cursors = make(map[[2]string]int)
	case strings.Contains(sql, "DELETE FROM route_active"):
		f.active = nil
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakePG) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	if f.err != nil {
		return nil, f.err
	}
	rows := &fakeRows{pos: -1}
	for k, v := range f.cursors {
		rows.data = append(rows.data, []any{k[0], k[1], v})
	}
	sort.Slice(rows.data, func(i, j int) bool {
		return rows.data[i][1].(string) < rows.data[j][1].(string)
	})
	return rows, nil
}

func (f *fakePG) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	if strings.Contains(sql, "FROM route_active") {
		if f.active == nil {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{*f.active}}
	}
	idx, ok := f.cursors[[2]string{args[0].(string), args[1].(string)}]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{vals: []any{idx}}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos], nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.data[r.pos], dest)
}

func scanInto(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, NewPostgresStore(newFakePG()))
}

func TestPostgresStore_LoadSkipsUnknownKinds(t *testing.T) {
	db := newFakePG()
	db.cursors[[2]string{"text", "fp-a"}] = 2
	db.cursors[[2]string{"audio", "fp-b"}] = 1

	snap, err := NewPostgresStore(db).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := snap.Cursor(types.KindText, "fp-a"); !ok || idx != 2 {
		t.Errorf("text cursor = %d, %v; want 2, true", idx, ok)
	}
	if len(snap.Cursors) != 1 {
		t.Errorf("unknown kinds should be dropped, got %+v", snap.Cursors)
	}
}

func TestPostgresStore_WritesAreUpserts(t *testing.T) {
	db := newFakePG()
	s := NewPostgresStore(db)
	ctx := context.Background()

	s.SetActive(ctx, 1)
	s.SetCursor(ctx, types.KindText, "fp", 1)

	for _, q := range db.queries {
		if !strings.Contains(q, "ON CONFLICT") {
			t.Errorf("write is not an upsert: %s", q)
		}
	}
}

func TestPostgresStore_ErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	db := newFakePG()
	db.err = boom
	s := NewPostgresStore(db)
	ctx := context.Background()

	if _, err := s.Active(ctx); !errors.Is(err, boom) {
		t.Errorf("Active error = %v, want wrapped %v", err, boom)
	}
	if err := s.SetCursor(ctx, types.KindImage, "fp", 1); !errors.Is(err, boom) {
		t.Errorf("SetCursor error = %v, want wrapped %v", err, boom)
	}
	if _, err := s.Load(ctx); !errors.Is(err, boom) {
		t.Errorf("Load error = %v, want wrapped %v", err, boom)
	}
}
