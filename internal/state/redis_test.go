package state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/aireader-gateway/internal/types"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	exerciseStore(t, NewRedisStore(rdb))
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	ctx := context.Background()

	if err := s.SetActive(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCursor(ctx, types.KindImage, "fp-a", 2); err != nil {
		t.Fatal(err)
	}

	if got, _ := mr.Get("aireader:route:active"); got != "1" {
		t.Errorf("active key = %q, want 1", got)
	}
	if got := mr.HGet("aireader:route:cursors:image", "fp-a"); got != "2" {
		t.Errorf("image cursor field = %q, want 2", got)
	}
	if mr.Exists("aireader:route:cursors:text") {
		t.Error("text cursors must stay independent of image writes")
	}
}

func TestRedisStore_MissingKeysReadAsZero(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	ctx := context.Background()

	// A hash without the field and an absent string key both hit redis.Nil.
	mr.HSet("aireader:route:cursors:text", "other", "3")

	if idx, err := s.Cursor(ctx, types.KindText, "fp-a"); err != nil || idx != 0 {
		t.Errorf("Cursor() = %d, %v; want 0, nil", idx, err)
	}
	if idx, err := s.Active(ctx); err != nil || idx != 0 {
		t.Errorf("Active() = %d, %v; want 0, nil", idx, err)
	}
}

func TestRedisStore_LoadSkipsGarbage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.HSet("aireader:route:cursors:text", "fp-a", "2")
	mr.HSet("aireader:route:cursors:text", "fp-b", "not-a-number")

	snap, err := NewRedisStore(rdb).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := snap.Cursor(types.KindText, "fp-a"); !ok || idx != 2 {
		t.Errorf("fp-a cursor = %d, %v; want 2, true", idx, ok)
	}
	if _, ok := snap.Cursor(types.KindText, "fp-b"); ok {
		t.Error("unparseable cursor should be skipped")
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	mr.Close()

	if _, err := s.Active(context.Background()); err == nil {
		t.Error("expected an error when redis is unreachable")
	}
	if err := s.SetCursor(context.Background(), types.KindText, "fp", 1); err == nil {
		t.Error("expected an error when redis is unreachable")
	}
}
