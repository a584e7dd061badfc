package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Local_AllowsBurst(t *testing.T) {
	l := NewLimiter(nil, 5)
	for i := 0; i < 5; i++ {
		result, err := l.Check(context.Background(), "test:key", 60, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected allowed on check %d", i)
		}
	}

	result, _ := l.Check(context.Background(), "test:key", 60, time.Minute)
	if result.Allowed {
		t.Error("expected denial once the burst is spent")
	}
	if result.RetryAfter != time.Second {
		t.Errorf("expected retry after one interval (1s), got %s", result.RetryAfter)
	}
	if result.Remaining != 0 {
		t.Errorf("expected remaining=0, got %d", result.Remaining)
	}
}

func TestLimiter_Local_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(nil, 1)
	if r, _ := l.Check(context.Background(), "a", 1, time.Hour); !r.Allowed {
		t.Fatal("first request for a should pass")
	}
	if r, _ := l.Check(context.Background(), "a", 1, time.Hour); r.Allowed {
		t.Error("second request for a should be denied")
	}
	if r, _ := l.Check(context.Background(), "b", 1, time.Hour); !r.Allowed {
		t.Error("b has its own bucket")
	}
}

func TestLimiter_Local_MinimumBurst(t *testing.T) {
	l := NewLimiter(nil, 0)
	if r, _ := l.Check(context.Background(), "k", 10, time.Minute); !r.Allowed {
		t.Error("burst below 1 should be raised to 1")
	}
}

func TestLimiter_Local_TableIsBounded(t *testing.T) {
	l := NewLimiter(nil, 1)
	for i := 0; i < maxLocalBuckets+10; i++ {
		l.Check(context.Background(), time.Duration(i).String(), 1, time.Minute)
	}
	if len(l.local) > maxLocalBuckets {
		t.Errorf("local table grew to %d entries", len(l.local))
	}
}
