package cache

import (
	"testing"
	"time"
)

func TestGetPut(t *testing.T) {
	c := New[int](time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("k", 42)
	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Fatalf("expected hit with 42, got %d ok=%t", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	c := New[string](10 * time.Minute).WithClock(func() time.Time { return clock })

	c.Put("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	clock = clock.Add(10*time.Minute + time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int](time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Invalidate")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("other keys must survive single-key invalidation")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[int](time.Minute)
	calls := 0
	compute := func() int { calls++; return 7 }

	if v := c.GetOrCompute("k", compute); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := c.GetOrCompute("k", compute); v != 7 {
		t.Fatalf("expected cached 7, got %d", v)
	}
	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New[int](0)
	c.Put("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("zero TTL must always miss")
	}
}
