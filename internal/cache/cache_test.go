package cache

import (
	"testing"
	"time"
)

func TestCache_GetSetExpiry(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Hour, func() time.Time { return clock })

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Set("a", 42)
	if got, ok := c.Get("a"); !ok || got != 42 {
		t.Fatalf("expected hit with 42, got %v ok=%v", got, ok)
	}

	clock = clock.Add(59 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry served after expiry")
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := New[string](time.Hour, func() time.Time { return clock })

	c.Set("k", "first")
	c.Set("k", "second")

	if got, _ := c.Get("k"); got != "second" {
		t.Fatalf("expected second write to win, got %q", got)
	}
}

func TestCache_Purge(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute, func() time.Time { return clock })

	c.Set("old", 1)
	clock = clock.Add(2 * time.Minute)
	c.Set("new", 2)

	c.Purge()
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after purge, got %d", c.Len())
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("unexpired entry dropped by purge")
	}
}
