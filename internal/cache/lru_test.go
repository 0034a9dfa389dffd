package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "alpha")

	if v, ok := c.Get("a"); !ok || v != "alpha" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected item to be expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired item should be removed on access, size=%d", c.Size())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recently used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestLRUCache_SetUntilAndUpdate(t *testing.T) {
	c, clock := newTestCache(10, time.Hour)
	c.SetUntil("s", "v1", clock.t.Add(time.Minute))

	if !c.Update("s", func(string) string { return "v2" }) {
		t.Fatalf("Update on live key should succeed")
	}
	if v, _ := c.Get("s"); v != "v2" {
		t.Fatalf("Get after Update = %q", v)
	}
	clock.t = clock.t.Add(90 * time.Second)
	if c.Update("s", func(string) string { return "v3" }) {
		t.Fatalf("Update must not revive an expired key")
	}
	if c.Update("missing", func(s string) string { return s }) {
		t.Fatalf("Update on missing key should report false")
	}
}

func TestManager_Sweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("c", "3")

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d items, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size after sweep = %d, want 1", c.Size())
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
