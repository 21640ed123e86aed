package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(30 * time.Second)
	c.Set("other", "v2")

	now = now.Add(31 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, 0, c.CleanExpired())
	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 0, c.Size())

	c.Set("b", 2)
	c.Purge()
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestManagerRunOnce(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	m.Register("sessions", CleanerFunc(func() int { calls++; return 2 }))
	m.Register("registries", CleanerFunc(func() int { return 1 }))

	assert.Equal(t, 3, m.RunOnce())
	assert.Equal(t, 1, calls)

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}
