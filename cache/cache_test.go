package cache

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_HitWithinMaxAge(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := New[string](10)
		defer c.Close()

		c.Set("k", "rendered")
		time.Sleep(500 * time.Millisecond)

		v, ok := c.Get("k", 1000)
		require.True(t, ok)
		assert.Equal(t, "rendered", v)

		time.Sleep(time.Second)
		_, ok = c.Get("k", 1000)
		assert.False(t, ok, "entry older than max age must miss")
	})
}

func TestCache_ZeroMaxAgeSkipsLookup(t *testing.T) {
	c := New[string](10)
	defer c.Close()

	c.Set("k", "v")
	_, ok := c.Get("k", 0)
	assert.False(t, ok)
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New[int](2)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	assert.Equal(t, 2, c.Len(), "overwriting a key must not evict")

	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())
	v, ok := c.Get("c", 60_000)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCache_CleanupLoopDropsOldEntries(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := New[string](10)
		defer c.Close()

		c.Set("old", "x")
		time.Sleep(66 * time.Minute)
		synctest.Wait()

		assert.Equal(t, 0, c.Len())
	})
}

func TestKey_SeparatesFields(t *testing.T) {
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Equal(t, Key("https://example.com", "<p>x</p>"), Key("https://example.com", "<p>x</p>"))
}
