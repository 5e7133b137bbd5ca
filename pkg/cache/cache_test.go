package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rc, ok := c.(*RistrettoCache)
	require.True(t, ok)
	return rc
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("embedding:btc 100k", []float64{0.1, 0.2, 0.3}, time.Minute)
	require.True(t, ok)
	c.Wait()

	v, found := c.Get("embedding:btc 100k")
	require.True(t, found)
	vec, ok := v.([]float64)
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("never-set")
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("k", "v", time.Minute))
	c.Wait()
	c.Delete("k")
	c.Wait()

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("short-lived", "v", 20*time.Millisecond))
	c.Wait()

	assert.Eventually(t, func() bool {
		_, found := c.Get("short-lived")
		return !found
	}, time.Second, 10*time.Millisecond)
}
