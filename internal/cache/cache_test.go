package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheExpiry(t *testing.T) {
	c := New[string](time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("pawan kumar", "acc-1")
	v, ok := c.Get("pawan kumar")
	assert.True(t, ok)
	assert.Equal(t, "acc-1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("pawan kumar")
	assert.False(t, ok)

	c.Set("pawan kumar", "acc-2")
	v, _ = c.Get("pawan kumar")
	assert.Equal(t, "acc-2", v)
}
