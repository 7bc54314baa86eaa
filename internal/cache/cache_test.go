package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsOldestBeyondBound(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", 3, 0)
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
}

func TestLRUExpiresEntries(t *testing.T) {
	c := NewLRU[string, int](4)
	c.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[string, int](64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%100)
				c.Set(key, worker, time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
