// ABOUTME: Tests for the redelivery filter cache
// ABOUTME: Covers expiry, capacity eviction, Forget, sweeping, and concurrent Seen calls

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_Seen(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.Seen("msg-1"), "first delivery is new")
	assert.True(t, cache.Seen("msg-1"), "redelivery is a duplicate")
	assert.False(t, cache.Seen("msg-2"))
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Seen_Expired(t *testing.T) {
	clock := newFakeClock()
	cache := New(time.Minute, 100, WithClock(clock.Now))
	defer cache.Close()

	assert.False(t, cache.Seen("msg-1"))

	clock.Advance(59 * time.Second)
	assert.True(t, cache.Seen("msg-1"))

	clock.Advance(time.Second)
	assert.False(t, cache.Seen("msg-1"), "accepted again once the window has passed")
	assert.True(t, cache.Seen("msg-1"))
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Eviction(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	for i := range 4 {
		cache.Seen(fmt.Sprintf("msg-%d", i))
	}

	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.Seen("msg-0"), "oldest key is evicted first")
	assert.True(t, cache.Seen("msg-3"))
}

func TestCache_Forget(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.Seen("msg-1")
	cache.Forget("msg-1")
	cache.Forget("never-seen")

	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.Seen("msg-1"))
}

func TestCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	cache := New(time.Minute, 100, WithClock(clock.Now))
	defer cache.Close()

	cache.Seen("old-1")
	cache.Seen("old-2")
	clock.Advance(30 * time.Second)
	cache.Seen("fresh")
	clock.Advance(45 * time.Second)

	cache.Sweep()

	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Seen("fresh"))
}

func TestCache_Defaults(t *testing.T) {
	cache := New(0, -1)
	defer cache.Close()

	assert.Equal(t, DefaultTTL, cache.ttl)
	assert.Equal(t, DefaultMaxSize, cache.maxSize)
}

func TestCache_Seen_Concurrent(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	const workers = 50
	var fresh atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cache.Seen("same-message") {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load(), "exactly one delivery is accepted")
}

func TestCache_Close(t *testing.T) {
	cache := New(5*time.Minute, 100)

	cache.Close()
	cache.Close()

	assert.False(t, cache.Seen("after-close"), "cache stays usable after the sweeper stops")
}
