package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, max int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(Config{MaxRequests: max, WindowSize: time.Second, CleanupInterval: time.Hour})
	l.clock = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 2)

	assert.True(t, l.Allow("a"))
	clock.Advance(400 * time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are limited independently")

	// the first request leaves the window
	clock.Advance(700 * time.Millisecond)
	assert.Equal(t, 1, l.Count("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a"))
	}
	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("a"))
	nilLimiter.Stop()
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t, 5)
	l.Allow("a")
	l.Allow("b")
	clock.Advance(2 * time.Second)
	l.Allow("b")

	l.cleanup()
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.requests, "a")
	assert.Len(t, l.requests["b"], 1)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}

func TestSubmissionLimiter(t *testing.T) {
	s := NewSubmissionLimiter(SubmissionConfig{
		IP:     Config{MaxRequests: 1, WindowSize: time.Minute},
		Sender: Config{MaxRequests: 2, WindowSize: time.Minute},
	})
	defer s.Stop()

	require.NoError(t, s.AllowIP("10.0.0.1"))
	err := s.AllowIP("10.0.0.1")
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "ip", rle.Type)

	require.NoError(t, s.AllowSender("alice"))
	require.NoError(t, s.AllowSender("alice"))
	assert.Error(t, s.AllowSender("alice"))

	var nilLimiter *SubmissionLimiter
	assert.NoError(t, nilLimiter.AllowIP("x"))
	assert.NoError(t, nilLimiter.AllowSender("x"))
}
