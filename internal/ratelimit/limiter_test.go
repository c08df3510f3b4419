package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(start time.Time) (*Limiter, *clock) {
	c := &clock{t: start}
	l := New()
	l.now = c.now
	l.lastSweep = start
	return l, c
}

func TestCheck_FixedWindow(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	l, c := newTestLimiter(start)
	opts := Options{MaxRequests: 3, Window: time.Minute}

	for i := 2; i >= 0; i-- {
		res := l.Check("1.2.3.4", opts)
		assert.True(t, res.Allowed)
		assert.Equal(t, i, res.Remaining)
		assert.Equal(t, start.Add(time.Minute), res.ResetTime)
	}

	res := l.Check("1.2.3.4", opts)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// другой клиент считается отдельно
	assert.True(t, l.Check("5.6.7.8", opts).Allowed)

	c.t = start.Add(time.Minute)
	res = l.Check("1.2.3.4", opts)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, c.t.Add(time.Minute), res.ResetTime)
}

func TestCheck_SweepsExpiredEntriesAtMostOncePerMinute(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	l, c := newTestLimiter(start)
	opts := Options{MaxRequests: 5, Window: 10 * time.Second}

	l.Check("a", opts)
	l.Check("b", opts)
	assert.Equal(t, 2, l.Len())

	c.t = start.Add(30 * time.Second)
	l.Check("c", opts)
	assert.Equal(t, 3, l.Len(), "sweep must not run before a minute has passed")

	c.t = start.Add(61 * time.Second)
	l.Check("d", opts)
	assert.Equal(t, 1, l.Len())
}
