package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_ReturnsUTC(t *testing.T) {
	now := NewSystemClock().Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())

	next := c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), next)
	assert.Equal(t, next, c.Now())

	pinned := time.Date(2026, 2, 1, 0, 0, 0, 0, time.FixedZone("PET", -5*3600))
	c.SetNow(pinned)
	assert.Equal(t, pinned.UTC(), c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}
