package omstest

import (
	"sync"
	"time"
)

// InstantClock never sleeps and records every wait it was asked for.
type InstantClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func NewInstantClock(now time.Time) *InstantClock {
	return &InstantClock{now: now}
}

func (c *InstantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *InstantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *InstantClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}
