package timex

import (
	"sync"
	"time"
)

// Clock is the time source handed to components that compare timestamps
// instead of sleeping. Tests inject a Manual clock.
type Clock func() time.Time

// Now returns the current time from c, falling back to time.Now when nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Manual is a hand-advanced clock for tests and simulations.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

func NewManual(start time.Time) *Manual { return &Manual{t: start} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Clock() Clock { return m.Now }
