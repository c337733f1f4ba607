// README: Timezone-bound clock; all expiry and schedule arithmetic goes through it.
package types

import (
	"fmt"
	"sync"
	"time"
)

const DefaultTimezone = "America/Argentina/Buenos_Aires"

type Clock struct {
	loc *time.Location

	mu    sync.Mutex
	fixed *time.Time
}

func NewClock(tz string) (*Clock, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc}, nil
}

// FixedClock returns a clock frozen at t, for tests and replays.
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), fixed: &t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixed != nil {
		return c.fixed.In(c.loc)
	}
	return time.Now().In(c.loc)
}

func (c *Clock) Location() *time.Location { return c.loc }

// Advance moves a fixed clock forward by d. No-op on a wall clock.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixed == nil {
		return
	}
	t := c.fixed.Add(d)
	c.fixed = &t
}

// ParseSchedule parses an RFC 3339 timestamp; values without an offset are read in the clock's zone.
func (c *Clock) ParseSchedule(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(c.loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, v, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}
