package poller

import (
	"context"
	"time"
)

// Clock abstracts timer scheduling so tests run without wall-clock waits.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// RealClock schedules on the wall clock.
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Sleep waits for d on the given clock or until ctx is done.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}
