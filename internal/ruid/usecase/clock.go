package usecase

import (
	"fmt"
	"time"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// ClockAdapter converts wall-clock readings into milliseconds since a fixed epoch.
type ClockAdapter struct {
	clock Clock
	epoch time.Time
	max   uint64
}

// NewClockAdapter binds a clock to an epoch and the timestamp capacity of layout.
// A nil clock reads the system time.
func NewClockAdapter(clock Clock, epoch time.Time, layout entity.Layout) *ClockAdapter {
	if clock == nil {
		clock = realClock{}
	}

	return &ClockAdapter{
		clock: clock,
		epoch: epoch,
		max:   layout.MaxTimestamp,
	}
}

// NowMs returns the elapsed milliseconds since the epoch.
func (c *ClockAdapter) NowMs() (uint64, error) {
	elapsed := c.clock.Now().Sub(c.epoch)
	if elapsed < 0 {
		return 0, fmt.Errorf("%w: %s before %s", entity.ErrClockBeforeEpoch, -elapsed, c.epoch.UTC().Format(time.RFC3339))
	}

	ms := uint64(elapsed.Milliseconds())
	if ms > c.max {
		return 0, fmt.Errorf("%w: %dms elapsed, field holds %dms", entity.ErrTimestampOverflow, ms, c.max)
	}

	return ms, nil
}

func (c *ClockAdapter) Epoch() time.Time {
	return c.epoch
}

// Time converts a timestamp field back to wall-clock time.
func (c *ClockAdapter) Time(ms uint64) time.Time {
	return time.UnixMilli(c.epoch.UnixMilli() + int64(ms)).UTC()
}
