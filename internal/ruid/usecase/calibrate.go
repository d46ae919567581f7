package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

// Calibrate reads the clock twice, window apart, and fails unless it moved
// forward by at least window. The second reading is returned so the allocator
// can be seeded with a time the clock has already been observed at.
func Calibrate(ctx context.Context, clock *ClockAdapter, window time.Duration) (uint64, error) {
	before, err := clock.NowMs()
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	after, err := clock.NowMs()
	if err != nil {
		return 0, err
	}

	if after < before {
		return 0, &entity.RegressionError{Delta: before - after}
	}

	want := uint64(window.Milliseconds())
	if after-before < want {
		return 0, fmt.Errorf("%w: clock advanced %dms during a %dms calibration window", entity.ErrClockRegression, after-before, want)
	}

	slog.InfoContext(ctx, "clock calibrated", "before_ms", before, "after_ms", after, "window_ms", want)

	return after, nil
}
